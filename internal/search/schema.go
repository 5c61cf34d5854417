// Package search derives fixed-schema search documents from entries and keeps
// them in a full-text index stored beside the documents in the same SQLite
// file.
package search

import (
	"fmt"

	"github.com/ccp-journal/ccp/internal/errors"
)

// FieldKind is the encoding of a search field.
type FieldKind int

const (
	I64 FieldKind = iota
	Text
	Date
	F64
)

func (k FieldKind) String() string {
	switch k {
	case I64:
		return "i64"
	case Text:
		return "text"
	case Date:
		return "date"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field names of the entry search document.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldText      = "text"
	FieldTags      = "tags"
	FieldTimestamp = "timestamp"
	FieldSize      = "size"
	FieldDuration  = "duration"
)

// Field is one named, typed field of a Schema.
type Field struct {
	Name  string
	Kind  FieldKind
	Multi bool
}

// Schema is an ordered set of fields.
type Schema struct {
	fields []Field
	byName map[string]int
}

// NewSchema builds a schema. Field names must be unique and non-empty.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{byName: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.NewInvalidRequest("search schema field has no name")
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("search schema field %q declared twice", f.Name))
		}
		s.byName[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// DefaultSchema is the schema entries are indexed with.
func DefaultSchema() *Schema {
	s, err := NewSchema(
		Field{Name: FieldID, Kind: I64},
		Field{Name: FieldTitle, Kind: Text},
		Field{Name: FieldText, Kind: Text},
		Field{Name: FieldTags, Kind: Text, Multi: true},
		Field{Name: FieldTimestamp, Kind: Date},
		Field{Name: FieldSize, Kind: F64},
		Field{Name: FieldDuration, Kind: F64},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	return append([]Field(nil), s.fields...)
}
