package search

import (
	"fmt"
	"time"

	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// projected lists the fields Project fills, in order, with the kind each
// must have in the schema.
var projected = []Field{
	{Name: FieldID, Kind: I64},
	{Name: FieldTitle, Kind: Text},
	{Name: FieldText, Kind: Text},
	{Name: FieldTags, Kind: Text, Multi: true},
	{Name: FieldTimestamp, Kind: Date},
	{Name: FieldSize, Kind: F64},
	{Name: FieldDuration, Kind: F64},
}

// Document is a search document: named fields holding one or more values.
// Values are int64 (I64), string (Text), time.Time (Date) or float64 (F64).
type Document struct {
	order  []string
	values map[string][]any
}

func newDocument() *Document {
	return &Document{values: make(map[string][]any, len(projected))}
}

func (d *Document) add(name string, v any) {
	if _, ok := d.values[name]; !ok {
		d.order = append(d.order, name)
	}
	d.values[name] = append(d.values[name], v)
}

// Fields returns the names of the fields set on d, in schema order.
func (d *Document) Fields() []string {
	return append([]string(nil), d.order...)
}

// Values returns every value of the named field.
func (d *Document) Values(name string) []any {
	return d.values[name]
}

// ID returns the id field.
func (d *Document) ID() entry.ID {
	if v, ok := d.single(FieldID).(int64); ok {
		return entry.ID(v)
	}
	return 0
}

// Text returns the first value of a text field.
func (d *Document) Text(name string) string {
	s, _ := d.single(name).(string)
	return s
}

// Texts returns every value of a text field.
func (d *Document) Texts(name string) []string {
	out := make([]string, 0, len(d.values[name]))
	for _, v := range d.values[name] {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Time returns the first value of a date field.
func (d *Document) Time(name string) time.Time {
	t, _ := d.single(name).(time.Time)
	return t
}

// Float returns the first value of an f64 field.
func (d *Document) Float(name string) float64 {
	f, _ := d.single(name).(float64)
	return f
}

func (d *Document) single(name string) any {
	vs := d.values[name]
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}

// Project maps e onto schema. It is pure. It fails only if schema lacks one
// of the seven entry fields or declares it with another kind, which is a
// configuration error.
//
// The timestamp is the entry date at midnight UTC. Each tag becomes its own
// value, duplicates included.
func Project(schema *Schema, e entry.Entry) (*Document, error) {
	for _, want := range projected {
		got, ok := schema.Field(want.Name)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("search schema lacks field %q", want.Name))
		}
		if got.Kind != want.Kind {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("search schema field %q is %s, want %s", want.Name, got.Kind, want.Kind))
		}
	}

	doc := newDocument()
	doc.add(FieldID, int64(e.ID))
	doc.add(FieldTitle, e.Title)
	doc.add(FieldText, e.Text)
	if len(e.Tags) == 0 {
		doc.order = append(doc.order, FieldTags)
		doc.values[FieldTags] = []any{}
	}
	for _, tag := range e.Tags {
		doc.add(FieldTags, tag)
	}
	doc.add(FieldTimestamp, e.Date.Midnight())
	doc.add(FieldSize, e.Size)
	doc.add(FieldDuration, e.Duration)

	return doc, nil
}
