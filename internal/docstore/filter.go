package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ccp-journal/ccp/internal/errors"
)

// Filter is a set of field predicates, AND-ed together. A plain value means
// equality; Contains and Range select other comparisons. Nested fields use
// dotted paths ("meta.source").
type Filter map[string]any

// Patch maps fields to their new values.
type Patch map[string]any

// Contains matches documents whose array field holds Value.
type Contains struct {
	Value any
}

// Range matches documents whose field lies in [Min, Max). A nil bound is
// open.
type Range struct {
	Min any
	Max any
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// jsonPath converts a field name into a JSON path, validating it.
func jsonPath(field string) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid field name %q", field))
	}
	return "$." + field, nil
}

// where builds the WHERE clause selecting documents of collection that
// satisfy f. keyField lets equality on the entity key use the primary key.
func where(collection, keyField string, f Filter) (string, []any, error) {
	clauses := []string{"collection = ?"}
	args := []any{collection}

	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		path, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}

		switch pred := f[field].(type) {
		case Contains:
			v, err := sqlValue(pred.Value)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(body, ?) WHERE json_each.value = ?)")
			args = append(args, path, v)

		case Range:
			if pred.Min != nil {
				v, err := sqlValue(pred.Min)
				if err != nil {
					return "", nil, err
				}
				clauses = append(clauses, "json_extract(body, ?) >= ?")
				args = append(args, path, v)
			}
			if pred.Max != nil {
				v, err := sqlValue(pred.Max)
				if err != nil {
					return "", nil, err
				}
				clauses = append(clauses, "json_extract(body, ?) < ?")
				args = append(args, path, v)
			}

		default:
			v, err := sqlValue(pred)
			if err != nil {
				return "", nil, err
			}
			if v == nil {
				clauses = append(clauses, "json_extract(body, ?) IS NULL")
				args = append(args, path)
				continue
			}
			clauses = append(clauses, "json_extract(body, ?) = ?")
			args = append(args, path, v)

			if field == keyField {
				switch v.(type) {
				case int64, string:
					clauses = append(clauses, "key = ?")
					args = append(args, fmt.Sprint(v))
				}
			}
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// sqlValue converts v to the SQL value json_extract would produce for the
// JSON encoding of v: strings stay TEXT, integers INTEGER, other numbers
// REAL, booleans 0/1, arrays and objects their compact JSON text.
func sqlValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewSerialization(err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, errors.NewSerialization(err)
	}

	switch x := decoded.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, errors.NewSerialization(err)
		}
		return f, nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, errors.NewSerialization(err)
		}
		return buf.String(), nil
	}
}

// setClause builds the json_set expression applying p.
func setClause(p Patch) (string, []any, error) {
	fields := make([]string, 0, len(p))
	for field := range p {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var expr strings.Builder
	expr.WriteString("json_set(body")
	args := make([]any, 0, 2*len(fields))
	for _, field := range fields {
		path, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}
		raw, err := json.Marshal(p[field])
		if err != nil {
			return "", nil, errors.NewSerialization(err)
		}
		expr.WriteString(", ?, json(?)")
		args = append(args, path, string(raw))
	}
	expr.WriteString(")")

	return expr.String(), args, nil
}
