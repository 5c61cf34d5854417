package entry

import (
	"time"

	"github.com/ccp-journal/ccp/internal/errors"
)

// BulkTimestampLayout is the timestamp format used by bulk import records.
const BulkTimestampLayout = "2006-01-02T15:04:05Z"

// BulkImportRecord is the staging shape produced by importers that emit one
// array per field.
//
// ToEntry takes only the first element of every array. Later elements are
// ignored; whether they should fan out into further entries is an open
// product question, so callers must not rely on them.
type BulkImportRecord struct {
	ID        []int64   `json:"id" yaml:"id"`
	Title     []string  `json:"title" yaml:"title"`
	Timestamp []string  `json:"timestamp" yaml:"timestamp"`
	Text      []string  `json:"text" yaml:"text"`
	Tags      []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Size      []float64 `json:"size" yaml:"size"`
	Duration  []float64 `json:"duration" yaml:"duration"`
}

// ToEntry converts the record, taking the first element of each array.
// Absent arrays leave the zero value; an absent timestamp means the calendar
// day of now. Tags are a single list and are taken whole.
func (r BulkImportRecord) ToEntry(now time.Time) (Entry, error) {
	e := Entry{
		Date: DateOf(now),
		Tags: []string{},
	}

	if v, ok := first(r.ID); ok {
		e.ID = ID(v)
	}
	if v, ok := first(r.Title); ok {
		e.Title = v
	}
	if v, ok := first(r.Timestamp); ok {
		t, err := time.Parse(BulkTimestampLayout, v)
		if err != nil {
			return Entry{}, errors.NewSerialization(err)
		}
		e.Date = DateOf(t)
	}
	if v, ok := first(r.Text); ok {
		e.Text = v
	}
	if v, ok := first(r.Size); ok {
		e.Size = v
	}
	if v, ok := first(r.Duration); ok {
		e.Duration = v
	}
	if r.Tags != nil {
		e.Tags = append([]string(nil), r.Tags...)
	}

	return e, nil
}

func first[T any](s []T) (T, bool) {
	var zero T
	if len(s) == 0 {
		return zero, false
	}
	return s[0], true
}
