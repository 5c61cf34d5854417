// Package entry defines the records ccp stores: entries, their identifiers
// and calendar dates, and the parallel-array shape used by bulk importers.
package entry

import (
	"strconv"
)

// Collection is the document collection entries live in.
const Collection = "entries"

// DefaultTitle is used when an entry is created without a title.
const DefaultTitle = "TITLE MISSING"

// ID identifies an entry. IDs are allocated from a persisted counter, are
// unique within a store and strictly increase across allocations.
// It encodes as a bare JSON integer.
type ID int64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Bucket returns the storage bucket for the ID: 100 consecutive IDs share a
// bucket directory.
func (id ID) Bucket() int64 {
	return int64(id) / 100
}

// ParseID parses a decimal ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(n), nil
}

// Entry is a single dated record.
type Entry struct {
	ID       ID       `json:"id"`
	Title    string   `json:"title"`
	Date     Date     `json:"timestamp"`
	Tags     []string `json:"tags"`
	Text     string   `json:"text"`
	Size     float64  `json:"size"`
	Duration float64  `json:"duration"`
}

// Collection implements docstore.Entity.
func (Entry) Collection() string { return Collection }

// Key implements docstore.Entity.
func (e Entry) Key() string { return e.ID.String() }

// KeyField implements docstore.Entity.
func (Entry) KeyField() string { return "id" }
