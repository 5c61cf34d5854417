// Package aggregate maintains the summary file {root}/ccp.json: entry count,
// total size, a tag histogram and the highest identifier seen. The file is
// the source of truth for totals without rescanning the document store.
package aggregate

import (
	"sort"

	"github.com/ccp-journal/ccp/internal/entry"
)

// TagCount is one histogram bucket.
type TagCount struct {
	Count int    `json:"count"`
	Tag   string `json:"tag"`
}

// Root is the aggregate summary.
type Root struct {
	Counter int64      `json:"counter"`
	Tags    []TagCount `json:"tags"`
	Size    float64    `json:"size"`
	Entries int        `json:"entries"`
}

// Default is the value a missing aggregate file starts from.
func Default() *Root {
	return &Root{Tags: []TagCount{}}
}

// TagsByAscendingCount returns tag names ordered by ascending count. Tags
// with equal counts keep their histogram order.
func (r *Root) TagsByAscendingCount() []string {
	sorted := append([]TagCount(nil), r.Tags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count < sorted[j].Count
	})

	names := make([]string, len(sorted))
	for i, t := range sorted {
		names[i] = t.Tag
	}
	return names
}

// Count returns the count for tag, 0 if absent.
func (r *Root) Count(tag string) int {
	for _, t := range r.Tags {
		if t.Tag == tag {
			return t.Count
		}
	}
	return 0
}

// Observe raises Counter to id. Counter never decreases.
func (r *Root) Observe(id entry.ID) {
	if int64(id) > r.Counter {
		r.Counter = int64(id)
	}
}

// Apply folds a stored entry into the totals. old is nil for an insert and
// the previous version for an update. Every tag occurrence counts once;
// tags whose count drops to zero are removed and new tags are appended.
func (r *Root) Apply(old *entry.Entry, updated entry.Entry) {
	if old == nil {
		r.Entries++
	} else {
		r.Size -= old.Size
		for _, tag := range old.Tags {
			r.adjust(tag, -1)
		}
	}

	r.Size += updated.Size
	for _, tag := range updated.Tags {
		r.adjust(tag, +1)
	}
	r.Observe(updated.ID)
	r.prune()
}

func (r *Root) adjust(tag string, delta int) {
	for i := range r.Tags {
		if r.Tags[i].Tag == tag {
			r.Tags[i].Count = max(r.Tags[i].Count+delta, 0)
			return
		}
	}
	if delta > 0 {
		r.Tags = append(r.Tags, TagCount{Count: delta, Tag: tag})
	}
}

func (r *Root) prune() {
	kept := r.Tags[:0]
	for _, t := range r.Tags {
		if t.Count > 0 {
			kept = append(kept, t)
		}
	}
	r.Tags = kept
}

// Rebuild recomputes a Root from every stored entry. counter is the
// allocator's current value; the result's Counter is the larger of it and
// the highest entry id.
func Rebuild(counter int64, entries []entry.Entry) *Root {
	r := Default()
	r.Counter = counter
	for _, e := range entries {
		r.Apply(nil, e)
	}
	return r
}
