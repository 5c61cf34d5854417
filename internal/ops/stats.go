package ops

import (
	"context"

	"github.com/ccp-journal/ccp/internal/aggregate"
	"github.com/ccp-journal/ccp/internal/errors"
)

// StatsOutput summarises the store from the aggregate file.
type StatsOutput struct {
	Entries   int                  `json:"entries"`
	TotalSize float64              `json:"total_size"`
	Counter   int64                `json:"counter"`
	Tags      []aggregate.TagCount `json:"tags"`
	// TagNames lists tag names by ascending count.
	TagNames []string `json:"tag_names"`
}

// Stats reads the totals kept in the aggregate file without scanning the
// store.
func Stats(ctx context.Context, env *Env) (*StatsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	root, err := env.Aggregate.Load()
	if err != nil {
		return nil, err
	}

	names := root.TagsByAscendingCount()
	counts := make(map[string]int, len(root.Tags))
	for _, t := range root.Tags {
		counts[t.Tag] = t.Count
	}
	tags := make([]aggregate.TagCount, len(names))
	for i, name := range names {
		tags[i] = aggregate.TagCount{Count: counts[name], Tag: name}
	}

	return &StatsOutput{
		Entries:   root.Entries,
		TotalSize: root.Size,
		Counter:   root.Counter,
		Tags:      tags,
		TagNames:  names,
	}, nil
}
