package ops

import (
	"context"

	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Title    string      // default: entry.DefaultTitle
	Date     *entry.Date // default: today
	Tags     []string
	Text     string
	Size     float64
	Duration float64
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	ID    entry.ID     `json:"id"`
	Entry entry.Entry  `json:"entry"`
	Paths *PathsOutput `json:"paths"`
}

// Create allocates an identifier and stores a new entry under it, then
// indexes it and folds it into the aggregate.
//
// Allocation and insert are separate steps. If the insert fails the
// identifier is burnt: the counter has moved and no entry uses it. Gaps are
// harmless and are logged.
func Create(ctx context.Context, env *Env, input CreateInput) (*CreateOutput, error) {
	if err := validateMeasure("size", input.Size); err != nil {
		return nil, err
	}
	if err := validateMeasure("duration", input.Duration); err != nil {
		return nil, err
	}

	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	id, err := env.Alloc.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	e := entry.Entry{
		ID:       id,
		Title:    entry.NormalizeTitle(input.Title),
		Date:     env.today(),
		Tags:     entry.NormalizeTags(input.Tags),
		Text:     input.Text,
		Size:     input.Size,
		Duration: input.Duration,
	}
	if input.Date != nil && !input.Date.IsZero() {
		e.Date = *input.Date
	}

	if err := docstore.Insert(ctx, env.Docs, e); err != nil {
		env.Logger.Warn(ctx, "identifier burnt: entry insert failed", "id", id, "error", err)
		return nil, err
	}
	env.Logger.Info(ctx, "entry created", "id", id, "tags", len(e.Tags))

	if err := env.reflect(ctx, nil, e); err != nil {
		env.Logger.Error(ctx, "entry stored but derived views not updated; run reindex and repair", "id", id, "error", err)
		return nil, err
	}

	return &CreateOutput{
		ID:    id,
		Entry: e,
		Paths: ArtifactPaths(env, id),
	}, nil
}
