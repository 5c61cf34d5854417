package ops

import (
	"context"

	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	ID entry.ID // required

	// Editable fields (nil = don't change)
	Title    *string
	Date     *entry.Date
	Tags     *[]string
	Text     *string
	Size     *float64
	Duration *float64
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	ID    entry.ID    `json:"id"`
	Entry entry.Entry `json:"entry"`
}

// Update modifies an existing entry. The id never changes. The search index
// and the aggregate are adjusted to the new version.
func Update(ctx context.Context, env *Env, input UpdateInput) (*UpdateOutput, error) {
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("id is required")
	}

	// Validate at least one editable field is provided
	if input.Title == nil && input.Date == nil && input.Tags == nil &&
		input.Text == nil && input.Size == nil && input.Duration == nil {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}

	patch := docstore.Patch{}
	if input.Title != nil {
		patch["title"] = entry.NormalizeTitle(*input.Title)
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, errors.NewInvalidRequest("date must not be empty")
		}
		patch["timestamp"] = *input.Date
	}
	if input.Tags != nil {
		patch["tags"] = entry.NormalizeTags(*input.Tags)
	}
	if input.Text != nil {
		patch["text"] = *input.Text
	}
	if input.Size != nil {
		if err := validateMeasure("size", *input.Size); err != nil {
			return nil, err
		}
		patch["size"] = *input.Size
	}
	if input.Duration != nil {
		if err := validateMeasure("duration", *input.Duration); err != nil {
			return nil, err
		}
		patch["duration"] = *input.Duration
	}

	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	filter := docstore.Filter{"id": input.ID}
	old, err := docstore.GetOne[entry.Entry](ctx, env.Docs, filter)
	if err != nil {
		return nil, err
	}

	if err := docstore.UpdateOne[entry.Entry](ctx, env.Docs, filter, patch); err != nil {
		return nil, err
	}

	updated, err := docstore.GetOne[entry.Entry](ctx, env.Docs, filter)
	if err != nil {
		return nil, err
	}

	if err := env.reflect(ctx, &old, updated); err != nil {
		env.Logger.Error(ctx, "entry updated but derived views not updated; run reindex and repair", "id", input.ID, "error", err)
		return nil, err
	}
	env.Logger.Info(ctx, "entry updated", "id", input.ID, "fields", len(patch))

	return &UpdateOutput{ID: updated.ID, Entry: updated}, nil
}
