package ops

import (
	"context"

	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Tag    *string     // optional: entries carrying this tag
	From   *entry.Date // optional: first day included
	To     *entry.Date // optional: first day excluded
	Limit  int         // default: 20, max: 100
	Offset int         // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []entry.Entry `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// List retrieves entries in ascending id order with pagination.
func List(ctx context.Context, env *Env, input ListInput) (*ListOutput, error) {
	filter := docstore.Filter{}
	if tag := cleanOptionalString(input.Tag); tag != nil {
		filter["tags"] = docstore.Contains{Value: entry.NormalizeTag(*tag)}
	}

	var days docstore.Range
	if input.From != nil && !input.From.IsZero() {
		days.Min = *input.From
	}
	if input.To != nil && !input.To.IsZero() {
		days.Max = *input.To
	}
	if days.Min != nil && days.Max != nil && input.From.Compare(*input.To) >= 0 {
		return nil, errors.NewInvalidRequest("from must be before to")
	}
	if days.Min != nil || days.Max != nil {
		filter["timestamp"] = days
	}

	limit, offset := pageBounds(input.Limit, input.Offset)

	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	total, err := docstore.Count[entry.Entry](ctx, env.Docs, filter)
	if err != nil {
		return nil, err
	}

	items, err := docstore.Collect(docstore.GetPage[entry.Entry](ctx, env.Docs, filter, limit, offset))
	if err != nil {
		return nil, err
	}
	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []entry.Entry{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "id_asc",
	}, nil
}
