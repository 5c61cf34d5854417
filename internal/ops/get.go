package ops

import (
	"context"

	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
)

// Get returns the entry with the given id.
func Get(ctx context.Context, env *Env, id entry.ID) (*entry.Entry, error) {
	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	e, err := docstore.GetOne[entry.Entry](ctx, env.Docs, docstore.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	return &e, nil
}
