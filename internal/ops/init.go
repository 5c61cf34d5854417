package ops

import (
	"context"

	"github.com/ccp-journal/ccp/internal/entry"
)

// InitOutput contains the result of the Init operation.
type InitOutput struct {
	Root      string   `json:"root"`
	Aggregate string   `json:"aggregate"`
	Database  string   `json:"database"`
	Counter   entry.ID `json:"counter"`
}

// Init prepares a store for use: it loads the aggregate file, creating the
// default one if missing, and creates the configuration record seeded from
// the aggregate counter. Running it again is harmless; the counter is only
// ever raised.
func Init(ctx context.Context, env *Env) (*InitOutput, error) {
	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	root, err := env.Aggregate.Load()
	if err != nil {
		return nil, err
	}
	if err := env.Alloc.Bootstrap(ctx, root.Counter); err != nil {
		return nil, err
	}
	counter, err := env.Alloc.Current(ctx)
	if err != nil {
		return nil, err
	}

	env.Logger.Info(ctx, "store initialised", "root", env.Root, "counter", counter)
	return &InitOutput{
		Root:      env.Root,
		Aggregate: env.Paths.AggregateFile(),
		Database:  env.Paths.DatabaseFile(),
		Counter:   counter,
	}, nil
}
