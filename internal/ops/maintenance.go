package ops

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ccp-journal/ccp/internal/aggregate"
	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/search"
)

// ReindexOutput contains the result of the Reindex operation.
type ReindexOutput struct {
	Indexed int `json:"indexed"`
}

// Reindex rebuilds the search index from every stored entry. Entries are
// read on one connection and written to the index on another; a pool limited
// to one connection reads everything first.
func Reindex(ctx context.Context, env *Env) (*ReindexOutput, error) {
	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	if err := env.Index.Reset(ctx); err != nil {
		return nil, err
	}

	if env.DB.Stats().MaxOpenConnections == 1 {
		return reindexSerial(ctx, env)
	}

	docs := make(chan *search.Document, 64)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(docs)
		for e, err := range docstore.GetAll[entry.Entry](gctx, env.Docs) {
			if err != nil {
				return err
			}
			doc, err := search.Project(env.Schema, e)
			if err != nil {
				return err
			}
			select {
			case docs <- doc:
			case <-gctx.Done():
				return errors.NewStorageUnavailable(gctx.Err())
			}
		}
		return nil
	})

	indexed := 0
	g.Go(func() error {
		for doc := range docs {
			if err := env.Index.Put(gctx, doc); err != nil {
				return err
			}
			indexed++
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	env.Logger.Info(ctx, "search index rebuilt", "indexed", indexed)
	return &ReindexOutput{Indexed: indexed}, nil
}

func reindexSerial(ctx context.Context, env *Env) (*ReindexOutput, error) {
	entries, err := docstore.Collect(docstore.GetAll[entry.Entry](ctx, env.Docs))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		doc, err := search.Project(env.Schema, e)
		if err != nil {
			return nil, err
		}
		if err := env.Index.Put(ctx, doc); err != nil {
			return nil, err
		}
	}
	env.Logger.Info(ctx, "search index rebuilt", "indexed", len(entries))
	return &ReindexOutput{Indexed: len(entries)}, nil
}

// RepairOutput contains the result of the Repair operation.
type RepairOutput struct {
	// Before is nil when the aggregate file was unreadable.
	Before *aggregate.Root `json:"before"`
	After  *aggregate.Root `json:"after"`
}

// Repair recomputes the aggregate file from a full scan of the store,
// replacing it even if it is corrupt, and raises the identifier counter to
// cover every stored entry.
func Repair(ctx context.Context, env *Env) (*RepairOutput, error) {
	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	before, err := env.Aggregate.Load()
	if err != nil {
		if !errors.Is(err, errors.ErrCorruptAggregate) {
			return nil, err
		}
		env.Logger.Warn(ctx, "aggregate file unreadable; rebuilding", "path", env.Aggregate.Path(), "error", err)
		before = nil
	}

	entries, err := docstore.Collect(docstore.GetAll[entry.Entry](ctx, env.Docs))
	if err != nil {
		return nil, err
	}

	var counter int64
	current, err := env.Alloc.Current(ctx)
	switch {
	case err == nil:
		counter = int64(current)
	case errors.Is(err, errors.ErrConfigMissing):
	default:
		return nil, err
	}
	if before != nil && before.Counter > counter {
		counter = before.Counter
	}

	after := aggregate.Rebuild(counter, entries)
	if err := env.Aggregate.Save(after); err != nil {
		return nil, err
	}
	if err := env.Alloc.Bootstrap(ctx, after.Counter); err != nil {
		return nil, err
	}

	env.Logger.Info(ctx, "aggregate rebuilt", "entries", after.Entries, "counter", after.Counter)
	return &RepairOutput{Before: before, After: after}, nil
}
