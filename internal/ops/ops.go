// Package ops implements the user-level workflows over an entry store. Every
// operation takes the Env built once by Open; nothing is kept in package
// globals.
package ops

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ccp-journal/ccp/internal/aggregate"
	"github.com/ccp-journal/ccp/internal/config"
	"github.com/ccp-journal/ccp/internal/db"
	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/ident"
	"github.com/ccp-journal/ccp/internal/layout"
	"github.com/ccp-journal/ccp/internal/logging"
	"github.com/ccp-journal/ccp/internal/search"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env is everything an operation needs: the storage root, its database and
// the components built over it.
type Env struct {
	Root      string
	Config    *config.Config
	Paths     layout.Paths
	DB        *sql.DB
	Docs      *docstore.Store
	Alloc     *ident.Allocator
	Schema    *search.Schema
	Index     *search.Index
	Aggregate *aggregate.Store
	Logger    logging.Logger

	now func() time.Time
}

// Open opens the store rooted at root, creating the directory and database
// if needed. It does not create the configuration record; see Init.
func Open(cfg *config.Config, root string, logger logging.Logger) (*Env, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	database, err := db.Init(root)
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	db.ConfigurePool(database, cfg)

	paths := layout.New(root)
	docs := docstore.New(database)

	return &Env{
		Root:      root,
		Config:    cfg,
		Paths:     paths,
		DB:        database,
		Docs:      docs,
		Alloc:     ident.New(docs, cfg.AllocRetries, logger.With("component", "ident")),
		Schema:    search.DefaultSchema(),
		Index:     search.NewIndex(database),
		Aggregate: aggregate.NewStore(paths.AggregateFile()),
		Logger:    logger,
		now:       time.Now,
	}, nil
}

// Close releases the database.
func (e *Env) Close() error {
	return e.DB.Close()
}

// withTimeout bounds one operation by the configured timeout.
func (e *Env) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.Config.OpTimeout())
}

// today is the current calendar day.
func (e *Env) today() entry.Date {
	return entry.DateOf(e.now())
}

// reflect brings the search index and the aggregate in line with a stored
// entry. old is nil for a new entry.
func (e *Env) reflect(ctx context.Context, old *entry.Entry, stored entry.Entry) error {
	doc, err := search.Project(e.Schema, stored)
	if err != nil {
		return err
	}
	if err := e.Index.Put(ctx, doc); err != nil {
		return err
	}

	_, err = e.Aggregate.Update(func(r *aggregate.Root) error {
		r.Apply(old, stored)
		return nil
	})
	return err
}

// validateMeasure rejects values that cannot be stored as JSON numbers or
// that are negative.
func validateMeasure(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.NewInvalidRequest(fmt.Sprintf("%s must be a finite number", name))
	}
	if v < 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("%s must not be negative", name))
	}
	return nil
}

// pageBounds applies list defaults and limits.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

// cleanOptionalString trims whitespace and returns nil if the result is empty.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
