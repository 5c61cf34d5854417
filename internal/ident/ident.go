// Package ident allocates entry identifiers from the counter kept in the
// configuration record of the document database.
//
// Allocation is a compare-and-swap: the counter is read, then written back
// with a single conditional UPDATE that only succeeds if nobody else moved
// it in between. Losers re-read and retry, so allocators in separate
// processes sharing one database never hand out the same identifier.
package ident

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ccp-journal/ccp/internal/docstore"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/logging"
)

const (
	// Collection holds the configuration record.
	Collection = "config"
	// RecordID is the _id of the configuration record.
	RecordID = "CONFIG"

	// DefaultRetries is used when an Allocator is built with retries <= 0.
	DefaultRetries = 16

	maxBackoff = 20 * time.Millisecond
)

// Record is the configuration record backing the allocator.
type Record struct {
	ID      string `json:"_id"`
	Counter int64  `json:"counter"`
}

func (Record) Collection() string { return Collection }
func (r Record) Key() string      { return r.ID }
func (Record) KeyField() string   { return "_id" }

// Allocator hands out strictly increasing identifiers.
type Allocator struct {
	store   *docstore.Store
	retries int
	logger  logging.Logger
}

// New returns an Allocator over store. retries bounds the compare-and-swap
// attempts of a single call.
func New(store *docstore.Store, retries int, logger logging.Logger) *Allocator {
	if retries <= 0 {
		retries = DefaultRetries
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Allocator{store: store, retries: retries, logger: logger}
}

// Allocate advances the counter by one and returns the new value.
//
// It fails with CONFIG_MISSING if the configuration record has not been
// created, STORAGE_UNAVAILABLE if the database cannot be used, and CONFLICT
// once every attempt has lost a race to another allocator or the counter has
// reached math.MaxInt64.
func (a *Allocator) Allocate(ctx context.Context) (entry.ID, error) {
	for attempt := range a.retries {
		rec, err := a.load(ctx)
		if err != nil {
			if retryable(err) {
				if err := pause(ctx, attempt); err != nil {
					return 0, err
				}
				continue
			}
			return 0, err
		}

		if rec.Counter == math.MaxInt64 {
			return 0, errors.NewConflict("identifier space exhausted")
		}
		next := rec.Counter + 1
		err = a.swap(ctx, rec.Counter, next)
		if err == nil {
			a.logger.Debug(ctx, "identifier allocated", "id", next, "attempt", attempt+1)
			return entry.ID(next), nil
		}
		if !errors.Is(err, errors.ErrNotFound) && !retryable(err) {
			return 0, err
		}

		a.logger.Debug(ctx, "identifier allocation lost race", "observed", rec.Counter, "attempt", attempt+1)
		if err := pause(ctx, attempt); err != nil {
			return 0, err
		}
	}

	return 0, errors.NewConflict(fmt.Sprintf("identifier allocation failed after %d attempts", a.retries))
}

// Current returns the last allocated identifier without allocating.
func (a *Allocator) Current(ctx context.Context) (entry.ID, error) {
	rec, err := a.load(ctx)
	if err != nil {
		return 0, err
	}
	return entry.ID(rec.Counter), nil
}

// Bootstrap creates the configuration record with counter seed if it is
// absent, or raises an existing counter to seed. The counter never moves
// backwards.
func (a *Allocator) Bootstrap(ctx context.Context, seed int64) error {
	for attempt := range a.retries {
		rec, err := docstore.GetOne[Record](ctx, a.store, docstore.Filter{"_id": RecordID})
		switch {
		case errors.Is(err, errors.ErrNotFound):
			err = docstore.Insert(ctx, a.store, Record{ID: RecordID, Counter: seed})
			if err == nil {
				a.logger.Info(ctx, "configuration record created", "counter", seed)
				return nil
			}
			if !errors.Is(err, errors.ErrDuplicateKey) && !retryable(err) {
				return err
			}

		case err != nil:
			if !retryable(err) {
				return err
			}

		case rec.Counter >= seed:
			return nil

		default:
			err = a.swap(ctx, rec.Counter, seed)
			if err == nil {
				a.logger.Info(ctx, "identifier counter raised", "from", rec.Counter, "to", seed)
				return nil
			}
			if !errors.Is(err, errors.ErrNotFound) && !retryable(err) {
				return err
			}
		}

		if err := pause(ctx, attempt); err != nil {
			return err
		}
	}

	return errors.NewConflict(fmt.Sprintf("configuration bootstrap failed after %d attempts", a.retries))
}

func (a *Allocator) load(ctx context.Context) (Record, error) {
	rec, err := docstore.GetOne[Record](ctx, a.store, docstore.Filter{"_id": RecordID})
	if errors.Is(err, errors.ErrNotFound) {
		return Record{}, errors.NewConfigMissing(RecordID)
	}
	return rec, err
}

// swap moves the counter from observed to next. NOT_FOUND means the counter
// no longer holds observed.
func (a *Allocator) swap(ctx context.Context, observed, next int64) error {
	return docstore.UpdateOne[Record](ctx, a.store,
		docstore.Filter{"_id": RecordID, "counter": observed},
		docstore.Patch{"counter": next},
	)
}

// retryable reports whether err is SQLite refusing the write lock. A stale
// WAL snapshot is reported the same way and is not retried by busy_timeout.
func retryable(err error) bool {
	if !errors.Is(err, errors.ErrStorageUnavailable) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// pause sleeps before the next attempt, growing with attempt and jittered so
// contending allocators spread out.
func pause(ctx context.Context, attempt int) error {
	d := time.Duration(attempt+1) * time.Millisecond
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(time.Millisecond)))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.NewStorageUnavailable(ctx.Err())
	case <-t.C:
		return nil
	}
}
