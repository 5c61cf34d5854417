// Package docstore keeps typed records in named collections of the SQLite
// document database. Each record is one JSON document addressed by
// (collection, key).
//
// Every call is atomic on its own. Nothing spans calls: a workflow that
// allocates an identifier and then inserts must tolerate stopping in between.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"iter"
	"strings"
	"time"

	"github.com/ccp-journal/ccp/internal/db"
	"github.com/ccp-journal/ccp/internal/errors"
)

// Entity is a record that can live in a collection.
type Entity interface {
	// Collection names the collection every value of the type lives in.
	Collection() string
	// Key is the unique key of this value within its collection.
	Key() string
	// KeyField is the JSON field holding the key. It cannot be patched.
	KeyField() string
}

// Store provides access to the document collections.
type Store struct {
	db  db.DBTX
	now func() time.Time
}

// New returns a Store over conn.
func New(conn db.DBTX) *Store {
	return &Store{db: conn, now: time.Now}
}

// Insert adds e to its collection. It fails with DUPLICATE_KEY if the key is
// already taken.
func Insert[E Entity](ctx context.Context, s *Store, e E) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.NewSerialization(err)
	}

	now := s.now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.Collection(), e.Key(), string(body), now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewDuplicateKey(e.Collection(), e.Key())
		}
		return storageError(err)
	}
	return nil
}

// GetOne returns the first document matching f, in insertion order.
func GetOne[E Entity](ctx context.Context, s *Store, f Filter) (E, error) {
	var zero E
	clause, args, err := where(zero.Collection(), zero.KeyField(), f)
	if err != nil {
		return zero, err
	}

	var body string
	err = s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE "+clause+" ORDER BY rowid LIMIT 1", args...,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return zero, errors.NewNotFound(zero.Collection(), describe(f))
	}
	if err != nil {
		return zero, storageError(err)
	}

	return decode[E](body)
}

// GetMany lazily yields every document matching f, ordered by key. An
// empty result is an empty sequence, not an error. The underlying rows are
// released when iteration finishes or the loop breaks.
//
// A document that fails to decode yields a SERIALIZATION_ERROR; iteration
// continues if the consumer keeps ranging.
func GetMany[E Entity](ctx context.Context, s *Store, f Filter) iter.Seq2[E, error] {
	return query[E](ctx, s, f, 0, 0)
}

// GetAll lazily yields every document in the collection, ordered by key.
func GetAll[E Entity](ctx context.Context, s *Store) iter.Seq2[E, error] {
	return query[E](ctx, s, nil, 0, 0)
}

// GetPage is GetMany restricted to a window of the results.
func GetPage[E Entity](ctx context.Context, s *Store, f Filter, limit, offset int) iter.Seq2[E, error] {
	return query[E](ctx, s, f, limit, offset)
}

// Count returns how many documents match f.
func Count[E Entity](ctx context.Context, s *Store, f Filter) (int, error) {
	var zero E
	clause, args, err := where(zero.Collection(), zero.KeyField(), f)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE "+clause, args...).Scan(&n); err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

// UpdateOne applies p to the first document matching f in a single
// statement. It fails with NOT_FOUND if nothing matches. A patch that leaves
// the document unchanged is not an error.
func UpdateOne[E Entity](ctx context.Context, s *Store, f Filter, p Patch) error {
	var zero E
	if _, ok := p[zero.KeyField()]; ok {
		return errors.NewInvalidRequest("the " + zero.KeyField() + " field cannot be changed")
	}

	clause, whereArgs, err := where(zero.Collection(), zero.KeyField(), f)
	if err != nil {
		return err
	}

	if len(p) == 0 {
		n, err := Count[E](ctx, s, f)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NewNotFound(zero.Collection(), describe(f))
		}
		return nil
	}

	set, setArgs, err := setClause(p)
	if err != nil {
		return err
	}

	args := append(setArgs, s.now().Unix())
	args = append(args, whereArgs...)
	result, err := s.db.ExecContext(ctx,
		"UPDATE documents SET body = "+set+", updated_at = ? "+
			"WHERE rowid = (SELECT rowid FROM documents WHERE "+clause+" ORDER BY rowid LIMIT 1)",
		args...,
	)
	if err != nil {
		return storageError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageError(err)
	}
	if affected == 0 {
		return errors.NewNotFound(zero.Collection(), describe(f))
	}
	return nil
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[E any](seq iter.Seq2[E, error]) ([]E, error) {
	var out []E
	for e, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func query[E Entity](ctx context.Context, s *Store, f Filter, limit, offset int) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		clause, args, err := where(zero.Collection(), zero.KeyField(), f)
		if err != nil {
			yield(zero, err)
			return
		}

		keyPath, err := jsonPath(zero.KeyField())
		if err != nil {
			yield(zero, err)
			return
		}
		q := "SELECT body FROM documents WHERE " + clause + " ORDER BY json_extract(body, ?), rowid"
		args = append(args, keyPath)
		if limit > 0 {
			q += " LIMIT ? OFFSET ?"
			args = append(args, limit, max(offset, 0))
		}

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			yield(zero, storageError(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var body string
			if err := rows.Scan(&body); err != nil {
				yield(zero, storageError(err))
				return
			}
			e, err := decode[E](body)
			if !yield(e, err) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, storageError(err))
		}
	}
}

func decode[E Entity](body string) (E, error) {
	var e E
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		var zero E
		return zero, errors.NewSerialization(err)
	}
	return e, nil
}

// describe renders a filter for error messages.
func describe(f Filter) string {
	if len(f) == 0 {
		return "*"
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "filter"
	}
	return string(b)
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE or PRIMARY
// KEY constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// storageError wraps a database failure. Errors that already carry a code
// pass through.
func storageError(err error) error {
	var cErr *errors.CcpError
	if stderrors.As(err, &cErr) {
		return err
	}
	return errors.NewStorageUnavailable(err)
}
