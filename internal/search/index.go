package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ccp-journal/ccp/internal/db"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

// Highlight markers wrapped around matched terms in Hit.Snippet. They are
// plain text so callers can escape the snippet before turning them into
// markup.
const (
	SnippetOpen  = "[[[B]]]"
	SnippetClose = "[[[/B]]]"
)

const tagSeparator = "\n"

// Query selects hits from the index.
type Query struct {
	// Text is matched against title, text and tags. Every whitespace
	// separated term must occur; terms are matched literally.
	Text string
	// From and To bound the entry day, [From, To). Zero values are open.
	From entry.Date
	To   entry.Date
	// SortByDay orders newest day first instead of by relevance.
	SortByDay bool
	Limit     int
	Offset    int
}

// Hit is one search result.
type Hit struct {
	ID       entry.ID  `json:"id"`
	Title    string    `json:"title"`
	Tags     []string  `json:"tags"`
	Day      time.Time `json:"timestamp"`
	Size     float64   `json:"size"`
	Duration float64   `json:"duration"`
	Snippet  string    `json:"snippet"`
	Score    float64   `json:"score"`
}

// Index is the full-text index of entry search documents.
type Index struct {
	db *sql.DB
}

// NewIndex returns the index stored in conn.
func NewIndex(conn *sql.DB) *Index {
	return &Index{db: conn}
}

// Put stores doc, replacing any document with the same id.
func (x *Index) Put(ctx context.Context, doc *Document) error {
	id := doc.ID()
	err := db.WithTx(ctx, x.db, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_search WHERE rowid = ?", int64(id)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entry_search (rowid, title, text, tags, timestamp, size, duration)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			int64(id),
			doc.Text(FieldTitle),
			doc.Text(FieldText),
			strings.Join(doc.Texts(FieldTags), tagSeparator),
			doc.Time(FieldTimestamp).Unix(),
			doc.Float(FieldSize),
			doc.Float(FieldDuration),
		)
		return err
	})
	if err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

// Delete removes the document for id. Deleting a missing id is not an error.
func (x *Index) Delete(ctx context.Context, id entry.ID) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM entry_search WHERE rowid = ?", int64(id)); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

// Reset removes every document.
func (x *Index) Reset(ctx context.Context) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM entry_search"); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entry_search").Scan(&n); err != nil {
		return 0, errors.NewStorageUnavailable(err)
	}
	return n, nil
}

// Search returns the hits for q and the total number of matches ignoring
// Limit and Offset. Hits are ranked by BM25 with title matches weighted 5x.
func (x *Index) Search(ctx context.Context, q Query) ([]Hit, int, error) {
	match := matchExpression(q.Text)
	if match == "" {
		return nil, 0, errors.NewInvalidRequest("query is required")
	}

	where := []string{"entry_search MATCH ?"}
	args := []any{match}
	if !q.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, q.From.Midnight().Unix())
	}
	if !q.To.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, q.To.Midnight().Unix())
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entry_search WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewStorageUnavailable(err)
	}

	order := "score, rowid"
	if q.SortByDay {
		order = "timestamp DESC, score, rowid"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}

	rows, err := x.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT rowid, title, tags, timestamp, size, duration,
		       snippet(entry_search, -1, '%s', '%s', '...', 32),
		       bm25(entry_search, 5.0, 1.0, 1.0) AS score
		FROM entry_search
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, SnippetOpen, SnippetClose, clause, order), append(args, limit, max(q.Offset, 0))...)
	if err != nil {
		return nil, 0, errors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var (
			h    Hit
			id   int64
			tags string
			day  int64
		)
		if err := rows.Scan(&id, &h.Title, &tags, &day, &h.Size, &h.Duration, &h.Snippet, &h.Score); err != nil {
			return nil, 0, errors.NewStorageUnavailable(err)
		}
		h.ID = entry.ID(id)
		h.Day = time.Unix(day, 0).UTC()
		h.Tags = splitTags(tags)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewStorageUnavailable(err)
	}

	return hits, total, nil
}

// matchExpression turns free text into an FTS5 query in which every term is a
// quoted string, so operators and punctuation in user input are literal.
// Terms without a letter or digit produce no tokens and are dropped.
func matchExpression(text string) string {
	terms := strings.Fields(text)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if !strings.ContainsFunc(t, isWordRune) {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, tagSeparator)
}
