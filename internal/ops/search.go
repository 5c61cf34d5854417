package ops

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/search"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = 1000
	MaxSnippetChars    = 300
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query     string      // required
	From      *entry.Date // optional: first day included
	To        *entry.Date // optional: first day excluded
	SortByDay bool        // newest day first instead of relevance
	Limit     int         // default: 20, max: 100
	Offset    int         // default: 0
}

// SearchResultItem is one search hit.
type SearchResultItem struct {
	ID       entry.ID `json:"id"`
	Title    string   `json:"title"`
	Date     string   `json:"timestamp"`
	Tags     []string `json:"tags"`
	Size     float64  `json:"size"`
	Duration float64  `json:"duration"`
	// Snippet is HTML-safe: user-controlled content is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"` // "relevance" or "day_desc"
}

// Search performs full-text search across entry titles, text and tags.
// Results are ranked by relevance (BM25) with title matches weighted 5x higher.
func Search(ctx context.Context, env *Env, input SearchInput) (*SearchOutput, error) {
	// Validate query
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	q := search.Query{Text: query, SortByDay: input.SortByDay}
	if input.From != nil {
		q.From = *input.From
	}
	if input.To != nil {
		q.To = *input.To
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.Compare(q.To) >= 0 {
		return nil, errors.NewInvalidRequest("from must be before to")
	}

	// Apply limit defaults and bounds
	q.Limit = input.Limit
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	q.Offset = max(input.Offset, 0)

	ctx, cancel := env.withTimeout(ctx)
	defer cancel()

	hits, total, err := env.Index.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, len(hits))
	for i, h := range hits {
		// Process snippet:
		// 1. Escape user content; convert internal markers to <b> tags
		// 2. Truncate to max length (preserves UTF-8 and closes unclosed tags)
		snippet := escapeSnippetHTML(h.Snippet)
		snippet = truncateSnippet(snippet, MaxSnippetChars)

		items[i] = SearchResultItem{
			ID:       h.ID,
			Title:    h.Title,
			Date:     entry.DateOf(h.Day).String(),
			Tags:     h.Tags,
			Size:     h.Size,
			Duration: h.Duration,
			Snippet:  snippet,
		}
	}

	sort := "relevance"
	if input.SortByDay {
		sort = "day_desc"
	}

	return &SearchOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: q.Offset+len(items) < total,
			Total:   total,
		},
		Sort: sort,
	}, nil
}

// truncateSnippet truncates a snippet to approximately maxChars while:
// 1. Preserving valid UTF-8 (never splits multi-byte runes)
// 2. Preserving markup integrity (closes any open <b> tags)
// 3. Preferring word boundaries when possible
func truncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return "..."
	}

	if len(s) <= maxChars {
		return s
	}

	// Find a safe truncation point that doesn't split UTF-8 runes
	truncateAt := maxChars
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}

	if truncateAt == 0 {
		return "..."
	}

	truncated := s[:truncateAt]

	// Avoid returning malformed HTML by trimming any partial tag/entity suffix.
	// At this point the only tags present should be <b> and </b>, and user content
	// may contain HTML entities (e.g., &lt;).
	if lastLT := strings.LastIndex(truncated, "<"); lastLT != -1 && !strings.Contains(truncated[lastLT:], ">") {
		truncated = truncated[:lastLT]
	}
	if lastAmp := strings.LastIndex(truncated, "&"); lastAmp != -1 && !strings.Contains(truncated[lastAmp:], ";") {
		truncated = truncated[:lastAmp]
	}

	// Try to cut at word boundary if we're not losing too much content
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > truncateAt/2 {
		truncated = truncated[:lastSpace]
	}

	// Close any <b> left open by the cut.
	for range strings.Count(truncated, "<b>") - strings.Count(truncated, "</b>") {
		truncated += "</b>"
	}

	return truncated + "..."
}

// escapeSnippetHTML escapes user content in a snippet while preserving our <b>
// highlight markers, so user-controlled entry text cannot inject markup.
//
// Index snippets hold raw entry text plus the plain-text markers
// search.SnippetOpen and search.SnippetClose.
func escapeSnippetHTML(s string) string {
	const (
		openPlaceholder  = "\x00CCP_B_OPEN\x00"
		closePlaceholder = "\x00CCP_B_CLOSE\x00"
	)

	// Step 1: Replace internal highlight markers with placeholders.
	s = strings.ReplaceAll(s, search.SnippetOpen, openPlaceholder)
	s = strings.ReplaceAll(s, search.SnippetClose, closePlaceholder)

	// Step 2: Escape all HTML in user content
	s = html.EscapeString(s)

	// Step 3: Restore highlight tags (and only highlight tags).
	s = strings.ReplaceAll(s, openPlaceholder, "<b>")
	s = strings.ReplaceAll(s, closePlaceholder, "</b>")

	return s
}
