package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/ccp-journal/ccp/internal/errors"
)

func TestSearch_BasicMatch(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "Ferry crossing", Text: "Rough sea and a late ferry.", Tags: []string{"travel"}, Date: day(t, "2024-02-10")})
	mustCreate(t, env, CreateInput{Title: "Groceries", Text: "Bread, milk and eggs."})

	out, err := Search(context.Background(), env, SearchInput{Query: "ferry"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(out.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(out.Items))
	}
	item := out.Items[0]
	if item.ID != 1 || item.Title != "Ferry crossing" || item.Date != "2024-02-10" {
		t.Errorf("item = %+v, want entry 1 from 2024-02-10", item)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "travel" {
		t.Errorf("Tags = %v, want [travel]", item.Tags)
	}
	if !strings.Contains(item.Snippet, "<b>") {
		t.Errorf("Snippet = %q, want highlighted match", item.Snippet)
	}
	if out.Sort != "relevance" {
		t.Errorf("Sort = %q, want relevance", out.Sort)
	}
}

func TestSearch_TitleRanksFirst(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "Notes", Text: "we talked about the garden"})
	mustCreate(t, env, CreateInput{Title: "Garden", Text: "planted tomatoes"})

	out, err := Search(context.Background(), env, SearchInput{Query: "garden"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Items) != 2 || out.Items[0].ID != 2 {
		t.Errorf("Items = %+v, want title match (id 2) first", out.Items)
	}
}

func TestSearch_MatchesTags(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "Day out", Tags: []string{"birthday"}})

	out, err := Search(context.Background(), env, SearchInput{Query: "birthday"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(out.Items))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"", "   ", "*** ---"} {
		_, err := Search(context.Background(), env, SearchInput{Query: q})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Search(%q): expected ErrInvalidRequest, got: %v", q, err)
		}
	}
}

func TestSearch_QueryTooLong(t *testing.T) {
	env := newTestEnv(t)

	_, err := Search(context.Background(), env, SearchInput{Query: strings.Repeat("a", MaxQueryLength+1)})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestSearch_OperatorsAreLiteral(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "cats and dogs"})

	for _, q := range []string{"cats OR", "NOT dogs", `"cats`, "cats*", "title:cats"} {
		if _, err := Search(context.Background(), env, SearchInput{Query: q}); err != nil {
			t.Errorf("Search(%q) failed: %v", q, err)
		}
	}
}

func TestSearch_DayRangeAndSort(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "swim", Date: day(t, "2024-01-05")})
	mustCreate(t, env, CreateInput{Title: "swim", Date: day(t, "2024-03-01")})
	mustCreate(t, env, CreateInput{Title: "swim", Date: day(t, "2024-02-14")})

	out, err := Search(context.Background(), env, SearchInput{Query: "swim", SortByDay: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	var days []string
	for _, it := range out.Items {
		days = append(days, it.Date)
	}
	if strings.Join(days, ",") != "2024-03-01,2024-02-14,2024-01-05" {
		t.Errorf("days = %v, want newest first", days)
	}
	if out.Sort != "day_desc" {
		t.Errorf("Sort = %q, want day_desc", out.Sort)
	}

	out, err = Search(context.Background(), env, SearchInput{Query: "swim", From: day(t, "2024-02-01"), To: day(t, "2024-03-01")})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != 3 {
		t.Errorf("Items = %+v, want only entry 3", out.Items)
	}

	_, err = Search(context.Background(), env, SearchInput{Query: "swim", From: day(t, "2024-03-01"), To: day(t, "2024-02-01")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for inverted range, got: %v", err)
	}
}

func TestSearch_Pagination(t *testing.T) {
	env := newTestEnv(t)
	for range 5 {
		mustCreate(t, env, CreateInput{Title: "repeat"})
	}

	out, err := Search(context.Background(), env, SearchInput{Query: "repeat", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(out.Items))
	}
	if out.Pagination.Total != 5 || !out.Pagination.HasMore {
		t.Errorf("Pagination = %+v, want total 5 with more", out.Pagination)
	}

	out, err = Search(context.Background(), env, SearchInput{Query: "repeat", Limit: 1000})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if out.Pagination.Limit != MaxSearchLimit {
		t.Errorf("Limit = %d, want %d", out.Pagination.Limit, MaxSearchLimit)
	}
}

func TestSearch_EscapesEntryText(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "markup", Text: "<script>alert(1)</script> payload"})

	out, err := Search(context.Background(), env, SearchInput{Query: "payload"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(out.Items))
	}
	if strings.Contains(out.Items[0].Snippet, "<script>") {
		t.Errorf("Snippet = %q, want escaped markup", out.Items[0].Snippet)
	}
}
