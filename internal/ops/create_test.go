package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

func TestCreate_HappyPath(t *testing.T) {
	env := newTestEnv(t)

	out, err := Create(context.Background(), env, CreateInput{
		Title:    "  Morning run ",
		Date:     day(t, "2024-03-01"),
		Tags:     []string{" running ", "outdoor"},
		Text:     "Ten kilometres along the river.",
		Size:     1048576,
		Duration: 2700,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if out.ID != 1 {
		t.Errorf("ID = %d, want 1", out.ID)
	}
	if out.Entry.Title != "Morning run" {
		t.Errorf("Title = %q, want %q", out.Entry.Title, "Morning run")
	}
	if out.Entry.Date.String() != "2024-03-01" {
		t.Errorf("Date = %s, want 2024-03-01", out.Entry.Date)
	}
	if strings.Join(out.Entry.Tags, ",") != "running,outdoor" {
		t.Errorf("Tags = %v, want [running outdoor]", out.Entry.Tags)
	}
	if out.Paths == nil || out.Paths.Out != env.Paths.OutPath(1) {
		t.Errorf("Paths = %+v, want out path %q", out.Paths, env.Paths.OutPath(1))
	}

	got, err := Get(context.Background(), env, out.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Text != "Ten kilometres along the river." || got.Size != 1048576 || got.Duration != 2700 {
		t.Errorf("Get = %+v, want stored fields", got)
	}
}

func TestCreate_Defaults(t *testing.T) {
	env := newTestEnv(t)

	e := mustCreate(t, env, CreateInput{})

	if e.Title != entry.DefaultTitle {
		t.Errorf("Title = %q, want %q", e.Title, entry.DefaultTitle)
	}
	if e.Date.String() != "2024-03-15" {
		t.Errorf("Date = %s, want today 2024-03-15", e.Date)
	}
	if e.Tags == nil || len(e.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", e.Tags)
	}
}

func TestCreate_SequentialIDs(t *testing.T) {
	env := newTestEnv(t)

	for want := entry.ID(1); want <= 5; want++ {
		e := mustCreate(t, env, CreateInput{Title: "x"})
		if e.ID != want {
			t.Fatalf("ID = %d, want %d", e.ID, want)
		}
	}
}

func TestCreate_RejectsInvalidMeasures(t *testing.T) {
	env := newTestEnv(t)

	_, err := Create(context.Background(), env, CreateInput{Size: -1})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for negative size, got: %v", err)
	}
	_, err = Create(context.Background(), env, CreateInput{Duration: -0.5})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for negative duration, got: %v", err)
	}

	// Rejected input must not consume an identifier.
	e := mustCreate(t, env, CreateInput{})
	if e.ID != 1 {
		t.Errorf("ID = %d, want 1", e.ID)
	}
}

func TestCreate_UpdatesAggregate(t *testing.T) {
	env := newTestEnv(t)

	mustCreate(t, env, CreateInput{Tags: []string{"a", "b"}, Size: 10})
	mustCreate(t, env, CreateInput{Tags: []string{"a"}, Size: 5})

	root, err := env.Aggregate.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.Entries != 2 || root.Size != 15 || root.Counter != 2 {
		t.Errorf("root = %+v, want 2 entries, size 15, counter 2", root)
	}
	if root.Count("a") != 2 || root.Count("b") != 1 {
		t.Errorf("tag counts a=%d b=%d, want 2 and 1", root.Count("a"), root.Count("b"))
	}
}

func TestCreate_IndexesEntry(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, CreateInput{Title: "Harbour walk", Text: "gulls everywhere"})

	n, err := env.Index.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("index count = %d, want 1", n)
	}
}

func TestGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := Get(context.Background(), env, 99)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestArtifactPaths(t *testing.T) {
	env := newTestEnv(t)

	p := ArtifactPaths(env, 1234)
	wantOut := filepath.Join(env.Root, "store", "12", "1234.mp4")
	if p.Out != wantOut {
		t.Errorf("Out = %q, want %q", p.Out, wantOut)
	}
	wantTemp := filepath.Join(env.Root, "temp", "1234", "pass_1.mp4")
	if p.Temp != wantTemp {
		t.Errorf("Temp = %q, want %q", p.Temp, wantTemp)
	}
	if p.Transcript != filepath.Join(env.Root, "temp", "1234", "pass_1.txt") {
		t.Errorf("Transcript = %q", p.Transcript)
	}

	if _, err := os.Stat(filepath.Dir(p.Out)); !os.IsNotExist(err) {
		t.Errorf("ArtifactPaths must not create directories, stat err = %v", err)
	}
}

func TestEnsureArtifactPaths(t *testing.T) {
	env := newTestEnv(t)

	p, err := EnsureArtifactPaths(env, 7)
	if err != nil {
		t.Fatalf("EnsureArtifactPaths failed: %v", err)
	}
	for _, dir := range []string{filepath.Dir(p.Out), filepath.Dir(p.Temp)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %q not created: %v", dir, err)
		}
	}
	if p.Out != ArtifactPaths(env, 7).Out {
		t.Errorf("Out = %q, want %q", p.Out, ArtifactPaths(env, 7).Out)
	}
}
