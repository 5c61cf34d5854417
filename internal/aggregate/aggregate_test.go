package aggregate

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
)

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccp.json")
	s := NewStore(path)

	r, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, &Root{Counter: 0, Tags: []TagCount{}, Size: 0, Entries: 0}, r)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Equal(t, map[string]any{
		"counter": float64(0),
		"tags":    []any{},
		"size":    float64(0),
		"entries": float64(0),
	}, onDisk)
	require.Contains(t, string(data), "\n  \"counter\": 0", "file is pretty-printed")

	before, err := os.Stat(path)
	require.NoError(t, err)

	again, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, r, again)

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
}

func TestLoad_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccp.json")
	content := `{
  "counter": 12,
  "tags": [{"count": 2, "tag": "test"}],
  "size": 3.5,
  "entries": 4
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	r, err := NewStore(path).Load()
	require.NoError(t, err)
	require.Equal(t, int64(12), r.Counter)
	require.Equal(t, []TagCount{{Count: 2, Tag: "test"}}, r.Tags)
	require.Equal(t, 3.5, r.Size)
	require.Equal(t, 4, r.Entries)
}

func TestLoad_NullTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"counter":1,"tags":null,"size":0,"entries":0}`), 0600))

	r, err := NewStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, r.Tags)
	require.Empty(t, r.Tags)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"counter": "twelve"`), 0600))

	_, err := NewStore(path).Load()
	require.True(t, errors.Is(err, errors.ErrCorruptAggregate), "got %v", err)

	// The corrupt file is left for inspection.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"counter": "twelve"`, string(data))
}

func TestSave_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ccp.json")
	s := NewStore(path)

	for i := range 5 {
		r := &Root{Counter: int64(i), Tags: []TagCount{{Count: i + 1, Tag: "x"}}, Size: float64(i), Entries: i}
		require.NoError(t, s.Save(r))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "ccp.json", entries[0].Name())

	r, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, int64(4), r.Counter)
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ccp.json")
	require.NoError(t, NewStore(path).Save(Default()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccp.json")
	s := NewStore(path)

	r, err := s.Update(func(r *Root) error {
		r.Apply(nil, entry.Entry{ID: 3, Size: 2, Tags: []string{"a"}})
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, r.Entries)

	boom := stderrors.New("boom")
	_, err = s.Update(func(r *Root) error {
		r.Entries = 100
		return boom
	})
	require.ErrorIs(t, err, boom)

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Entries)
	require.Equal(t, int64(3), loaded.Counter)
}

func TestUpdate_CorruptFileNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccp.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	called := false
	_, err := NewStore(path).Update(func(*Root) error {
		called = true
		return nil
	})
	require.True(t, errors.Is(err, errors.ErrCorruptAggregate))
	require.False(t, called)
}

func TestTagsByAscendingCount(t *testing.T) {
	r := &Root{Tags: []TagCount{{Count: 5, Tag: "b"}, {Count: 2, Tag: "a"}, {Count: 2, Tag: "c"}}}
	require.Equal(t, []string{"a", "c", "b"}, r.TagsByAscendingCount())

	// The histogram itself is not reordered.
	require.Equal(t, "b", r.Tags[0].Tag)

	require.Empty(t, Default().TagsByAscendingCount())
}

func TestApply_Insert(t *testing.T) {
	r := Default()
	r.Apply(nil, entry.Entry{ID: 1, Size: 1.5, Tags: []string{"a", "b", "a"}})
	r.Apply(nil, entry.Entry{ID: 2, Size: 2.5, Tags: []string{"c", "b"}})

	require.Equal(t, 2, r.Entries)
	require.Equal(t, 4.0, r.Size)
	require.Equal(t, int64(2), r.Counter)
	require.Equal(t, []TagCount{{Count: 2, Tag: "a"}, {Count: 2, Tag: "b"}, {Count: 1, Tag: "c"}}, r.Tags)
}

func TestApply_Update(t *testing.T) {
	r := Default()
	old := entry.Entry{ID: 1, Size: 1.5, Tags: []string{"a", "b"}}
	r.Apply(nil, old)

	r.Apply(&old, entry.Entry{ID: 1, Size: 4, Tags: []string{"b", "d"}})

	require.Equal(t, 1, r.Entries)
	require.Equal(t, 4.0, r.Size)
	require.Equal(t, 0, r.Count("a"))
	require.Equal(t, []TagCount{{Count: 1, Tag: "b"}, {Count: 1, Tag: "d"}}, r.Tags)
}

func TestObserve_NeverRegresses(t *testing.T) {
	r := &Root{Counter: 10}
	r.Observe(4)
	require.Equal(t, int64(10), r.Counter)
	r.Observe(11)
	require.Equal(t, int64(11), r.Counter)
}

func TestRebuild(t *testing.T) {
	entries := []entry.Entry{
		{ID: 1, Size: 1, Tags: []string{"x"}},
		{ID: 5, Size: 2, Tags: []string{"y", "x"}},
	}

	r := Rebuild(3, entries)
	require.Equal(t, int64(5), r.Counter)
	require.Equal(t, 2, r.Entries)
	require.Equal(t, 3.0, r.Size)
	require.Equal(t, []string{"y", "x"}, r.TagsByAscendingCount())

	require.Equal(t, int64(9), Rebuild(9, entries).Counter)
	require.Equal(t, &Root{Tags: []TagCount{}}, Rebuild(0, nil))
}
