package aggregate

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/ccp-journal/ccp/internal/errors"
)

// Store reads and writes the aggregate file. Callers in one process share a
// Store so that Update calls are serialised; writers in other processes are
// last-write-wins.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the aggregate file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored Root. A missing file is created holding Default
// before returning it. A file that exists but does not parse is reported as
// CORRUPT_AGGREGATE and left untouched.
func (s *Store) Load() (*Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save atomically replaces the file with r.
func (s *Store) Save(r *Root) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(r)
}

// Update loads the Root, applies fn and saves the result. Nothing is written
// if fn fails.
func (s *Store) Update(fn func(*Root) error) (*Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := s.save(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) load() (*Root, error) {
	data, err := os.ReadFile(s.path)
	if stderrors.Is(err, os.ErrNotExist) {
		r := Default()
		if err := s.save(r); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}

	var r Root
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewCorruptAggregate(s.path, err)
	}
	if r.Tags == nil {
		r.Tags = []TagCount{}
	}
	return &r, nil
}

func (s *Store) save(r *Root) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.NewSerialization(err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewStorageUnavailable(fmt.Errorf("create aggregate directory: %w", err))
	}

	// The temp file lives beside the target so the rename stays on one
	// filesystem.
	tmpPath := fmt.Sprintf("%s.%s.tmp", s.path, ulid.Make())
	if err := writeSynced(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		return errors.NewStorageUnavailable(err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.NewStorageUnavailable(fmt.Errorf("replace aggregate file: %w", err))
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return nil
}
