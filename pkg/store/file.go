package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/observability"
)

// FileStore is a file-based saved-sheet store for CLI applications.
// Each sheet is stored as one JSON file in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based store.
// If baseDir is empty, defaults to ~/.config/gangsheet/sheets/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "get home dir")
		}
		baseDir = filepath.Join(home, ".config", "gangsheet", "sheets")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create sheet dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) sheetPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(rec)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal sheet")
	}
	if err := os.WriteFile(s.sheetPath(rec.ID), data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write sheet file")
	}
	observability.Store().OnSheetSaved(ctx, rec.ID, len(data))
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.sheetPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			observability.Store().OnSheetLoaded(ctx, id, false)
			return nil, errors.New(errors.ErrCodeSheetNotFound, "sheet %q not found", id)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read sheet file")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "parse sheet file")
	}
	observability.Store().OnSheetLoaded(ctx, id, true)
	return &rec, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sheetPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove sheet file")
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read sheet dir")
	}

	var recs []Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = strings.TrimSuffix(entry.Name(), ".json")
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	return recs, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for sheet files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
