package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persistence boundary used by the command handlers and the
// daily tick. Load never fails: a missing or corrupt file is replaced by
// the default document. Update runs a load-mutate-save sequence as one
// critical section so a handler and the scheduler cannot interleave.
type Store interface {
	Load() State
	Save(s State) error
	Update(fn func(*State) error) error
}

// FileStore persists the document as a single JSON file. Saves are atomic:
// the document is written to a temp file in the same directory, synced,
// and renamed over the target, so a concurrent reader never observes a
// partial write.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Load returns the persisted document. On a missing file it persists and
// returns the default; on malformed content it does the same after logging
// the recovery. It never returns an error.
func (f *FileStore) Load() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

// Save atomically persists s.
func (f *FileStore) Save(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(s)
}

// Update applies fn to the current document and persists the result. If fn
// returns an error nothing is written and the error is returned unchanged.
func (f *FileStore) Update(fn func(*State) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.loadLocked()
	if err := fn(&s); err != nil {
		return err
	}
	return f.saveLocked(s)
}

func (f *FileStore) loadLocked() State {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("state file unreadable, falling back to defaults",
				"path", f.path,
				"error", err,
			)
		}
		return f.resetLocked()
	}

	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		f.logger.Warn("state file corrupt, falling back to defaults",
			"path", f.path,
			"error", err,
		)
		return f.resetLocked()
	}
	if err := Validate(s); err != nil {
		f.logger.Warn("state file invalid, falling back to defaults",
			"path", f.path,
			"error", err,
		)
		return f.resetLocked()
	}
	return s
}

// resetLocked persists the default document and returns it. A failed write
// here is logged and swallowed: the caller still gets a usable document.
func (f *FileStore) resetLocked() State {
	s := Default()
	if err := f.saveLocked(s); err != nil {
		f.logger.Error("failed to persist default state", "error", err)
	}
	return s
}

func (f *FileStore) saveLocked(s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: rename into place: %w", err)
	}
	return nil
}
