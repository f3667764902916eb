// Package state keeps the bookkeeping that survives between sync runs:
// the ledger of message identifiers already processed and the checkpoint
// bounding the next fetch.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// LedgerFileName is the seen-message ledger inside the data directory.
const LedgerFileName = "seen_emails.json"

// Tracker is the seen-message ledger as the sync uses it.
type Tracker interface {
	AlreadyProcessed(messageID string) bool
	MarkProcessed(messageID string) error
	Snapshot() Snapshot
	Save() error
}

type Snapshot struct {
	Processed int
}

// MemoryTracker keeps marks for the life of the process only.
type MemoryTracker struct {
	mu        sync.RWMutex
	processed map[string]bool
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{processed: make(map[string]bool)}
}

func (m *MemoryTracker) AlreadyProcessed(messageID string) bool {
	if messageID == "" {
		return false
	}

	m.mu.RLock()
	_, ok := m.processed[messageID]
	m.mu.RUnlock()
	return ok
}

func (m *MemoryTracker) MarkProcessed(messageID string) error {
	if messageID == "" {
		return nil
	}

	m.mu.Lock()
	m.processed[messageID] = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryTracker) Snapshot() Snapshot {
	m.mu.RLock()
	count := len(m.processed)
	m.mu.RUnlock()
	return Snapshot{Processed: count}
}

// Save is a no-op; nothing outlives the process.
func (m *MemoryTracker) Save() error {
	return nil
}

// FileTracker is the persisted ledger: a JSON object mapping message id to
// true. Marks stay in memory until Save rewrites the file. Entries are
// never evicted.
type FileTracker struct {
	*MemoryTracker
	path string
}

func NewFileTracker(dataDir string) (*FileTracker, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, model.ConfigurationError("open ledger", errors.New("data directory is empty"))
	}

	tracker := &FileTracker{
		MemoryTracker: NewMemoryTracker(),
		path:          filepath.Join(dataDir, LedgerFileName),
	}

	if err := tracker.load(); err != nil {
		return nil, err
	}

	return tracker, nil
}

// Path returns the ledger file location.
func (f *FileTracker) Path() string {
	return f.path
}

func (f *FileTracker) load() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return model.StorageError("read ledger", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var entries map[string]bool
	if err := json.Unmarshal(data, &entries); err != nil {
		return model.StorageError("parse ledger", err)
	}

	f.mu.Lock()
	for id := range entries {
		if id != "" {
			f.processed[id] = true
		}
	}
	f.mu.Unlock()
	return nil
}

// Save rewrites the ledger file with every known identifier.
func (f *FileTracker) Save() error {
	f.mu.RLock()
	entries := make(map[string]bool, len(f.processed))
	for id := range f.processed {
		entries[id] = true
	}
	f.mu.RUnlock()

	if err := writeJSON(f.path, entries); err != nil {
		return model.StorageError("write ledger", err)
	}
	return nil
}

// writeJSON replaces path with the indented encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
