package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// CheckpointFileName holds the last successful sync time.
const CheckpointFileName = "sync_state.json"

const lastSyncKey = "last_sync"

// Checkpoint is the persisted sync state. Keys other than last_sync are
// carried through untouched.
type Checkpoint struct {
	path   string
	fields map[string]json.RawMessage
}

// LoadCheckpoint reads the checkpoint file; a missing file yields an empty
// checkpoint.
func LoadCheckpoint(dataDir string) (*Checkpoint, error) {
	cp := &Checkpoint{
		path:   filepath.Join(dataDir, CheckpointFileName),
		fields: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(cp.path)
	if errors.Is(err, os.ErrNotExist) {
		return cp, nil
	}
	if err != nil {
		return nil, model.StorageError("read checkpoint", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cp, nil
	}
	if err := json.Unmarshal(data, &cp.fields); err != nil {
		return nil, model.StorageError("parse checkpoint", err)
	}
	if cp.fields == nil {
		cp.fields = make(map[string]json.RawMessage)
	}
	return cp, nil
}

// LastSync returns the stored checkpoint, or the zero time when none was
// recorded or it cannot be parsed.
func (c *Checkpoint) LastSync() time.Time {
	raw, ok := c.fields[lastSyncKey]
	if !ok {
		return time.Time{}
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetLastSync records t and returns its stored form, UTC with second
// precision and a Z suffix.
func (c *Checkpoint) SetLastSync(t time.Time) string {
	formatted := FormatTimestamp(t)
	raw, _ := json.Marshal(formatted)
	c.fields[lastSyncKey] = raw
	return formatted
}

// Save rewrites the checkpoint file.
func (c *Checkpoint) Save() error {
	if err := writeJSON(c.path, c.fields); err != nil {
		return model.StorageError("write checkpoint", fmt.Errorf("%s: %w", c.path, err))
	}
	return nil
}

// FormatTimestamp renders t as an RFC 3339 UTC timestamp in whole seconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
