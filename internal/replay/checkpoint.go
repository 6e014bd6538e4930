package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpointer persists the last applied instruction line.
type Checkpointer interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, lastLine uint64) error
}

// Checkpoint is the on-disk form kept by CheckpointStore.
type Checkpoint struct {
	LastAppliedLine uint64 `json:"last_applied_line"`
	UpdatedAt       string `json:"updated_at"`
}

// CheckpointStore keeps the checkpoint in a JSON file, replaced atomically.
type CheckpointStore struct {
	path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

func (c *CheckpointStore) Load(context.Context) (uint64, bool, error) {
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp.LastAppliedLine, true, nil
}

func (c *CheckpointStore) Save(_ context.Context, lastLine uint64) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		LastAppliedLine: lastLine,
		UpdatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// StateStore is the runner_state access of the Postgres store.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, last uint64) error
}

// StateCheckpoint keeps the checkpoint as a named runner_state row.
type StateCheckpoint struct {
	Store StateStore
	Name  string
}

func (s StateCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	return s.Store.LoadState(ctx, s.Name)
}

func (s StateCheckpoint) Save(ctx context.Context, lastLine uint64) error {
	return s.Store.SaveState(ctx, s.Name, lastLine)
}
