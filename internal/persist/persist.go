// Package persist reads and writes versioned store snapshots of the form
// {"state": {...}, "version": N} through a storage.Storage.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/bot-chat/internal/storage"
)

// Envelope is the persisted blob.
type Envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// MigrateFunc rewrites a decoded state object in place and reports whether
// it changed anything.
type MigrateFunc func(state map[string]json.RawMessage) bool

// Slot binds one store snapshot to its storage key.
type Slot struct {
	Key     string
	Version int
	// Migrate runs on every load, before decoding. When it reports a
	// change the rewritten blob is saved back.
	Migrate MigrateFunc

	storage storage.Storage
}

// NewSlot returns a slot for key on s.
func NewSlot(s storage.Storage, key string, version int) *Slot {
	return &Slot{Key: key, Version: version, storage: s}
}

// Load decodes the stored state into v. found is false when nothing has
// been persisted under the key yet, in which case v is untouched.
func (sl *Slot) Load(ctx context.Context, v any) (found bool, err error) {
	raw, err := sl.storage.GetItem(ctx, sl.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", sl.Key, err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return false, fmt.Errorf("decode %s: %w", sl.Key, err)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return false, nil
	}

	if sl.Migrate != nil {
		var state map[string]json.RawMessage
		if err := json.Unmarshal(env.State, &state); err != nil {
			return false, fmt.Errorf("decode %s state: %w", sl.Key, err)
		}
		if sl.Migrate(state) {
			b, err := json.Marshal(state)
			if err != nil {
				return false, fmt.Errorf("encode %s state: %w", sl.Key, err)
			}
			env.State = b
			if err := sl.write(ctx, env); err != nil {
				return false, err
			}
		}
	}

	if err := json.Unmarshal(env.State, v); err != nil {
		return false, fmt.Errorf("decode %s state: %w", sl.Key, err)
	}
	return true, nil
}

// Save writes v as the slot's state at the slot's version.
func (sl *Slot) Save(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", sl.Key, err)
	}
	return sl.write(ctx, Envelope{State: b, Version: sl.Version})
}

// Clear removes the persisted blob.
func (sl *Slot) Clear(ctx context.Context) error {
	if err := sl.storage.RemoveItem(ctx, sl.Key); err != nil {
		return fmt.Errorf("clear %s: %w", sl.Key, err)
	}
	return nil
}

func (sl *Slot) write(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", sl.Key, err)
	}
	if err := sl.storage.SetItem(ctx, sl.Key, string(b)); err != nil {
		return fmt.Errorf("save %s: %w", sl.Key, err)
	}
	return nil
}
