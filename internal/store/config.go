package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rcliao/bot-chat/internal/model"
	"github.com/rcliao/bot-chat/internal/persist"
)

// ConfigStore holds the UI preferences. Values are not validated.
type ConfigStore struct {
	hub

	mu  sync.Mutex
	cfg model.Config

	slot *persist.Slot
	log  *slog.Logger
}

// OpenConfigStore rehydrates preferences from o.Storage. Fields missing
// from the snapshot keep their defaults.
func OpenConfigStore(ctx context.Context, o Options) (*ConfigStore, error) {
	o = o.withDefaults()
	s := &ConfigStore{
		cfg:  model.DefaultConfig(),
		slot: persist.NewSlot(o.Storage, ConfigKey, snapshotVersion),
		log:  o.Logger.With("store", "config"),
	}
	if _, err := s.slot.Load(ctx, &s.cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current preferences.
func (s *ConfigStore) Get() model.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Update applies fn to a copy of the preferences and commits the copy.
func (s *ConfigStore) Update(ctx context.Context, fn func(c *model.Config)) error {
	s.mu.Lock()
	next := s.cfg.Clone()
	fn(&next)
	s.cfg = next
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	return err
}

// Reset restores every preference to its default.
func (s *ConfigStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.cfg = model.DefaultConfig()
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	return err
}

// ToggleTheme switches between dark and light.
func (s *ConfigStore) ToggleTheme(ctx context.Context) error {
	return s.Update(ctx, func(c *model.Config) {
		if c.Theme == model.ThemeDark {
			c.Theme = model.ThemeLight
		} else {
			c.Theme = model.ThemeDark
		}
	})
}

func (s *ConfigStore) saveLocked(ctx context.Context) error {
	if err := s.slot.Save(ctx, s.cfg); err != nil {
		s.log.Error("persist failed", "err", err)
		return err
	}
	return nil
}
