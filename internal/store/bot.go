package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rcliao/bot-chat/internal/model"
	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/persist"
)

// botState is the persisted part of BotStore. The search query is
// transient and never written.
type botState struct {
	Bots map[string]model.Bot `json:"bots"`
}

// BotStore is the registry of bot presets keyed by id.
type BotStore struct {
	hub

	mu    sync.Mutex
	bots  map[string]model.Bot
	query string

	slot     *persist.Slot
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
	ids      *idSource
}

// OpenBotStore rehydrates the registry from o.Storage. Older snapshots may
// carry a persisted query; it is dropped and the blob rewritten.
func OpenBotStore(ctx context.Context, o Options) (*BotStore, error) {
	o = o.withDefaults()
	s := &BotStore{
		bots:     make(map[string]model.Bot),
		slot:     persist.NewSlot(o.Storage, BotsKey, snapshotVersion),
		notifier: o.Notifier,
		log:      o.Logger.With("store", "bots"),
		now:      o.Now,
		ids:      newIDSource(o.Now),
	}
	s.slot.Migrate = func(state map[string]json.RawMessage) bool {
		if _, ok := state["query"]; !ok {
			return false
		}
		delete(state, "query")
		s.log.Info("dropped persisted query")
		return true
	}

	var st botState
	if _, err := s.slot.Load(ctx, &st); err != nil {
		return nil, err
	}
	for id, b := range st.Bots {
		s.bots[id] = b
	}
	s.log.Debug("loaded", "bots", len(s.bots))
	return s, nil
}

// Create stores a new bot built from the defaults overridden by patch,
// with a fresh id and the current time as CreatedAt.
func (s *BotStore) Create(ctx context.Context, patch *model.BotPatch) (model.Bot, error) {
	b := model.NewBot()
	patch.Apply(&b)
	b.ID = s.ids.next()
	b.CreatedAt = s.now().UnixMilli()

	s.mu.Lock()
	s.bots[b.ID] = b
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	s.notifier.Enqueue("Create successful", notify.Options{Variant: notify.Success})
	s.log.Debug("created", "id", b.ID, "name", b.Name)
	return b, err
}

// Update replaces the bot stored under id with b as given. An unknown id
// changes nothing, raises an error notification and returns ErrBotNotFound.
func (s *BotStore) Update(ctx context.Context, id string, b model.Bot) error {
	s.mu.Lock()
	if _, ok := s.bots[id]; !ok {
		s.mu.Unlock()
		s.log.Warn("update of unknown bot", "id", id)
		s.notifier.Enqueue("This bot not exist", notify.Options{Variant: notify.Error})
		return fmt.Errorf("update %s: %w", id, ErrBotNotFound)
	}
	s.bots[id] = b
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	s.notifier.Enqueue("Modify successful", notify.Options{Variant: notify.Success})
	return err
}

// Delete removes the bot with the given id. Callers are expected to have
// checked the bot exists; an unknown id changes nothing and returns
// ErrBotNotFound. Chats bound to the bot keep their now dangling BotID.
func (s *BotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	b, ok := s.bots[id]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("delete of unknown bot", "id", id)
		return fmt.Errorf("delete %s: %w", id, ErrBotNotFound)
	}
	delete(s.bots, id)
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	s.notifier.Enqueue(displayName(b.Name)+" deleted successful", notify.Options{Variant: notify.Success})
	return err
}

// Clear removes every bot and drops the persisted snapshot.
func (s *BotStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.bots = make(map[string]model.Bot)
	err := s.slot.Clear(ctx)
	if err != nil {
		s.log.Error("clear failed", "err", err)
	}
	s.mu.Unlock()

	s.publish()
	return err
}

// GetOne looks a bot up by id. A missing bot is a normal outcome.
func (s *BotStore) GetOne(id string) (model.Bot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	return b, ok
}

// GetAll returns every bot, newest CreatedAt first.
func (s *BotStore) GetAll() []model.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// List returns GetAll projected to id, name, avatar and model.
func (s *BotStore) List() []model.BotSummary {
	all := s.GetAll()
	out := make([]model.BotSummary, len(all))
	for i, b := range all {
		out[i] = b.Summary()
	}
	return out
}

// Search filters GetAll by the current query.
func (s *BotStore) Search() []model.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterBots(s.sortedLocked(), s.query)
}

// SetQuery sets the transient search query. It does not run a search.
func (s *BotStore) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
	s.publish()
}

// Query returns the transient search query.
func (s *BotStore) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Len returns the number of bots.
func (s *BotStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bots)
}

func (s *BotStore) sortedLocked() []model.Bot {
	out := make([]model.Bot, 0, len(s.bots))
	for _, b := range s.bots {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *BotStore) saveLocked(ctx context.Context) error {
	if err := s.slot.Save(ctx, botState{Bots: s.bots}); err != nil {
		s.log.Error("persist failed", "err", err)
		return err
	}
	return nil
}
