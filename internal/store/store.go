// Package store holds the three persisted state containers of a chat
// client: the bot registry, the chat history and the UI config.
//
// Each store owns its state behind a mutex, writes a full snapshot to
// storage after every mutation, and notifies subscribers once the mutation
// is committed. Stores reference each other only by id.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/bot-chat/internal/model"
	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/reply"
	"github.com/rcliao/bot-chat/internal/storage"
)

// Storage keys of the persisted snapshots.
const (
	BotsKey   = "bots-storage"
	ChatsKey  = "chats-storage"
	ConfigKey = "app-config"
)

var (
	// ErrBotNotFound means no bot has the given id.
	ErrBotNotFound = errors.New("bot not found")
	// ErrNoChat means the chat list is empty.
	ErrNoChat = errors.New("no chat")
	// ErrDanglingBot means a chat references a bot that no longer exists.
	ErrDanglingBot = errors.New("chat bot no longer exists")
)

// snapshotVersion is written into every envelope.
const snapshotVersion = 0

// Options wires a store to its collaborators. Only Storage is required.
type Options struct {
	Storage  storage.Storage
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Responder produces assistant replies; nil means a reply.Registry
	// with its echo defaults.
	Responder reply.Responder
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Notifier == nil {
		o.Notifier = notify.Discard
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Responder == nil {
		o.Responder = reply.NewRegistry()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// idSource hands out ULIDs that sort in creation order.
type idSource struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

func newIDSource(now func() time.Time) *idSource {
	return &idSource{
		now:     now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (g *idSource) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// hub fans committed mutations out to subscribers.
type hub struct {
	mu        sync.Mutex
	seq       int
	listeners []listener
}

type listener struct {
	id int
	fn func()
}

// Subscribe registers fn to run after every committed mutation and returns
// a function that removes it.
func (h *hub) Subscribe(fn func()) (unsubscribe func()) {
	h.mu.Lock()
	h.seq++
	id := h.seq
	h.listeners = append(h.listeners, listener{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

func (h *hub) publish() {
	h.mu.Lock()
	ls := append([]listener(nil), h.listeners...)
	h.mu.Unlock()
	for _, l := range ls {
		l.fn()
	}
}

// Stores bundles the three stores that make up one client session.
type Stores struct {
	Bots   *BotStore
	Chats  *ChatStore
	Config *ConfigStore
}

// Open rehydrates all three stores from o.Storage.
func Open(ctx context.Context, o Options) (*Stores, error) {
	o = o.withDefaults()

	cfg, err := OpenConfigStore(ctx, o)
	if err != nil {
		return nil, err
	}
	bots, err := OpenBotStore(ctx, o)
	if err != nil {
		return nil, err
	}
	chats, err := OpenChatStore(ctx, o)
	if err != nil {
		return nil, err
	}
	chats.autoTitle = func() bool { return cfg.Get().EnableAutoGenerateTitle }

	return &Stores{Bots: bots, Chats: chats, Config: cfg}, nil
}

// CurrentBot resolves the bot of the current chat. It returns ErrNoChat
// when there is no chat and ErrDanglingBot, together with the chat, when
// the chat's bot no longer exists; the caller decides how to recover
// (typically by asking for a replacement and calling Chats.Rebind).
func (s *Stores) CurrentBot() (model.Chat, model.Bot, error) {
	c, ok := s.Chats.Chat()
	if !ok {
		return model.Chat{}, model.Bot{}, ErrNoChat
	}
	b, ok := s.Bots.GetOne(c.BotID)
	if !ok {
		return c, model.Bot{}, ErrDanglingBot
	}
	return c, b, nil
}

type storesKey struct{}

// WithStores returns a context carrying s.
func WithStores(ctx context.Context, s *Stores) context.Context {
	return context.WithValue(ctx, storesKey{}, s)
}

// FromContext returns the Stores placed by WithStores, or nil.
func FromContext(ctx context.Context) *Stores {
	s, _ := ctx.Value(storesKey{}).(*Stores)
	return s
}
