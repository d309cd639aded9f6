// Package notify implements transient user notifications. A notification
// may carry one action that can be invoked only while it is visible, which
// is how chat deletion offers its undo window.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Variant classifies a notification.
type Variant string

const (
	Success Variant = "success"
	Error   Variant = "error"
	Info    Variant = "info"
	Warning Variant = "warning"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

var (
	// ErrExpired means the notification is no longer visible.
	ErrExpired = errors.New("notification expired")
	// ErrNoAction means the notification carries no action.
	ErrNoAction = errors.New("notification has no action")
	// ErrUnknown means no notification has the given key.
	ErrUnknown = errors.New("unknown notification")
)

// Action is a button attached to a notification.
type Action struct {
	Label string
	Run   func()
}

// Options configures one Enqueue call.
type Options struct {
	Variant Variant
	Action  *Action
	// TTL overrides the notifier's default visible lifetime.
	TTL time.Duration
}

// Notification is the visible part of an enqueued notification.
type Notification struct {
	Key         string        `json:"key"`
	Message     string        `json:"message"`
	Variant     Variant       `json:"variant"`
	ActionLabel string        `json:"action,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	TTL         time.Duration `json:"ttl"`
}

// ExpiresAt is when the notification stops being visible.
func (n Notification) ExpiresAt() time.Time {
	return n.CreatedAt.Add(n.TTL)
}

// Notifier is what stores report through.
type Notifier interface {
	Enqueue(message string, opts Options) string
	Close(key string)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Enqueue(string, Options) string { return "" }
func (discard) Close(string)                   {}

type entry struct {
	n      Notification
	action *Action
	closed bool
}

// Queue is an in-memory Notifier. Expiry is evaluated lazily against Now.
type Queue struct {
	// Now is the clock; tests replace it.
	Now func() time.Time
	// OnEnqueue, if set, observes every notification as it is enqueued.
	OnEnqueue func(Notification)

	mu      sync.Mutex
	ttl     time.Duration
	entries []*entry
}

// maxEntries bounds how many notifications are retained.
const maxEntries = 64

// NewQueue returns a queue whose notifications stay visible for ttl.
// A non-positive ttl means DefaultTTL.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{Now: time.Now, ttl: ttl}
}

// Enqueue shows a notification and returns its key.
func (q *Queue) Enqueue(message string, opts Options) string {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = q.ttl
	}
	variant := opts.Variant
	if variant == "" {
		variant = Info
	}
	e := &entry{
		n: Notification{
			Key:       uuid.New().String(),
			Message:   message,
			Variant:   variant,
			CreatedAt: q.Now(),
			TTL:       ttl,
		},
		action: opts.Action,
	}
	if opts.Action != nil {
		e.n.ActionLabel = opts.Action.Label
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	if len(q.entries) > maxEntries {
		q.entries = q.entries[len(q.entries)-maxEntries:]
	}
	hook := q.OnEnqueue
	q.mu.Unlock()

	if hook != nil {
		hook(e.n)
	}
	return e.n.Key
}

// Close dismisses a notification. Its action can no longer be invoked.
func (q *Queue) Close(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e := q.find(key); e != nil {
		e.closed = true
	}
}

// Invoke runs the action of a visible notification and dismisses it.
// An action runs at most once.
func (q *Queue) Invoke(key string) error {
	q.mu.Lock()
	e := q.find(key)
	if e == nil {
		q.mu.Unlock()
		return ErrUnknown
	}
	if e.action == nil {
		q.mu.Unlock()
		return ErrNoAction
	}
	if !q.visible(e) {
		q.mu.Unlock()
		return ErrExpired
	}
	e.closed = true
	run := e.action.Run
	q.mu.Unlock()

	if run != nil {
		run()
	}
	return nil
}

// Active returns the visible notifications, oldest first.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Notification
	for _, e := range q.entries {
		if q.visible(e) {
			out = append(out, e.n)
		}
	}
	return out
}

// LastAction returns the newest visible notification that carries an
// action.
func (q *Queue) LastAction() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.entries) - 1; i >= 0; i-- {
		e := q.entries[i]
		if e.action != nil && q.visible(e) {
			return e.n, true
		}
	}
	return Notification{}, false
}

func (q *Queue) visible(e *entry) bool {
	return !e.closed && q.Now().Before(e.n.ExpiresAt())
}

func (q *Queue) find(key string) *entry {
	for _, e := range q.entries {
		if e.n.Key == key {
			return e
		}
	}
	return nil
}
