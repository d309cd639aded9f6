package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/storage"
)

// testClock advances one millisecond per reading so CreatedAt values are
// distinct and ordered.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	mem    *storage.Memory
	queue  *notify.Queue
	clock  *testClock
	stores *Stores
}

func (e *testEnv) options() Options {
	return Options{Storage: e.mem, Notifier: e.queue, Now: e.clock.Now}
}

// reopen rehydrates a fresh set of stores from the same storage.
func (e *testEnv) reopen(t *testing.T) *Stores {
	t.Helper()
	s, err := Open(context.Background(), e.options())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	return s
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{mem: storage.NewMemory(), clock: newTestClock()}
	e.queue = notify.NewQueue(5 * time.Second)
	e.queue.Now = e.clock.Now
	e.stores = e.reopen(t)
	return e
}

func strPtr(s string) *string { return &s }

func messages(q *notify.Queue) []string {
	var out []string
	for _, n := range q.Active() {
		out = append(out, n.Message)
	}
	return out
}
