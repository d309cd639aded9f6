package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue(ttl time.Duration) (*Queue, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	q := NewQueue(ttl)
	q.Now = clock.Now
	return q, clock
}

func TestEnqueueDefaults(t *testing.T) {
	q, _ := newTestQueue(0)
	key := q.Enqueue("Create successful", Options{})
	require.NotEmpty(t, key)

	active := q.Active()
	require.Len(t, active, 1)
	require.Equal(t, Info, active[0].Variant)
	require.Equal(t, DefaultTTL, active[0].TTL)
}

func TestInvokeWithinWindow(t *testing.T) {
	q, clock := newTestQueue(5 * time.Second)
	ran := 0
	key := q.Enqueue("Deleted successful", Options{
		Variant: Success,
		Action:  &Action{Label: "undo", Run: func() { ran++ }},
	})

	clock.Advance(4 * time.Second)
	require.NoError(t, q.Invoke(key))
	require.Equal(t, 1, ran)

	// Second invocation has no effect.
	require.ErrorIs(t, q.Invoke(key), ErrExpired)
	require.Equal(t, 1, ran)
}

func TestInvokeAfterExpiry(t *testing.T) {
	q, clock := newTestQueue(5 * time.Second)
	ran := false
	key := q.Enqueue("Deleted successful", Options{
		Action: &Action{Label: "undo", Run: func() { ran = true }},
	})

	clock.Advance(5 * time.Second)
	require.ErrorIs(t, q.Invoke(key), ErrExpired)
	require.False(t, ran)
	require.Empty(t, q.Active())
}

func TestInvokeAfterClose(t *testing.T) {
	q, _ := newTestQueue(time.Minute)
	ran := false
	key := q.Enqueue("x", Options{Action: &Action{Run: func() { ran = true }}})
	q.Close(key)
	require.ErrorIs(t, q.Invoke(key), ErrExpired)
	require.False(t, ran)
}

func TestInvokeErrors(t *testing.T) {
	q, _ := newTestQueue(time.Minute)
	require.ErrorIs(t, q.Invoke("nope"), ErrUnknown)

	key := q.Enqueue("plain", Options{})
	require.ErrorIs(t, q.Invoke(key), ErrNoAction)
}

func TestActionMayEnqueue(t *testing.T) {
	q, _ := newTestQueue(time.Minute)
	var key string
	key = q.Enqueue("Deleted successful", Options{Action: &Action{Label: "undo", Run: func() {
		q.Close(key)
		q.Enqueue("Restore", Options{Variant: Success})
	}}})

	require.NoError(t, q.Invoke(key))
	active := q.Active()
	require.Len(t, active, 1)
	require.Equal(t, "Restore", active[0].Message)
}

func TestLastAction(t *testing.T) {
	q, clock := newTestQueue(5 * time.Second)
	_, ok := q.LastAction()
	require.False(t, ok)

	first := q.Enqueue("first", Options{Action: &Action{Label: "undo"}})
	clock.Advance(time.Second)
	second := q.Enqueue("second", Options{Action: &Action{Label: "undo"}})
	q.Enqueue("plain", Options{})

	n, ok := q.LastAction()
	require.True(t, ok)
	require.Equal(t, second, n.Key)

	q.Close(second)
	n, ok = q.LastAction()
	require.True(t, ok)
	require.Equal(t, first, n.Key)
}

func TestOnEnqueueHook(t *testing.T) {
	q, _ := newTestQueue(time.Minute)
	var seen []string
	q.OnEnqueue = func(n Notification) { seen = append(seen, n.Message) }
	q.Enqueue("a", Options{})
	q.Enqueue("b", Options{Variant: Error})
	require.Equal(t, []string{"a", "b"}, seen)
}
