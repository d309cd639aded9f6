package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rcliao/bot-chat/internal/model"
	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/reply"
)

func seedChats(t *testing.T, e *testEnv, botIDs ...string) {
	t.Helper()
	for _, id := range botIDs {
		if err := e.stores.Chats.Create(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
}

func TestChatCreate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	seedChats(t, e, "b1", "b2")
	e.stores.Chats.Select(ctx, 1)
	if err := e.stores.Chats.Create(ctx, "b3"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if e.stores.Chats.Index() != 0 {
		t.Errorf("expected index 0, got %d", e.stores.Chats.Index())
	}
	c, ok := e.stores.Chats.Chat()
	if !ok {
		t.Fatal("expected a current chat")
	}
	if c.BotID != "b3" || c.Topic != model.DefaultTopic || len(c.History) != 0 {
		t.Errorf("unexpected new chat %+v", c)
	}
	if e.stores.Chats.Size() != 3 {
		t.Errorf("expected 3 chats, got %d", e.stores.Chats.Size())
	}
}

func TestChatEmpty(t *testing.T) {
	e := newTestEnv(t)
	if _, ok := e.stores.Chats.Chat(); ok {
		t.Error("expected no chat")
	}
	if e.stores.Chats.Size() != 0 || len(e.stores.Chats.Menu()) != 0 {
		t.Error("expected empty store")
	}
	err := e.stores.Chats.UpdateCurrentChat(context.Background(), func(*model.Chat) {
		t.Error("updater must not run")
	})
	if !errors.Is(err, ErrNoChat) {
		t.Errorf("expected ErrNoChat, got %v", err)
	}
	if err := e.stores.Chats.UserInput(context.Background(), "hi", model.Bot{ID: "b1"}); !errors.Is(err, ErrNoChat) {
		t.Errorf("expected ErrNoChat, got %v", err)
	}
}

func TestSelectClampsOnRead(t *testing.T) {
	tests := []struct {
		selected int
		want     int
	}{
		{0, 0},
		{2, 2},
		{3, 2},
		{99, 2},
		{-1, 0},
		{-50, 0},
	}
	for _, tt := range tests {
		e := newTestEnv(t)
		ctx := context.Background()
		seedChats(t, e, "c", "b", "a")

		e.stores.Chats.Select(ctx, tt.selected)
		if e.stores.Chats.Index() != tt.selected {
			t.Errorf("select should store %d unchecked, got %d", tt.selected, e.stores.Chats.Index())
		}

		c, ok := e.stores.Chats.Chat()
		if !ok {
			t.Fatalf("select %d: expected a chat", tt.selected)
		}
		if got := e.stores.Chats.Index(); got != tt.want {
			t.Errorf("select %d: expected index %d, got %d", tt.selected, tt.want, got)
		}
		if c.ID != e.stores.Chats.Menu()[tt.want].ID {
			t.Errorf("select %d: returned chat is not at the clamped index", tt.selected)
		}
		// The corrected cursor is persisted.
		if got := e.reopen(t).Chats.Index(); got != tt.want {
			t.Errorf("select %d: expected persisted index %d, got %d", tt.selected, tt.want, got)
		}
	}
}

func TestMenu(t *testing.T) {
	e := newTestEnv(t)
	seedChats(t, e, "b1", "b2")
	menu := e.stores.Chats.Menu()
	all := e.stores.Chats.All()
	if len(menu) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(menu))
	}
	for i := range menu {
		if menu[i].ID != all[i].ID || menu[i].Topic != all[i].Topic || menu[i].LastUpdate != all[i].LastUpdate {
			t.Errorf("menu[%d] does not match chat", i)
		}
	}
	if all[0].BotID != "b2" {
		t.Error("expected newest chat first")
	}
}

func TestDeleteOnlyChat(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b1")

	if _, err := e.stores.Chats.Delete(ctx, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if e.stores.Chats.Size() != 0 {
		t.Error("expected no chats")
	}
	if _, ok := e.stores.Chats.Chat(); ok {
		t.Error("expected no current chat")
	}
}

func TestDeleteOutOfRange(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b1", "b2")
	before := e.stores.Chats.All()

	for _, i := range []int{2, 5, -1} {
		key, err := e.stores.Chats.Delete(ctx, i)
		if err != nil || key != "" {
			t.Errorf("delete %d: expected no-op, got key=%q err=%v", i, key, err)
		}
	}
	if !reflect.DeepEqual(before, e.stores.Chats.All()) {
		t.Error("out of range delete must not mutate")
	}
	if len(e.queue.Active()) != 0 {
		t.Error("out of range delete must not notify")
	}
}

func TestDeleteCursorAdjustment(t *testing.T) {
	tests := []struct {
		name      string
		cursor    int
		remove    int
		wantIndex int
	}{
		{"last selected and removed", 2, 2, 1},
		{"first selected and removed", 0, 0, 0},
		{"middle selected and removed", 1, 1, 1},
		{"earlier removed keeps raw cursor", 2, 0, 2},
		{"last removed while first selected", 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()
			seedChats(t, e, "c", "b", "a")
			e.stores.Chats.Select(ctx, tt.cursor)

			e.stores.Chats.Delete(ctx, tt.remove)
			if got := e.stores.Chats.Index(); got != tt.wantIndex {
				t.Errorf("expected index %d, got %d", tt.wantIndex, got)
			}
			e.stores.Chats.Chat()
			if got := e.stores.Chats.Index(); got < 0 || got >= e.stores.Chats.Size() {
				t.Errorf("cursor %d out of range after Chat()", got)
			}
		})
	}
}

func TestDeleteUndo(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "c", "b", "a")
	e.stores.Chats.Select(ctx, 2)
	e.stores.Chats.UserInput(ctx, "keep me", model.Bot{ID: "c"})
	before := e.stores.Chats.All()
	beforeIndex := e.stores.Chats.Index()

	key, err := e.stores.Chats.Delete(ctx, 2)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if key == "" {
		t.Fatal("expected an undo key")
	}
	if e.stores.Chats.Size() != 2 {
		t.Fatalf("expected 2 chats after delete")
	}

	e.clock.Advance(3 * time.Second)
	if err := e.queue.Invoke(key); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !reflect.DeepEqual(before, e.stores.Chats.All()) {
		t.Error("undo should restore the exact chats")
	}
	if e.stores.Chats.Index() != beforeIndex {
		t.Errorf("expected index %d, got %d", beforeIndex, e.stores.Chats.Index())
	}
	msgs := messages(e.queue)
	if msgs[len(msgs)-1] != "Restore" {
		t.Errorf("expected Restore notification, got %v", msgs)
	}
	// Restored state is persisted.
	if !reflect.DeepEqual(before, e.reopen(t).Chats.All()) {
		t.Error("restored state should be persisted")
	}
}

func TestDeleteUndoAfterWindow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b", "a")

	key, _ := e.stores.Chats.Delete(ctx, 0)
	after := e.stores.Chats.All()

	e.clock.Advance(6 * time.Second)
	if err := e.queue.Invoke(key); !errors.Is(err, notify.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if !reflect.DeepEqual(after, e.stores.Chats.All()) {
		t.Error("expired undo must not change state")
	}
}

func TestUndoOnlyOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b", "a")

	key, _ := e.stores.Chats.Delete(ctx, 0)
	e.queue.Invoke(key)
	e.stores.Chats.Create(ctx, "z")
	if err := e.queue.Invoke(key); err == nil {
		t.Fatal("second undo should fail")
	}
	if e.stores.Chats.Size() != 3 {
		t.Errorf("expected 3 chats, got %d", e.stores.Chats.Size())
	}
}

func TestUserInputScenario(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b1")

	if err := e.stores.Chats.UserInput(ctx, "hi", model.Bot{ID: "b1"}); err != nil {
		t.Fatalf("user input: %v", err)
	}
	c, _ := e.stores.Chats.Chat()
	if len(c.History) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.History))
	}
	if c.History[0].Role != model.RoleUser || c.History[0].Content != "hi" {
		t.Errorf("unexpected user message %+v", c.History[0])
	}
	if c.History[1].Role != model.RoleAssistant || c.History[1].Content != "hi" {
		t.Errorf("unexpected assistant message %+v", c.History[1])
	}
	if !c.History[1].Streaming {
		t.Error("expected assistant message to be streaming")
	}
	if c.History[1].Bot == nil || c.History[1].Bot.ID != "b1" {
		t.Error("expected bot snapshot on assistant message")
	}
	if c.History[0].ID == "" || c.History[0].ID == c.History[1].ID {
		t.Error("expected distinct message ids")
	}
	if _, err := time.Parse(model.DateLayout, c.History[0].Date); err != nil {
		t.Errorf("unexpected date format %q: %v", c.History[0].Date, err)
	}
}

func TestUserInputPreservesHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b1")
	bot := model.Bot{ID: "b1"}

	inputs := []string{"one", "two", "three"}
	for _, in := range inputs {
		e.stores.Chats.UserInput(ctx, in, bot)
	}
	c, _ := e.stores.Chats.Chat()
	if len(c.History) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(c.History))
	}
	for i, in := range inputs {
		if c.History[2*i].Content != in || c.History[2*i].Role != model.RoleUser {
			t.Errorf("message %d out of order", 2*i)
		}
		if c.History[2*i+1].Role != model.RoleAssistant {
			t.Errorf("message %d should be assistant", 2*i+1)
		}
	}
}

func TestUserInputTargetsCurrentChat(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b", "a")
	e.stores.Chats.Select(ctx, 1)

	e.stores.Chats.UserInput(ctx, "hello", model.Bot{ID: "b"})
	all := e.stores.Chats.All()
	if len(all[0].History) != 0 || len(all[1].History) != 2 {
		t.Errorf("expected only chat 1 to change: %d %d", len(all[0].History), len(all[1].History))
	}
}

func TestUserInputResponderError(t *testing.T) {
	e := newTestEnv(t)
	o := e.options()
	o.Responder = reply.ResponderFunc(func(context.Context, reply.Request) (model.Message, error) {
		return model.Message{}, errors.New("backend down")
	})
	s, err := Open(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s.Chats.Create(ctx, "b1")

	if err := s.Chats.UserInput(ctx, "hi", model.Bot{ID: "b1"}); err != nil {
		t.Fatalf("user input: %v", err)
	}
	c, _ := s.Chats.Chat()
	if len(c.History) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.History))
	}
	if !c.History[1].IsError || c.History[1].Content != "backend down" {
		t.Errorf("expected error reply, got %+v", c.History[1])
	}
}

func TestAutoTitle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b1")
	bot := model.Bot{ID: "b1"}

	e.stores.Chats.UserInput(ctx, "  How do goroutines\nwork?  ", bot)
	e.stores.Chats.UserInput(ctx, "second question", bot)
	c, _ := e.stores.Chats.Chat()
	if c.Topic != "How do goroutines work?" {
		t.Errorf("unexpected topic %q", c.Topic)
	}

	e.stores.Config.Update(ctx, func(c *model.Config) { c.EnableAutoGenerateTitle = false })
	e.stores.Chats.Create(ctx, "b1")
	e.stores.Chats.UserInput(ctx, "no title please", bot)
	c, _ = e.stores.Chats.Chat()
	if c.Topic != model.DefaultTopic {
		t.Errorf("expected default topic, got %q", c.Topic)
	}
}

func TestTopicFrom(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	if got := topicFrom(long); got != long[:47]+"..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := topicFrom("a\r\nb"); got != "a b" {
		t.Errorf("unexpected %q", got)
	}
}

func TestUpdateCurrentChatAndRebind(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "gone")

	if err := e.stores.Chats.Rebind(ctx, "b2"); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	c, _ := e.stores.Chats.Chat()
	if c.BotID != "b2" {
		t.Errorf("expected b2, got %q", c.BotID)
	}
	if e.reopen(t).Chats.All()[0].BotID != "b2" {
		t.Error("rebind should persist")
	}
}

func TestChatReturnsCopy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedChats(t, e, "b1")
	e.stores.Chats.UserInput(ctx, "hi", model.Bot{ID: "b1"})

	c, _ := e.stores.Chats.Chat()
	c.History[0].Content = "mutated"
	c.History[1].Bot.ID = "mutated"

	again, _ := e.stores.Chats.Chat()
	if again.History[0].Content != "hi" || again.History[1].Bot.ID != "b1" {
		t.Error("Chat must not expose internal state")
	}
}

func TestChatSubscribe(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	calls := 0
	e.stores.Chats.Subscribe(func() { calls++ })

	e.stores.Chats.Create(ctx, "b1")
	e.stores.Chats.Select(ctx, 4)
	e.stores.Chats.Chat() // clamps
	e.stores.Chats.Chat()
	e.stores.Chats.Delete(ctx, 7)
	e.stores.Chats.UserInput(ctx, "x", model.Bot{})
	if calls != 4 {
		t.Errorf("expected 4 notifications, got %d", calls)
	}
}

func TestUserInputStaysOnChatWhenCursorMoves(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	o := e.options()
	var s *Stores
	o.Responder = reply.ResponderFunc(func(ctx context.Context, req reply.Request) (model.Message, error) {
		s.Chats.Select(ctx, 1)
		return reply.Echo{}.Generate(ctx, req)
	})
	s, err := Open(ctx, o)
	if err != nil {
		t.Fatal(err)
	}
	s.Chats.Create(ctx, "b")
	s.Chats.Create(ctx, "a")

	if err := s.Chats.UserInput(ctx, "for chat a", model.Bot{ID: "a"}); err != nil {
		t.Fatalf("user input: %v", err)
	}
	all := s.Chats.All()
	if all[0].BotID != "a" || len(all[0].History) != 2 {
		t.Errorf("expected the turn in chat a, got %d messages", len(all[0].History))
	}
	if len(all[1].History) != 0 {
		t.Errorf("chat b should be untouched, got %d messages", len(all[1].History))
	}
	if all[0].Topic != "for chat a" {
		t.Errorf("unexpected topic %q", all[0].Topic)
	}
	if s.Chats.Index() != 1 {
		t.Errorf("cursor change should stand, got %d", s.Chats.Index())
	}
}

func TestUserInputChatDeletedDuringReply(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	o := e.options()
	var s *Stores
	o.Responder = reply.ResponderFunc(func(ctx context.Context, req reply.Request) (model.Message, error) {
		s.Chats.Delete(ctx, 0)
		return reply.Echo{}.Generate(ctx, req)
	})
	s, err := Open(ctx, o)
	if err != nil {
		t.Fatal(err)
	}
	s.Chats.Create(ctx, "b")
	s.Chats.Create(ctx, "a")

	if err := s.Chats.UserInput(ctx, "lost", model.Bot{ID: "a"}); !errors.Is(err, ErrNoChat) {
		t.Fatalf("expected ErrNoChat, got %v", err)
	}
	all := s.Chats.All()
	if len(all) != 1 || len(all[0].History) != 0 {
		t.Error("remaining chat should be untouched")
	}
}
