package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/bot-chat/internal/model"
	"github.com/rcliao/bot-chat/internal/notify"
	"github.com/rcliao/bot-chat/internal/persist"
	"github.com/rcliao/bot-chat/internal/reply"
)

// chatState is the persisted part of ChatStore.
type chatState struct {
	Chats []model.Chat `json:"chats"`
	Index int          `json:"index"`
}

func (st chatState) clone() chatState {
	out := chatState{Index: st.Index, Chats: make([]model.Chat, len(st.Chats))}
	for i, c := range st.Chats {
		out.Chats[i] = c.Clone()
	}
	return out
}

// ChatStore is the ordered list of chats, newest first, plus the cursor
// selecting the current one.
//
// The cursor is validated lazily: Select stores any value and the next
// Chat call clamps it into range. While the list is empty the cursor is
// left alone and every cursor read reports no chat.
type ChatStore struct {
	hub

	mu    sync.Mutex
	state chatState

	slot      *persist.Slot
	notifier  notify.Notifier
	responder reply.Responder
	log       *slog.Logger
	now       func() time.Time
	ids       *idSource
	autoTitle func() bool
}

// OpenChatStore rehydrates the chat list from o.Storage.
func OpenChatStore(ctx context.Context, o Options) (*ChatStore, error) {
	o = o.withDefaults()
	s := &ChatStore{
		state:     chatState{Chats: []model.Chat{}},
		slot:      persist.NewSlot(o.Storage, ChatsKey, snapshotVersion),
		notifier:  o.Notifier,
		responder: o.Responder,
		log:       o.Logger.With("store", "chats"),
		now:       o.Now,
		ids:       newIDSource(o.Now),
		autoTitle: func() bool { return false },
	}

	var st chatState
	found, err := s.slot.Load(ctx, &st)
	if err != nil {
		return nil, err
	}
	if found {
		if st.Chats == nil {
			st.Chats = []model.Chat{}
		}
		s.state = st
	}
	s.log.Debug("loaded", "chats", len(s.state.Chats), "index", s.state.Index)
	return s, nil
}

// Create prepends a new chat bound to botID and makes it current.
func (s *ChatStore) Create(ctx context.Context, botID string) error {
	c := model.NewChat(s.ids.next(), botID, s.now())

	s.mu.Lock()
	s.state.Chats = append([]model.Chat{c}, s.state.Chats...)
	s.state.Index = 0
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	return err
}

// Chat returns a copy of the current chat. An out of range cursor is first
// clamped and the corrected cursor persisted. ok is false when there are
// no chats.
func (s *ChatStore) Chat() (model.Chat, bool) {
	s.mu.Lock()
	c, ok, moved := s.currentLocked()
	if moved {
		// Read path: a failed write is logged, not returned.
		s.saveLocked(context.Background())
	}
	if ok {
		c = c.Clone()
	}
	s.mu.Unlock()

	if moved {
		s.publish()
	}
	return c, ok
}

// currentLocked clamps the cursor and returns the chat under it.
func (s *ChatStore) currentLocked() (c model.Chat, ok, moved bool) {
	n := len(s.state.Chats)
	if n == 0 {
		return model.Chat{}, false, false
	}
	if i := clampIndex(s.state.Index, n); i != s.state.Index {
		s.log.Info("clamped cursor", "from", s.state.Index, "to", i)
		s.state.Index = i
		moved = true
	}
	return s.state.Chats[s.state.Index], true, moved
}

// Select moves the cursor to index without checking bounds.
func (s *ChatStore) Select(ctx context.Context, index int) error {
	s.mu.Lock()
	s.state.Index = index
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	return err
}

// Index returns the raw cursor, which may be out of range until the next
// Chat call.
func (s *ChatStore) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Index
}

// Delete removes the chat at index and returns the key of the notification
// whose "undo" action restores the list and cursor as they were before the
// deletion, for as long as the notification stays visible. Deleting an
// index with no chat is a no-op and returns an empty key.
//
// The cursor is decremented only when the removed chat was the last one
// and not the first; removing a chat before the cursor does not shift it.
func (s *ChatStore) Delete(ctx context.Context, index int) (string, error) {
	s.mu.Lock()
	n := len(s.state.Chats)
	if index < 0 || index >= n {
		s.mu.Unlock()
		return "", nil
	}

	restore := s.state.clone()

	chats := make([]model.Chat, 0, n-1)
	chats = append(chats, s.state.Chats[:index]...)
	chats = append(chats, s.state.Chats[index+1:]...)
	s.state.Chats = chats
	if index == n-1 && index != 0 && s.state.Index > 0 {
		s.state.Index--
	}
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()

	var key string
	key = s.notifier.Enqueue("Deleted successful", notify.Options{
		Variant: notify.Success,
		Action: &notify.Action{
			Label: "undo",
			Run: func() {
				s.restore(restore)
				s.notifier.Close(key)
				s.notifier.Enqueue("Restore", notify.Options{Variant: notify.Success})
			},
		},
	})
	return key, err
}

// restore replaces the live state with a pre-delete snapshot.
func (s *ChatStore) restore(st chatState) {
	s.mu.Lock()
	s.state = st.clone()
	s.saveLocked(context.Background())
	s.mu.Unlock()

	s.log.Info("restored", "chats", len(st.Chats), "index", st.Index)
	s.publish()
}

// Size returns the number of chats.
func (s *ChatStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Chats)
}

// Menu lists every chat's id, topic and last update, newest chat first.
func (s *ChatStore) Menu() []model.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatSummary, len(s.state.Chats))
	for i, c := range s.state.Chats {
		out[i] = c.Summary()
	}
	return out
}

// All returns a copy of every chat, newest first.
func (s *ChatStore) All() []model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone().Chats
}

// UpdateCurrentChat applies fn to the current chat in place and persists
// the result. It returns ErrNoChat when there is no chat.
func (s *ChatStore) UpdateCurrentChat(ctx context.Context, fn func(c *model.Chat)) error {
	s.mu.Lock()
	if _, ok, _ := s.currentLocked(); !ok {
		s.mu.Unlock()
		return ErrNoChat
	}
	fn(&s.state.Chats[s.state.Index])
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	return err
}

// UserInput appends a user message with content and the bot's reply to the
// chat that is current when it is called, even if the cursor moves while
// the reply is produced. With the default responder the reply echoes
// content. If the responder fails, the reply is an error message instead.
// ErrNoChat is returned when there is no chat, or when the chat was
// deleted before the turn could be written.
func (s *ChatStore) UserInput(ctx context.Context, content string, bot model.Bot) error {
	current, ok := s.Chat()
	if !ok {
		return ErrNoChat
	}

	now := s.now()
	user := model.Message{
		ID:      s.ids.next(),
		Role:    model.RoleUser,
		Content: content,
		Date:    now.Format(model.DateLayout),
	}

	history := append(current.History, user)
	answer, err := s.responder.Generate(ctx, reply.Request{
		Bot:     bot,
		History: history,
		Context: reply.BuildContext(history, bot),
	})
	if err != nil {
		s.log.Warn("reply failed", "bot", bot.ID, "err", err)
		b := bot
		answer = model.Message{Role: model.RoleAssistant, Content: err.Error(), IsError: true, Bot: &b}
	}
	if answer.ID == "" {
		answer.ID = s.ids.next()
	}
	if answer.Date == "" {
		answer.Date = s.now().Format(model.DateLayout)
	}

	autoTitle := s.autoTitle()
	return s.updateChat(ctx, current.ID, func(c *model.Chat) {
		if autoTitle && c.Topic == model.DefaultTopic && !hasUserMessage(c.History) {
			if t := topicFrom(content); t != "" {
				c.Topic = t
			}
		}
		c.History = append(c.History, user, answer)
		c.LastUpdate = now.UnixMilli()
	})
}

// updateChat applies fn to the chat with the given id and persists it.
func (s *ChatStore) updateChat(ctx context.Context, id string, fn func(c *model.Chat)) error {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.Warn("chat gone before update", "id", id)
		return ErrNoChat
	}
	fn(&s.state.Chats[i])
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.publish()
	return err
}

func (s *ChatStore) indexOfLocked(id string) int {
	for i, c := range s.state.Chats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Rebind points the current chat at another bot, for chats whose bot was
// deleted.
func (s *ChatStore) Rebind(ctx context.Context, botID string) error {
	return s.UpdateCurrentChat(ctx, func(c *model.Chat) {
		c.BotID = botID
	})
}

func hasUserMessage(history []model.Message) bool {
	for _, m := range history {
		if m.Role == model.RoleUser {
			return true
		}
	}
	return false
}

func (s *ChatStore) saveLocked(ctx context.Context) error {
	if err := s.slot.Save(ctx, s.state); err != nil {
		s.log.Error("persist failed", "err", err)
		return err
	}
	return nil
}
