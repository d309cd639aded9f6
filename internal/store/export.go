package store

import (
	"context"

	"github.com/rcliao/bot-chat/internal/model"
)

// Backup is a portable copy of all three stores.
type Backup struct {
	Bots   []model.Bot   `json:"bots"`
	Chats  []model.Chat  `json:"chats"`
	Index  int           `json:"index"`
	Config *model.Config `json:"config,omitempty"`
}

// Export returns the current state of every store.
func (s *Stores) Export(ctx context.Context) (*Backup, error) {
	s.Chats.mu.Lock()
	st := s.Chats.state.clone()
	s.Chats.mu.Unlock()

	cfg := s.Config.Get()
	return &Backup{
		Bots:   s.Bots.GetAll(),
		Chats:  st.Chats,
		Index:  st.Index,
		Config: &cfg,
	}, nil
}

// ImportResult counts what Import changed.
type ImportResult struct {
	Bots  int `json:"bots"`
	Chats int `json:"chats"`
}

// Import merges a backup. Bots are upserted by id. Chats whose id is not
// already present are added ahead of the existing ones, and the cursor
// follows the chat it pointed at. Config is replaced when the backup carries
// one and left alone otherwise.
func (s *Stores) Import(ctx context.Context, b *Backup) (*ImportResult, error) {
	res := &ImportResult{}

	s.Bots.mu.Lock()
	for _, bot := range b.Bots {
		if bot.ID == "" {
			bot.ID = s.Bots.ids.next()
		}
		s.Bots.bots[bot.ID] = bot
		res.Bots++
	}
	err := s.Bots.saveLocked(ctx)
	s.Bots.mu.Unlock()
	s.Bots.publish()
	if err != nil {
		return res, err
	}

	s.Chats.mu.Lock()
	seen := make(map[string]bool, len(s.Chats.state.Chats))
	for _, c := range s.Chats.state.Chats {
		seen[c.ID] = true
	}
	var added []model.Chat
	for _, c := range b.Chats {
		if c.ID == "" {
			c.ID = s.Chats.ids.next()
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if c.History == nil {
			c.History = []model.Message{}
		}
		added = append(added, c.Clone())
	}
	if len(added) > 0 {
		if len(s.Chats.state.Chats) == 0 {
			s.Chats.state.Index = 0
		} else {
			s.Chats.state.Index += len(added)
		}
		s.Chats.state.Chats = append(added, s.Chats.state.Chats...)
		res.Chats = len(added)
		if n := len(s.Chats.state.Chats); s.Chats.state.Index >= n {
			s.Chats.state.Index = n - 1
		}
	}
	err = s.Chats.saveLocked(ctx)
	s.Chats.mu.Unlock()
	s.Chats.publish()
	if err != nil {
		return res, err
	}

	if b.Config == nil {
		return res, nil
	}
	cfg := b.Config.Clone()
	if err := s.Config.Update(ctx, func(c *model.Config) { *c = cfg }); err != nil {
		return res, err
	}
	return res, nil
}
