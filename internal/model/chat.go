package model

import "time"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// DateLayout formats Message.Date the way an en-US locale string does.
const DateLayout = "1/2/2006, 3:04:05 PM"

// DefaultTopic is the topic of a freshly created chat.
const DefaultTopic = "New Chat"

// Message is one entry of a chat history. Bot is a copy of the replying
// bot taken at reply time, so it survives deletion of the bot itself.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	Streaming bool   `json:"streaming,omitempty"`
	IsError   bool   `json:"isError,omitempty"`
	Bot       *Bot   `json:"bot,omitempty"`
}

// Chat is one conversation thread. BotID may reference a bot that no
// longer exists. LastUpdate is Unix milliseconds.
type Chat struct {
	ID      string    `json:"id"`
	Topic   string    `json:"topic"`
	Memory  string    `json:"memory"`
	History []Message `json:"history"`

	// Reserved; no operation maintains these yet.
	TokenCount int `json:"tokenCount"`
	WordCount  int `json:"wordCount"`
	CharCount  int `json:"charCount"`

	LastUpdate         int64  `json:"lastUpdate"`
	LastSummarizeIndex int    `json:"lastSummarizeIndex"`
	BotID              string `json:"botID"`
}

// NewChat returns an empty chat bound to botID.
func NewChat(id, botID string, now time.Time) Chat {
	return Chat{
		ID:         id,
		Topic:      DefaultTopic,
		History:    []Message{},
		LastUpdate: now.UnixMilli(),
		BotID:      botID,
	}
}

// Clone returns a deep copy of the chat.
func (c Chat) Clone() Chat {
	out := c
	out.History = make([]Message, len(c.History))
	for i, m := range c.History {
		out.History[i] = m.Clone()
	}
	return out
}

// Clone returns a copy that does not share the bot snapshot.
func (m Message) Clone() Message {
	if m.Bot != nil {
		b := *m.Bot
		m.Bot = &b
	}
	return m
}

// Summary projects the chat for sidebar listings.
func (c Chat) Summary() ChatSummary {
	return ChatSummary{ID: c.ID, Topic: c.Topic, LastUpdate: c.LastUpdate}
}

// ChatSummary is the projection returned by ChatStore.Menu.
type ChatSummary struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	LastUpdate int64  `json:"lastUpdate"`
}
