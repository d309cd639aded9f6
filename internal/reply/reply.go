// Package reply is the seam where a bot's answer is produced. The only
// shipped Responder echoes the user's input; a real backend plugs in by
// registering another Responder for a Pattern.
package reply

import (
	"context"
	"fmt"
	"sync"

	"github.com/rcliao/bot-chat/internal/model"
)

// Request is everything a Responder gets for one turn.
type Request struct {
	Bot model.Bot
	// History is the chat history including the new user message, oldest
	// first.
	History []model.Message
	// Context is what would be sent to a backend, see BuildContext.
	Context []model.Message
}

// Responder produces the assistant message for a turn. ID and Date are
// filled in by the caller when left empty.
type Responder interface {
	Generate(ctx context.Context, req Request) (model.Message, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req Request) (model.Message, error)

func (f ResponderFunc) Generate(ctx context.Context, req Request) (model.Message, error) {
	return f(ctx, req)
}

// Echo replies with the content of the last user message, marked as
// streaming and carrying a copy of the bot.
type Echo struct{}

func (Echo) Generate(_ context.Context, req Request) (model.Message, error) {
	content := ""
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == model.RoleUser {
			content = req.History[i].Content
			break
		}
	}
	bot := req.Bot
	return model.Message{
		Role:      model.RoleAssistant,
		Content:   content,
		Streaming: true,
		Bot:       &bot,
	}, nil
}

// Registry picks a Responder by bot pattern.
type Registry struct {
	mu         sync.RWMutex
	responders map[model.Pattern]Responder
}

// NewRegistry returns a registry answering every pattern with Echo.
func NewRegistry() *Registry {
	return &Registry{responders: map[model.Pattern]Responder{
		model.PatternPrompt: Echo{},
		model.PatternAPI:    Echo{},
	}}
}

// Register replaces the responder for p.
func (r *Registry) Register(p model.Pattern, resp Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders[p] = resp
}

// Generate dispatches to the responder registered for the bot's pattern.
func (r *Registry) Generate(ctx context.Context, req Request) (model.Message, error) {
	r.mu.RLock()
	resp, ok := r.responders[req.Bot.Pattern]
	r.mu.RUnlock()
	if !ok {
		return model.Message{}, fmt.Errorf("no responder for pattern %s", req.Bot.Pattern)
	}
	return resp.Generate(ctx, req)
}
