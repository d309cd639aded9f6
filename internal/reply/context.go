package reply

import (
	"github.com/rcliao/bot-chat/internal/model"
)

// BuildContext assembles the messages a backend would receive for the
// next reply:
//
//   - the bot's prompt as a system message, for Prompt bots with
//     EnableInjectSystemPrompts and a non-empty prompt;
//   - the last HistoryMessageCount messages when SendMemory is on,
//     otherwise only the newest message;
//   - any message longer than CompressMessageLengthThreshold runes cut
//     to that length with "..." appended.
func BuildContext(history []model.Message, bot model.Bot) []model.Message {
	var out []model.Message

	if bot.Pattern == model.PatternPrompt && bot.EnableInjectSystemPrompts && bot.Prompt != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Content: bot.Prompt})
	}

	window := 1
	if bot.SendMemory {
		window = bot.HistoryMessageCount
	}
	if window < 1 {
		window = 1
	}
	start := len(history) - window
	if start < 0 {
		start = 0
	}

	for _, m := range history[start:] {
		m.Bot = nil
		m.Content = compress(m.Content, bot.CompressMessageLengthThreshold)
		out = append(out, m)
	}
	return out
}

func compress(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
