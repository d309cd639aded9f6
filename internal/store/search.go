package store

import (
	"strings"

	"github.com/rcliao/bot-chat/internal/model"
)

// filterBots keeps bots whose name or model contains query, ignoring case.
// Order is preserved; an empty query keeps everything.
func filterBots(bots []model.Bot, query string) []model.Bot {
	if query == "" {
		return bots
	}
	q := strings.ToLower(query)
	out := make([]model.Bot, 0, len(bots))
	for _, b := range bots {
		if strings.Contains(strings.ToLower(b.Name), q) ||
			(b.Model != "" && strings.Contains(strings.ToLower(b.Model), q)) {
			out = append(out, b)
		}
	}
	return out
}

// displayName elides names of 14 or more runes to 11 runes plus "...".
func displayName(name string) string {
	runes := []rune(name)
	if len(runes) >= 14 {
		return string(runes[:11]) + "..."
	}
	return name
}

// topicFrom turns a first user message into a chat topic: one line, at
// most 50 runes.
func topicFrom(content string) string {
	content = strings.TrimSpace(content)
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) > 50 {
		content = string(runes[:47]) + "..."
	}
	return content
}

// clampIndex pulls index into [0, n-1]. n must be positive.
func clampIndex(index, n int) int {
	if index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
