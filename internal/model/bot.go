// Package model defines the core bot, chat and config data types.
package model

import "time"

// Pattern selects how a bot produces replies.
type Pattern int

const (
	// PatternPrompt uses a locally defined system prompt.
	PatternPrompt Pattern = iota
	// PatternAPI forwards to an externally hosted endpoint.
	PatternAPI
)

func (p Pattern) String() string {
	switch p {
	case PatternPrompt:
		return "prompt"
	case PatternAPI:
		return "api"
	default:
		return "unknown"
	}
}

// ParsePattern maps "prompt" or "api" to a Pattern.
func ParsePattern(s string) (Pattern, bool) {
	switch s {
	case "prompt", "Prompt", "0":
		return PatternPrompt, true
	case "api", "API", "1":
		return PatternAPI, true
	}
	return PatternPrompt, false
}

// Bot is a named chat preset. CreatedAt is Unix milliseconds.
type Bot struct {
	ID          string  `json:"id"`
	Avatar      string  `json:"avatar"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
	Pattern     Pattern `json:"pattern"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`

	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	MaxTokens        int     `json:"max_tokens"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`

	SendMemory                     bool `json:"sendMemory"`
	HistoryMessageCount            int  `json:"historyMessageCount"`
	CompressMessageLengthThreshold int  `json:"compressMessageLengthThreshold"`
	EnableInjectSystemPrompts      bool `json:"enableInjectSystemPrompts"`

	API string `json:"api"`
}

const (
	DefaultAvatar      = "/mawen.png"
	DefaultBotName     = "MRVN"
	DefaultTemperature = 0.75
	DefaultModel       = "gpt-3.5-turbo"
)

// NewBot returns a bot populated with defaults. ID and CreatedAt are left
// for the store to assign.
func NewBot() Bot {
	return Bot{
		Avatar:                         DefaultAvatar,
		Name:                           DefaultBotName,
		Pattern:                        PatternPrompt,
		Model:                          DefaultModel,
		Temperature:                    DefaultTemperature,
		TopP:                           1,
		MaxTokens:                      2000,
		SendMemory:                     true,
		HistoryMessageCount:            4,
		CompressMessageLengthThreshold: 1000,
		EnableInjectSystemPrompts:      true,
	}
}

// Created returns CreatedAt as a time.
func (b Bot) Created() time.Time {
	return time.UnixMilli(b.CreatedAt)
}

// Summary projects the bot to the fields selection lists need.
func (b Bot) Summary() BotSummary {
	return BotSummary{ID: b.ID, Name: b.Name, Avatar: b.Avatar, Model: b.Model}
}

// BotSummary is the lightweight projection returned by BotStore.List.
type BotSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Model  string `json:"model"`
}

// BotPatch holds optional overrides applied over NewBot on create.
// Nil fields keep the default.
type BotPatch struct {
	Avatar      *string  `json:"avatar,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Pattern     *Pattern `json:"pattern,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Prompt      *string  `json:"prompt,omitempty"`

	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	SendMemory                     *bool `json:"sendMemory,omitempty"`
	HistoryMessageCount            *int  `json:"historyMessageCount,omitempty"`
	CompressMessageLengthThreshold *int  `json:"compressMessageLengthThreshold,omitempty"`
	EnableInjectSystemPrompts      *bool `json:"enableInjectSystemPrompts,omitempty"`

	API *string `json:"api,omitempty"`
}

// Apply copies every non-nil field of p onto b.
func (p *BotPatch) Apply(b *Bot) {
	if p == nil {
		return
	}
	setString(&b.Avatar, p.Avatar)
	setString(&b.Name, p.Name)
	setString(&b.Description, p.Description)
	if p.Pattern != nil {
		b.Pattern = *p.Pattern
	}
	setString(&b.Model, p.Model)
	setString(&b.Prompt, p.Prompt)
	setFloat(&b.Temperature, p.Temperature)
	setFloat(&b.TopP, p.TopP)
	setInt(&b.MaxTokens, p.MaxTokens)
	setFloat(&b.PresencePenalty, p.PresencePenalty)
	setFloat(&b.FrequencyPenalty, p.FrequencyPenalty)
	setBool(&b.SendMemory, p.SendMemory)
	setInt(&b.HistoryMessageCount, p.HistoryMessageCount)
	setInt(&b.CompressMessageLengthThreshold, p.CompressMessageLengthThreshold)
	setBool(&b.EnableInjectSystemPrompts, p.EnableInjectSystemPrompts)
	setString(&b.API, p.API)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
