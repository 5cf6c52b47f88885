package models

import (
	"time"
	"unicode/utf8"
)

const (
	// MaxTitleLength is the number of runes kept from the first user message
	MaxTitleLength = 60

	// MaxTopics caps the topics remembered per conversation
	MaxTopics = 10
)

// Conversation is a stored chat between a user and the assistant
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	Topics    []string      `json:"topics,omitempty"`
	Model     string        `json:"model,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ConversationSummary is the list view of a conversation
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Topics       []string  `json:"topics,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationList is returned by the list endpoint
type ConversationList struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}

// Summary converts the conversation to its list view
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		Topics:       c.Topics,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Append adds messages and sets the title from the first user message
func (c *Conversation) Append(messages ...ChatMessage) {
	for _, msg := range messages {
		if c.Title == "" && msg.Role == RoleUser {
			c.Title = TitleFrom(msg.Content)
		}
		c.Messages = append(c.Messages, msg)
	}
}

// MergeTopics adds new topics keeping first-seen order, up to MaxTopics
func (c *Conversation) MergeTopics(topics []string) {
	seen := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		seen[t] = true
	}
	for _, t := range topics {
		if len(c.Topics) >= MaxTopics {
			return
		}
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		c.Topics = append(c.Topics, t)
	}
}

// TitleFrom truncates text to MaxTitleLength runes
func TitleFrom(text string) string {
	if utf8.RuneCountInString(text) <= MaxTitleLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxTitleLength]) + "..."
}
