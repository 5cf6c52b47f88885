package models

// Chat roles understood by OpenAI-compatible backends
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// ChatRequest represents the incoming chat request from the frontend
type ChatRequest struct {
	ConversationID string        `json:"conversation_id,omitempty"` // Empty starts a new conversation
	Message        string        `json:"message"`                   // The current user message
	History        []ChatMessage `json:"history,omitempty"`         // Extra history not stored server side
}

// ChatResponse represents the response sent back to the frontend
type ChatResponse struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	Message        string   `json:"message"` // The assistant's response
	Status         string   `json:"status"`  // "success" or "error"
	Model          string   `json:"model,omitempty"`
	Topics         []string `json:"topics,omitempty"`
}
