package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"devops-gpt/internal/models"
)

const (
	DefaultBaseURL     = "http://localhost:1234/v1"
	DefaultModel       = "llama-3.2-3b-instruct"
	DefaultTemperature = 0.7
	DefaultTimeout     = 120 * time.Second // LLMs can be slow

	// maxResponseBytes bounds how much of a backend response is read
	maxResponseBytes = 8 << 20
	// maxErrorBodyBytes bounds how much of an error body ends up in the error
	maxErrorBodyBytes = 512
)

// SystemPrompt frames every conversation sent to the model
const SystemPrompt = "You are DevOpsGpt, a senior DevOps and site reliability engineer helping a colleague. " +
	"Answer directly and practically: CI/CD pipelines, containers, Kubernetes, infrastructure as code, " +
	"cloud platforms, observability and incident response. Prefer concrete commands and config snippets " +
	"when they help, call out risky operations before suggesting them, and say so honestly when you are unsure."

// Assistant is the chat backend used by the controller
type Assistant interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (*AssistantReply, error)
	HealthCheck(ctx context.Context) error
	Model() string
}

// AssistantReply is the assistant's answer to one chat turn
type AssistantReply struct {
	Content      string
	Model        string
	FinishReason string
	TotalTokens  int
}

// CompletionRequest represents the request format for OpenAI-compatible chat APIs
type CompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Stream      bool                 `json:"stream"`
}

// CompletionResponse represents the response from an OpenAI-compatible chat API
type CompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// LLMConfig configures the LLM service
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int // -1 means no limit
	Timeout     time.Duration
}

// DefaultLLMConfig returns the LM Studio defaults
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   -1,
		Timeout:     DefaultTimeout,
	}
}

// LLMService talks to an OpenAI-compatible chat completions endpoint (LM Studio by default)
type LLMService struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewLLMService creates a new LLM service instance
func NewLLMService(config LLMConfig) *LLMService {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = -1
	}

	return &LLMService{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		model:       config.Model,
		apiKey:      config.APIKey,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Model returns the configured model name
func (s *LLMService) Model() string {
	return s.model
}

// Chat sends the conversation to the model and returns its reply
func (s *LLMService) Chat(ctx context.Context, messages []models.ChatMessage) (*AssistantReply, error) {
	lmRequest := CompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		Stream:      false,
	}

	jsonBody, err := json.Marshal(lmRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to LLM backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes+1))
		return nil, fmt.Errorf("LLM backend returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var lmResponse CompletionResponse
	if err := json.Unmarshal(body, &lmResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(lmResponse.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM backend")
	}

	model := lmResponse.Model
	if model == "" {
		model = s.model
	}

	return &AssistantReply{
		Content:      lmResponse.Choices[0].Message.Content,
		Model:        model,
		FinishReason: lmResponse.Choices[0].FinishReason,
		TotalTokens:  lmResponse.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies the backend is running and lists models
func (s *LLMService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LLM backend not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM backend returned status %d", resp.StatusCode)
	}

	return nil
}

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBodyBytes {
		return strings.TrimSpace(string(body))
	}
	return strings.ToValidUTF8(string(body[:maxErrorBodyBytes]), "") + "..."
}

func (s *LLMService) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

// BuildMessages assembles the prompt: system prompt, stored history,
// caller-supplied history, then the new user message.
func BuildMessages(stored, extra []models.ChatMessage, message string) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(stored)+len(extra)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: SystemPrompt})
	messages = append(messages, stored...)
	messages = append(messages, extra...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: message})
	return messages
}
