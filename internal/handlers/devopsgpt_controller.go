package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"devops-gpt/internal/models"
	"devops-gpt/internal/repositories"
	"devops-gpt/internal/services"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
)

const (
	ServiceName    = "DevOpsGpt"
	ServiceVersion = "1.0.0"
	WelcomeMessage = "Welcome to DevOpsGpt!"
)

// homeEndpoints is advertised by the home page
var homeEndpoints = []models.Endpoint{
	{Method: http.MethodGet, Path: "/", Description: "Service information"},
	{Method: http.MethodGet, Path: "/health", Description: "Server health"},
	{Method: http.MethodGet, Path: "/api/v1/llm/health", Description: "LLM backend health"},
	{Method: http.MethodPost, Path: "/api/v1/chat", Description: "Ask DevOpsGpt a question"},
	{Method: http.MethodGet, Path: "/api/v1/conversations", Description: "List conversations"},
	{Method: http.MethodGet, Path: "/api/v1/conversations/{id}", Description: "Get a conversation"},
	{Method: http.MethodDelete, Path: "/api/v1/conversations/{id}", Description: "Delete a conversation"},
	{Method: http.MethodGet, Path: "/swagger/", Description: "API documentation"},
}

// DevOpsGptController handles the home page, chat and conversation endpoints
type DevOpsGptController struct {
	assistant services.Assistant
	chat      *services.ChatService
	logger    *log.Logger
}

// NewDevOpsGptController creates the controller. Every collaborator may be nil;
// Home keeps working and the endpoints that need a missing one fail with an error response.
func NewDevOpsGptController(assistant services.Assistant, conversations repositories.ConversationRepository, extractor services.TopicExtractor, logger *log.Logger) *DevOpsGptController {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &DevOpsGptController{
		assistant: assistant,
		chat:      services.NewChatService(assistant, conversations, extractor, logger),
		logger:    logger,
	}
}

// Home returns the service descriptor. It never returns nil and does not
// depend on any collaborator succeeding.
func (c *DevOpsGptController) Home() *models.HomeResponse {
	model := services.DefaultModel
	if c.assistant != nil {
		if name := c.assistant.Model(); name != "" {
			model = name
		}
	}

	endpoints := make([]models.Endpoint, len(homeEndpoints))
	copy(endpoints, homeEndpoints)

	return &models.HomeResponse{
		Service:   ServiceName,
		Version:   ServiceVersion,
		Message:   WelcomeMessage,
		Model:     model,
		Status:    "success",
		Endpoints: endpoints,
	}
}

// HomeHandler godoc
// @Summary Home page
// @Description Returns the DevOpsGpt service descriptor
// @Tags general
// @Produce json
// @Success 200 {object} models.HomeResponse
// @Failure 404 {string} string "404 page not found"
// @Router / [get]
func (c *DevOpsGptController) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	c.sendJSON(w, http.StatusOK, c.Home())
}

// ChatHandler godoc
// @Summary Chat with DevOpsGpt
// @Description Send a message to the assistant. Omit conversation_id to start a new conversation.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body models.ChatRequest true "Chat request with message and optional conversation"
// @Success 200 {object} models.ChatResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/chat [post]
func (c *DevOpsGptController) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		c.sendError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(request.Message) == "" {
		c.sendError(w, http.StatusBadRequest, "Message is required")
		return
	}

	response, err := c.chat.Chat(r.Context(), request)
	if err != nil {
		c.logger.Printf("Chat failed: %v", err)
		c.sendServiceError(w, err)
		return
	}

	c.sendJSON(w, http.StatusOK, response)
}

// ListConversations godoc
// @Summary List conversations
// @Description Get stored conversations, most recently updated first
// @Tags conversations
// @Produce json
// @Success 200 {object} models.ConversationList
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/conversations [get]
func (c *DevOpsGptController) ListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := c.chat.ListConversations(r.Context())
	if err != nil {
		c.logger.Printf("Failed to list conversations: %v", err)
		c.sendServiceError(w, err)
		return
	}

	c.sendJSON(w, http.StatusOK, list)
}

// GetConversation godoc
// @Summary Get conversation
// @Description Get a conversation with all its messages
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/conversations/{id} [get]
func (c *DevOpsGptController) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conv, err := c.chat.GetConversation(r.Context(), id)
	if err != nil {
		c.sendServiceError(w, err)
		return
	}

	c.sendJSON(w, http.StatusOK, conv)
}

// DeleteConversation godoc
// @Summary Delete conversation
// @Description Delete a conversation and its history
// @Tags conversations
// @Param id path string true "Conversation ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/conversations/{id} [delete]
func (c *DevOpsGptController) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := c.chat.DeleteConversation(r.Context(), id); err != nil {
		c.sendServiceError(w, err)
		return
	}

	c.logger.Printf("Deleted conversation %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// LLMHealthHandler godoc
// @Summary Check LLM health
// @Description Check if the LLM backend is available
// @Tags chat
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Failure 503 {object} models.BasicResponse
// @Router /api/v1/llm/health [get]
func (c *DevOpsGptController) LLMHealthHandler(w http.ResponseWriter, r *http.Request) {
	if c.assistant == nil {
		c.sendJSON(w, http.StatusServiceUnavailable, models.BasicResponse{
			Message: "LLM backend is not configured",
			Status:  "error",
		})
		return
	}

	if err := c.assistant.HealthCheck(r.Context()); err != nil {
		c.sendJSON(w, http.StatusServiceUnavailable, models.BasicResponse{
			Message: "LLM backend is not available: " + err.Error(),
			Status:  "error",
		})
		return
	}

	c.sendJSON(w, http.StatusOK, models.BasicResponse{
		Message: "LLM backend is available (model: " + c.assistant.Model() + ")",
		Status:  "success",
	})
}

// sendServiceError maps service errors to status codes
func (c *DevOpsGptController) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.NotValid):
		c.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.NotFound):
		c.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAssistantFailed):
		c.sendError(w, http.StatusBadGateway, "Failed to get response from LLM: "+err.Error())
	case errors.Is(err, services.ErrStorageUnavailable):
		c.sendError(w, http.StatusServiceUnavailable, err.Error())
	default:
		c.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func (c *DevOpsGptController) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, c.logger)
}

func (c *DevOpsGptController) sendError(w http.ResponseWriter, status int, message string) {
	c.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
