package routes

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers groups the handlers mounted by RegisterRoutes
type Handlers struct {
	Health http.HandlerFunc
	Home   http.HandlerFunc

	LLMHealth          http.HandlerFunc
	Chat               http.HandlerFunc
	ListConversations  http.HandlerFunc
	GetConversation    http.HandlerFunc
	DeleteConversation http.HandlerFunc

	// Docs serves the Swagger UI under /swagger/
	Docs http.Handler
}

// RegisterRoutes sets up all application routes. Nil handlers are skipped.
// The home handler is mounted last as the catch-all.
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	handle(router, "/health", h.Health, http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handle(api, "/llm/health", h.LLMHealth, http.MethodGet)
	handle(api, "/chat", h.Chat, http.MethodPost)
	handle(api, "/conversations", h.ListConversations, http.MethodGet)
	handle(api, "/conversations/{id}", h.GetConversation, http.MethodGet)
	handle(api, "/conversations/{id}", h.DeleteConversation, http.MethodDelete)

	if h.Docs != nil {
		router.PathPrefix("/swagger/").Handler(h.Docs)
	}

	// Main routes
	if h.Home != nil {
		router.PathPrefix("/").HandlerFunc(h.Home).Methods(http.MethodGet)
	}
}

func handle(router *mux.Router, path string, handler http.HandlerFunc, method string) {
	if handler == nil {
		return
	}
	router.HandleFunc(path, handler).Methods(method)
}
