package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"devops-gpt/internal/models"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// HealthCheckHandler godoc
// @Summary Health check
// @Description Reports that the HTTP server is up
// @Tags general
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Router /health [get]
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := models.BasicResponse{
		Message: "Server is healthy",
		Status:  "success",
	}

	writeJSON(w, http.StatusOK, response, nil)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Printf("Failed to encode JSON: %v", err)
	}
}
