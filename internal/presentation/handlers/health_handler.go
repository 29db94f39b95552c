package handlers

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	version string
	mode    string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, mode string) *HealthHandler {
	return &HealthHandler{version: version, mode: mode}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Mode:    h.mode,
	})
}
