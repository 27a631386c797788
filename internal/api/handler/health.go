package handler

import (
	"net/http"

	"github.com/mythichub/nexus/internal/api/response"
	"github.com/mythichub/nexus/internal/profile"
)

// HealthHandler reports process health, including persistence
// degradation
type HealthHandler struct {
	profiles *profile.Gateway
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(profiles *profile.Gateway) *HealthHandler {
	return &HealthHandler{profiles: profiles}
}

// HealthResponse is the health endpoint body
type HealthResponse struct {
	Status              string `json:"status"`
	PersistenceDegraded bool   `json:"persistence_degraded"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	degraded := h.profiles.Degraded()

	status := "ok"
	code := http.StatusOK
	if degraded {
		status = "degraded"
		// Still 200: degraded mode serves traffic, it just hasn't
		// flushed durably yet
	}

	response.JSON(w, code, HealthResponse{
		Status:              status,
		PersistenceDegraded: degraded,
	})
}
