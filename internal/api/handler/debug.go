package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mythichub/nexus/internal/api/apierr"
	"github.com/mythichub/nexus/internal/api/response"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/registry"
	"github.com/mythichub/nexus/internal/router"
)

// DebugHandler exposes read-only views of the coordination state for
// operators and the hubctl CLI
type DebugHandler struct {
	registry *registry.Service
	router   *router.Service
}

// NewDebugHandler creates a new debug handler
func NewDebugHandler(reg *registry.Service, rt *router.Service) *DebugHandler {
	return &DebugHandler{registry: reg, router: rt}
}

// sessionView is a session plus whether it has gone unwritten past the
// staleness bound and should be re-validated before acting on it
type sessionView struct {
	*model.PlayerSession
	Stale bool `json:"stale"`
}

// Session handles GET /debug/sessions/{player_id}
func (h *DebugHandler) Session(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["player_id"]

	session, err := h.registry.Lookup(r.Context(), model.PlayerID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, sessionView{
		PlayerSession: session,
		Stale:         h.registry.IsStale(session),
	})
}

// Sessions handles GET /debug/sessions
func (h *DebugHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.registry.ListSessions(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionView{
			PlayerSession: session,
			Stale:         h.registry.IsStale(session),
		})
	}
	response.JSON(w, http.StatusOK, views)
}

// Servers handles GET /debug/servers
func (h *DebugHandler) Servers(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.router.Servers())
}
