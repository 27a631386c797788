package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mythichub/nexus/internal/api/apierr"
	"github.com/mythichub/nexus/internal/api/response"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/profile"
)

// ProfileHandler exposes profile reads and writes over HTTP
type ProfileHandler struct {
	profiles *profile.Gateway
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *profile.Gateway) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get handles GET /profiles/{player_id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["player_id"]

	p, err := h.profiles.Load(r.Context(), model.PlayerID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// Put handles PUT /profiles/{player_id}. The body must carry the version
// the caller last read; a stale version is rejected.
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["player_id"]

	var p model.PlayerProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("malformed profile body"))
		return
	}
	p.PlayerID = model.PlayerID(id)

	if err := h.profiles.Save(r.Context(), &p); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}
