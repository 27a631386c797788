package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mythichub/nexus/internal/api/apierr"
	"github.com/mythichub/nexus/internal/api/request"
	"github.com/mythichub/nexus/internal/api/response"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/party"
)

// PartyHandler exposes party operations over HTTP
type PartyHandler struct {
	parties *party.Service
}

// NewPartyHandler creates a new party handler
func NewPartyHandler(parties *party.Service) *PartyHandler {
	return &PartyHandler{parties: parties}
}

// Invite handles POST /parties/invite
func (h *PartyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req request.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeaderID == "" || req.TargetID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("leader_id and target_id are required"))
		return
	}

	p, err := h.parties.Invite(r.Context(), model.PlayerID(req.LeaderID), model.PlayerID(req.TargetID))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// Accept handles POST /parties/accept
func (h *PartyHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req request.AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" || req.PartyID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("player_id and party_id are required"))
		return
	}

	p, err := h.parties.AcceptInvite(r.Context(), model.PlayerID(req.PlayerID), model.PartyID(req.PartyID))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// Leave handles POST /parties/leave
func (h *PartyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req request.LeavePartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("player_id is required"))
		return
	}

	if err := h.parties.Leave(r.Context(), model.PlayerID(req.PlayerID)); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Get handles GET /parties/{id}
func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := h.parties.Get(r.Context(), model.PartyID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}
