package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mythichub/nexus/internal/api/apierr"
	"github.com/mythichub/nexus/internal/api/request"
	"github.com/mythichub/nexus/internal/api/response"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/proxy"
)

// ProxyHandler exposes the proxy bridge over HTTP. The edge proxy
// process is the only intended caller.
type ProxyHandler struct {
	bridge *proxy.Bridge
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(bridge *proxy.Bridge) *ProxyHandler {
	return &ProxyHandler{bridge: bridge}
}

// Connect handles POST /proxy/connect: a player is connecting, recommend
// a destination
func (h *ProxyHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req request.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("player_id is required"))
		return
	}

	dest, err := h.bridge.PlayerConnecting(r.Context(), model.PlayerID(req.PlayerID))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, dest)
}

// Arrival handles POST /proxy/arrival: the network move succeeded,
// commit the assignment
func (h *ProxyHandler) Arrival(w http.ResponseWriter, r *http.Request) {
	var req request.ArrivalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" || req.ServerID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("player_id and server_id are required"))
		return
	}

	if err := h.bridge.ConfirmArrival(r.Context(), model.PlayerID(req.PlayerID), model.ServerID(req.ServerID)); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Disconnect handles POST /proxy/disconnect
func (h *ProxyHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req request.DisconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("player_id is required"))
		return
	}

	if err := h.bridge.PlayerDisconnected(r.Context(), model.PlayerID(req.PlayerID)); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}
