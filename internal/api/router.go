package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mythichub/nexus/internal/api/handler"
	apimiddleware "github.com/mythichub/nexus/internal/api/middleware"
	"github.com/mythichub/nexus/internal/middleware"
	"github.com/mythichub/nexus/internal/party"
	"github.com/mythichub/nexus/internal/profile"
	"github.com/mythichub/nexus/internal/proxy"
	"github.com/mythichub/nexus/internal/registry"
	"github.com/mythichub/nexus/internal/router"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	Bridge       *proxy.Bridge
	Registry     *registry.Service
	Router       *router.Service
	PartyService *party.Service
	Profiles     *profile.Gateway
}

// NewRouter creates the HTTP router for the hub: the proxy bridge
// endpoints, party and profile operations, and read-only debug views
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	proxyHandler := handler.NewProxyHandler(cfg.Bridge)
	partyHandler := handler.NewPartyHandler(cfg.PartyService)
	profileHandler := handler.NewProfileHandler(cfg.Profiles)
	debugHandler := handler.NewDebugHandler(cfg.Registry, cfg.Router)
	healthHandler := handler.NewHealthHandler(cfg.Profiles)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// Proxy bridge routes: the edge proxy is the caller
	api.HandleFunc("/proxy/connect", proxyHandler.Connect).Methods(http.MethodPost)
	api.HandleFunc("/proxy/arrival", proxyHandler.Arrival).Methods(http.MethodPost)
	api.HandleFunc("/proxy/disconnect", proxyHandler.Disconnect).Methods(http.MethodPost)

	// Party routes
	api.HandleFunc("/parties/invite", partyHandler.Invite).Methods(http.MethodPost)
	api.HandleFunc("/parties/accept", partyHandler.Accept).Methods(http.MethodPost)
	api.HandleFunc("/parties/leave", partyHandler.Leave).Methods(http.MethodPost)
	api.HandleFunc("/parties/{id}", partyHandler.Get).Methods(http.MethodGet)

	// Profile routes
	api.HandleFunc("/profiles/{player_id}", profileHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{player_id}", profileHandler.Put).Methods(http.MethodPut)

	// Debug views for operators and hubctl
	api.HandleFunc("/debug/sessions", debugHandler.Sessions).Methods(http.MethodGet)
	api.HandleFunc("/debug/sessions/{player_id}", debugHandler.Session).Methods(http.MethodGet)
	api.HandleFunc("/debug/servers", debugHandler.Servers).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	return r
}
