package proxy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/registry"
	"github.com/mythichub/nexus/internal/router"
)

// Bridge is the seam the edge proxy calls into. It holds no state of its
// own: routing questions go to the router, arrival and departure
// notifications go to the session registry.
type Bridge struct {
	router   *router.Service
	registry *registry.Service
	policy   router.Policy
	logger   *slog.Logger
}

// NewBridge creates a proxy bridge using the given default routing policy
func NewBridge(rt *router.Service, reg *registry.Service, policy router.Policy, logger *slog.Logger) *Bridge {
	return &Bridge{
		router:   rt,
		registry: reg,
		policy:   policy,
		logger:   logger.With(slog.String("component", "proxy-bridge")),
	}
}

// RequestRoute recommends a destination server for a connecting player.
// Nothing is committed: the registry only learns about the player once
// the proxy confirms the move with ConfirmArrival.
func (b *Bridge) RequestRoute(ctx context.Context, playerID model.PlayerID) (*model.ServerDescriptor, error) {
	return b.router.SelectServer(ctx, playerID, b.policy)
}

// PlayerConnecting handles the proxy's connect notification and returns
// the routing recommendation
func (b *Bridge) PlayerConnecting(ctx context.Context, playerID model.PlayerID) (*model.ServerDescriptor, error) {
	dest, err := b.RequestRoute(ctx, playerID)
	if err != nil {
		return nil, err
	}

	b.logger.Info("routing player",
		slog.String("player_id", string(playerID)),
		slog.String("server_id", string(dest.ID)),
		slog.String("policy", string(b.policy)))
	return dest, nil
}

// ConfirmArrival commits a player's placement after the network move
// succeeded. A transferring session lands on its destination; anything
// else registers as a fresh connect and is activated.
func (b *Bridge) ConfirmArrival(ctx context.Context, playerID model.PlayerID, serverID model.ServerID) error {
	session, err := b.registry.Lookup(ctx, playerID)
	if err == nil && session.Status == model.StatusTransferring {
		return b.registry.CompleteTransfer(ctx, playerID, serverID)
	}
	if err != nil && !errors.Is(err, model.ErrUnknownSession) {
		return err
	}

	created, err := b.registry.RegisterConnect(ctx, playerID, serverID)
	if err != nil {
		return err
	}
	if created.Status == model.StatusConnecting {
		return b.registry.UpdateStatus(ctx, playerID, model.StatusActive)
	}
	return nil
}

// PlayerDisconnected handles the proxy's disconnect notification
func (b *Bridge) PlayerDisconnected(ctx context.Context, playerID model.PlayerID) error {
	return b.registry.RegisterDisconnect(ctx, playerID)
}
