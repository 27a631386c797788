package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage"
)

// Service is the authoritative registry of which player is connected
// where. Mutations for the same player are serialized through a
// compare-and-swap on the session's version counter; mutations for
// different players proceed fully in parallel.
type Service struct {
	storage storage.Storage
	bus     bus.Bus
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
}

// NewService creates a new session registry
func NewService(store storage.Storage, eventBus bus.Bus, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		bus:     eventBus,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// RegisterConnect creates a session for a player arriving on a server.
// A live session on a different server is rejected rather than silently
// overridden; last-writer-wins is what produces ghost duplicate logins.
// Re-registering on the same server is idempotent.
func (s *Service) RegisterConnect(ctx context.Context, playerID model.PlayerID, serverID model.ServerID) (*model.PlayerSession, error) {
	var result *model.PlayerSession

	err := s.mutate(ctx, func() error {
		existing, err := s.storage.GetSession(ctx, playerID)
		switch {
		case err == nil:
			if existing.Status == model.StatusDisconnecting {
				// A session on its way out does not block a fresh connect
				if err := s.storage.DeleteSession(ctx, playerID); err != nil {
					return err
				}
			} else if existing.ServerID == serverID {
				result = existing
				return nil
			} else {
				return model.ErrDuplicateSession
			}
		case errors.Is(err, model.ErrUnknownSession):
			// No session: fall through to create
		default:
			return err
		}

		now := s.clock.Now()
		session := &model.PlayerSession{
			PlayerID:    playerID,
			ServerID:    serverID,
			Status:      model.StatusConnecting,
			ConnectedAt: now,
			UpdatedAt:   now,
		}
		if err := s.storage.SaveSession(ctx, session, 0); err != nil {
			return err
		}
		result = session

		return s.bus.Publish(ctx, model.TopicPresence, model.EventPlayerConnected, model.PresencePayload{
			PlayerID: playerID,
			ServerID: serverID,
			Status:   session.Status,
		})
	})

	return result, err
}

// UpdateStatus transitions a session's status, enforcing the per-session
// state machine
func (s *Service) UpdateStatus(ctx context.Context, playerID model.PlayerID, status model.SessionStatus) error {
	return s.mutate(ctx, func() error {
		session, err := s.storage.GetSession(ctx, playerID)
		if err != nil {
			return err
		}

		if !session.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, session.Status, status)
		}

		session.Status = status
		session.UpdatedAt = s.clock.Now()
		if status != model.StatusTransferring {
			session.TransferTo = ""
			session.TransferStartedAt = time.Time{}
		}

		if err := s.storage.SaveSession(ctx, session, session.Version); err != nil {
			return err
		}

		return s.bus.Publish(ctx, model.TopicPresence, model.EventStatusChanged, model.PresencePayload{
			PlayerID: playerID,
			ServerID: session.ServerID,
			Status:   status,
		})
	})
}

// BeginTransfer moves an active session into the transferring window so
// the player never appears absent while changing servers
func (s *Service) BeginTransfer(ctx context.Context, playerID model.PlayerID, to model.ServerID) error {
	return s.mutate(ctx, func() error {
		session, err := s.storage.GetSession(ctx, playerID)
		if err != nil {
			return err
		}

		if !session.CanTransition(model.StatusTransferring) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, session.Status, model.StatusTransferring)
		}

		now := s.clock.Now()
		session.Status = model.StatusTransferring
		session.TransferTo = to
		session.TransferStartedAt = now
		session.UpdatedAt = now

		if err := s.storage.SaveSession(ctx, session, session.Version); err != nil {
			return err
		}

		return s.bus.Publish(ctx, model.TopicPresence, model.EventStatusChanged, model.PresencePayload{
			PlayerID: playerID,
			ServerID: session.ServerID,
			Status:   session.Status,
		})
	})
}

// CompleteTransfer lands a transferring session on its destination server
func (s *Service) CompleteTransfer(ctx context.Context, playerID model.PlayerID, serverID model.ServerID) error {
	return s.mutate(ctx, func() error {
		session, err := s.storage.GetSession(ctx, playerID)
		if err != nil {
			return err
		}

		if session.Status != model.StatusTransferring {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, session.Status, model.StatusActive)
		}

		session.Status = model.StatusActive
		session.ServerID = serverID
		session.TransferTo = ""
		session.TransferStartedAt = time.Time{}
		session.UpdatedAt = s.clock.Now()

		if err := s.storage.SaveSession(ctx, session, session.Version); err != nil {
			return err
		}

		return s.bus.Publish(ctx, model.TopicPresence, model.EventStatusChanged, model.PresencePayload{
			PlayerID: playerID,
			ServerID: serverID,
			Status:   model.StatusActive,
		})
	})
}

// RegisterDisconnect removes a player's session. It is idempotent: a
// second call for an absent session succeeds without publishing anything.
func (s *Service) RegisterDisconnect(ctx context.Context, playerID model.PlayerID) error {
	session, err := s.storage.GetSession(ctx, playerID)
	if errors.Is(err, model.ErrUnknownSession) {
		return nil
	}
	if err != nil {
		return err
	}

	if session.ServerID != "" {
		if err := s.storage.SetLastServer(ctx, playerID, session.ServerID); err != nil {
			s.logger.Warn("failed to record last server",
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()))
		}
	}

	if err := s.storage.DeleteSession(ctx, playerID); err != nil {
		return err
	}

	return s.bus.Publish(ctx, model.TopicPresence, model.EventPlayerLeft, model.PresencePayload{
		PlayerID: playerID,
		ServerID: session.ServerID,
	})
}

// Lookup returns the player's current session from the cache tier. It
// never touches durable storage.
func (s *Service) Lookup(ctx context.Context, playerID model.PlayerID) (*model.PlayerSession, error) {
	return s.storage.GetSession(ctx, playerID)
}

// ListSessions returns every live session in this registry's view
func (s *Service) ListSessions(ctx context.Context) ([]*model.PlayerSession, error) {
	return s.storage.ListSessions(ctx)
}

// IsStale reports whether a looked-up session is older than the
// configured staleness bound and should be re-validated before acting
func (s *Service) IsStale(session *model.PlayerSession) bool {
	return s.clock.Now().Sub(session.UpdatedAt) > s.cfg.StalenessBound
}

// mutate runs op, retrying a bounded number of times when a concurrent
// writer wins the version race. Each retry re-reads fresh state.
func (s *Service) mutate(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		err = op()
		if !errors.Is(err, model.ErrVersionConflict) {
			return err
		}
	}
	return err
}
