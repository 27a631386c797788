package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mythichub/nexus/internal/model"
)

// RunSweeper periodically force-closes sessions stuck in TRANSFERRING
// past the configured timeout. A transfer that never completes is an
// operational failure, not something to retry forever. Blocks until ctx
// is cancelled.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("transfer sweeper started",
		slog.Duration("interval", s.cfg.SweepInterval),
		slog.Duration("timeout", s.cfg.TransferTimeout))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("transfer sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce scans for and closes stuck transfers
func (s *Service) sweepOnce(ctx context.Context) {
	sessions, err := s.storage.ListSessions(ctx)
	if err != nil {
		s.logger.Warn("sweep scan failed", slog.String("error", err.Error()))
		return
	}

	now := s.clock.Now()
	for _, session := range sessions {
		if session.Status != model.StatusTransferring {
			continue
		}
		if now.Sub(session.TransferStartedAt) <= s.cfg.TransferTimeout {
			continue
		}

		s.logger.Warn("force-closing stuck transfer",
			slog.String("player_id", string(session.PlayerID)),
			slog.String("from", string(session.ServerID)),
			slog.String("to", string(session.TransferTo)),
			slog.Duration("stuck_for", now.Sub(session.TransferStartedAt)))

		if err := s.forceCloseTransfer(ctx, session.PlayerID); err != nil {
			s.logger.Error("failed to force-close transfer",
				slog.String("player_id", string(session.PlayerID)),
				slog.String("error", err.Error()))
		}
	}
}

// forceCloseTransfer re-reads the session before acting: the scan
// snapshot is stale by the time it is processed, and a transfer that
// completed in between must not be torn down. The versioned save to
// DISCONNECTING fences out concurrent writers, so only one process wins
// the close.
func (s *Service) forceCloseTransfer(ctx context.Context, playerID model.PlayerID) error {
	session, err := s.storage.GetSession(ctx, playerID)
	if errors.Is(err, model.ErrUnknownSession) {
		return nil
	}
	if err != nil {
		return err
	}

	if session.Status != model.StatusTransferring {
		return nil
	}
	if s.clock.Now().Sub(session.TransferStartedAt) <= s.cfg.TransferTimeout {
		return nil
	}

	session.Status = model.StatusDisconnecting
	session.UpdatedAt = s.clock.Now()
	if err := s.storage.SaveSession(ctx, session, session.Version); err != nil {
		if errors.Is(err, model.ErrVersionConflict) {
			return nil
		}
		return err
	}

	return s.RegisterDisconnect(ctx, playerID)
}
