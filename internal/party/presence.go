package party

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mythichub/nexus/internal/model"
)

// RunPresenceWatcher reacts to presence events so that disconnected
// players fall out of their parties. Blocks until ctx is cancelled.
func (s *Service) RunPresenceWatcher(ctx context.Context) {
	events, stop := s.bus.Subscribe(ctx, model.TopicPresence)
	defer stop()

	s.logger.Info("presence watcher started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("presence watcher stopped")
			return
		case event, ok := <-events:
			if !ok {
				s.logger.Info("presence watcher stopped: bus closed")
				return
			}
			s.handlePresence(ctx, event)
		}
	}
}

func (s *Service) handlePresence(ctx context.Context, event model.Event) {
	switch event.Type {
	case model.EventPlayerLeft:
		var payload model.PresencePayload
		if err := event.DecodePayload(&payload); err != nil {
			s.logger.Warn("malformed presence payload", slog.String("error", err.Error()))
			return
		}

		err := s.Leave(ctx, payload.PlayerID)
		if err != nil && !errors.Is(err, model.ErrNotInParty) {
			s.logger.Warn("failed to remove departed player from party",
				slog.String("player_id", string(payload.PlayerID)),
				slog.String("error", err.Error()))
		}

	case model.EventBusReconnected:
		// Party state lives in shared storage, not in a local derived
		// view, so a reconnect needs no rebuild here.
	}
}
