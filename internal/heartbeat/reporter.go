package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/model"
)

// Config holds heartbeat reporter settings
type Config struct {
	// Interval between heartbeats. Consumers treat a server as
	// unreachable after missing a few of these.
	Interval time.Duration
}

// DefaultConfig returns sensible defaults for heartbeat configuration
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
	}
}

// Reporter announces a backend server on the heartbeat topic so routers
// across the fleet can see it. Runs on the worker process, not the hub.
type Reporter struct {
	bus    bus.Bus
	cfg    Config
	logger *slog.Logger

	serverID model.ServerID
	address  string
	capacity int

	// PlayerCount is sampled at each beat
	playerCount func() int
}

// NewReporter creates a heartbeat reporter for one server
func NewReporter(eventBus bus.Bus, cfg Config, serverID model.ServerID, address string, capacity int, playerCount func() int, logger *slog.Logger) *Reporter {
	return &Reporter{
		bus:         eventBus,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "heartbeat"), slog.String("server_id", string(serverID))),
		serverID:    serverID,
		address:     address,
		capacity:    capacity,
		playerCount: playerCount,
	}
}

// Run publishes heartbeats until ctx is cancelled, then announces the
// server as draining so routers stop sending players its way
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("heartbeat reporter started", slog.Duration("interval", r.cfg.Interval))
	r.beat(ctx, model.HealthHealthy)

	for {
		select {
		case <-ctx.Done():
			// Final beat on a fresh context; the run context is done
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.beat(shutdownCtx, model.HealthDraining)
			cancel()
			r.logger.Info("heartbeat reporter stopped")
			return
		case <-ticker.C:
			r.beat(ctx, model.HealthHealthy)
		}
	}
}

func (r *Reporter) beat(ctx context.Context, health model.ServerHealth) {
	payload := model.HeartbeatPayload{
		ServerID:    r.serverID,
		Address:     r.address,
		PlayerCount: r.playerCount(),
		Capacity:    r.capacity,
		Health:      health,
	}

	if err := r.bus.Publish(ctx, model.TopicHeartbeat, model.EventServerHeartbeat, payload); err != nil {
		r.logger.Warn("heartbeat publish failed", slog.String("error", err.Error()))
	}
}
