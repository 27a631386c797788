package profile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage"
)

var errDurableUnavailable = errors.New("durable store unavailable")

// Config holds persistence gateway behavior settings
type Config struct {
	// FlushQueueSize bounds the write-behind queue; overflow spills into
	// the pending retry set
	FlushQueueSize int

	// Flush retry: bounded exponential backoff, then the gateway enters
	// degraded mode and keeps retrying in the background
	FlushMaxRetries     uint64
	FlushInitialBackoff time.Duration
	FlushMaxBackoff     time.Duration

	// PendingRetryInterval is how often stalled flushes are re-attempted
	PendingRetryInterval time.Duration
}

// DefaultConfig returns sensible defaults for gateway configuration
func DefaultConfig() Config {
	return Config{
		FlushQueueSize:       256,
		FlushMaxRetries:      4,
		FlushInitialBackoff:  100 * time.Millisecond,
		FlushMaxBackoff:      5 * time.Second,
		PendingRetryInterval: 10 * time.Second,
	}
}

// Gateway serves profile reads cache-first and applies writes
// write-behind: the cache is updated synchronously under an optimistic
// version check, durable flush happens asynchronously. While flushes are
// failing the gateway reports itself degraded and the in-cache value
// stays authoritative for reads.
type Gateway struct {
	store  Store
	cache  storage.Storage
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger

	queue    chan *model.PlayerProfile
	degraded atomic.Bool

	mu      sync.Mutex
	pending map[model.PlayerID]*model.PlayerProfile
}

// NewGateway creates a new persistence gateway
func NewGateway(store Store, cache storage.Storage, clk clock.Clock, cfg Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:   store,
		cache:   cache,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "profile")),
		queue:   make(chan *model.PlayerProfile, cfg.FlushQueueSize),
		pending: make(map[model.PlayerID]*model.PlayerProfile),
	}
}

// Load returns a player's profile, cache-first. A miss reads durable
// storage and repopulates the cache with its bounded TTL.
func (g *Gateway) Load(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error) {
	cached, err := g.cache.GetCachedProfile(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return nil, err
	}

	stored, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := g.cache.SetCachedProfile(ctx, stored); err != nil {
		g.logger.Warn("failed to populate profile cache",
			slog.String("player_id", string(id)),
			slog.String("error", err.Error()))
	}
	return stored, nil
}

// Save applies a profile write. The profile's version must match the
// currently stored version or the write is rejected as stale and the
// caller must reload and reapply. On success the version advances, the
// cache holds the new value and a durable flush is queued.
func (g *Gateway) Save(ctx context.Context, p *model.PlayerProfile) error {
	current, err := g.currentVersion(ctx, p.PlayerID)
	if err != nil {
		return err
	}

	if p.Version != current {
		return model.ErrStaleWrite
	}

	p.LastSeen = g.clock.Now()
	if err := g.cache.SaveCachedProfile(ctx, p, current); err != nil {
		if errors.Is(err, model.ErrVersionConflict) {
			return model.ErrStaleWrite
		}
		return err
	}

	g.enqueue(p.Clone())
	return nil
}

// Degraded reports whether durable flushes are currently failing
func (g *Gateway) Degraded() bool {
	return g.degraded.Load()
}

// currentVersion resolves the authoritative version for a player,
// seeding the cache from durable storage when the cached copy has
// expired. An unknown player has version 0.
func (g *Gateway) currentVersion(ctx context.Context, id model.PlayerID) (int64, error) {
	cached, err := g.cache.GetCachedProfile(ctx, id)
	if err == nil {
		return cached.Version, nil
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return 0, err
	}

	stored, err := g.store.Get(ctx, id)
	if errors.Is(err, model.ErrProfileNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if err := g.cache.SetCachedProfile(ctx, stored); err != nil {
		g.logger.Warn("failed to seed profile cache",
			slog.String("player_id", string(id)),
			slog.String("error", err.Error()))
	}
	return stored.Version, nil
}

// enqueue hands a profile to the flush worker; a full queue spills into
// the pending set so the write is never dropped
func (g *Gateway) enqueue(p *model.PlayerProfile) {
	select {
	case g.queue <- p:
	default:
		g.logger.Warn("flush queue full, deferring",
			slog.String("player_id", string(p.PlayerID)))
		g.park(p)
	}
}

// RunFlusher drains the write-behind queue and retries stalled flushes.
// Blocks until ctx is cancelled.
func (g *Gateway) RunFlusher(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.PendingRetryInterval)
	defer ticker.Stop()

	g.logger.Info("profile flusher started")

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("profile flusher stopped")
			return
		case p := <-g.queue:
			g.flush(ctx, p)
		case <-ticker.C:
			g.retryPending(ctx)
		}
	}
}

// flush writes one profile durably, retrying transient failures with
// bounded backoff. Exhausting the retries marks the gateway degraded and
// parks the write for background retry; the cached value stays
// authoritative in the meantime.
func (g *Gateway) flush(ctx context.Context, p *model.PlayerProfile) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.cfg.FlushInitialBackoff
	bo.MaxInterval = g.cfg.FlushMaxBackoff

	err := backoff.Retry(func() error {
		return g.store.Upsert(ctx, p)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, g.cfg.FlushMaxRetries), ctx))

	if err != nil {
		if !g.degraded.Swap(true) {
			g.logger.Error("persistence degraded: durable flushes failing",
				slog.String("player_id", string(p.PlayerID)),
				slog.String("error", err.Error()))
		}
		g.park(p)
		return
	}

	g.recoverIfDrained()
}

// retryPending re-attempts every parked flush once
func (g *Gateway) retryPending(ctx context.Context) {
	g.mu.Lock()
	parked := make([]*model.PlayerProfile, 0, len(g.pending))
	for _, p := range g.pending {
		parked = append(parked, p)
	}
	g.mu.Unlock()

	for _, p := range parked {
		if err := g.store.Upsert(ctx, p); err != nil {
			continue
		}
		g.mu.Lock()
		if cur, ok := g.pending[p.PlayerID]; ok && cur.Version <= p.Version {
			delete(g.pending, p.PlayerID)
		}
		g.mu.Unlock()
	}

	g.recoverIfDrained()
}

// park parks a profile for background retry, keeping only the newest
// version per player
func (g *Gateway) park(p *model.PlayerProfile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.pending[p.PlayerID]; !ok || cur.Version < p.Version {
		g.pending[p.PlayerID] = p
	}
}

// recoverIfDrained clears the degraded flag once nothing is parked
func (g *Gateway) recoverIfDrained() {
	g.mu.Lock()
	drained := len(g.pending) == 0
	g.mu.Unlock()

	if drained && g.degraded.Swap(false) {
		g.logger.Info("persistence recovered: durable flushes succeeding")
	}
}
