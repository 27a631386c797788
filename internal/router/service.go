package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/model"
)

// Policy selects how a destination server is chosen
type Policy string

const (
	PolicyLeastLoaded      Policy = "least_loaded"
	PolicyPartyAffinity    Policy = "party_affinity"
	PolicyStickyLastServer Policy = "sticky_last_server"
)

// Config holds router behavior settings
type Config struct {
	// HeartbeatExpiry is how long after its last heartbeat a server is
	// still considered reachable
	HeartbeatExpiry time.Duration
}

// DefaultConfig returns sensible defaults for router configuration
func DefaultConfig() Config {
	return Config{
		HeartbeatExpiry: 90 * time.Second,
	}
}

// PartyLookup is the slice of the party coordinator the router needs
type PartyLookup interface {
	PartyOf(ctx context.Context, playerID model.PlayerID) (*model.PartyState, error)
}

// SessionLookup is the slice of the session registry the router needs
type SessionLookup interface {
	Lookup(ctx context.Context, playerID model.PlayerID) (*model.PlayerSession, error)
}

// LastServerLookup resolves a player's most recent server for sticky
// routing
type LastServerLookup interface {
	GetLastServer(ctx context.Context, playerID model.PlayerID) (model.ServerID, error)
}

// Service recommends a destination server for a connecting or
// transferring player. It only recommends: committing the assignment is
// the caller's job, so an unused recommendation leaves no trace.
//
// Its view of the fleet is a cache refreshed from the server-heartbeat
// topic; servers self-report and the view is never the source of truth.
type Service struct {
	bus      bus.Bus
	parties  PartyLookup
	sessions SessionLookup
	sticky   LastServerLookup
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	mu      sync.RWMutex
	servers map[model.ServerID]*model.ServerDescriptor
}

// NewService creates a new router
func NewService(eventBus bus.Bus, parties PartyLookup, sessions SessionLookup, sticky LastServerLookup, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		bus:      eventBus,
		parties:  parties,
		sessions: sessions,
		sticky:   sticky,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "router")),
		servers:  make(map[model.ServerID]*model.ServerDescriptor),
	}
}

// RunHeartbeatWatcher keeps the server view fresh from heartbeat events.
// Blocks until ctx is cancelled.
func (s *Service) RunHeartbeatWatcher(ctx context.Context) {
	events, stop := s.bus.Subscribe(ctx, model.TopicHeartbeat)
	defer stop()

	s.logger.Info("heartbeat watcher started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("heartbeat watcher stopped")
			return
		case event, ok := <-events:
			if !ok {
				s.logger.Info("heartbeat watcher stopped: bus closed")
				return
			}
			s.handleHeartbeat(event)
		}
	}
}

func (s *Service) handleHeartbeat(event model.Event) {
	switch event.Type {
	case model.EventServerHeartbeat:
		var payload model.HeartbeatPayload
		if err := event.DecodePayload(&payload); err != nil {
			s.logger.Warn("malformed heartbeat payload", slog.String("error", err.Error()))
			return
		}
		s.Observe(payload)

	case model.EventBusReconnected:
		// The view may have missed heartbeats during the gap; drop it and
		// rebuild from the next round of reports
		s.mu.Lock()
		s.servers = make(map[model.ServerID]*model.ServerDescriptor)
		s.mu.Unlock()
		s.logger.Info("server view reset after bus reconnect")
	}
}

// Observe folds one heartbeat into the server view
func (s *Service) Observe(hb model.HeartbeatPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[hb.ServerID] = &model.ServerDescriptor{
		ID:          hb.ServerID,
		Address:     hb.Address,
		PlayerCount: hb.PlayerCount,
		Capacity:    hb.Capacity,
		Health:      hb.Health,
		LastSeen:    s.clock.Now(),
	}
}

// Servers returns a snapshot of the current server view. Servers whose
// heartbeats have gone quiet are reported as unreachable.
func (s *Service) Servers() []*model.ServerDescriptor {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.ServerDescriptor, 0, len(s.servers))
	for _, d := range s.servers {
		desc := *d
		if now.Sub(desc.LastSeen) > s.cfg.HeartbeatExpiry {
			desc.Health = model.HealthUnreachable
		}
		out = append(out, &desc)
	}
	return out
}

// SelectServer recommends a destination for the player under the given
// policy. It has no side effects.
func (s *Service) SelectServer(ctx context.Context, playerID model.PlayerID, policy Policy) (*model.ServerDescriptor, error) {
	candidates := s.routable()
	if len(candidates) == 0 {
		return nil, model.ErrNoAvailableServer
	}

	switch policy {
	case PolicyLeastLoaded:
		return leastLoaded(candidates), nil

	case PolicyStickyLastServer:
		last, err := s.sticky.GetLastServer(ctx, playerID)
		if err != nil {
			return nil, err
		}
		for _, d := range candidates {
			if d.ID == last {
				return d, nil
			}
		}
		return leastLoaded(candidates), nil

	case PolicyPartyAffinity:
		if target := s.partyMajorityServer(ctx, playerID, candidates); target != nil {
			return target, nil
		}
		return leastLoaded(candidates), nil

	default:
		return nil, model.ErrUnknownPolicy
	}
}

// partyMajorityServer finds the routable server hosting the most members
// of the player's party, or nil when the player has no party or the
// majority server cannot take them
func (s *Service) partyMajorityServer(ctx context.Context, playerID model.PlayerID, candidates []*model.ServerDescriptor) *model.ServerDescriptor {
	party, err := s.parties.PartyOf(ctx, playerID)
	if err != nil {
		if !errors.Is(err, model.ErrNotInParty) {
			s.logger.Warn("party lookup failed during routing",
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()))
		}
		return nil
	}

	counts := make(map[model.ServerID]int)
	for _, member := range party.Members {
		if member.PlayerID == playerID {
			continue
		}
		session, err := s.sessions.Lookup(ctx, member.PlayerID)
		if err != nil || session.Status != model.StatusActive {
			continue
		}
		counts[session.ServerID]++
	}

	var best model.ServerID
	bestCount := 0
	for id, count := range counts {
		if count > bestCount {
			best, bestCount = id, count
		}
	}
	if bestCount == 0 {
		return nil
	}

	for _, d := range candidates {
		if d.ID == best {
			return d
		}
	}
	// Majority server is draining, unreachable or full
	return nil
}

// routable returns the fresh, healthy, non-full servers from the view
func (s *Service) routable() []*model.ServerDescriptor {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.ServerDescriptor, 0, len(s.servers))
	for _, d := range s.servers {
		if now.Sub(d.LastSeen) > s.cfg.HeartbeatExpiry {
			continue
		}
		if !d.Routable() {
			continue
		}
		desc := *d
		out = append(out, &desc)
	}
	return out
}

// leastLoaded picks the candidate with the lowest load fraction
func leastLoaded(candidates []*model.ServerDescriptor) *model.ServerDescriptor {
	best := candidates[0]
	bestLoad := load(best)
	for _, d := range candidates[1:] {
		if l := load(d); l < bestLoad {
			best, bestLoad = d, l
		}
	}
	return best
}

func load(d *model.ServerDescriptor) float64 {
	if d.Capacity <= 0 {
		return 1
	}
	return float64(d.PlayerCount) / float64(d.Capacity)
}
