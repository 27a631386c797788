package party

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/dependencies/random"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage"
)

const (
	// PartyIDLength is the length of generated party identifiers
	PartyIDLength = 8
	// PartyIDAlphabet is the characters used in party IDs (avoid confusing chars)
	PartyIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Config holds party coordinator behavior settings
type Config struct {
	// InviteTTL is how long an invite stays acceptable
	InviteTTL time.Duration

	// MaxRetries bounds how many times a mutation retries after losing a
	// version race
	MaxRetries int
}

// DefaultConfig returns sensible defaults for party configuration
func DefaultConfig() Config {
	return Config{
		InviteTTL:  60 * time.Second,
		MaxRetries: 5,
	}
}

// Service is the distributed state machine for party membership. Every
// mutation is a compare-and-swap on the party's version counter, so two
// processes racing on the same party detect the conflict and one retries
// against refreshed state.
type Service struct {
	storage storage.Storage
	bus     bus.Bus
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger
}

// NewService creates a new party coordinator
func NewService(store storage.Storage, eventBus bus.Bus, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		bus:     eventBus,
		clock:   clk,
		random:  rnd,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "party")),
	}
}

// Invite invites a target player into the issuer's party. If the issuer
// has no party yet, one is formed with them as leader. The issuer must be
// the leader of their party; a target already in a multi-member party is
// rejected.
func (s *Service) Invite(ctx context.Context, leaderID, targetID model.PlayerID) (*model.PartyState, error) {
	if leaderID == targetID {
		return nil, model.ErrAlreadyInParty
	}

	// A target already committed to a party of their own cannot be
	// invited away; a stale single-member party is absorbed at accept time.
	targetPartyID, err := s.storage.PartyOf(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if targetPartyID != "" {
		targetParty, err := s.storage.GetParty(ctx, targetPartyID)
		if err == nil && len(targetParty.Members) > 1 {
			return nil, model.ErrAlreadyInParty
		}
	}

	var result *model.PartyState
	err = s.mutate(func() error {
		party, err := s.partyOfLeader(ctx, leaderID)
		if errors.Is(err, model.ErrPartyNotFound) {
			party, err = s.form(ctx, leaderID)
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		s.pruneInvites(party, now)
		if party.Invites == nil {
			party.Invites = make(map[model.PlayerID]time.Time)
		}
		party.Invites[targetID] = now.Add(s.cfg.InviteTTL)
		party.UpdatedAt = now

		if err := s.storage.SaveParty(ctx, party, party.Version); err != nil {
			return err
		}
		result = party

		return s.bus.Publish(ctx, model.TopicParty, model.EventPartyInvited, model.PartyPayload{
			PartyID:  party.ID,
			PlayerID: targetID,
			LeaderID: party.LeaderID,
		})
	})

	return result, err
}

// AcceptInvite atomically adds the target to the party. A stale invite is
// rejected. If the target was leading a single-member party of their own,
// that party is absorbed; two multi-member parties are never merged.
func (s *Service) AcceptInvite(ctx context.Context, targetID model.PlayerID, partyID model.PartyID) (*model.PartyState, error) {
	var result *model.PartyState

	err := s.mutate(func() error {
		party, err := s.storage.GetParty(ctx, partyID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		expiry, ok := party.Invites[targetID]
		if !ok {
			return model.ErrNoInvite
		}
		if now.After(expiry) {
			delete(party.Invites, targetID)
			party.UpdatedAt = now
			if err := s.storage.SaveParty(ctx, party, party.Version); err != nil {
				return err
			}
			_ = s.bus.Publish(ctx, model.TopicParty, model.EventPartyInviteExpired, model.PartyPayload{
				PartyID:  party.ID,
				PlayerID: targetID,
			})
			return model.ErrInviteExpired
		}

		// Merge-by-absorption: a single-member party the target leads is
		// disbanded; anything larger is a conflict the caller must resolve
		var ownParty *model.PartyState
		ownPartyID, err := s.storage.PartyOf(ctx, targetID)
		if err != nil {
			return err
		}
		if ownPartyID != "" && ownPartyID != partyID {
			own, err := s.storage.GetParty(ctx, ownPartyID)
			if err == nil {
				if len(own.Members) > 1 {
					return model.ErrMergeNotSupported
				}
				ownParty = own
			}
		}

		delete(party.Invites, targetID)
		s.pruneInvites(party, now)
		party.Members = append(party.Members, model.PartyMember{
			PlayerID: targetID,
			JoinedAt: now,
		})
		party.UpdatedAt = now

		if err := s.storage.SaveParty(ctx, party, party.Version); err != nil {
			return err
		}
		// Absorb only after the join committed. Disbanding first would
		// destroy the target's party as a side effect of an accept that
		// then loses the version race and never lands.
		if ownParty != nil {
			if err := s.disband(ctx, ownParty); err != nil {
				return err
			}
		}
		if err := s.storage.SetPartyIndex(ctx, targetID, party.ID); err != nil {
			return err
		}
		result = party

		return s.bus.Publish(ctx, model.TopicParty, model.EventPartyMemberAdded, model.PartyPayload{
			PartyID:  party.ID,
			PlayerID: targetID,
			LeaderID: party.LeaderID,
		})
	})

	return result, err
}

// Leave removes the player from their party. A leaving leader hands
// leadership to the longest-tenured remaining member; the last member
// leaving disbands the party.
func (s *Service) Leave(ctx context.Context, playerID model.PlayerID) error {
	return s.mutate(func() error {
		partyID, err := s.storage.PartyOf(ctx, playerID)
		if err != nil {
			return err
		}
		if partyID == "" {
			return model.ErrNotInParty
		}

		party, err := s.storage.GetParty(ctx, partyID)
		if errors.Is(err, model.ErrPartyNotFound) {
			// Index outlived the record; clean it up
			return s.storage.ClearPartyIndex(ctx, playerID)
		}
		if err != nil {
			return err
		}

		if !party.RemoveMember(playerID) {
			_ = s.storage.ClearPartyIndex(ctx, playerID)
			return model.ErrNotInParty
		}

		// The index is cleared only after the versioned write commits.
		// Clearing first would strand a retry after a lost version race:
		// the re-read through the index finds no party while the record
		// still lists the member.
		if len(party.Members) == 0 {
			if err := s.storage.DeleteParty(ctx, party.ID); err != nil {
				return err
			}
			if err := s.storage.ClearPartyIndex(ctx, playerID); err != nil {
				return err
			}
			return s.bus.Publish(ctx, model.TopicParty, model.EventPartyDisbanded, model.PartyPayload{
				PartyID: party.ID,
			})
		}

		now := s.clock.Now()
		leaderChanged := false
		if party.LeaderID == playerID {
			party.LeaderID = party.LongestTenured().PlayerID
			leaderChanged = true
		}
		party.UpdatedAt = now

		if err := s.storage.SaveParty(ctx, party, party.Version); err != nil {
			return err
		}
		if err := s.storage.ClearPartyIndex(ctx, playerID); err != nil {
			return err
		}

		if err := s.bus.Publish(ctx, model.TopicParty, model.EventPartyMemberLeft, model.PartyPayload{
			PartyID:  party.ID,
			PlayerID: playerID,
			LeaderID: party.LeaderID,
		}); err != nil {
			return err
		}

		if leaderChanged {
			return s.bus.Publish(ctx, model.TopicParty, model.EventPartyLeaderChanged, model.PartyPayload{
				PartyID:  party.ID,
				LeaderID: party.LeaderID,
			})
		}
		return nil
	})
}

// Disband dissolves the leader's whole party
func (s *Service) Disband(ctx context.Context, leaderID model.PlayerID) error {
	return s.mutate(func() error {
		party, err := s.partyOfLeader(ctx, leaderID)
		if err != nil {
			return err
		}
		return s.disband(ctx, party)
	})
}

// Get returns a party by ID
func (s *Service) Get(ctx context.Context, partyID model.PartyID) (*model.PartyState, error) {
	return s.storage.GetParty(ctx, partyID)
}

// PartyOf returns the party the player belongs to
func (s *Service) PartyOf(ctx context.Context, playerID model.PlayerID) (*model.PartyState, error) {
	partyID, err := s.storage.PartyOf(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if partyID == "" {
		return nil, model.ErrNotInParty
	}
	return s.storage.GetParty(ctx, partyID)
}

// form creates a new single-member party led by leaderID
func (s *Service) form(ctx context.Context, leaderID model.PlayerID) (*model.PartyState, error) {
	existing, err := s.storage.PartyOf(ctx, leaderID)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return nil, model.ErrAlreadyInParty
	}

	now := s.clock.Now()
	party := &model.PartyState{
		ID:       model.PartyID(s.random.String(PartyIDLength, PartyIDAlphabet)),
		LeaderID: leaderID,
		Members: []model.PartyMember{
			{PlayerID: leaderID, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveParty(ctx, party, 0); err != nil {
		return nil, err
	}
	if err := s.storage.SetPartyIndex(ctx, leaderID, party.ID); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, model.TopicParty, model.EventPartyFormed, model.PartyPayload{
		PartyID:  party.ID,
		LeaderID: leaderID,
	}); err != nil {
		return nil, err
	}
	return party, nil
}

// disband deletes a party, clears every member's index and publishes the
// disband event
func (s *Service) disband(ctx context.Context, party *model.PartyState) error {
	for _, m := range party.Members {
		if err := s.storage.ClearPartyIndex(ctx, m.PlayerID); err != nil {
			return err
		}
	}
	if err := s.storage.DeleteParty(ctx, party.ID); err != nil {
		return err
	}
	return s.bus.Publish(ctx, model.TopicParty, model.EventPartyDisbanded, model.PartyPayload{
		PartyID:  party.ID,
		LeaderID: party.LeaderID,
	})
}

// partyOfLeader resolves the issuer's party and checks leadership
func (s *Service) partyOfLeader(ctx context.Context, leaderID model.PlayerID) (*model.PartyState, error) {
	partyID, err := s.storage.PartyOf(ctx, leaderID)
	if err != nil {
		return nil, err
	}
	if partyID == "" {
		return nil, model.ErrPartyNotFound
	}

	party, err := s.storage.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.LeaderID != leaderID {
		return nil, model.ErrNotLeader
	}
	return party, nil
}

// pruneInvites drops expired invites in place
func (s *Service) pruneInvites(party *model.PartyState, now time.Time) {
	for id, expiry := range party.Invites {
		if now.After(expiry) {
			delete(party.Invites, id)
		}
	}
}

// mutate runs op, retrying a bounded number of times when a concurrent
// writer wins the version race
func (s *Service) mutate(op func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		err = op()
		if !errors.Is(err, model.ErrVersionConflict) {
			return err
		}
	}
	return err
}
