package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	sessions    map[model.PlayerID]*model.PlayerSession
	parties     map[model.PartyID]*model.PartyState
	partyIndex  map[model.PlayerID]model.PartyID
	lastServers map[model.PlayerID]model.ServerID
	profiles    map[model.PlayerID]*model.PlayerProfile
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions:    make(map[model.PlayerID]*model.PlayerSession),
		parties:     make(map[model.PartyID]*model.PartyState),
		partyIndex:  make(map[model.PlayerID]model.PartyID),
		lastServers: make(map[model.PlayerID]model.ServerID),
		profiles:    make(map[model.PlayerID]*model.PlayerProfile),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) GetSession(ctx context.Context, id model.PlayerID) (*model.PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrUnknownSession
	}
	clone := *session
	return &clone, nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.PlayerSession, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.PlayerID]
	if ok {
		if stored.Version != expectedVersion {
			return model.ErrVersionConflict
		}
	} else if expectedVersion != 0 {
		return model.ErrVersionConflict
	}

	session.Version = expectedVersion + 1
	clone := *session
	s.sessions[session.PlayerID] = &clone
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*model.PlayerSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		clone := *session
		sessions = append(sessions, &clone)
	}
	return sessions, nil
}

// Party operations

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.PartyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	party, ok := s.parties[id]
	if !ok {
		return nil, model.ErrPartyNotFound
	}
	return cloneParty(party), nil
}

func (s *Storage) SaveParty(ctx context.Context, party *model.PartyState, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.parties[party.ID]
	if ok {
		if stored.Version != expectedVersion {
			return model.ErrVersionConflict
		}
	} else if expectedVersion != 0 {
		return model.ErrVersionConflict
	}

	party.Version = expectedVersion + 1
	s.parties[party.ID] = cloneParty(party)
	return nil
}

func (s *Storage) DeleteParty(ctx context.Context, id model.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parties, id)
	return nil
}

func (s *Storage) PartyOf(ctx context.Context, id model.PlayerID) (model.PartyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partyIndex[id], nil
}

func (s *Storage) SetPartyIndex(ctx context.Context, id model.PlayerID, partyID model.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partyIndex[id] = partyID
	return nil
}

func (s *Storage) ClearPartyIndex(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partyIndex, id)
	return nil
}

// Last-server operations

func (s *Storage) SetLastServer(ctx context.Context, id model.PlayerID, serverID model.ServerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastServers[id] = serverID
	return nil
}

func (s *Storage) GetLastServer(ctx context.Context, id model.PlayerID) (model.ServerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastServers[id], nil
}

// Profile cache operations

func (s *Storage) GetCachedProfile(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return profile.Clone(), nil
}

func (s *Storage) SetCachedProfile(ctx context.Context, profile *model.PlayerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.PlayerID] = profile.Clone()
	return nil
}

func (s *Storage) SaveCachedProfile(ctx context.Context, profile *model.PlayerProfile, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.profiles[profile.PlayerID]
	if ok {
		if stored.Version != expectedVersion {
			return model.ErrVersionConflict
		}
	} else if expectedVersion != 0 {
		return model.ErrVersionConflict
	}

	profile.Version = expectedVersion + 1
	s.profiles[profile.PlayerID] = profile.Clone()
	return nil
}

func (s *Storage) DeleteCachedProfile(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	return nil
}

func cloneParty(p *model.PartyState) *model.PartyState {
	out := *p
	out.Members = append([]model.PartyMember(nil), p.Members...)
	if p.Invites != nil {
		out.Invites = make(map[model.PlayerID]time.Time, len(p.Invites))
		for k, v := range p.Invites {
			out.Invites[k] = v
		}
	}
	return &out
}
