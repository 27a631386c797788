package profile

import (
	"context"
	"sync"

	"github.com/mythichub/nexus/internal/model"
)

// MemoryStore is an in-memory durable-store stand-in for tests
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[model.PlayerID]*model.PlayerProfile

	// failPuts makes Upsert fail while set, for exercising the degraded
	// write-behind path
	failPuts bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[model.PlayerID]*model.PlayerProfile)}
}

// Ensure MemoryStore implements the interface
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, p *model.PlayerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts {
		return errDurableUnavailable
	}
	if stored, ok := s.profiles[p.PlayerID]; ok && stored.Version >= p.Version {
		return nil
	}
	s.profiles[p.PlayerID] = p.Clone()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// SetFailPuts toggles simulated durable-store outage
func (s *MemoryStore) SetFailPuts(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts = fail
}
