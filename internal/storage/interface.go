package storage

import (
	"context"

	"github.com/mythichub/nexus/internal/model"
)

// Storage is the cache-tier interface backing the session registry, party
// coordinator, router stickiness and the profile cache. Implementations
// must make the versioned Save operations atomic compare-and-swaps: the
// write succeeds only if the stored record's version still equals
// expectedVersion, and on success the record is stored with
// expectedVersion+1. expectedVersion 0 means "create, must not exist".
type Storage interface {
	// Session operations
	GetSession(ctx context.Context, id model.PlayerID) (*model.PlayerSession, error)
	SaveSession(ctx context.Context, session *model.PlayerSession, expectedVersion int64) error
	DeleteSession(ctx context.Context, id model.PlayerID) error
	ListSessions(ctx context.Context) ([]*model.PlayerSession, error)

	// Party operations
	GetParty(ctx context.Context, id model.PartyID) (*model.PartyState, error)
	SaveParty(ctx context.Context, party *model.PartyState, expectedVersion int64) error
	DeleteParty(ctx context.Context, id model.PartyID) error

	// Player -> party index, maintained alongside party records so that
	// membership stays a partition
	PartyOf(ctx context.Context, id model.PlayerID) (model.PartyID, error)
	SetPartyIndex(ctx context.Context, id model.PlayerID, partyID model.PartyID) error
	ClearPartyIndex(ctx context.Context, id model.PlayerID) error

	// Last-server tracking for sticky routing
	SetLastServer(ctx context.Context, id model.PlayerID, serverID model.ServerID) error
	GetLastServer(ctx context.Context, id model.PlayerID) (model.ServerID, error)

	// Profile cache (bounded TTL, never authoritative). SetCachedProfile
	// is a plain populate used on read-through; SaveCachedProfile is the
	// compare-and-swap used by the write path so concurrent saves from
	// different processes conflict instead of overwriting each other.
	GetCachedProfile(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error)
	SetCachedProfile(ctx context.Context, profile *model.PlayerProfile) error
	SaveCachedProfile(ctx context.Context, profile *model.PlayerProfile, expectedVersion int64) error
	DeleteCachedProfile(ctx context.Context, id model.PlayerID) error
}
