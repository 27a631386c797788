package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage around an existing client,
// for sharing a connection pool with the event bus and for tests
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) GetSession(ctx context.Context, id model.PlayerID) (*model.PlayerSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUnknownSession
		}
		return nil, err
	}

	var session model.PlayerSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.PlayerSession, expectedVersion int64) error {
	key := sessionKey(session.PlayerID)

	// WATCH-based compare-and-swap. If another writer touches the key
	// between the read and EXEC, the transaction fails and we surface a
	// version conflict for the caller to retry against fresh state.
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, expectedVersion, func(data []byte) (int64, error) {
			var stored model.PlayerSession
			if err := json.Unmarshal(data, &stored); err != nil {
				return 0, err
			}
			return stored.Version, nil
		}); err != nil {
			return err
		}

		session.Version = expectedVersion + 1
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.SessionTTL)
			pipe.SAdd(ctx, sessionIndexKey(), string(session.PlayerID))
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) DeleteSession(ctx context.Context, id model.PlayerID) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, sessionIndexKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListSessions(ctx context.Context) ([]*model.PlayerSession, error) {
	ids, err := s.client.SMembers(ctx, sessionIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.PlayerSession{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.PlayerSession, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Session may have expired
		}
		var session model.PlayerSession
		if err := json.Unmarshal([]byte(val.(string)), &session); err != nil {
			continue // Skip invalid data
		}
		sessions = append(sessions, &session)
	}

	return sessions, nil
}

// Party operations

func (s *Storage) GetParty(ctx context.Context, id model.PartyID) (*model.PartyState, error) {
	data, err := s.client.Get(ctx, partyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPartyNotFound
		}
		return nil, err
	}

	var party model.PartyState
	if err := json.Unmarshal(data, &party); err != nil {
		return nil, err
	}
	return &party, nil
}

func (s *Storage) SaveParty(ctx context.Context, party *model.PartyState, expectedVersion int64) error {
	key := partyKey(party.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, expectedVersion, func(data []byte) (int64, error) {
			var stored model.PartyState
			if err := json.Unmarshal(data, &stored); err != nil {
				return 0, err
			}
			return stored.Version, nil
		}); err != nil {
			return err
		}

		party.Version = expectedVersion + 1
		data, err := json.Marshal(party)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.PartyTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) DeleteParty(ctx context.Context, id model.PartyID) error {
	return s.client.Del(ctx, partyKey(id)).Err()
}

func (s *Storage) PartyOf(ctx context.Context, id model.PlayerID) (model.PartyID, error) {
	val, err := s.client.Get(ctx, partyIndexKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return model.PartyID(val), nil
}

func (s *Storage) SetPartyIndex(ctx context.Context, id model.PlayerID, partyID model.PartyID) error {
	return s.client.Set(ctx, partyIndexKey(id), string(partyID), s.cfg.PartyTTL).Err()
}

func (s *Storage) ClearPartyIndex(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, partyIndexKey(id)).Err()
}

// Last-server operations

func (s *Storage) SetLastServer(ctx context.Context, id model.PlayerID, serverID model.ServerID) error {
	return s.client.Set(ctx, lastServerKey(id), string(serverID), s.cfg.LastServerTTL).Err()
}

func (s *Storage) GetLastServer(ctx context.Context, id model.PlayerID) (model.ServerID, error) {
	val, err := s.client.Get(ctx, lastServerKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return model.ServerID(val), nil
}

// Profile cache operations

func (s *Storage) GetCachedProfile(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error) {
	data, err := s.client.Get(ctx, profileKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	var profile model.PlayerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Storage) SetCachedProfile(ctx context.Context, profile *model.PlayerProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileKey(profile.PlayerID), data, s.cfg.ProfileCacheTTL).Err()
}

func (s *Storage) SaveCachedProfile(ctx context.Context, profile *model.PlayerProfile, expectedVersion int64) error {
	key := profileKey(profile.PlayerID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, expectedVersion, func(data []byte) (int64, error) {
			var stored model.PlayerProfile
			if err := json.Unmarshal(data, &stored); err != nil {
				return 0, err
			}
			return stored.Version, nil
		}); err != nil {
			return err
		}

		profile.Version = expectedVersion + 1
		data, err := json.Marshal(profile)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.ProfileCacheTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) DeleteCachedProfile(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, profileKey(id)).Err()
}

// checkVersion verifies the stored record's version against the expected
// one inside a WATCH block. expectedVersion 0 requires that the key does
// not exist yet.
func checkVersion(ctx context.Context, tx *redis.Tx, key string, expectedVersion int64, versionOf func([]byte) (int64, error)) error {
	data, err := tx.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		stored, err := versionOf(data)
		if err != nil {
			return err
		}
		if stored != expectedVersion {
			return model.ErrVersionConflict
		}
	case errors.Is(err, redis.Nil):
		if expectedVersion != 0 {
			return model.ErrVersionConflict
		}
	default:
		return err
	}
	return nil
}
