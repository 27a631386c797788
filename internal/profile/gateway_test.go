package profile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mythichub/nexus/internal/dependencies/mocks"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage/memory"
	"github.com/mythichub/nexus/internal/testutil"
)

type GatewaySuite struct {
	suite.Suite
	store   *MemoryStore
	cache   *memory.Storage
	clock   *mocks.MockClock
	gateway *Gateway
	ctx     context.Context
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.store = NewMemoryStore()
	s.cache = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	cfg := DefaultConfig()
	cfg.FlushMaxRetries = 1
	cfg.FlushInitialBackoff = time.Millisecond
	cfg.FlushMaxBackoff = 2 * time.Millisecond
	cfg.PendingRetryInterval = 10 * time.Millisecond

	s.gateway = NewGateway(s.store, s.cache, s.clock, cfg, testutil.NopLogger())
	s.ctx = context.Background()
}

// runFlusher starts the background flusher and returns its stop func
func (s *GatewaySuite) runFlusher() func() {
	ctx, cancel := context.WithCancel(s.ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.gateway.RunFlusher(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (s *GatewaySuite) TestSaveThenLoad() {
	p := &model.PlayerProfile{
		PlayerID:    "alice",
		DisplayName: "Alice",
		Stats:       map[string]int64{"wins": 1},
	}
	s.Require().NoError(s.gateway.Save(s.ctx, p))
	s.Equal(int64(1), p.Version)
	s.Equal(s.clock.Now(), p.LastSeen)

	loaded, err := s.gateway.Load(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", loaded.DisplayName)
	s.Equal(int64(1), loaded.Version)
}

func (s *GatewaySuite) TestLoadUnknownProfile() {
	_, err := s.gateway.Load(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *GatewaySuite) TestLoadFallsBackToDurableStore() {
	stored := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice", Version: 4}
	s.Require().NoError(s.store.Upsert(s.ctx, stored))

	loaded, err := s.gateway.Load(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(4), loaded.Version)

	// The read-through populated the cache
	cached, err := s.cache.GetCachedProfile(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(4), cached.Version)
}

func (s *GatewaySuite) TestSaveStaleVersionRejected() {
	p := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice"}
	s.Require().NoError(s.gateway.Save(s.ctx, p))

	stale := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Old Alice", Version: 0}
	err := s.gateway.Save(s.ctx, stale)
	s.ErrorIs(err, model.ErrStaleWrite)

	// The accepted write is untouched
	loaded, err := s.gateway.Load(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", loaded.DisplayName)
}

func (s *GatewaySuite) TestSaveReloadSaveSucceeds() {
	p := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice"}
	s.Require().NoError(s.gateway.Save(s.ctx, p))

	reloaded, err := s.gateway.Load(s.ctx, "alice")
	s.Require().NoError(err)
	reloaded.DisplayName = "Alice II"
	s.Require().NoError(s.gateway.Save(s.ctx, reloaded))
	s.Equal(int64(2), reloaded.Version)
}

func (s *GatewaySuite) TestSaveVersionGuardSeedsFromDurableStore() {
	// Durable store has version 4; cache is empty (expired)
	stored := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice", Version: 4}
	s.Require().NoError(s.store.Upsert(s.ctx, stored))

	stale := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Old", Version: 1}
	err := s.gateway.Save(s.ctx, stale)
	s.ErrorIs(err, model.ErrStaleWrite)

	fresh := stored.Clone()
	fresh.DisplayName = "New Alice"
	s.Require().NoError(s.gateway.Save(s.ctx, fresh))
	s.Equal(int64(5), fresh.Version)
}

func (s *GatewaySuite) TestConcurrentSavesOneWins() {
	p := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice"}
	s.Require().NoError(s.gateway.Save(s.ctx, p))

	const goroutines = 8
	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			attempt := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Racer", Version: 1}
			errs[n] = s.gateway.Save(s.ctx, attempt)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			s.ErrorIs(err, model.ErrStaleWrite)
		}
	}
	s.Equal(1, winners)
}

func (s *GatewaySuite) TestFlusherWritesThrough() {
	stop := s.runFlusher()
	defer stop()

	p := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice"}
	s.Require().NoError(s.gateway.Save(s.ctx, p))

	s.Eventually(func() bool {
		stored, err := s.store.Get(s.ctx, "alice")
		return err == nil && stored.Version == 1
	}, 2*time.Second, 10*time.Millisecond)
	s.False(s.gateway.Degraded())
}

func (s *GatewaySuite) TestDegradedModeAndRecovery() {
	stop := s.runFlusher()
	defer stop()

	s.store.SetFailPuts(true)

	p := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Alice"}
	s.Require().NoError(s.gateway.Save(s.ctx, p))

	s.Eventually(func() bool {
		return s.gateway.Degraded()
	}, 2*time.Second, 10*time.Millisecond)

	// Reads still serve the cached value while degraded
	loaded, err := s.gateway.Load(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", loaded.DisplayName)

	// Durable store comes back; the parked write flushes and the flag clears
	s.store.SetFailPuts(false)

	s.Eventually(func() bool {
		stored, err := s.store.Get(s.ctx, "alice")
		return err == nil && stored.Version == 1 && !s.gateway.Degraded()
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *GatewaySuite) TestLateFlushCannotRollBack() {
	newer := &model.PlayerProfile{PlayerID: "alice", DisplayName: "New", Version: 3}
	s.Require().NoError(s.store.Upsert(s.ctx, newer))

	// A late flush of an older version is ignored
	older := &model.PlayerProfile{PlayerID: "alice", DisplayName: "Old", Version: 2}
	s.Require().NoError(s.store.Upsert(s.ctx, older))

	stored, err := s.store.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("New", stored.DisplayName)
	s.Equal(int64(3), stored.Version)
}
