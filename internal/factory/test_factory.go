package factory

import (
	"log/slog"
	"time"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/dependencies/mocks"
	"github.com/mythichub/nexus/internal/party"
	"github.com/mythichub/nexus/internal/profile"
	"github.com/mythichub/nexus/internal/proxy"
	"github.com/mythichub/nexus/internal/registry"
	"github.com/mythichub/nexus/internal/router"
	"github.com/mythichub/nexus/internal/storage/memory"
	"github.com/mythichub/nexus/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// DurableStore is the in-memory profile store backing the gateway
	DurableStore *profile.MemoryStore
}

// NewTestApp creates an App configured for testing with mocked
// dependencies and in-memory backends
func NewTestApp() *TestApp {
	logger := testutil.NopLogger()
	return newTestApp(logger)
}

func newTestApp(logger *slog.Logger) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	eventBus := bus.NewMemoryBus(bus.DefaultConfig(), mockClock)
	durableStore := profile.NewMemoryStore()

	reg := registry.NewService(store, eventBus, mockClock, registry.DefaultConfig(), logger)
	parties := party.NewService(store, eventBus, mockClock, mockRandom, party.DefaultConfig(), logger)
	rt := router.NewService(eventBus, parties, reg, store, mockClock, router.DefaultConfig(), logger)
	profiles := profile.NewGateway(durableStore, store, mockClock, profile.DefaultConfig(), logger)
	bridge := proxy.NewBridge(rt, reg, router.PolicyLeastLoaded, logger)

	app := &App{
		Storage:      store,
		Bus:          eventBus,
		Clock:        mockClock,
		Random:       mockRandom,
		Registry:     reg,
		PartyService: parties,
		Router:       rt,
		Profiles:     profiles,
		Bridge:       bridge,
	}
	app.closers = append(app.closers, eventBus.Close, durableStore.Close)

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		DurableStore: durableStore,
	}
}
