package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/config"
	"github.com/mythichub/nexus/internal/dependencies/clock"
	"github.com/mythichub/nexus/internal/dependencies/random"
	"github.com/mythichub/nexus/internal/party"
	"github.com/mythichub/nexus/internal/profile"
	sqlitestore "github.com/mythichub/nexus/internal/profile/sqlite"
	"github.com/mythichub/nexus/internal/proxy"
	"github.com/mythichub/nexus/internal/registry"
	"github.com/mythichub/nexus/internal/router"
	"github.com/mythichub/nexus/internal/storage"
	"github.com/mythichub/nexus/internal/storage/memory"
	redisstorage "github.com/mythichub/nexus/internal/storage/redis"
)

// Backend type constants
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Shared state
	Storage storage.Storage
	Bus     bus.Bus

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry     *registry.Service
	PartyService *party.Service
	Router       *router.Service
	Profiles     *profile.Gateway
	Bridge       *proxy.Bridge

	// closers are torn down in reverse order on Close
	closers []func() error
}

// New creates a new application with all dependencies wired from the
// given configuration
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	app := &App{
		Clock:  clock.New(),
		Random: random.New(),
	}

	// A single Redis client backs both storage and the bus when both
	// are configured for redis
	var redisClient *redis.Client
	if cfg.StorageType == BackendRedis || cfg.BusType == BackendRedis {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		redisClient = redis.NewClient(opts)
		app.closers = append(app.closers, redisClient.Close)
	}

	switch cfg.StorageType {
	case BackendMemory, "":
		app.Storage = memory.New()
	case BackendRedis:
		app.Storage = redisstorage.NewWithClient(redisClient, redisstorage.DefaultConfig())
	default:
		return nil, errors.New("invalid NEXUS_STORAGE: must be 'memory' or 'redis'")
	}

	busCfg := bus.DefaultConfig()
	switch cfg.BusType {
	case BackendMemory, "":
		app.Bus = bus.NewMemoryBus(busCfg, app.Clock)
	case BackendRedis:
		app.Bus = bus.NewRedisBus(redisClient, busCfg, app.Clock, logger)
	default:
		return nil, errors.New("invalid NEXUS_BUS: must be 'memory' or 'redis'")
	}
	app.closers = append(app.closers, app.Bus.Close)

	// Durable profile store
	var store profile.Store
	if cfg.SQLitePath == "" {
		store = profile.NewMemoryStore()
	} else {
		sqlStore, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqlStore
	}
	app.closers = append(app.closers, store.Close)

	registryCfg := registry.DefaultConfig()
	registryCfg.TransferTimeout = cfg.TransferTimeout
	registryCfg.SweepInterval = cfg.SweepInterval
	registryCfg.StalenessBound = cfg.StalenessBound
	app.Registry = registry.NewService(app.Storage, app.Bus, app.Clock, registryCfg, logger)

	partyCfg := party.DefaultConfig()
	partyCfg.InviteTTL = cfg.InviteTTL
	app.PartyService = party.NewService(app.Storage, app.Bus, app.Clock, app.Random, partyCfg, logger)

	routerCfg := router.DefaultConfig()
	routerCfg.HeartbeatExpiry = cfg.HeartbeatExpiry
	app.Router = router.NewService(app.Bus, app.PartyService, app.Registry, app.Storage, app.Clock, routerCfg, logger)

	app.Profiles = profile.NewGateway(store, app.Storage, app.Clock, profile.DefaultConfig(), logger)

	policy := router.Policy(cfg.RoutingPolicy)
	app.Bridge = proxy.NewBridge(app.Router, app.Registry, policy, logger)

	return app, nil
}

// Close tears down the application's backends
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
