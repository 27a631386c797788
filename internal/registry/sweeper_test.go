package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/dependencies/mocks"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/storage"
	"github.com/mythichub/nexus/internal/storage/memory"
	"github.com/mythichub/nexus/internal/testutil"
)

type SweeperSuite struct {
	suite.Suite
	storage *memory.Storage
	bus     *bus.MemoryBus
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context

	events <-chan model.Event
	stop   func()
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.bus = bus.NewMemoryBus(bus.DefaultConfig(), s.clock)
	s.service = NewService(s.storage, s.bus, s.clock, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()

	s.events, s.stop = s.bus.Subscribe(s.ctx, model.TopicPresence)
}

func (s *SweeperSuite) TearDownTest() {
	s.stop()
	_ = s.bus.Close()
}

func (s *SweeperSuite) drainEvents() []model.Event {
	var events []model.Event
	for {
		select {
		case event := <-s.events:
			events = append(events, event)
		default:
			return events
		}
	}
}

func (s *SweeperSuite) beginTransfer(player string) {
	_, err := s.service.RegisterConnect(s.ctx, model.PlayerID(player), "lobby-1")
	s.Require().NoError(err)
	s.Require().NoError(s.service.UpdateStatus(s.ctx, model.PlayerID(player), model.StatusActive))
	s.Require().NoError(s.service.BeginTransfer(s.ctx, model.PlayerID(player), "game-1"))
	s.drainEvents()
}

func (s *SweeperSuite) TestSweepClosesStuckTransfer() {
	s.beginTransfer("alice")

	s.clock.Advance(DefaultConfig().TransferTimeout + time.Second)
	s.service.sweepOnce(s.ctx)

	_, err := s.service.Lookup(s.ctx, "alice")
	s.ErrorIs(err, model.ErrUnknownSession)

	// Sticky routing still knows where the player came from
	last, err := s.storage.GetLastServer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.ServerID("lobby-1"), last)

	// The force-close announces the departure exactly once
	events := s.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(model.EventPlayerLeft, events[0].Type)
}

func (s *SweeperSuite) TestSweepLeavesFreshTransferAlone() {
	s.beginTransfer("alice")

	s.clock.Advance(DefaultConfig().TransferTimeout / 2)
	s.service.sweepOnce(s.ctx)

	session, err := s.service.Lookup(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.StatusTransferring, session.Status)
}

func (s *SweeperSuite) TestSweepIgnoresActiveSessions() {
	_, err := s.service.RegisterConnect(s.ctx, "bob", "lobby-1")
	s.Require().NoError(err)
	s.Require().NoError(s.service.UpdateStatus(s.ctx, "bob", model.StatusActive))

	s.clock.Advance(time.Hour)
	s.service.sweepOnce(s.ctx)

	session, err := s.service.Lookup(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(model.StatusActive, session.Status)
}

func (s *SweeperSuite) TestSweepSparesTransferCompletedAfterScan() {
	s.beginTransfer("alice")

	s.clock.Advance(DefaultConfig().TransferTimeout + time.Second)

	// The transfer lands on its destination right after the scan snapshot
	// is taken. The sweep must notice and leave the session alone.
	racing := &completingStorage{Storage: s.storage, player: "alice", dest: "game-1"}
	sweeper := NewService(racing, s.bus, s.clock, DefaultConfig(), testutil.NopLogger())
	sweeper.sweepOnce(s.ctx)

	session, err := s.service.Lookup(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.StatusActive, session.Status)
	s.Equal(model.ServerID("game-1"), session.ServerID)

	s.Empty(s.drainEvents())
}

// completingStorage lands the player's transfer on its destination right
// after the first session scan returns
type completingStorage struct {
	storage.Storage
	player model.PlayerID
	dest   model.ServerID
	raced  bool
}

func (c *completingStorage) ListSessions(ctx context.Context) ([]*model.PlayerSession, error) {
	sessions, err := c.Storage.ListSessions(ctx)
	if err != nil || c.raced {
		return sessions, err
	}
	c.raced = true

	session, err := c.Storage.GetSession(ctx, c.player)
	if err != nil {
		return nil, err
	}
	session.Status = model.StatusActive
	session.ServerID = c.dest
	session.TransferTo = ""
	session.TransferStartedAt = time.Time{}
	if err := c.Storage.SaveSession(ctx, session, session.Version); err != nil {
		return nil, err
	}
	return sessions, nil
}
