package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mythichub/nexus/internal/model"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) observeServer(id string, players, capacity int) {
	s.app.Router.Observe(model.HeartbeatPayload{
		ServerID:    model.ServerID(id),
		Address:     id + ".internal:25565",
		PlayerCount: players,
		Capacity:    capacity,
		Health:      model.HealthHealthy,
	})
}

// Test: a player connects through the proxy, lands on the least loaded
// server and shows up as an active session
func (s *IntegrationSuite) TestConnectFlow() {
	s.observeServer("lobby-1", 40, 50)
	s.observeServer("lobby-2", 10, 50)

	dest, err := s.app.Bridge.PlayerConnecting(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.ServerID("lobby-2"), dest.ID)

	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "alice", dest.ID))

	session, err := s.app.Registry.Lookup(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.StatusActive, session.Status)
	s.Equal(model.ServerID("lobby-2"), session.ServerID)
}

// Test: transfer between servers completes through the bridge
func (s *IntegrationSuite) TestTransferFlow() {
	s.observeServer("lobby-1", 0, 50)
	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "alice", "lobby-1"))

	s.Require().NoError(s.app.Registry.BeginTransfer(s.ctx, "alice", "game-1"))
	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "alice", "game-1"))

	session, err := s.app.Registry.Lookup(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.StatusActive, session.Status)
	s.Equal(model.ServerID("game-1"), session.ServerID)
}

// Test: party invite and accept, then party affinity routes the new
// member towards the rest of the party
func (s *IntegrationSuite) TestPartyAffinityFlow() {
	s.observeServer("lobby-1", 45, 50)
	s.observeServer("lobby-2", 5, 50)

	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "alice", "lobby-1"))

	s.app.MockRandom.QueueString("PARTY001")
	p, err := s.app.PartyService.Invite(s.ctx, "alice", "bob")
	s.Require().NoError(err)

	_, err = s.app.PartyService.AcceptInvite(s.ctx, "bob", p.ID)
	s.Require().NoError(err)

	// Despite lobby-1 being nearly full, affinity follows alice
	dest, err := s.app.Router.SelectServer(s.ctx, "bob", "party_affinity")
	s.Require().NoError(err)
	s.Equal(model.ServerID("lobby-1"), dest.ID)
}

// Test: disconnect records the last server, and sticky routing sends
// the player back there
func (s *IntegrationSuite) TestStickyReconnect() {
	s.observeServer("lobby-1", 5, 50)
	s.observeServer("lobby-2", 0, 50)

	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "alice", "lobby-1"))
	s.Require().NoError(s.app.Bridge.PlayerDisconnected(s.ctx, "alice"))

	_, err := s.app.Registry.Lookup(s.ctx, "alice")
	s.Require().ErrorIs(err, model.ErrUnknownSession)

	dest, err := s.app.Router.SelectServer(s.ctx, "alice", "sticky_last_server")
	s.Require().NoError(err)
	s.Equal(model.ServerID("lobby-1"), dest.ID)
}

// Test: profile save is visible to an immediate load even before the
// flusher has run
func (s *IntegrationSuite) TestProfileReadYourWrites() {
	p := &model.PlayerProfile{
		PlayerID:    "alice",
		DisplayName: "Alice",
		Stats:       map[string]int64{"wins": 3},
	}
	s.Require().NoError(s.app.Profiles.Save(s.ctx, p))

	loaded, err := s.app.Profiles.Load(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", loaded.DisplayName)
	s.Equal(int64(3), loaded.Stats["wins"])
	s.Equal(int64(1), loaded.Version)
}

// Test: a disconnect dissolves the player's party membership once the
// presence watcher sees the event
func (s *IntegrationSuite) TestDisconnectLeavesParty() {
	s.observeServer("lobby-1", 0, 50)
	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "alice", "lobby-1"))
	s.Require().NoError(s.app.Bridge.ConfirmArrival(s.ctx, "bob", "lobby-1"))

	s.app.MockRandom.QueueString("PARTY001")
	p, err := s.app.PartyService.Invite(s.ctx, "alice", "bob")
	s.Require().NoError(err)
	_, err = s.app.PartyService.AcceptInvite(s.ctx, "bob", p.ID)
	s.Require().NoError(err)

	watchCtx, cancelWatch := context.WithCancel(s.ctx)
	defer cancelWatch()
	go s.app.PartyService.RunPresenceWatcher(watchCtx)

	// Give the watcher a moment to subscribe before the event fires
	time.Sleep(50 * time.Millisecond)

	s.Require().NoError(s.app.Bridge.PlayerDisconnected(s.ctx, "bob"))

	// The watcher consumes the presence event asynchronously
	s.Eventually(func() bool {
		_, err := s.app.PartyService.PartyOf(s.ctx, "bob")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}
