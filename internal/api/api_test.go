package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mythichub/nexus/internal/bus"
	"github.com/mythichub/nexus/internal/dependencies/mocks"
	"github.com/mythichub/nexus/internal/model"
	"github.com/mythichub/nexus/internal/party"
	"github.com/mythichub/nexus/internal/profile"
	"github.com/mythichub/nexus/internal/proxy"
	"github.com/mythichub/nexus/internal/registry"
	"github.com/mythichub/nexus/internal/router"
	"github.com/mythichub/nexus/internal/storage/memory"
	"github.com/mythichub/nexus/internal/testutil"
)

type APISuite struct {
	suite.Suite
	server *httptest.Server
	random *mocks.MockRandom
	clock  *mocks.MockClock
	rt     *router.Service
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	logger := testutil.NopLogger()
	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.clock = clk
	s.random = mocks.NewMockRandom()
	eventBus := bus.NewMemoryBus(bus.DefaultConfig(), clk)

	reg := registry.NewService(store, eventBus, clk, registry.DefaultConfig(), logger)
	parties := party.NewService(store, eventBus, clk, s.random, party.DefaultConfig(), logger)
	s.rt = router.NewService(eventBus, parties, reg, store, clk, router.DefaultConfig(), logger)
	profiles := profile.NewGateway(profile.NewMemoryStore(), store, clk, profile.DefaultConfig(), logger)
	bridge := proxy.NewBridge(s.rt, reg, router.PolicyLeastLoaded, logger)

	handler := NewRouter(RouterConfig{
		Logger:       logger,
		Bridge:       bridge,
		Registry:     reg,
		Router:       s.rt,
		PartyService: parties,
		Profiles:     profiles,
	})
	s.server = httptest.NewServer(handler)

	s.rt.Observe(model.HeartbeatPayload{
		ServerID: "lobby-1",
		Address:  "lobby-1.internal:25565",
		Capacity: 50,
		Health:   model.HealthHealthy,
	})
}

func (s *APISuite) TearDownTest() {
	s.server.Close()
}

func (s *APISuite) post(path string, body any) *http.Response {
	data, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(data))
	s.Require().NoError(err)
	return resp
}

func (s *APISuite) get(path string) *http.Response {
	resp, err := http.Get(s.server.URL + path)
	s.Require().NoError(err)
	return resp
}

func (s *APISuite) decode(resp *http.Response, target any) {
	defer func() { _ = resp.Body.Close() }()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(target))
}

func (s *APISuite) confirmArrival(player, server string) {
	resp := s.post("/api/v1/proxy/arrival", map[string]string{
		"player_id": player,
		"server_id": server,
	})
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestProxyConnect() {
	resp := s.post("/api/v1/proxy/connect", map[string]string{"player_id": "alice"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var dest model.ServerDescriptor
	s.decode(resp, &dest)
	s.Equal(model.ServerID("lobby-1"), dest.ID)
}

func (s *APISuite) TestProxyConnectMissingBody() {
	resp := s.post("/api/v1/proxy/connect", map[string]string{})
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestArrivalThenDebugSession() {
	s.confirmArrival("alice", "lobby-1")

	resp := s.get("/api/v1/debug/sessions/alice")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var session struct {
		model.PlayerSession
		Stale bool `json:"stale"`
	}
	s.decode(resp, &session)
	s.Equal(model.StatusActive, session.Status)
	s.Equal(model.ServerID("lobby-1"), session.ServerID)
	s.False(session.Stale)
}

func (s *APISuite) TestDebugSessionReportsStale() {
	s.confirmArrival("alice", "lobby-1")

	s.clock.Advance(registry.DefaultConfig().StalenessBound + time.Second)

	resp := s.get("/api/v1/debug/sessions/alice")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var session struct {
		model.PlayerSession
		Stale bool `json:"stale"`
	}
	s.decode(resp, &session)
	s.True(session.Stale)
}

func (s *APISuite) TestDebugSessionNotFound() {
	resp := s.get("/api/v1/debug/sessions/ghost")
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestDuplicateArrivalConflict() {
	s.confirmArrival("alice", "lobby-1")

	resp := s.post("/api/v1/proxy/arrival", map[string]string{
		"player_id": "alice",
		"server_id": "lobby-2",
	})
	s.Require().Equal(http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestPartyFlow() {
	s.random.QueueString("PARTY001")

	resp := s.post("/api/v1/parties/invite", map[string]string{
		"leader_id": "alice",
		"target_id": "bob",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var p model.PartyState
	s.decode(resp, &p)
	s.Equal(model.PartyID("PARTY001"), p.ID)

	resp = s.post("/api/v1/parties/accept", map[string]string{
		"player_id": "bob",
		"party_id":  string(p.ID),
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &p)
	s.Len(p.Members, 2)

	resp = s.get(fmt.Sprintf("/api/v1/parties/%s", p.ID))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &p)
	s.Len(p.Members, 2)

	resp = s.post("/api/v1/parties/leave", map[string]string{"player_id": "bob"})
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestAcceptWithoutInviteForbidden() {
	s.random.QueueString("PARTY001")
	resp := s.post("/api/v1/parties/invite", map[string]string{
		"leader_id": "alice",
		"target_id": "bob",
	})
	var p model.PartyState
	s.decode(resp, &p)

	// Carol was never invited
	resp = s.post("/api/v1/parties/accept", map[string]string{
		"player_id": "carol",
		"party_id":  string(p.ID),
	})
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestProfilePutAndGet() {
	resp := s.post("/api/v1/proxy/connect", map[string]string{"player_id": "alice"})
	_ = resp.Body.Close()

	req, err := http.NewRequest(http.MethodPut, s.server.URL+"/api/v1/profiles/alice",
		bytes.NewReader([]byte(`{"display_name":"Alice","stats":{"wins":2}}`)))
	s.Require().NoError(err)
	resp, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var p model.PlayerProfile
	s.decode(resp, &p)
	s.Equal(int64(1), p.Version)

	resp = s.get("/api/v1/profiles/alice")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &p)
	s.Equal("Alice", p.DisplayName)
}

func (s *APISuite) TestProfileStaleWriteConflict() {
	req, err := http.NewRequest(http.MethodPut, s.server.URL+"/api/v1/profiles/alice",
		bytes.NewReader([]byte(`{"display_name":"Alice"}`)))
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Writing again without carrying the new version is stale
	req, err = http.NewRequest(http.MethodPut, s.server.URL+"/api/v1/profiles/alice",
		bytes.NewReader([]byte(`{"display_name":"Imposter"}`)))
	s.Require().NoError(err)
	resp, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *APISuite) TestDebugServers() {
	resp := s.get("/api/v1/debug/servers")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var servers []model.ServerDescriptor
	s.decode(resp, &servers)
	s.Require().Len(servers, 1)
	s.Equal(model.ServerID("lobby-1"), servers[0].ID)
}

func (s *APISuite) TestHealth() {
	resp := s.get("/api/v1/health")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	s.decode(resp, &health)
	s.Equal("ok", health.Status)
}
