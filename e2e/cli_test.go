package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythichub/nexus/internal/api"
	"github.com/mythichub/nexus/internal/config"
	"github.com/mythichub/nexus/internal/factory"
	"github.com/mythichub/nexus/internal/model"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "hubctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/hubctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real hub process for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := &config.Config{
		StorageType: factory.BackendMemory,
		BusType:     factory.BackendMemory,
		SQLitePath:  "", // in-memory profile store
	}
	app, err := factory.New(cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go app.Router.RunHeartbeatWatcher(ctx)
	go app.PartyService.RunPresenceWatcher(ctx)

	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:       logger,
		Bridge:       app.Bridge,
		Registry:     app.Registry,
		Router:       app.Router,
		PartyService: app.PartyService,
		Profiles:     app.Profiles,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: apiRouter,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type sessionResponse struct {
	PlayerID string `json:"player_id"`
	ServerID string `json:"server_id"`
	Status   string `json:"status"`
}

type partyResponse struct {
	ID       string `json:"id"`
	LeaderID string `json:"leader_id"`
	Members  []struct {
		PlayerID string `json:"player_id"`
	} `json:"members"`
}

type serverResponse struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"player_count"`
	Capacity    int    `json:"capacity"`
	Health      string `json:"health"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func TestCLI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	srv := startTestServer(t)
	defer srv.shutdown()
	cli := newCLIRunner(t, srv.addr)

	// Seed the fleet view directly; in production these arrive as
	// heartbeat events from the game servers
	srv.app.Router.Observe(model.HeartbeatPayload{
		ServerID:    "lobby-1",
		Address:     "lobby-1.internal:25565",
		PlayerCount: 3,
		Capacity:    50,
		Health:      model.HealthHealthy,
	})

	t.Run("health", func(t *testing.T) {
		output, err := cli.run("health")
		require.NoError(t, err, "output: %s", output)

		var health healthResponse
		require.NoError(t, json.Unmarshal([]byte(output), &health))
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("servers", func(t *testing.T) {
		output, err := cli.run("servers")
		require.NoError(t, err, "output: %s", output)

		var servers []serverResponse
		require.NoError(t, json.Unmarshal([]byte(output), &servers))
		require.Len(t, servers, 1)
		assert.Equal(t, "lobby-1", servers[0].ID)
		assert.Equal(t, "healthy", servers[0].Health)
	})

	t.Run("session lifecycle", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, srv.app.Bridge.ConfirmArrival(ctx, "alice", "lobby-1"))

		output, err := cli.run("session", "get", "alice")
		require.NoError(t, err, "output: %s", output)

		var session sessionResponse
		require.NoError(t, json.Unmarshal([]byte(output), &session))
		assert.Equal(t, "alice", session.PlayerID)
		assert.Equal(t, "lobby-1", session.ServerID)
		assert.Equal(t, "active", session.Status)

		output, err = cli.run("session", "list")
		require.NoError(t, err, "output: %s", output)

		var sessions []sessionResponse
		require.NoError(t, json.Unmarshal([]byte(output), &sessions))
		assert.Len(t, sessions, 1)
	})

	t.Run("session not found", func(t *testing.T) {
		output, err := cli.run("session", "get", "nobody")
		require.Error(t, err)
		assert.Contains(t, output, "session")
	})

	t.Run("party lifecycle", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, srv.app.Bridge.ConfirmArrival(ctx, "bob", "lobby-1"))

		output, err := cli.run("party", "invite", "alice", "bob")
		require.NoError(t, err, "output: %s", output)

		var party partyResponse
		require.NoError(t, json.Unmarshal([]byte(output), &party))
		require.NotEmpty(t, party.ID)
		assert.Equal(t, "alice", party.LeaderID)

		output, err = cli.run("party", "accept", "bob", party.ID)
		require.NoError(t, err, "output: %s", output)

		require.NoError(t, json.Unmarshal([]byte(output), &party))
		assert.Len(t, party.Members, 2)

		output, err = cli.run("party", "get", party.ID)
		require.NoError(t, err, "output: %s", output)

		require.NoError(t, json.Unmarshal([]byte(output), &party))
		assert.Len(t, party.Members, 2)

		output, err = cli.run("party", "leave", "bob")
		require.NoError(t, err, "output: %s", output)
		assert.True(t, strings.Contains(output, "Left party") || output == "")
	})
}
