package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/vigil/api/internal/config"
)

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	return srv.Listener.Addr().(*net.TCPAddr).Port
}

func TestCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("Healthy"))
	}))
	defer healthy.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedPort := serverPort(t, closed)
	closed.Close()

	assert.Equal(t, 0, check(serverPort(t, healthy)))
	assert.Equal(t, 1, check(serverPort(t, failing)))
	assert.Equal(t, 1, check(closedPort))
}

func TestCheck_FollowsPortFromConfigFile(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Healthy"))
	}))
	defer healthy.Close()
	port := serverPort(t, healthy)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	yaml := "api_port: 9001\norchestrator_port: " + strconv.Itoa(port) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("VIGIL_CONFIG", path)
	t.Setenv("VIGIL_ORCHESTRATOR_PORT", "")
	os.Unsetenv("VIGIL_ORCHESTRATOR_PORT")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, port, cfg.OrchestratorPort)
	assert.Equal(t, 0, check(cfg.OrchestratorPort))
}
