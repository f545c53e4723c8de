package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/irgordon/vigil/api/internal/config"
)

var client = &http.Client{Timeout: 2 * time.Second}

// Container HEALTHCHECK probe against the control-plane heartbeat.
func main() {
	// Same layering as the agent: defaults, VIGIL_CONFIG YAML, .env, env.
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
	os.Exit(check(cfg.OrchestratorPort))
}

// check returns the container exit code for the heartbeat on port.
func check(port int) int {
	resp, err := client.Get("http://localhost:" + strconv.Itoa(port) + "/status")
	if err != nil {
		return 1 // Docker marks as UNHEALTHY
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0 // Docker marks as HEALTHY
}
