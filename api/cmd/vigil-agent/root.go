package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/irgordon/vigil/api/internal/config"
)

type flagValues struct {
	configPath       string
	apiPort          int
	orchestratorPort int
}

// newRootCmd wires the CLI flags on top of the file/env configuration.
func newRootCmd() *cobra.Command {
	var flags flagValues

	cmd := &cobra.Command{
		Use:   "vigil-agent",
		Short: "Host health, metrics and heartbeat agent",
		Long: `vigil-agent exposes host health and Prometheus metrics on a data-plane
port and a liveness heartbeat on a separate control-plane port.

Data plane (--api-port, default 9001):
  GET  /api/health        liveness
  GET  /api/metrics       Prometheus text exposition
  GET  /api/sysinfo       current host snapshot (JSON)
  GET  /api/logs          recent agent log records (JSON)
  GET  /api/logs/stream   live log records (WebSocket)
  GET  /dashboard         configuration form
  POST /dashboard/save    submit name/value, refreshes the host snapshot

Control plane (--orchestrator-port, default 3001):
  GET  /status            liveness`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				fmt.Fprintln(os.Stderr, "vigil-agent:", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file (env: VIGIL_CONFIG)")
	f.IntVar(&flags.apiPort, "api-port", config.DefaultAPIPort, "Data-plane listen port (env: VIGIL_API_PORT)")
	f.IntVar(&flags.orchestratorPort, "orchestrator-port", config.DefaultOrchestratorPort, "Control-plane listen port (env: VIGIL_ORCHESTRATOR_PORT)")

	// Accept --api_port as well as --api-port.
	cmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	cmd.AddCommand(newAuditCmd(&flags))

	return cmd
}

// resolveConfig loads file/env configuration, lets explicitly set flags win,
// then validates the result.
func resolveConfig(cmd *cobra.Command, flags flagValues) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("api-port") {
		cfg.APIPort = flags.apiPort
	}
	if cmd.Flags().Changed("orchestrator-port") {
		cfg.OrchestratorPort = flags.orchestratorPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
