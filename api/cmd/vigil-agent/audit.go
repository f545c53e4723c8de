package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/irgordon/vigil/api/internal/config"
)

func newAuditCmd(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the resolved configuration for deployment posture problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, *flags)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "❌ FAIL:", err)
				return err
			}
			if !auditPosture(cmd.OutOrStdout(), cfg, os.Geteuid()) {
				return fmt.Errorf("posture audit failed")
			}
			return nil
		},
	}
}

// auditPosture prints one line per check and reports whether every hard
// check passed. Notices never fail the audit.
func auditPosture(w io.Writer, cfg *config.Config, euid int) bool {
	fmt.Fprintln(w, "🔍 Vigil Agent: Running Posture Audit...")
	ok := true

	// --- Audit Point 1: CORS Exposure ---
	if slices.Contains(cfg.AllowedOrigins, "*") {
		if cfg.Environment == "production" {
			fmt.Fprintln(w, "❌ FAIL: VIGIL_CORS_ORIGINS must not contain '*' in production.")
			ok = false
		} else {
			fmt.Fprintln(w, "⚠️  NOTICE: wildcard CORS origin allowed outside production.")
		}
	} else {
		fmt.Fprintln(w, "✅ PASS: CORS origins are explicit.")
	}

	// --- Audit Point 2: Privileged Ports ---
	for _, p := range []struct {
		name string
		port int
	}{{"api", cfg.APIPort}, {"orchestrator", cfg.OrchestratorPort}} {
		if p.port < 1024 && euid != 0 {
			fmt.Fprintf(w, "❌ FAIL: %s port %d is privileged and the agent is not running as root.\n", p.name, p.port)
			ok = false
		}
	}

	// --- Audit Point 3: Root Execution ---
	if euid == 0 {
		fmt.Fprintln(w, "⚠️  NOTICE: running as root; prefer a dedicated unprivileged user.")
	}

	// --- Audit Point 4: Disk Probe Target ---
	if info, err := os.Stat(cfg.DiskPath); err != nil || !info.IsDir() {
		fmt.Fprintf(w, "❌ FAIL: disk path %q is not a readable directory.\n", cfg.DiskPath)
		ok = false
	} else {
		fmt.Fprintln(w, "✅ PASS: disk probe target exists.")
	}

	fmt.Fprintln(w, "--------------------------------------------------")
	if ok {
		fmt.Fprintln(w, "🚀 VERDICT: POSTURE VALIDATED.")
	} else {
		fmt.Fprintln(w, "🚨 VERDICT: POSTURE FAILED.")
	}
	return ok
}
