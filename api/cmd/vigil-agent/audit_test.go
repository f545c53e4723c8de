package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irgordon/vigil/api/internal/config"
)

func TestAuditPosture(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		euid   int
		wantOK bool
		want   string
	}{
		{
			name:   "defaults pass for unprivileged user",
			mutate: func(*config.Config) {},
			euid:   1000,
			wantOK: true,
			want:   "POSTURE VALIDATED",
		},
		{
			name: "wildcard origin fails in production",
			mutate: func(c *config.Config) {
				c.Environment = "production"
				c.AllowedOrigins = []string{"*"}
			},
			euid:   1000,
			wantOK: false,
			want:   "must not contain '*'",
		},
		{
			name:   "wildcard origin is only a notice in development",
			mutate: func(c *config.Config) { c.AllowedOrigins = []string{"*"} },
			euid:   1000,
			wantOK: true,
			want:   "NOTICE: wildcard",
		},
		{
			name:   "privileged port without root",
			mutate: func(c *config.Config) { c.APIPort = 80 },
			euid:   1000,
			wantOK: false,
			want:   "api port 80 is privileged",
		},
		{
			name:   "privileged port as root",
			mutate: func(c *config.Config) { c.APIPort = 80 },
			euid:   0,
			wantOK: true,
			want:   "running as root",
		},
		{
			name:   "missing disk path",
			mutate: func(c *config.Config) { c.DiskPath = "/definitely/not/here" },
			euid:   1000,
			wantOK: false,
			want:   "is not a readable directory",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.DiskPath = t.TempDir()
			tc.mutate(cfg)

			var out bytes.Buffer
			ok := auditPosture(&out, cfg, tc.euid)

			assert.Equal(t, tc.wantOK, ok)
			assert.Contains(t, out.String(), tc.want)
		})
	}
}
