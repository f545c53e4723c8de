package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

const (
	DefaultAPIPort          = 9001
	DefaultOrchestratorPort = 3001
)

// Config holds all runtime configuration for the agent.
// Sources, lowest to highest precedence: defaults, YAML file, .env, process
// environment, CLI flags (applied by the command layer).
type Config struct {
	Environment      string   `yaml:"environment" validate:"oneof=development production"`
	BindAddress      string   `yaml:"bind_address" validate:"omitempty,ip"`
	APIPort          int      `yaml:"api_port" validate:"min=1,max=65535,nefield=OrchestratorPort"`
	OrchestratorPort int      `yaml:"orchestrator_port" validate:"min=1,max=65535"`
	AllowedOrigins   []string `yaml:"allowed_origins"`

	LogLevel      string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogBufferSize int    `yaml:"log_buffer_size" validate:"min=1,max=10000"`

	// 🛡️ SLA: Hardening knobs the bare HTTP contract does not mandate.
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	SaveRateLimit   float64       `yaml:"save_rate_limit" validate:"gt=0"`
	SaveBurst       int           `yaml:"save_burst" validate:"min=1"`
	DiskPath        string        `yaml:"disk_path" validate:"required"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Environment:      "development",
		BindAddress:      "0.0.0.0",
		APIPort:          DefaultAPIPort,
		OrchestratorPort: DefaultOrchestratorPort,
		LogLevel:         "info",
		LogBufferSize:    200,
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		SaveRateLimit:    5,
		SaveBurst:        20,
		DiskPath:         "/",
	}
}

// Load layers the YAML file at path (if any), a local .env file and the
// process environment on top of Default. The result is not yet validated:
// the CLI applies its flags first and then calls Validate.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("VIGIL_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("VIGIL_ENV", c.Environment)
	c.BindAddress = getEnv("VIGIL_BIND_ADDRESS", c.BindAddress)
	c.LogLevel = strings.ToLower(getEnv("VIGIL_LOG_LEVEL", c.LogLevel))
	c.DiskPath = getEnv("VIGIL_DISK_PATH", c.DiskPath)

	if origins := getEnv("VIGIL_CORS_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	var err error
	if c.APIPort, err = getEnvInt("VIGIL_API_PORT", c.APIPort); err != nil {
		return err
	}
	if c.OrchestratorPort, err = getEnvInt("VIGIL_ORCHESTRATOR_PORT", c.OrchestratorPort); err != nil {
		return err
	}
	if c.LogBufferSize, err = getEnvInt("VIGIL_LOG_BUFFER", c.LogBufferSize); err != nil {
		return err
	}
	if c.SaveBurst, err = getEnvInt("VIGIL_SAVE_BURST", c.SaveBurst); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("VIGIL_REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = getEnvDuration("VIGIL_SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.RefreshInterval, err = getEnvDuration("VIGIL_REFRESH_INTERVAL", c.RefreshInterval); err != nil {
		return err
	}
	if raw, ok := os.LookupEnv("VIGIL_SAVE_RATE_LIMIT"); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: VIGIL_SAVE_RATE_LIMIT: %v", domain.ErrInvalidConfig, err)
		}
		c.SaveRateLimit = v
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field policy.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	// 🛡️ Strict CORS: Must be explicitly defined in Production
	if c.Environment == "production" && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("%w: VIGIL_CORS_ORIGINS is required in production", domain.ErrInvalidConfig)
	}
	return nil
}

// APIAddr is the data-plane listen address.
func (c *Config) APIAddr() string {
	return joinHostPort(c.BindAddress, c.APIPort)
}

// OrchestratorAddr is the control-plane listen address.
func (c *Config) OrchestratorAddr() string {
	return joinHostPort(c.BindAddress, c.OrchestratorPort)
}

// SlogLevel maps LogLevel onto slog's levels; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func joinHostPort(host string, port int) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + strconv.Itoa(port)
	}
	return host + ":" + strconv.Itoa(port)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
