// Package config handles loading and validating Ganda configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for Ganda.
type Config struct {
	Workspace     string               `json:"workspace,omitempty" yaml:"workspace,omitempty"` // Workspace root. Default: ~/.ganda/workspace. Override: GANDA_WORKSPACE env var.
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"`     // nil = history persistence disabled (in-memory only).
	Sessions      SessionsConfig       `json:"sessions" yaml:"sessions"`
	Sysinfo       SysinfoConfig        `json:"sysinfo" yaml:"sysinfo"`
	Gateways      GatewaysConfig       `json:"gateways" yaml:"gateways"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
}

// StorageConfig configures the optional history persistence backend.
// When nil, command history lives only in session memory.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`                 // "sqlite" (default) or "postgres".
	Path   string `json:"path,omitempty" yaml:"path,omitempty"` // SQLite database file. Default: derived from workspace.
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`   // PostgreSQL DSN. Override: GANDA_DB_DSN env var.
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return "sqlite"
}

// SessionsConfig controls session lifecycle management.
type SessionsConfig struct {
	IdleTTLMinutes int    `json:"idle_ttl_minutes" yaml:"idle_ttl_minutes"` // Default: 30. Idle sessions older than this are evicted.
	MaxSessions    int    `json:"max_sessions" yaml:"max_sessions"`         // Default: 1000. Hard cap on live sessions.
	SweepSpec      string `json:"sweep_spec" yaml:"sweep_spec"`             // Cron spec for the eviction sweeper. Default: "@every 1m".
}

// IdleTTL returns the idle eviction threshold with a default of 30m.
func (s *SessionsConfig) IdleTTL() time.Duration {
	if s != nil && s.IdleTTLMinutes > 0 {
		return time.Duration(s.IdleTTLMinutes) * time.Minute
	}
	return 30 * time.Minute
}

// MaxCount returns the session cap with a default of 1000.
func (s *SessionsConfig) MaxCount() int {
	if s != nil && s.MaxSessions > 0 {
		return s.MaxSessions
	}
	return 1000
}

// Sweep returns the sweeper cron spec with a default of "@every 1m".
func (s *SessionsConfig) Sweep() string {
	if s != nil && s.SweepSpec != "" {
		return s.SweepSpec
	}
	return "@every 1m"
}

// SysinfoConfig tunes the system information commands.
type SysinfoConfig struct {
	ProcessLimit    int `json:"process_limit" yaml:"process_limit"`         // Max rows returned by ps. Default: 20.
	CPUSampleMillis int `json:"cpu_sample_millis" yaml:"cpu_sample_millis"` // CPU usage sampling window. Default: 500.
}

// Processes returns the ps row limit with a default of 20.
func (s *SysinfoConfig) Processes() int {
	if s != nil && s.ProcessLimit > 0 {
		return s.ProcessLimit
	}
	return 20
}

// CPUSample returns the CPU sampling window with a default of 500ms.
func (s *SysinfoConfig) CPUSample() time.Duration {
	if s != nil && s.CPUSampleMillis > 0 {
		return time.Duration(s.CPUSampleMillis) * time.Millisecond
	}
	return 500 * time.Millisecond
}

// ObservabilityConfig configures metrics and tracing.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// MetricsPath returns the exposition path with a default of "/metrics".
func (m *MetricsConfig) MetricsPath() string {
	if m != nil && m.Path != "" {
		return m.Path
	}
	return "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "ganda"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// GatewaysConfig defines which gateways are enabled and their settings.
// Nil pointers mean the gateway is not configured. If the entire section
// is absent, the CLI gateway is enabled by default.
type GatewaysConfig struct {
	CLI       *CLIGatewayConfig       `json:"cli,omitempty" yaml:"cli,omitempty"`
	HTTP      *HTTPGatewayConfig      `json:"http,omitempty" yaml:"http,omitempty"`
	WebSocket *WebSocketGatewayConfig `json:"websocket,omitempty" yaml:"websocket,omitempty"`
}

// CLIGatewayConfig configures the interactive terminal gateway.
type CLIGatewayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// HTTPGatewayConfig configures the HTTP API gateway.
type HTTPGatewayConfig struct {
	Enabled             bool              `json:"enabled" yaml:"enabled"`
	EnableDocs          bool              `json:"enable_docs" yaml:"enable_docs"`
	ListenAddr          string            `json:"listen_addr" yaml:"listen_addr"` // Default: ":8080".
	MaxRequestSizeBytes int64             `json:"max_request_size_bytes" yaml:"max_request_size_bytes"`
	APIKeys             map[string]string `json:"api_keys,omitempty" yaml:"api_keys,omitempty"` // API key → client label. Override: GANDA_API_KEYS env var.
	RateLimit           RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
}

// Addr returns the listen address with a default of ":8080".
func (h *HTTPGatewayConfig) Addr() string {
	if h != nil && h.ListenAddr != "" {
		return h.ListenAddr
	}
	return ":8080"
}

// WebSocketGatewayConfig configures the WebSocket terminal endpoint.
type WebSocketGatewayConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"` // Standalone listen address (when HTTP gateway is disabled). Default: ":8081".
	Path       string `json:"path" yaml:"path"`                                   // URL path for WebSocket endpoint. Default: "/ws/terminal".
	Token      string `json:"token" yaml:"token"`                                 // Shared auth token. Override: GANDA_WS_TOKEN env var.
}

// WSPath returns the WebSocket path with a default of "/ws/terminal".
func (w *WebSocketGatewayConfig) WSPath() string {
	if w != nil && w.Path != "" {
		return w.Path
	}
	return "/ws/terminal"
}

// WSAddr returns the standalone listen address with a default of ":8081".
func (w *WebSocketGatewayConfig) WSAddr() string {
	if w != nil && w.ListenAddr != "" {
		return w.ListenAddr
	}
	return ":8081"
}

// RateLimitConfig configures per-session rate limiting for a gateway.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

// Default returns a configuration with the CLI gateway enabled and
// everything else at built-in defaults.
func Default() *Config {
	return &Config{
		Gateways: GatewaysConfig{
			CLI: &CLIGatewayConfig{Enabled: true},
		},
	}
}

// DefaultConfigPath returns the default config file path (~/.ganda/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/ganda.yaml" // fallback for environments without a home dir
	}
	return filepath.Join(home, ".ganda", "config.yaml")
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything else for JSON.
// A missing file at the default path is not an error; built-in defaults apply.
// Tokens and the database DSN can be set in the config file or overridden by
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	// Expand ~ in config path.
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	cfg := Default()

	data, err := os.ReadFile(resolved)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	default:
		switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
			}
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
			}
		}
	}

	// Environment variable overrides — env vars take precedence over config values.
	if envWS := os.Getenv("GANDA_WORKSPACE"); envWS != "" {
		cfg.Workspace = envWS
	}
	if envDSN := os.Getenv("GANDA_DB_DSN"); envDSN != "" {
		if cfg.Storage == nil {
			cfg.Storage = &StorageConfig{Driver: "postgres"}
		}
		cfg.Storage.DSN = envDSN
	}
	if envTok := os.Getenv("GANDA_WS_TOKEN"); envTok != "" {
		if cfg.Gateways.WebSocket == nil {
			cfg.Gateways.WebSocket = &WebSocketGatewayConfig{}
		}
		cfg.Gateways.WebSocket.Token = envTok
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

func (c *Config) validate() error {
	if c.Storage != nil && c.Storage.Driver != "" {
		switch c.Storage.Driver {
		case "sqlite", "postgres":
			// valid
		default:
			return fmt.Errorf("storage.driver %q is not supported (use sqlite or postgres)", c.Storage.Driver)
		}
	}
	if c.Storage != nil && c.Storage.StorageDriver() == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the postgres driver (set GANDA_DB_DSN env var)")
	}
	if c.Sessions.IdleTTLMinutes < 0 {
		return fmt.Errorf("sessions.idle_ttl_minutes must not be negative")
	}
	if c.Sessions.MaxSessions < 0 {
		return fmt.Errorf("sessions.max_sessions must not be negative")
	}
	if c.Sysinfo.ProcessLimit < 0 {
		return fmt.Errorf("sysinfo.process_limit must not be negative")
	}
	if c.Gateways.HTTP != nil && c.Gateways.HTTP.MaxRequestSizeBytes < 0 {
		return fmt.Errorf("gateways.http.max_request_size_bytes must not be negative")
	}
	if rl := c.Gateways.HTTP; rl != nil {
		if rl.RateLimit.RequestsPerMinute < 0 || rl.RateLimit.BurstSize < 0 {
			return fmt.Errorf("gateways.http.rate_limit values must not be negative")
		}
	}
	if tr := c.TracingSettings(); tr != nil && tr.Enabled {
		if tr.SampleRate < 0 || tr.SampleRate > 1 {
			return fmt.Errorf("observability.tracing.sample_rate must be between 0 and 1")
		}
		switch tr.Protocol {
		case "", "grpc", "http":
			// valid
		default:
			return fmt.Errorf("observability.tracing.protocol %q is not supported (use grpc or http)", tr.Protocol)
		}
	}
	return nil
}

// TracingSettings returns the tracing section, or nil when observability is absent.
func (c *Config) TracingSettings() *TracingConfig {
	if c.Observability == nil {
		return nil
	}
	return c.Observability.Tracing
}

// MetricsSettings returns the metrics section, or nil when observability is absent.
func (c *Config) MetricsSettings() *MetricsConfig {
	if c.Observability == nil {
		return nil
	}
	return c.Observability.Metrics
}

// ResolvedWorkspace returns the workspace root, resolving ~ and applying
// the ~/.ganda/workspace default.
func (c *Config) ResolvedWorkspace() string {
	if c.Workspace == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "workspace"
		}
		return filepath.Join(home, ".ganda", "workspace")
	}
	resolved, err := resolvePath(c.Workspace)
	if err != nil {
		return c.Workspace
	}
	return resolved
}
