package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
workspace: /tmp/ganda-ws
storage:
  driver: sqlite
  path: /tmp/ganda.db
sessions:
  idle_ttl_minutes: 10
  max_sessions: 50
gateways:
  http:
    enabled: true
    listen_addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/tmp/ganda-ws" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if got := cfg.Storage.StorageDriver(); got != "sqlite" {
		t.Errorf("StorageDriver = %q, want sqlite", got)
	}
	if got := cfg.Sessions.IdleTTL(); got != 10*time.Minute {
		t.Errorf("IdleTTL = %v, want 10m", got)
	}
	if got := cfg.Sessions.MaxCount(); got != 50 {
		t.Errorf("MaxCount = %d, want 50", got)
	}
	if cfg.Gateways.HTTP == nil || !cfg.Gateways.HTTP.Enabled {
		t.Fatal("HTTP gateway not enabled")
	}
	if got := cfg.Gateways.HTTP.Addr(); got != ":9090" {
		t.Errorf("Addr = %q, want :9090", got)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "gateways": {"websocket": {"enabled": true, "token": "secret"}}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ws := cfg.Gateways.WebSocket
	if ws == nil || !ws.Enabled {
		t.Fatal("WebSocket gateway not enabled")
	}
	if ws.Token != "secret" {
		t.Errorf("Token = %q", ws.Token)
	}
	if got := ws.WSPath(); got != "/ws/terminal" {
		t.Errorf("WSPath = %q, want /ws/terminal", got)
	}
	if got := ws.WSAddr(); got != ":8081" {
		t.Errorf("WSAddr = %q, want :8081", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateways.CLI == nil || !cfg.Gateways.CLI.Enabled {
		t.Error("CLI gateway should be enabled by default")
	}
	if cfg.Storage != nil {
		t.Error("Storage should be nil by default")
	}
}

func TestDefaults(t *testing.T) {
	var sc SessionsConfig
	if got := sc.IdleTTL(); got != 30*time.Minute {
		t.Errorf("IdleTTL default = %v", got)
	}
	if got := sc.MaxCount(); got != 1000 {
		t.Errorf("MaxCount default = %d", got)
	}
	if got := sc.Sweep(); got != "@every 1m" {
		t.Errorf("Sweep default = %q", got)
	}

	var sy SysinfoConfig
	if got := sy.Processes(); got != 20 {
		t.Errorf("Processes default = %d", got)
	}
	if got := sy.CPUSample(); got != 500*time.Millisecond {
		t.Errorf("CPUSample default = %v", got)
	}

	var st *StorageConfig
	if got := st.StorageDriver(); got != "sqlite" {
		t.Errorf("StorageDriver on nil = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "bad driver",
			content: `{"storage": {"driver": "mysql"}}`,
			wantErr: true,
		},
		{
			name:    "postgres without dsn",
			content: `{"storage": {"driver": "postgres"}}`,
			wantErr: true,
		},
		{
			name:    "bad sample rate",
			content: `{"observability": {"tracing": {"enabled": true, "sample_rate": 2.0}}}`,
			wantErr: true,
		},
		{
			name:    "bad tracing protocol",
			content: `{"observability": {"tracing": {"enabled": true, "protocol": "udp"}}}`,
			wantErr: true,
		},
		{
			name:    "valid tracing",
			content: `{"observability": {"tracing": {"enabled": true, "endpoint": "localhost:4317", "sample_rate": 0.5}}}`,
			wantErr: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "c.json", tc.content)
			_, err := Load(path)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GANDA_WORKSPACE", "/custom/ws")
	t.Setenv("GANDA_DB_DSN", "postgres://u:p@localhost/ganda")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/custom/ws" {
		t.Errorf("Workspace = %q, want env override", cfg.Workspace)
	}
	if cfg.Storage == nil || cfg.Storage.DSN != "postgres://u:p@localhost/ganda" {
		t.Errorf("Storage DSN not taken from env: %+v", cfg.Storage)
	}
	if got := cfg.Storage.StorageDriver(); got != "postgres" {
		t.Errorf("StorageDriver = %q, want postgres", got)
	}
}
