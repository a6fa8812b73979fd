package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: "TradeQuest"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.Bitget.WSURL != "wss://ws.bitget.com/v2/ws/public" {
		t.Errorf("Unexpected default WS URL: %s", cfg.API.Bitget.WSURL)
	}
	if cfg.Feed.PingIntervalSec != 30 || cfg.Feed.ReadTimeoutSec != 35 {
		t.Errorf("Unexpected keepalive defaults: %d/%d", cfg.Feed.PingIntervalSec, cfg.Feed.ReadTimeoutSec)
	}
	if cfg.Feed.ReconnectDelaySec != 5 {
		t.Errorf("Expected 5s reconnect delay, got %d", cfg.Feed.ReconnectDelaySec)
	}
	if cfg.Feed.KeepaliveStyle != "json" {
		t.Errorf("Expected json keepalive default, got %s", cfg.Feed.KeepaliveStyle)
	}
	if cfg.Server.ListenAddr != ":5000" {
		t.Errorf("Unexpected listen addr default: %s", cfg.Server.ListenAddr)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
api:
  bitget:
    api_key: "from-file"
`)
	t.Setenv("TRADEQUEST_BITGET_KEY", "from-env")
	t.Setenv("TRADEQUEST_LISTEN_ADDR", ":9999")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Bitget.APIKey != "from-env" {
		t.Errorf("Expected env override, got %s", cfg.API.Bitget.APIKey)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Expected env listen addr, got %s", cfg.Server.ListenAddr)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad ws url", `
api:
  bitget:
    ws_url: "http://not-a-ws"
`},
		{"grace window below ping", `
feed:
  ping_interval_sec: 30
  read_timeout_sec: 10
`},
		{"unknown keepalive style", `
feed:
  keepalive_style: "morse"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
