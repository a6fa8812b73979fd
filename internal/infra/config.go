package infra

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds all application settings. Secrets can be supplied through a
// .env file or plain environment variables, which override the yaml values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Bitget struct {
			WSURL       string `yaml:"ws_url"`
			RestURL     string `yaml:"rest_url"`
			APIKey      string `yaml:"api_key"`
			ProductType string `yaml:"product_type"`
		} `yaml:"bitget"`
	} `yaml:"api"`

	Feed struct {
		PingIntervalSec   int    `yaml:"ping_interval_sec"`
		ReadTimeoutSec    int    `yaml:"read_timeout_sec"`
		ReconnectDelaySec int    `yaml:"reconnect_delay_sec"`
		KeepaliveStyle    string `yaml:"keepalive_style"` // "json" or "text"
		InboxSize         int    `yaml:"inbox_size"`
	} `yaml:"feed"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Storage struct {
		Path string `yaml:"path"` // empty means the OS user config dir
	} `yaml:"storage"`

	Sync struct {
		Pairs bool `yaml:"pairs"`
		Icons bool `yaml:"icons"`
	} `yaml:"sync"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	// Secrets may live in a .env file next to the binary. A missing file is fine.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.Bitget.WSURL == "" {
		c.API.Bitget.WSURL = "wss://ws.bitget.com/v2/ws/public"
	}
	if c.API.Bitget.RestURL == "" {
		c.API.Bitget.RestURL = "https://api.bitget.com"
	}
	if c.API.Bitget.ProductType == "" {
		c.API.Bitget.ProductType = "USDT-FUTURES"
	}
	if c.Feed.PingIntervalSec == 0 {
		c.Feed.PingIntervalSec = 30
	}
	if c.Feed.ReadTimeoutSec == 0 {
		c.Feed.ReadTimeoutSec = 35
	}
	if c.Feed.ReconnectDelaySec == 0 {
		c.Feed.ReconnectDelaySec = 5
	}
	if c.Feed.KeepaliveStyle == "" {
		c.Feed.KeepaliveStyle = "json"
	}
	if c.Feed.InboxSize == 0 {
		c.Feed.InboxSize = 1024
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":5000"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !hasPrefix(c.API.Bitget.WSURL, "ws://") && !hasPrefix(c.API.Bitget.WSURL, "wss://") {
		return fmt.Errorf("invalid Bitget WS URL: %s", c.API.Bitget.WSURL)
	}
	if !hasPrefix(c.API.Bitget.RestURL, "http://") && !hasPrefix(c.API.Bitget.RestURL, "https://") {
		return fmt.Errorf("invalid Bitget REST URL: %s", c.API.Bitget.RestURL)
	}
	if c.Feed.PingIntervalSec <= 0 {
		return fmt.Errorf("ping interval must be positive")
	}
	if c.Feed.ReadTimeoutSec <= c.Feed.PingIntervalSec {
		return fmt.Errorf("read timeout must exceed the ping interval")
	}
	if c.Feed.KeepaliveStyle != "json" && c.Feed.KeepaliveStyle != "text" {
		return fmt.Errorf("unknown keepalive style: %s", c.Feed.KeepaliveStyle)
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over the file values.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("TRADEQUEST_BITGET_KEY"); key != "" {
		cfg.API.Bitget.APIKey = key
	}
	if url := os.Getenv("TRADEQUEST_BITGET_WS_URL"); url != "" {
		cfg.API.Bitget.WSURL = url
	}
	if addr := os.Getenv("TRADEQUEST_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if path := os.Getenv("TRADEQUEST_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}
