package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the client runtime configuration. Zero fields fall back to the
// defaults from DefaultConfig.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	State   StateConfig   `yaml:"state"`
	Send    SendConfig    `yaml:"send"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type BackendConfig struct {
	// BaseURL is the HTTP origin of the support API.
	BaseURL string `yaml:"baseUrl"`
	// WSURL is the websocket origin for push events; empty derives it from
	// BaseURL.
	WSURL          string        `yaml:"wsUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	PollInterval   time.Duration `yaml:"pollInterval"`
}

type StateConfig struct {
	// Dir holds the persisted guest record; empty keeps guest state
	// in memory only.
	Dir string `yaml:"dir"`
	// PassphraseFile points at the secret that encrypts the guest record at
	// rest; empty stores it as plain JSON.
	PassphraseFile string `yaml:"passphraseFile"`
}

type SendConfig struct {
	// RatePerSecond and Burst pace outgoing messages per conversation.
	// A zero rate disables pacing.
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Burst         int     `yaml:"burst"`
}

type MetricsConfig struct {
	// Addr exposes a Prometheus endpoint when set, e.g. "127.0.0.1:9290".
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			RequestTimeout: 10 * time.Second,
			PollInterval:   5 * time.Second,
		},
		Send: SendConfig{
			RatePerSecond: 1,
			Burst:         3,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the config at path, or the first default candidate when path is
// empty, merges it over the defaults and applies environment overrides. A
// missing file is not an error; a present but malformed one is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if path != "" {
		candidates = append(candidates, path)
	} else {
		candidates = append(candidates,
			"configs/chat-client.yaml",
			"chat-client.yaml",
		)
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				return Config{}, fmt.Errorf("read config %s: %w", candidate, err)
			}
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", candidate, err)
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, cfg.validate()
}

func Merge(dst *Config, src Config) {
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.WSURL != "" {
		dst.Backend.WSURL = src.Backend.WSURL
	}
	if src.Backend.RequestTimeout != 0 {
		dst.Backend.RequestTimeout = src.Backend.RequestTimeout
	}
	if src.Backend.PollInterval != 0 {
		dst.Backend.PollInterval = src.Backend.PollInterval
	}
	if src.State.Dir != "" {
		dst.State.Dir = src.State.Dir
	}
	if src.State.PassphraseFile != "" {
		dst.State.PassphraseFile = src.State.PassphraseFile
	}
	if src.Send.RatePerSecond != 0 {
		dst.Send.RatePerSecond = src.Send.RatePerSecond
	}
	if src.Send.Burst != 0 {
		dst.Send.Burst = src.Send.Burst
	}
	if src.Metrics.Addr != "" {
		dst.Metrics.Addr = src.Metrics.Addr
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SHOPCHAT_BACKEND_URL")); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SHOPCHAT_WS_URL")); v != "" {
		cfg.Backend.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SHOPCHAT_STATE_DIR")); v != "" {
		cfg.State.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("SHOPCHAT_METRICS_ADDR")); v != "" {
		cfg.Metrics.Addr = v
	}
}

// WebsocketURL returns the push endpoint origin, deriving ws(s):// from the
// HTTP base when no explicit one is configured.
func (c Config) WebsocketURL() string {
	if c.Backend.WSURL != "" {
		return c.Backend.WSURL
	}
	base := c.Backend.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

func normalize(cfg *Config) {
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	cfg.Backend.WSURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.WSURL), "/")
	if cfg.Backend.RequestTimeout <= 0 {
		cfg.Backend.RequestTimeout = 10 * time.Second
	}
	if cfg.Backend.PollInterval < time.Second {
		cfg.Backend.PollInterval = 5 * time.Second
	}
	if cfg.Send.Burst <= 0 {
		cfg.Send.Burst = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (c Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("config: backend base url is required")
	}
	return nil
}
