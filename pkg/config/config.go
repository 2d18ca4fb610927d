// Package config loads folio's configuration from a TOML file, a .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultListenAddr      = ":8080"
	DefaultServerURL       = "http://localhost:8080"
	DefaultRevealInterval  = 30 * time.Millisecond
	DefaultTranscriptLimit = 100

	StrategyLive   = "live"
	StrategyCanned = "canned"
)

// Environment variables that override file values.
const (
	EnvBackendURL       = "FOLIO_BACKEND_URL"
	EnvBackendURLCompat = "BACKEND_URL"
	EnvListenAddr       = "FOLIO_LISTEN"
	EnvServerURL        = "FOLIO_SERVER_URL"
)

// Config is the full folio configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Chat    ChatConfig    `toml:"chat"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig configures the proxy listener.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Listen string `toml:"listen"`

	// Transcript keeps answered exchanges in memory and serves them under
	// /transcript. Off unless set; anyone who can reach the server can read
	// them.
	Transcript bool `toml:"transcript"`

	// TranscriptLimit caps how many exchanges are kept.
	TranscriptLimit int `toml:"transcript_limit"`
}

// BackendConfig configures where and how questions get answered.
type BackendConfig struct {
	// URL is the base address of the question-answering backend. Empty is
	// allowed at load time; every chat request then fails with a
	// configuration error.
	URL string `toml:"url"`

	// Strategy is "live" (forward to URL) or "canned" (fixed replies).
	Strategy string `toml:"strategy"`

	// Canned overrides the built-in canned replies.
	Canned []string `toml:"canned"`
}

// ChatConfig configures the terminal client.
type ChatConfig struct {
	// ServerURL is the folio proxy the client talks to.
	ServerURL string `toml:"server_url"`

	// RevealInterval is the delay between typewriter reveals.
	RevealInterval time.Duration `toml:"reveal_interval"`

	// Greeting replaces the seeded assistant message.
	Greeting string `toml:"greeting"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:  ServerConfig{Listen: DefaultListenAddr, TranscriptLimit: DefaultTranscriptLimit},
		Backend: BackendConfig{Strategy: StrategyLive},
		Chat: ChatConfig{
			ServerURL:      DefaultServerURL,
			RevealInterval: DefaultRevealInterval,
		},
	}
}

// Load reads path (optional) on top of the defaults, then applies .env and
// environment overrides. A missing file at an explicit path is an error; a
// missing .env is not.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that can be checked without network access.
func (c Config) Validate() error {
	switch c.Backend.Strategy {
	case StrategyLive, StrategyCanned:
	default:
		return fmt.Errorf("unknown backend strategy %q", c.Backend.Strategy)
	}
	if c.Server.TranscriptLimit < 0 {
		return fmt.Errorf("transcript limit must not be negative, got %d", c.Server.TranscriptLimit)
	}
	if c.Chat.RevealInterval < 0 {
		return fmt.Errorf("reveal interval must not be negative, got %s", c.Chat.RevealInterval)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBackendURLCompat); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv(EnvBackendURL); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.Chat.ServerURL = v
	}
}
