// Package config loads the single TOML configuration file that supplies
// the bot token, webhook settings, cache timeout, and the sudo/support
// user-id sets named in the platform-contract section of the spec.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the process-wide configuration, parsed once at startup.
type Config struct {
	Bot      BotConfig      `toml:"bot"`
	Webhook  WebhookConfig  `toml:"webhook"`
	Cache    CacheConfig    `toml:"cache"`
	Store    StoreConfig    `toml:"store"`
	Elevated ElevatedConfig `toml:"elevated"`
}

// BotConfig holds the bot identity.
type BotConfig struct {
	Token string `toml:"token"`
}

// WebhookConfig controls ingress mode.
type WebhookConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Listen  string `toml:"listen_addr"`
}

// CacheConfig controls the KV substrate.
type CacheConfig struct {
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	TimeoutSecond int    `toml:"timeout_seconds"`
}

// StoreConfig controls the durable store.
type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "postgres"
	DSN    string `toml:"dsn"`
}

// ElevatedConfig names the bot-wide elevated user classes (spec.md §4.5.2).
type ElevatedConfig struct {
	Sudo    []int64 `toml:"sudo"`
	Support []int64 `toml:"support"`
}

// Load parses path as TOML into a Config, applying defaults for any field
// the file omits.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", path)
	}
	cfg.applyDefaults()
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	return &cfg, nil
}

// LoadBytes parses raw TOML bytes, primarily for tests.
func LoadBytes(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.TimeoutSecond <= 0 {
		c.Cache.TimeoutSecond = 300
	}
	if c.Cache.Addr == "" {
		c.Cache.Addr = "127.0.0.1:6379"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.DSN == "" {
		c.Store.DSN = "modbot.db"
	}
	if c.Webhook.Listen == "" {
		c.Webhook.Listen = "0.0.0.0:8080"
	}
}

// IsSudo reports whether userID belongs to the Sudo elevated class.
func (c *Config) IsSudo(userID int64) bool {
	return contains(c.Elevated.Sudo, userID)
}

// IsSupport reports whether userID belongs to the Support elevated class.
func (c *Config) IsSupport(userID int64) bool {
	return contains(c.Elevated.Support, userID)
}

func contains(set []int64, id int64) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// MustExist is a small startup guard used by cmd/modbot before attempting
// to read a config file, so a missing path fails with a clear message
// rather than an opaque TOML decode error.
func MustExist(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "config file %s", path)
	}
	return nil
}
