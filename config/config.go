// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (e.g., Twitch chat), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/onnwee/chat-replay/archive"
)

// DefaultHTTPAddr is the API listen address when HTTP_ADDR is unset.
const DefaultHTTPAddr = ":8080"

type Config struct {
	// Twitch chat
	TwitchChannel     string
	TwitchBotUsername string
	TwitchOAuthToken  string

	// Twitch Helix (archive import)
	TwitchClientID     string
	TwitchClientSecret string

	// Database
	DBDsn string

	// Redis transcript cache; empty disables caching.
	RedisURL string
	CacheTTL time.Duration

	// Chat included around each broadcast.
	BeforeBuffer time.Duration
	AfterBuffer  time.Duration

	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are missing;
// use ValidateChatReady() when you require chat recording. Missing optional variables disable features (e.g., import).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = strings.ToLower(strings.TrimPrefix(os.Getenv("TWITCH_CHANNEL"), "#"))
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	// DB; empty falls back to db.DefaultDSN
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.RedisURL = os.Getenv("REDIS_URL")

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", archive.DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.BeforeBuffer, err = durationEnv("ARCHIVE_BEFORE_BUFFER", archive.DefaultBeforeBuffer); err != nil {
		return nil, err
	}
	if cfg.AfterBuffer, err = durationEnv("ARCHIVE_AFTER_BUFFER", archive.DefaultAfterBuffer); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (duration like 15m): %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", name, d)
	}
	return d, nil
}

// ValidateChatReady checks the fields the chat recorder needs. The bot login is
// optional; without it the recorder joins anonymously.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL")
	}
	if (c.TwitchBotUsername == "") != (c.TwitchOAuthToken == "") {
		return fmt.Errorf("missing twitch env: TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN must be set together")
	}
	return nil
}

// ValidateImportReady checks the Helix credentials needed to import archives.
func (c *Config) ValidateImportReady() error {
	if c.TwitchClientID == "" || c.TwitchClientSecret == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET")
	}
	return nil
}
