package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const defaultServer = "http://localhost:8080"

// Config is read from ~/.config/chat-replay/config.toml.
type Config struct {
	Server string `toml:"server"`
	// Channel filters list when no --channel flag is given.
	Channel string `toml:"channel"`
	// Paused opens watch with playback stopped.
	Paused bool `toml:"paused"`
}

// LoadConfig reads ~/.config/chat-replay/config.toml over the defaults; a
// missing file is not an error. CHAT_REPLAY_SERVER overrides the server.
func LoadConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfigFile(filepath.Join(home, ".config", "chat-replay", "config.toml"))
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("CHAT_REPLAY_SERVER"); v != "" {
		cfg.Server = v
	}
	return cfg, nil
}

// loadConfigFile applies path over the defaults; a missing file is not an error.
func loadConfigFile(path string) (*Config, error) {
	cfg := &Config{Server: defaultServer}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}
