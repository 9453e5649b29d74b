package config

import (
	"os"
	"time"
)

// Default upstream corpus: the public iptv-org playlist mirror, one playlist
// per country plus a global index.
const defaultPlaylistBaseURL = "https://iptv-org.github.io/iptv"

// Config holds application configuration. Everything is optional: without a
// database the app uses a local file store, without Redis it skips caching.
type Config struct {
	ServerPort      string        `yaml:"server_port" env:"SERVER_PORT"`
	PlaylistBaseURL string        `yaml:"playlist_base_url" env:"PLAYLIST_BASE_URL"`
	UserAgent       string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout         time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	DefaultRegion   string        `yaml:"default_region" env:"DEFAULT_REGION"`
	DataDir         string        `yaml:"data_dir" env:"DATA_DIR"`
	RulesPath       string        `yaml:"rules_path" env:"RULES_PATH"`
	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL"`
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
}

// Load builds config from environment variables, falling back to .env.local
// and .env files from the working directory for anything unset.
func Load() (*Config, error) {
	loadEnvFiles()
	c := &Config{
		ServerPort:      os.Getenv("SERVER_PORT"),
		PlaylistBaseURL: os.Getenv("PLAYLIST_BASE_URL"),
		UserAgent:       os.Getenv("FETCHER_USER_AGENT"),
		DefaultRegion:   os.Getenv("DEFAULT_REGION"),
		DataDir:         os.Getenv("DATA_DIR"),
		RulesPath:       os.Getenv("RULES_PATH"),
		RedisURL:        os.Getenv("REDIS_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.PlaylistBaseURL == "" {
		c.PlaylistBaseURL = defaultPlaylistBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = "Tivy/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.DefaultRegion == "" {
		c.DefaultRegion = "IN"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}
