package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort      string `yaml:"server_port"`
	PlaylistBaseURL string `yaml:"playlist_base_url"`
	UserAgent       string `yaml:"user_agent"`
	Timeout         string `yaml:"timeout"`
	DefaultRegion   string `yaml:"default_region"`
	DataDir         string `yaml:"data_dir"`
	RulesPath       string `yaml:"rules_path"`
	RedisURL        string `yaml:"redis_url"`
	DatabaseURL     string `yaml:"database_url"`
}

// LoadFromFile loads config from a YAML file. Every field is optional;
// defaults match Load.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	c := &Config{
		ServerPort:      f.ServerPort,
		PlaylistBaseURL: f.PlaylistBaseURL,
		UserAgent:       f.UserAgent,
		DefaultRegion:   f.DefaultRegion,
		DataDir:         f.DataDir,
		RulesPath:       f.RulesPath,
		RedisURL:        f.RedisURL,
		DatabaseURL:     f.DatabaseURL,
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}
