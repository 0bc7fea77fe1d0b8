package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server ServerConfig `yaml:"server"`
	FastF1 FastF1Config `yaml:"fastf1"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type FastF1Config struct {
	// Base URL of the FastF1 bridge service
	BaseURL string `yaml:"base_url"`

	// Per-request timeout; session loads can be slow on cold provider caches
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// On-disk response cache
	CacheDir      string `yaml:"cache_dir"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
}

// Timeout returns the bridge request timeout as a duration.
func (c FastF1Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c FastF1Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	// Set defaults if not provided
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.FastF1.BaseURL == "" {
		config.FastF1.BaseURL = "http://localhost:8765"
	}

	if config.FastF1.TimeoutSeconds == 0 {
		config.FastF1.TimeoutSeconds = 120
	}

	if config.FastF1.CacheDir == "" {
		config.FastF1.CacheDir = "./fastf1_cache"
	}

	if config.FastF1.CacheTTLHours == 0 {
		config.FastF1.CacheTTLHours = 7 * 24
	}

	return config, nil
}
