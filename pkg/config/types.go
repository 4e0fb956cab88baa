package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent mentor configuration stored as config.toml
// in the .mentor/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Upstream UpstreamConfig `toml:"upstream"`
	Storage  StorageConfig  `toml:"storage"`
	API      APIConfig      `toml:"api"`
	Events   EventsConfig   `toml:"events"`
	Authz    AuthzConfig    `toml:"authz"`
	Workers  WorkersConfig  `toml:"workers"`
	Client   ClientConfig   `toml:"client"`
}

// UpstreamConfig points at the hosted backend serving the chat and
// generation functions and the has_role RPC.
type UpstreamConfig struct {
	URL    string `toml:"url,omitempty"`
	APIKey string `toml:"api_key,omitempty"`
}

// StorageConfig selects and configures the persistence driver.
// Driver is one of "memory", "sqlite" or "postgres".
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen       string `toml:"listen,omitempty"`
	HistoryLimit uint   `toml:"history_limit,omitempty"`
}

// EventsConfig holds domain event publishing settings. Events are dropped
// when no brokers are configured.
type EventsConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// AuthzConfig holds role check settings.
type AuthzConfig struct {
	CacheTTL string `toml:"cache_ttl,omitempty"`
}

// TTL parses CacheTTL. An empty value yields zero.
func (a AuthzConfig) TTL() (time.Duration, error) {
	if a.CacheTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(a.CacheTTL)
}

// WorkersConfig sizes the asynchronous transcript persistence pool.
type WorkersConfig struct {
	Count     uint `toml:"count,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// mentor API server (e.g. mentor chat --local).
// Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"upstream.url":     stringKey(func(c *Config) *string { return &c.Upstream.URL }),
	"upstream.api_key": stringKey(func(c *Config) *string { return &c.Upstream.APIKey }),
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			if !IsValidStorageDriver(v) {
				return fmt.Errorf("invalid value for storage.driver: %q (available: memory, sqlite, postgres)", v)
			}
			c.Storage.Driver = v
			return nil
		},
	},
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"api.listen":           stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.history_limit":    uintKey("api.history_limit", func(c *Config) *uint { return &c.API.HistoryLimit }),
	"events.kafka_brokers": stringKey(func(c *Config) *string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":   stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),
	"authz.cache_ttl": {
		get: func(c *Config) string { return c.Authz.CacheTTL },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for authz.cache_ttl: %w", err)
			}
			c.Authz.CacheTTL = v
			return nil
		},
	},
	"workers.count":      uintKey("workers.count", func(c *Config) *uint { return &c.Workers.Count }),
	"workers.queue_size": uintKey("workers.queue_size", func(c *Config) *uint { return &c.Workers.QueueSize }),
	"client.api_target":  stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// IsSecretKey reports whether key holds a credential that listings should mask.
func IsSecretKey(key string) bool {
	return key == "upstream.api_key" || key == "storage.postgres_dsn"
}
