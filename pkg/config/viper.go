package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/mentor/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MENTOR_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MENTOR_UPSTREAM_URL, MENTOR_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MENTOR_UPSTREAM_API_KEY, MENTOR_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("MENTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("upstream.url", d.Upstream.URL)
	v.SetDefault("upstream.api_key", d.Upstream.APIKey)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.history_limit", d.API.HistoryLimit)

	v.SetDefault("events.kafka_brokers", d.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", d.Events.KafkaTopic)

	v.SetDefault("authz.cache_ttl", d.Authz.CacheTTL)

	v.SetDefault("workers.count", d.Workers.Count)
	v.SetDefault("workers.queue_size", d.Workers.QueueSize)

	v.SetDefault("client.api_target", d.Client.APITarget)
}

// FromViper builds a Config from the resolved viper values, so flags, env
// and file all apply.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Upstream: UpstreamConfig{
			URL:    v.GetString("upstream.url"),
			APIKey: v.GetString("upstream.api_key"),
		},
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		API: APIConfig{
			Listen:       v.GetString("api.listen"),
			HistoryLimit: v.GetUint("api.history_limit"),
		},
		Events: EventsConfig{
			KafkaBrokers: v.GetString("events.kafka_brokers"),
			KafkaTopic:   v.GetString("events.kafka_topic"),
		},
		Authz: AuthzConfig{
			CacheTTL: v.GetString("authz.cache_ttl"),
		},
		Workers: WorkersConfig{
			Count:     v.GetUint("workers.count"),
			QueueSize: v.GetUint("workers.queue_size"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
	}
}

// Brokers splits the comma separated broker list, dropping blanks.
func (e EventsConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
