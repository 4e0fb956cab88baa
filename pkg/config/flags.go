package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --upstream
// on both "mentor serve" and "mentor chat").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "upstream.url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagUpstream     = "upstream"
	FlagAPIKey       = "api-key"
	FlagListen       = "listen"
	FlagHistoryLimit = "history-limit"
	FlagStorage      = "storage"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
	FlagKafkaBrokers = "kafka-brokers"
	FlagKafkaTopic   = "kafka-topic"
	FlagRoleCacheTTL = "role-cache-ttl"
	FlagWorkers      = "workers"
	FlagQueueSize    = "queue-size"
	FlagAPITarget    = "api-target"
)

// Flags is the registry of every flag shared across mentor commands.
var Flags = FlagSet{
	FlagUpstream: {
		Name:        "upstream",
		Shorthand:   "u",
		ViperKey:    "upstream.url",
		Description: "Base URL of the hosted backend serving the mentor functions",
	},
	FlagAPIKey: {
		Name:        "api-key",
		ViperKey:    "upstream.api_key",
		Description: "Key sent as bearer token and apikey header to the upstream",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagHistoryLimit: {
		Name:        "history-limit",
		ViperKey:    "api.history_limit",
		Description: "Default number of transcript messages returned per request",
	},
	FlagStorage: {
		Name:        "storage",
		ViperKey:    "storage.driver",
		Description: "Storage driver (memory, sqlite, postgres)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "events.kafka_brokers",
		Description: "Comma separated Kafka brokers for domain events (empty disables publishing)",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.kafka_topic",
		Description: "Kafka topic for domain events",
	},
	FlagRoleCacheTTL: {
		Name:        "role-cache-ttl",
		ViperKey:    "authz.cache_ttl",
		Description: "How long role answers are cached (0 disables caching)",
	},
	FlagWorkers: {
		Name:        "workers",
		ViperKey:    "workers.count",
		Description: "Number of transcript persistence workers",
	},
	FlagQueueSize: {
		Name:        "queue-size",
		ViperKey:    "workers.queue_size",
		Description: "Capacity of the transcript persistence queue",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "Mentor API server URL",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
