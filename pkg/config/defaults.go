package config

const (
	defaultUpstreamURL = "http://127.0.0.1:54321"

	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	defaultStorageDriver = StorageMemory
	defaultAPIListen     = ":8081"
	defaultHistoryLimit  = 50

	defaultKafkaTopic = "mentor.events"

	defaultCacheTTL = "5m"

	defaultWorkerCount = 2
	defaultQueueSize   = 256

	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Upstream: UpstreamConfig{
			URL: defaultUpstreamURL,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen:       defaultAPIListen,
			HistoryLimit: defaultHistoryLimit,
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Authz: AuthzConfig{
			CacheTTL: defaultCacheTTL,
		},
		Workers: WorkersConfig{
			Count:     defaultWorkerCount,
			QueueSize: defaultQueueSize,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}

// IsValidStorageDriver reports whether name is a supported storage driver.
func IsValidStorageDriver(name string) bool {
	switch name {
	case StorageMemory, StorageSQLite, StoragePostgres:
		return true
	default:
		return false
	}
}
