package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// KeyHistoryLimit is the only key a running server applies without a restart.
const KeyHistoryLimit = "api.history_limit"

// IsLiveKey reports whether a change to key takes effect in a running server.
func IsLiveKey(key string) bool {
	return key == KeyHistoryLimit
}

// Watch observes the config file read by v and calls onChange with the
// re-resolved Config after every write. It returns false when v did not read
// a config file, in which case there is nothing to watch.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Info("config file changed", "path", e.Name, "op", e.Op.String())
		onChange(FromViper(v))
	})
	v.WatchConfig()

	return true
}

// Diff returns the dotted keys whose values differ between a and b.
func Diff(a, b *Config) []string {
	var changed []string
	for _, key := range ValidConfigKeys() {
		info := configKeys[key]
		if info.get(a) != info.get(b) {
			changed = append(changed, key)
		}
	}
	return changed
}
