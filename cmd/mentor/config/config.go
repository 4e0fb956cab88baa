// Package configcmder provides the config command for managing persistent
// mentor configuration stored in the .mentor/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
)

const configLongDesc string = `Manage persistent mentor configuration.

Configuration is stored as config.toml in the .mentor/ directory and provides
default values for command flags. CLI flags and MENTOR_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  upstream.url, upstream.api_key,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  api.listen, api.history_limit,
  events.kafka_brokers, events.kafka_topic,
  authz.cache_ttl, workers.count, workers.queue_size,
  client.api_target

Use subcommands to get, set, or list configuration values:
  mentor config set <key> <value>    Set a configuration value
  mentor config get <key>            Get a configuration value
  mentor config list                 List all configuration values

Examples:
  mentor config set upstream.url https://abc.supabase.co
  mentor config set storage.driver sqlite
  mentor config get authz.cache_ttl
  mentor config list`

const configShortDesc string = "Manage persistent mentor configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// openConfig validates key and loads the configuration it belongs to.
func openConfig(key, configDir string) (*config.Configer, error) {
	if !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// display masks secret values, keeping their last four characters.
func display(key, value string) string {
	if value == "" || !config.IsSecretKey(key) {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
