package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
)

const setLongDesc string = `Write a key to .mentor/config.toml, creating the file if needed.

The value is checked before anything is written: numbers must be
non-negative integers, storage.driver must be memory, sqlite or postgres and
authz.cache_ttl must be a duration such as 90s or 5m.

A running "mentor serve" picks up api.history_limit immediately. Every other
key applies the next time the server starts.

Examples:
  mentor config set storage.driver postgres
  mentor config set storage.postgres_dsn postgres://localhost:5432/mentor
  mentor config set authz.cache_ttl 2m`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Write one configuration value",
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd, args[0], args[1], configDir)
		},
	}
}

func runSet(cmd *cobra.Command, key, value, configDir string) error {
	cfger, err := openConfig(key, configDir)
	if err != nil {
		return err
	}

	previous, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printTarget(out, cfger)

	was := "<not set>"
	if previous != "" {
		was = display(key, previous)
	}
	fmt.Fprintf(out, "  %s %s  %s → %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.DimStyle.Render(was),
		cliui.ValueStyle.Render(display(key, value)),
	)

	if config.IsLiveKey(key) {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("A running mentor serve applies this immediately."))
	} else {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Restart mentor serve to apply."))
	}
	return nil
}
