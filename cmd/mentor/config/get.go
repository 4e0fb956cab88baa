package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/cliui"
)

const getLongDesc string = `Print the value a key has in .mentor/config.toml.

Secrets (upstream.api_key, storage.postgres_dsn) are masked unless --reveal
is given. With --raw only the value is printed, which suits scripts:

  export MENTOR_UPSTREAM_URL=$(mentor config get --raw upstream.url)

Examples:
  mentor config get upstream.url
  mentor config get --reveal upstream.api_key`

type getCommander struct {
	raw    bool
	reveal bool
}

func newGetCmd() *cobra.Command {
	cmder := &getCommander{}

	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             "Print one configuration value",
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, args[0], configDir)
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print only the value")
	cmd.Flags().BoolVar(&cmder.reveal, "reveal", false, "Print secrets unmasked")

	return cmd
}

func (g *getCommander) run(cmd *cobra.Command, key, configDir string) error {
	cfger, err := openConfig(key, configDir)
	if err != nil {
		return err
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}
	if !g.reveal {
		value = display(key, value)
	}

	out := cmd.OutOrStdout()
	if g.raw {
		_, err = fmt.Fprintln(out, value)
		return err
	}

	printTarget(out, cfger)
	if value == "" {
		fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.DimStyle.Render("<not set>"))
		return nil
	}
	fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
	return nil
}
