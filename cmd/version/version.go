// Package versioncmder
package versioncmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/utils"
)

type versionCommander struct {
	json  bool
	short bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version, commit and build time of the mentor binary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print build information as JSON")
	cmd.Flags().BoolVar(&cmder.short, "short", false, "Print only the version")

	return cmd
}

func (c *versionCommander) run(cmd *cobra.Command) error {
	info := utils.Info()
	out := cmd.OutOrStdout()

	switch {
	case c.json:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case c.short:
		_, err := fmt.Fprintln(out, info.Version)
		return err
	default:
		_, err := fmt.Fprintf(out, "Version: %s\nSha: %s\nBuilt at: %s\n", info.Version, info.Sha, info.Buildtime)
		return err
	}
}
