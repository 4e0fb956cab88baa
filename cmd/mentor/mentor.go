// Package mentorcmder
package mentorcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/mentor/cmd/mentor/chat"
	configcmder "github.com/papercomputeco/mentor/cmd/mentor/config"
	initcmder "github.com/papercomputeco/mentor/cmd/mentor/init"
	learningpathcmder "github.com/papercomputeco/mentor/cmd/mentor/learningpath"
	servecmder "github.com/papercomputeco/mentor/cmd/mentor/serve"
	versioncmder "github.com/papercomputeco/mentor/cmd/version"
)

const mentorLongDesc string = `Mentor is the career mentoring backend and CLI.

Run the API server:
  mentor serve                     Serve chat, stages, roles and MCP

Work from the terminal:
  mentor chat                      Streamed mentoring chat
  mentor learning-path <file>      Show a mentor learning path

Manage settings:
  mentor init                      Create a local .mentor/ directory
  mentor config list               Show configuration`

const mentorShortDesc string = "Mentor - career mentoring backend"

func NewMentorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mentor",
		Short:         mentorShortDesc,
		Long:          mentorLongDesc,
		SilenceUsage:  true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mentor/ directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(learningpathcmder.NewLearningPathCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
