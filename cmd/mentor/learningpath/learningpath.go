// Package learningpathcmder provides the learning-path command rendering a
// mentor learning path in the terminal.
package learningpathcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/learningpath"
	"github.com/papercomputeco/mentor/pkg/utils"
)

const maxNoteWidth = 72

const learningPathLongDesc string = `Parse a learning path written by the mentor and list its modules.

The input is the free text the mentor produces: module headers (MÓDULO 1 – ...
or lines starting with 🔹🔸🔷🔶), "Foco:" lines, course names with an optional
"➤" note and course links. Pass "-" to read from stdin.

Examples:
  mentor learning-path trilha.txt
  pbpaste | mentor learning-path - --json`

const learningPathShortDesc string = "Parse and show a learning path"

func NewLearningPathCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "learning-path <file>",
		Short: learningPathShortDesc,
		Long:  learningPathLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			modules := learningpath.Parse(text)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if modules == nil {
					modules = []learningpath.Module{}
				}
				return enc.Encode(modules)
			}

			render(cmd.OutOrStdout(), modules)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the parsed modules as JSON")

	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading learning path: %w", err)
	}
	return string(data), nil
}

func render(w io.Writer, modules []learningpath.Module) {
	if len(modules) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No modules found."))
		return
	}

	fmt.Fprintln(w)
	for i, m := range modules {
		fmt.Fprintf(w, "  %s %s\n", m.Emoji, cliui.TitleStyle.Render(fmt.Sprintf("%d. %s", i+1, m.Title)))
		if m.Focus != "" {
			fmt.Fprintf(w, "     %s %s\n", cliui.KeyStyle.Render("Foco:"), m.Focus)
		}

		for _, course := range m.Courses {
			line := "     • " + cliui.NameStyle.Render(course.Name)
			if course.Note != "" {
				line += " " + cliui.DimStyle.Render("➤ "+utils.Truncate(course.Note, maxNoteWidth))
			}
			fmt.Fprintln(w, line)
			if course.URL != "" {
				fmt.Fprintf(w, "       %s\n", cliui.LinkStyle.Render(course.URL))
			}
		}
		fmt.Fprintln(w)
	}

	total := 0
	for _, m := range modules {
		total += len(m.Courses)
	}
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d modules, %d courses", len(modules), total)))
}
