// Package chatcmder provides the chat command for an interactive, streamed
// mentoring conversation.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/papercomputeco/mentor/pkg/chat"
	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
	"github.com/papercomputeco/mentor/pkg/dotdir"
	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/logger"
	"github.com/papercomputeco/mentor/pkg/remote"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("você> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("mentor> ")
)

type chatCommander struct {
	upstream  string
	apiKey    string
	apiTarget string
	context   string
	local     bool
	resume    bool
	markdown  bool
	configDir string
	debug     bool

	in       io.Reader
	out      io.Writer
	streamer chat.Streamer
	dirs     *dotdir.Manager
	logger   *slog.Logger
}

var chatFlags = []string{
	config.FlagUpstream,
	config.FlagAPIKey,
	config.FlagAPITarget,
}

const chatLongDesc string = `Start an interactive mentoring chat.

Replies are streamed as they are generated. By default the chat talks to the
upstream chat function directly; with --local it goes through a running
"mentor serve" at --api-target.

The conversation is saved in the .mentor/ directory after every reply and
--resume continues it. Inside the chat:
  /context <cv|linkedin|interview|general>   switch the mentoring area
  /reset                                      start over
  /exit                                       quit (Ctrl+D works too)

Examples:
  mentor chat --context linkedin
  mentor chat --local --resume
  mentor chat --markdown`

const chatShortDesc string = "Interactive streamed mentoring chat"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}
	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			var err error
			v, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cfg := config.FromViper(v)
			cmder.upstream = cfg.Upstream.URL
			cmder.apiKey = cfg.Upstream.APIKey
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.context, "context", "c", string(llm.ContextGeneral), "Mentoring area (cv, linkedin, interview, general)")
	cmd.Flags().BoolVar(&cmder.local, "local", false, "Chat through a running mentor API server")
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the saved conversation")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render replies as markdown once complete (terminal only)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.logger == nil {
		c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr), logger.WithComponent("chat"))
	}
	if c.dirs == nil {
		c.dirs = dotdir.NewManager()
	}
	if c.streamer == nil {
		s, err := c.newStreamer()
		if err != nil {
			return err
		}
		c.streamer = s
	}

	chatContext := llm.ParseContext(c.context)
	var history []llm.Message

	fmt.Fprintln(c.out)
	if c.resume {
		state, err := c.dirs.LoadSession(c.configDir)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		if state != nil {
			history = state.Messages
			chatContext = state.Context
			fmt.Fprintf(c.out, "  %s Resuming %s\n",
				cliui.SuccessMark,
				cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(history))),
			)
		}
	}
	if history == nil {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	session := chat.NewSession(c.streamer, chat.WithHistory(history), chat.WithContext(chatContext))

	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Context:"), cliui.NameStyle.Render(string(chatContext)))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/exit":
			fmt.Fprintln(c.out)
			return nil
		case input == "/reset":
			session.Reset()
			if err := c.dirs.ClearSession(c.configDir); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		case strings.HasPrefix(input, "/context"):
			next := llm.ParseContext(strings.TrimSpace(strings.TrimPrefix(input, "/context")))
			session = chat.NewSession(c.streamer, chat.WithHistory(session.Messages()), chat.WithContext(next))
			fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Context:"), cliui.NameStyle.Render(string(next)))
			continue
		}

		if err := c.exchange(ctx, session, input); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(c.out, "\n  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		if err := c.dirs.SaveSession(&dotdir.SessionState{
			Context:  session.Context(),
			Messages: session.Messages(),
			SavedAt:  time.Now().UTC(),
		}, c.configDir); err != nil {
			c.logger.Warn("could not save session", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// exchange sends one message and prints the reply, streamed as it arrives
// or rendered as markdown once complete.
func (c *chatCommander) exchange(ctx context.Context, session *chat.Session, input string) error {
	width, rich := c.terminalWidth()
	if c.markdown && rich {
		var reply string
		err := cliui.Step(c.out, "thinking", func() error {
			var err error
			reply, err = session.Send(ctx, input, func(string) error { return nil })
			return err
		})
		if err != nil {
			return err
		}

		rendered, err := cliui.RenderMarkdownWidth(reply, width)
		if err != nil {
			c.logger.Debug("markdown render failed", "error", err)
		}
		fmt.Fprint(c.out, rendered)
		return nil
	}

	fmt.Fprint(c.out, assistantPrompt)
	_, err := session.Send(ctx, input, func(fragment string) error {
		_, err := io.WriteString(c.out, fragment)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprint(c.out, "\n\n")
	return nil
}

// terminalWidth reports the output width when writing to a terminal.
func (c *chatCommander) terminalWidth() (int, bool) {
	f, ok := c.out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return min(width, 120), true
}

func (c *chatCommander) newStreamer() (chat.Streamer, error) {
	cfg := chat.Config{Logger: c.logger}

	if c.local {
		rc, err := remote.New(remote.Config{BaseURL: c.apiTarget})
		if err != nil {
			return nil, fmt.Errorf("creating API client: %w", err)
		}
		cfg.Remote = rc
		cfg.Path = "/v1/chat"
		cfg.RequireDone = true
		c.logger.Debug("chatting through the mentor API", "api_target", c.apiTarget)
	} else {
		rc, err := remote.New(remote.Config{BaseURL: c.upstream, APIKey: c.apiKey})
		if err != nil {
			return nil, fmt.Errorf("creating upstream client: %w", err)
		}
		cfg.Remote = rc
		c.logger.Debug("chatting with the upstream", "upstream", c.upstream)
	}

	return chat.NewClient(cfg)
}
