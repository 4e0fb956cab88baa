// Package logger provides opinionated logging capabilities for the mentor system.
// Every component receives a *slog.Logger; the handler behind it is chosen here.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer

	component string
	prefix    string
}

// New builds a *slog.Logger from the given options. The default is a text
// handler writing Info and above to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stdout
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	l := slog.New(c.handler(w))
	if c.component != "" {
		l = l.With("component", c.component)
	}
	return l
}

func (c *config) handler(w io.Writer) slog.Handler {
	switch {
	case c.pretty:
		level := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			Prefix:          c.prefix,
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
	case c.json:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
