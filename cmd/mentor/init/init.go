// Package initcmder provides the init command for initializing a local .mentor
// directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/config"
)

const (
	dirName = ".mentor"

	fetchTimeout = 15 * time.Second
)

const initLongDesc string = `Initialize a new .mentor/ directory in the current working directory.

Creates a local .mentor/ directory that takes precedence over the default
~/.mentor/ directory for configuration, saved chat sessions and the SQLite
database.

A config.toml with defaults is written on first init. Use --preset to start
from a storage preset (memory, sqlite, postgres) or from a config.toml served
at an http(s) URL; a preset overwrites any existing config.toml.

Examples:
  mentor init
  mentor init --preset sqlite
  mentor init --preset https://example.com/mentor/config.toml`

const initShortDesc string = "Initialize a local .mentor/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func runInit(ctx context.Context, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .mentor directory: %w", err)
		}
	}

	cfg, err := resolvePreset(ctx, preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(cfger.GetTarget())
	if preset != "" || os.IsNotExist(statErr) {
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if existed {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	fmt.Printf("Initialized .mentor directory: %s\n", dir)
	return nil
}

// resolvePreset returns the config for a preset name or URL. An empty
// preset yields the defaults.
func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	switch {
	case preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(preset, "http://"), strings.HasPrefix(preset, "https://"):
		return fetchRemoteConfig(ctx, preset)
	default:
		return config.PresetConfig(preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
