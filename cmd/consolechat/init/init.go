// Package initcmder provides the init command for initializing a local
// .consolechat directory in the current working directory.
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

	"github.com/papercomputeco/consolechat/pkg/cliui"
	"github.com/papercomputeco/consolechat/pkg/config"
	"github.com/papercomputeco/consolechat/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .consolechat/ directory in the current working directory.

Creates a local .consolechat/ directory that takes precedence over
~/.consolechat/ for configuration and the saved chat session, and writes a
config.toml with default values.

--preset selects a platform preset (deepseek, tongyi, ollama) or an http(s)
URL serving a config.toml. Re-running init with --preset overwrites the
existing config.toml.

Examples:
  consolechat init
  consolechat init --preset ollama
  consolechat init --preset https://example.com/consolechat.toml`

const initShortDesc string = "Initialize a local .consolechat/ directory"

const remoteFetchTimeout = 30 * time.Second

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Platform preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(ctx context.Context, out io.Writer, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	configPath := filepath.Join(dir, "config.toml")

	_, statErr := os.Stat(dir)
	existed := statErr == nil

	var cfg *config.Config
	switch {
	case preset == "":
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "  %s Already initialized: %s\n", cliui.SuccessMark, dir)
			return nil
		}
		cfg = config.NewDefaultConfig()

	case strings.HasPrefix(preset, "http://"), strings.HasPrefix(preset, "https://"):
		cfg, err = fetchRemoteConfig(ctx, preset)
		if err != nil {
			return err
		}

	default:
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", dotdir.DirName, err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if existed {
		fmt.Fprintf(out, "  %s Updated config: %s\n", cliui.SuccessMark, configPath)
	} else {
		fmt.Fprintf(out, "  %s Initialized %s directory: %s\n", cliui.SuccessMark, dotdir.DirName, dir)
	}
	return nil
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
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

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
