// Package backend resolves the client flags shared by every command that
// talks to a running chat backend.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/consolechat/pkg/client"
	"github.com/papercomputeco/consolechat/pkg/config"
	"github.com/papercomputeco/consolechat/pkg/logger"
)

// Options are the resolved client settings.
type Options struct {
	APITarget   string
	Token       string
	Platform    string
	ContentPath string
	ConfigDir   string
	Debug       bool
}

var registryKeys = []string{
	config.FlagAPITarget,
	config.FlagToken,
	config.FlagPlatform,
	config.FlagContentPath,
}

// Register adds the client flags to cmd.
func Register(cmd *cobra.Command, o *Options) {
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &o.APITarget)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagToken, &o.Token)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagPlatform, &o.Platform)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagContentPath, &o.ContentPath)
}

// Resolve fills o from the flag > env > config file > default chain. Call it
// from PreRunE.
func Resolve(cmd *cobra.Command, o *Options) error {
	o.ConfigDir, _ = cmd.Flags().GetString("config-dir")
	o.Debug, _ = cmd.Flags().GetBool("debug")

	v, err := config.InitViper(o.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.ClientFlags, registryKeys)

	o.APITarget = v.GetString("client.api_target")
	o.Token = v.GetString("client.token")
	o.Platform = v.GetString("client.platform")
	o.ContentPath = v.GetString("client.content_stream_path")
	return nil
}

// Logger returns the command logger: debug output on stderr when --debug is
// set, nothing otherwise.
func (o *Options) Logger(cmd *cobra.Command) *slog.Logger {
	if !o.Debug {
		return logger.Nop()
	}
	return logger.New(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithDebug(true),
		logger.WithPretty(true),
	)
}

// NewClient builds a client for the resolved backend.
func (o *Options) NewClient(log *slog.Logger) (*client.Client, error) {
	c, err := client.New(o.APITarget,
		client.WithToken(o.Token),
		client.WithLogger(log),
		client.WithContentStreamPath(o.ContentPath),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}
