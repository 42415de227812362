// Package configcmder provides the config command for managing persistent
// consolechat configuration stored in the .consolechat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent consolechat configuration.

Configuration is stored as config.toml in the .consolechat/ directory and
provides default values for command flags. CLI flags and CONSOLECHAT_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.platform, client.content_stream_path,
  server.listen, server.ws_listen, server.jwt_secret, server.workers,
  storage.sqlite_path, storage.postgres_dsn,
  llm.default_platform, llm.upstream,
  events.kafka_brokers, events.kafka_topic

The bearer token is never stored. Pass it with --token or
CONSOLECHAT_CLIENT_TOKEN.

Examples:
  consolechat config set client.api_target http://localhost:8081
  consolechat config set llm.default_platform tongyi
  consolechat config get client.platform
  consolechat config list`

const configShortDesc string = "Manage persistent consolechat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
