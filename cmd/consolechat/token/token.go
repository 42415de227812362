// Package tokencmder provides the token command, which mints bearer tokens
// for the chat backend.
package tokencmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/consolechat/pkg/auth"
	"github.com/papercomputeco/consolechat/pkg/config"
)

const tokenLongDesc string = `Mint a bearer token for the chat backend.

The token is signed with the backend's HS256 secret, resolved from
--jwt-secret, CONSOLECHAT_SERVER_JWT_SECRET or server.jwt_secret in
config.toml. Pass the printed token to chat commands with --token or
CONSOLECHAT_CLIENT_TOKEN.

Examples:
  consolechat token --user-id 1 --username alice
  export CONSOLECHAT_CLIENT_TOKEN=$(consolechat token --user-id 1 --ttl 168h)`

const tokenShortDesc string = "Mint a bearer token"

type tokenCommander struct {
	userID    int64
	username  string
	ttl       time.Duration
	jwtSecret string
}

func NewTokenCmd() *cobra.Command {
	cmder := &tokenCommander{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: tokenShortDesc,
		Long:  tokenLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServerFlags, []string{config.FlagJWTSecret})
			cmder.jwtSecret = v.GetString("server.jwt_secret")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.userID <= 0 {
				return fmt.Errorf("--user-id must be a positive integer")
			}

			svc, err := auth.NewService(cmder.jwtSecret)
			if err != nil {
				return err
			}

			token, err := svc.Issue(auth.Principal{UserID: cmder.userID, Username: cmder.username}, cmder.ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.ServerFlags, config.FlagJWTSecret, &cmder.jwtSecret)
	cmd.Flags().Int64Var(&cmder.userID, "user-id", 0, "User the token is issued for")
	cmd.Flags().StringVar(&cmder.username, "username", "", "Display name carried in the token")
	cmd.Flags().DurationVar(&cmder.ttl, "ttl", auth.DefaultTTL, "Token lifetime")

	return cmd
}
