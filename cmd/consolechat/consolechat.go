// Package consolechatcmder provides the root consolechat command.
package consolechatcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/consolechat/cmd/consolechat/auth"
	chatcmder "github.com/papercomputeco/consolechat/cmd/consolechat/chat"
	configcmder "github.com/papercomputeco/consolechat/cmd/consolechat/config"
	conversationscmder "github.com/papercomputeco/consolechat/cmd/consolechat/conversations"
	drawingcmder "github.com/papercomputeco/consolechat/cmd/consolechat/drawing"
	initcmder "github.com/papercomputeco/consolechat/cmd/consolechat/init"
	servecmder "github.com/papercomputeco/consolechat/cmd/consolechat/serve"
	tokencmder "github.com/papercomputeco/consolechat/cmd/consolechat/token"
	versioncmder "github.com/papercomputeco/consolechat/cmd/version"
)

const consoleChatLongDesc string = `consolechat is a terminal chat client for LLM platforms, and the backend
it talks to.

Chat with a running backend:
  consolechat chat                 Resume or start a conversation
  consolechat chat --stateless     One-off prompts without history
  consolechat conversations        List your conversations
  consolechat drawing create ...   Submit an image generation task

Run the backend:
  consolechat auth deepseek        Store a platform API key
  consolechat token --user-id 1    Mint a bearer token
  consolechat serve                Run the chat backend

Configuration lives in .consolechat/config.toml (see "consolechat config").`

const consoleChatShortDesc string = "consolechat - chat with LLMs from the terminal"

func NewConsoleChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "consolechat",
		Short:        consoleChatShortDesc,
		Long:         consoleChatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .consolechat directory")

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(conversationscmder.NewConversationsCmd())
	cmd.AddCommand(drawingcmder.NewDrawingCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(tokencmder.NewTokenCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
