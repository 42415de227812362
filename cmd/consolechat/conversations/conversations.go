// Package conversationscmder provides the conversations command for listing
// and inspecting stored conversations.
package conversationscmder

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/consolechat/cmd/consolechat/backend"
	"github.com/papercomputeco/consolechat/pkg/client"
	"github.com/papercomputeco/consolechat/pkg/cliui"
	"github.com/papercomputeco/consolechat/pkg/dotdir"
	"github.com/papercomputeco/consolechat/pkg/utils"
)

const previewLength = 48

const conversationsLongDesc string = `List your conversations, newest first.

Subcommands:
  consolechat conversations show <id>   Print the messages of a conversation
  consolechat conversations new         Create a conversation and make it current

Examples:
  consolechat conversations --token $TOKEN
  consolechat conversations show 12
  consolechat conversations new --platform tongyi`

const conversationsShortDesc string = "List and inspect conversations"

func NewConversationsCmd() *cobra.Command {
	opts := &backend.Options{}

	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   conversationsShortDesc,
		Long:    conversationsLongDesc,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}
	backend.Register(cmd, opts)

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newNewCmd())

	return cmd
}

func runList(cmd *cobra.Command, opts *backend.Options) error {
	c, err := opts.NewClient(opts.Logger(cmd))
	if err != nil {
		return err
	}

	convs, err := c.ListConversations(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(convs) == 0 {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No conversations yet."))
		return nil
	}

	fmt.Fprintln(out)
	for _, conv := range convs {
		last := cliui.DimStyle.Render("<empty>")
		if conv.LastMessage != nil {
			last = cliui.ValueStyle.Render(oneLine(utils.Truncate(*conv.LastMessage, previewLength)))
		}
		fmt.Fprintf(out, "  %s  %s  %s\n      %s\n",
			cliui.IDStyle.Render(fmt.Sprintf("#%-5d", conv.ID)),
			cliui.NameStyle.Render(oneLine(utils.Truncate(conv.Title, previewLength))),
			cliui.DimStyle.Render(conv.UpdateTime.Local().Format("2006-01-02 15:04")),
			last,
		)
	}
	fmt.Fprintln(out)
	return nil
}

func newShowCmd() *cobra.Command {
	opts := &backend.Options{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}

			c, err := opts.NewClient(opts.Logger(cmd))
			if err != nil {
				return err
			}

			msgs, err := c.ListMessages(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("listing messages: %w", err)
			}

			printMessages(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
	backend.Register(cmd, opts)

	return cmd
}

func newNewCmd() *cobra.Command {
	opts := &backend.Options{}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a conversation and make it the current chat session",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.NewClient(opts.Logger(cmd))
			if err != nil {
				return err
			}

			id, err := c.CreateConversation(cmd.Context(), opts.Platform)
			if err != nil {
				return fmt.Errorf("creating conversation: %w", err)
			}

			err = dotdir.NewManager().SaveSession(&dotdir.SessionState{
				APITarget:      opts.APITarget,
				Platform:       opts.Platform,
				ConversationID: id,
			}, opts.ConfigDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Created conversation %s\n\n",
				cliui.SuccessMark,
				cliui.IDStyle.Render(fmt.Sprintf("#%d", id)),
			)
			return nil
		},
	}
	backend.Register(cmd, opts)

	return cmd
}

func printMessages(w io.Writer, msgs []client.Message) {
	fmt.Fprintln(w)
	for _, m := range msgs {
		prompt := cliui.AssistantPrompt
		if m.Type == "user" {
			prompt = cliui.UserPrompt
		}
		fmt.Fprintf(w, "%s%s\n\n", prompt, m.Content)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
