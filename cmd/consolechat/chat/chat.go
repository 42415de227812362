// Package chatcmder provides the chat command for interactive streaming chat
// against the consolechat backend.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/consolechat/cmd/consolechat/backend"
	"github.com/papercomputeco/consolechat/pkg/client"
	"github.com/papercomputeco/consolechat/pkg/cliui"
	"github.com/papercomputeco/consolechat/pkg/dotdir"
	"github.com/papercomputeco/consolechat/pkg/sse"
)

type chatCommander struct {
	opts           backend.Options
	conversationID int64
	newSession     bool
	stateless      bool
	raw            bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
	client *client.Client
	dotdir *dotdir.Manager
}

const chatLongDesc string = `Start an interactive chat session with the consolechat backend.

Replies stream in as the model produces them. When stdout is a terminal,
finished replies are rendered as markdown; pass --raw to print the
stream verbatim.

The conversation is remembered in the .consolechat/ directory so the next
"consolechat chat" continues it. Use --new to start a fresh conversation or
--conversation to pick one from "consolechat conversations". --stateless
skips conversations entirely and posts each prompt on its own.

The bearer token is read from --token or CONSOLECHAT_CLIENT_TOKEN and is
never written to disk.

In the session:
  /new    start a new conversation
  /exit   quit (Ctrl+D works too)

Examples:
  consolechat chat --token $TOKEN
  consolechat chat --platform tongyi --new
  echo "hello" | consolechat chat --stateless --raw`

const chatShortDesc string = "Interactive streaming chat"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{dotdir: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, &cmder.opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			cmder.logger = cmder.opts.Logger(cmd)
			return cmder.run(cmd.Context())
		},
	}

	backend.Register(cmd, &cmder.opts)
	cmd.Flags().Int64VarP(&cmder.conversationID, "conversation", "c", 0, "Continue the conversation with this id")
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new conversation")
	cmd.Flags().BoolVar(&cmder.stateless, "stateless", false, "Send prompts without a conversation")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the stream verbatim instead of rendering markdown")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	c.client, err = c.opts.NewClient(c.logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	if c.stateless {
		fmt.Fprintf(c.out, "  %s Stateless session\n", cliui.DimStyle.Render("●"))
	} else if err := c.selectConversation(ctx); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Platform:"),
		cliui.NameStyle.Render(c.opts.Platform),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			if c.stateless {
				continue
			}
			if err := c.startConversation(ctx); err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			}
			continue
		}

		if err := c.send(ctx, input); err != nil {
			fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			continue
		}
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// selectConversation picks the conversation to continue: --conversation,
// then the saved session for this backend and platform, then a new one.
func (c *chatCommander) selectConversation(ctx context.Context) error {
	if c.conversationID != 0 {
		return c.resume(ctx, c.conversationID)
	}

	if !c.newSession {
		state, err := c.dotdir.LoadSession(c.opts.ConfigDir)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		if state != nil && state.APITarget == c.opts.APITarget && state.Platform == c.opts.Platform && state.ConversationID != 0 {
			return c.resume(ctx, state.ConversationID)
		}
	}

	return c.startConversation(ctx)
}

func (c *chatCommander) resume(ctx context.Context, id int64) error {
	msgs, err := c.client.ListMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("loading conversation %d: %w", id, err)
	}

	c.conversationID = id
	fmt.Fprintf(c.out, "  %s Resuming conversation %s %s\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(fmt.Sprintf("#%d", id)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(msgs))),
	)
	return c.saveSession()
}

func (c *chatCommander) startConversation(ctx context.Context) error {
	id, err := c.client.CreateConversation(ctx, c.opts.Platform)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}

	c.conversationID = id
	fmt.Fprintf(c.out, "  %s New conversation %s\n",
		cliui.DimStyle.Render("●"),
		cliui.IDStyle.Render(fmt.Sprintf("#%d", id)),
	)
	return c.saveSession()
}

func (c *chatCommander) saveSession() error {
	return c.dotdir.SaveSession(&dotdir.SessionState{
		APITarget:      c.opts.APITarget,
		Platform:       c.opts.Platform,
		ConversationID: c.conversationID,
	}, c.opts.ConfigDir)
}

// send posts one prompt and prints the reply.
func (c *chatCommander) send(ctx context.Context, input string) error {
	var (
		dec *sse.Decoder
		err error
	)
	if c.stateless {
		dec, err = c.client.StreamContent(ctx, input)
	} else {
		id := c.conversationID
		dec, err = c.client.Stream(ctx, client.StreamRequest{
			Content:        input,
			Platform:       c.opts.Platform,
			ConversationID: &id,
		})
	}
	if err != nil {
		return err
	}
	defer dec.Close()

	if c.raw || !isTerminal(c.out) {
		return c.streamRaw(dec)
	}
	return c.streamRendered(dec)
}

// streamRaw prints deltas as they arrive.
func (c *chatCommander) streamRaw(dec *sse.Decoder) error {
	fmt.Fprint(c.out, cliui.AssistantPrompt)
	for delta, err := range dec.Payloads() {
		if err != nil {
			fmt.Fprintln(c.out)
			return err
		}
		fmt.Fprint(c.out, delta)
	}
	fmt.Fprintln(c.out)
	return nil
}

// streamRendered collects the reply behind a spinner and prints it as
// rendered markdown. A partial reply is still printed when the stream fails.
func (c *chatCommander) streamRendered(dec *sse.Decoder) error {
	var reply strings.Builder
	err := cliui.Step(c.out, "thinking", func() error {
		for delta, err := range dec.Payloads() {
			if err != nil {
				return err
			}
			reply.WriteString(delta)
		}
		return nil
	})
	if reply.Len() == 0 {
		return err
	}

	rendered, rerr := cliui.RenderMarkdown(reply.String())
	if rerr != nil {
		c.logger.Debug("markdown rendering failed", "error", rerr)
	}
	fmt.Fprint(c.out, rendered)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
