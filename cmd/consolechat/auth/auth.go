// Package authcmder provides the auth command for storing platform API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/consolechat/pkg/cliui"
	"github.com/papercomputeco/consolechat/pkg/credentials"
)

const authLongDesc string = `Store API keys for LLM platforms.

Keys are stored in credentials.toml in the .consolechat/ directory and
exported as the platform's API key variable when "consolechat serve" starts.
Variables already set in the environment take precedence.

Supported platforms: deepseek, tongyi, openai, google-genai

Examples:
  consolechat auth deepseek             Prompt for the DeepSeek API key
  consolechat auth --list               List stored credentials
  consolechat auth --remove tongyi      Remove the stored Tongyi key
  echo $KEY | consolechat auth openai   Pipe the key from stdin`

const authShortDesc string = "Store API keys for LLM platforms"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [platform]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("platform argument required\n\nSupported platforms: %s",
						strings.Join(credentials.SupportedPlatforms(), ", "))
				}
				return runAuth(out, cmd.InOrStdin(), args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedPlatforms(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a platform")

	return cmd
}

func runAuth(out io.Writer, in io.Reader, platform, configDir string) error {
	platform = strings.ToLower(strings.TrimSpace(platform))

	if !credentials.IsSupportedPlatform(platform) {
		return fmt.Errorf("unsupported platform: %q\n\nSupported platforms: %s",
			platform, strings.Join(credentials.SupportedPlatforms(), ", "))
	}

	envVar := credentials.EnvVarForPlatform(platform)
	apiKey, err := readAPIKey(out, in, platform, envVar)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(platform, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(platform),
		cliui.DimStyle.Render("(exported as "+envVar+")"),
	)
	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	platforms, err := mgr.ListPlatforms()
	if err != nil {
		return err
	}

	if len(platforms) == 0 {
		fmt.Fprintf(out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'consolechat auth <platform>' to store credentials.\n")
		fmt.Fprintf(out, "  Supported platforms: %s\n\n", strings.Join(credentials.SupportedPlatforms(), ", "))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range platforms {
		envVar := credentials.EnvVarForPlatform(p)
		if envVar != "" {
			fmt.Fprintf(out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("→ "+envVar),
			)
		} else {
			fmt.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p))
		}
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, platform, configDir string) error {
	platform = strings.ToLower(strings.TrimSpace(platform))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(platform); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(platform))
	return nil
}

// readAPIKey prompts with hidden input when in is a terminal and otherwise
// reads the first line.
func readAPIKey(out io.Writer, in io.Reader, platform, envVar string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter API key for %s (%s): ", platform, envVar)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
