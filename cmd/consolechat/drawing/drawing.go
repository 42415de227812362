// Package drawingcmder provides the drawing command for image generation
// tasks.
package drawingcmder

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/consolechat/cmd/consolechat/backend"
	"github.com/papercomputeco/consolechat/pkg/client"
	"github.com/papercomputeco/consolechat/pkg/cliui"
)

const drawingLongDesc string = `Create and track image generation tasks.

Examples:
  consolechat drawing create "a lighthouse at dusk" --size 1024x1024
  consolechat drawing status 42
  consolechat drawing list --page 2 --page-size 24`

const drawingShortDesc string = "Image generation tasks"

func NewDrawingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drawing",
		Short: drawingShortDesc,
		Long:  drawingLongDesc,
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func newCreateCmd() *cobra.Command {
	opts := &backend.Options{}
	params := client.ImageTaskParams{}

	cmd := &cobra.Command{
		Use:   "create <prompt>",
		Short: "Submit an image generation task",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.NewClient(opts.Logger(cmd))
			if err != nil {
				return err
			}

			params.Prompt = strings.Join(args, " ")
			task, err := c.CreateImageTask(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("creating image task: %w", err)
			}

			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	backend.Register(cmd, opts)

	cmd.Flags().StringVar(&params.Style, "style", client.DefaultImageStyle, "Image style")
	cmd.Flags().StringVar(&params.Size, "size", client.DefaultImageSize, "Image size (WIDTHxHEIGHT)")
	cmd.Flags().StringVar(&params.Model, "model", client.DefaultImageModel, "Image model")
	cmd.Flags().StringVar(&params.Platform, "image-platform", client.DefaultImagePlatform, "Platform that renders the image")
	cmd.Flags().IntVarP(&params.N, "count", "n", 1, "Number of images")

	return cmd
}

func newStatusCmd() *cobra.Command {
	opts := &backend.Options{}

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show the status of an image task",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}

			c, err := opts.NewClient(opts.Logger(cmd))
			if err != nil {
				return err
			}

			task, err := c.ImageTaskStatus(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("fetching image task: %w", err)
			}

			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	backend.Register(cmd, opts)

	return cmd
}

func newListCmd() *cobra.Command {
	opts := &backend.Options{}
	page := client.PageParams{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List image tasks, newest first",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return backend.Resolve(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.NewClient(opts.Logger(cmd))
			if err != nil {
				return err
			}

			result, err := c.ImagePage(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("listing image tasks: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s %s\n",
				cliui.KeyStyle.Render("Page:"),
				cliui.DimStyle.Render(fmt.Sprintf("%d (%d per page, %d total)", result.Page, result.PageSize, result.Total)),
			)
			for i := range result.Items {
				printTask(out, &result.Items[i])
			}
			if len(result.Items) == 0 {
				fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No image tasks."))
			}
			return nil
		},
	}
	backend.Register(cmd, opts)

	cmd.Flags().IntVar(&page.Page, "page", 0, "Page number (backend default when 0)")
	cmd.Flags().IntVar(&page.PageSize, "page-size", 0, "Page size (backend default when 0)")

	return cmd
}

func printTask(w io.Writer, t *client.ImageTask) {
	fmt.Fprintf(w, "\n  %s  %s\n", cliui.IDStyle.Render(fmt.Sprintf("#%d", t.ID)), cliui.NameStyle.Render(t.Status))
	if t.Prompt != "" {
		fmt.Fprintf(w, "    %s %s\n", cliui.KeyStyle.Render("prompt:"), cliui.ValueStyle.Render(t.Prompt))
	}
	if t.TaskID != "" {
		fmt.Fprintf(w, "    %s %s\n", cliui.KeyStyle.Render("task:"), cliui.DimStyle.Render(t.TaskID))
	}
	if t.PicURL != nil && *t.PicURL != "" {
		fmt.Fprintf(w, "    %s %s\n", cliui.KeyStyle.Render("image:"), cliui.ValueStyle.Render(*t.PicURL))
	}
	if t.ErrorMessage != nil && *t.ErrorMessage != "" {
		fmt.Fprintf(w, "    %s %s %s\n", cliui.FailMark, cliui.KeyStyle.Render("error:"), *t.ErrorMessage)
	}
}
