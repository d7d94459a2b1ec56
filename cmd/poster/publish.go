package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mikequentel/autoshare/internal/app"
	"github.com/mikequentel/autoshare/internal/publish"
)

var composeCmd = &cobra.Command{
	Use:   "compose <post-id>",
	Short: "Print the tweet a post would produce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			return printDraft(cmd, a.Publisher, id, cmd.OutOrStdout())
		})
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <post-id>",
	Short: "Share a published post to X once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			out := cmd.OutOrStdout()
			if a.Config.DryRun {
				fmt.Fprintln(out, "DRY RUN ✅ (no network calls)")
				return printDraft(cmd, a.Publisher, id, out)
			}

			st, err := a.Publisher.Publish(cmd.Context(), id)
			if errors.Is(err, publish.ErrAlreadyPublished) {
				fmt.Fprintf(out, "Post %d was already shared\n", id)
				return nil
			}
			if err != nil {
				return err
			}
			if st == nil {
				fmt.Fprintf(out, "Post %d: status update skipped\n", id)
				return nil
			}
			fmt.Fprintf(out, "Posted tweet ID %s\n", st.TwitterID)
			if link := publish.LinkFromTwitter(st.Handle, st.TwitterID); link != "" {
				fmt.Fprintln(out, link)
			}
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <post-id>",
	Short: "Show the last share attempt for a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			v, err := a.Publisher.StatusView(cmd.Context(), id)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), id, v)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(composeCmd, publishCmd, statusCmd)
}

func printDraft(cmd *cobra.Command, pub *publish.Publisher, id int64, out io.Writer) error {
	d, err := pub.Preview(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Will post:\n---\n%s\n---\n", d.Text)
	if d.Image != nil {
		fmt.Fprintf(out, "Image: %s (%s, %d bytes)\n", d.Image.Path, d.Image.Name, d.Image.Size)
		if d.Image.Width > 0 && d.Image.Height > 0 {
			fmt.Fprintf(out, "Dimensions: %dx%d\n", d.Image.Width, d.Image.Height)
		}
	} else {
		fmt.Fprintln(out, "Image: none")
	}
	return nil
}

func printStatus(out io.Writer, id int64, v *publish.StatusView) {
	if v == nil {
		fmt.Fprintf(out, "Post %d has not been shared\n", id)
		return
	}
	fmt.Fprintf(out, "Post %d: %s\n", id, v.Status.Status)
	if v.TwitterID != "" {
		fmt.Fprintf(out, "Tweet: %s\n", v.TwitterID)
	}
	if v.Date != "" {
		fmt.Fprintf(out, "Date: %s\n", v.Date)
	}
	if v.URL != "" {
		fmt.Fprintf(out, "Link: %s\n", v.URL)
	}
	if v.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", v.Message)
	}
}
