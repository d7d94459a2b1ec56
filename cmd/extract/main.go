// Command extract pulls posts from a blog feed into the autoshare database and
// optionally shares the new ones.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mikequentel/autoshare/internal/app"
	"github.com/mikequentel/autoshare/internal/feed"
	"github.com/mikequentel/autoshare/internal/publish"
)

var (
	configPath string
	feedSource string
	postType   string
	publishNew bool
)

var rootCmd = &cobra.Command{
	Use:           "extract",
	Short:         "Import posts from an RSS/Atom feed",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := importFeed(cmd.Context(), feed.NewImporter(a.Store, postType, a.Log), feedSource)
		if err != nil {
			return fmt.Errorf("import %s: %w", feedSource, err)
		}
		return report(cmd.Context(), cmd.OutOrStdout(), a, results)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "config.yaml", "YAML config file")
	f.StringVar(&feedSource, "feed", "", "feed URL or local file")
	f.StringVar(&postType, "post-type", "post", "post type given to new posts")
	f.BoolVar(&publishNew, "publish", false, "share newly imported posts")
	_ = rootCmd.MarkFlagRequired("feed")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func importFeed(ctx context.Context, im *feed.Importer, src string) ([]feed.Result, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return im.ImportURL(ctx, src)
	}
	fh, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return im.Import(ctx, fh)
}

func report(ctx context.Context, out io.Writer, a *app.App, results []feed.Result) error {
	var added int
	for _, r := range results {
		if !r.New {
			continue
		}
		added++
		fmt.Fprintf(out, "+ %d %s\n", r.Post.ID, r.Post.Title)

		if !publishNew {
			continue
		}
		st, err := a.Publisher.Publish(ctx, r.Post.ID)
		switch {
		case errors.Is(err, publish.ErrNotEligible), errors.Is(err, publish.ErrAlreadyPublished):
			a.Log.Debug().Int64("post_id", r.Post.ID).Err(err).Msg("Not shared")
		case err != nil:
			a.Log.Error().Int64("post_id", r.Post.ID).Err(err).Msg("Share failed")
		case st != nil:
			fmt.Fprintf(out, "  shared as %s\n", st.TwitterID)
		}
	}
	fmt.Fprintf(out, "Imported %d items, %d new\n", len(results), added)
	return nil
}
