package main

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikequentel/autoshare/internal/admin"
	"github.com/mikequentel/autoshare/internal/app"
	"github.com/mikequentel/autoshare/internal/compose"
	"github.com/mikequentel/autoshare/internal/model"
)

var (
	settingsServer     string
	settingsEnable     bool
	settingsBody       string
	settingsAllowImage bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings <post-id>",
	Short: "Change a post's autoshare settings through the admin API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			cur, err := a.Publisher.Settings(cmd.Context(), id)
			if err != nil {
				return err
			}
			server := settingsServer
			if server == "" {
				server = adminURL(a.Config.Server.Addr)
			}

			panel := admin.NewPanel(&http.Client{Timeout: 15 * time.Second}, server, id, admin.PanelState{
				Enabled:    cur.Enabled,
				TweetBody:  cur.TweetBody,
				AllowImage: cur.AllowImage,
			})
			flags := cmd.Flags()
			if flags.Changed("enable") {
				panel.SetEnabled(settingsEnable)
			}
			if flags.Changed("body") {
				panel.SetTweetBody(settingsBody)
			}
			if flags.Changed("allow-image") {
				panel.SetAllowImage(settingsAllowImage)
			}

			out := cmd.OutOrStdout()
			if panel.OverLimit() {
				fmt.Fprintf(out, "Warning: custom text is %d characters over the limit\n", -panel.Remaining())
			}
			if err := panel.Save(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", panel.State().ErrorMessage, err)
			}

			st := panel.State()
			fmt.Fprintf(out, "Post %d: enabled=%t allowImage=%t\n", id, st.Enabled, st.AllowImage)
			if st.TweetBody != "" {
				fmt.Fprintf(out, "Custom text (%d/%d): %s\n", compose.Count(st.TweetBody), model.MaxTweetLength, st.TweetBody)
			}
			return nil
		})
	},
}

func init() {
	f := settingsCmd.Flags()
	f.StringVar(&settingsServer, "server", "", "admin API base URL (default http://<server.addr>)")
	f.BoolVar(&settingsEnable, "enable", false, "share this post when it is published")
	f.StringVar(&settingsBody, "body", "", "custom tweet text; empty uses the post title")
	f.BoolVar(&settingsAllowImage, "allow-image", true, "attach the featured image")
	rootCmd.AddCommand(settingsCmd)
}

// adminURL turns a listen address into a URL a client can dial. A missing or
// wildcard host means the local machine.
func adminURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
