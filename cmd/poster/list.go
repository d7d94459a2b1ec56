package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mikequentel/autoshare/internal/app"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent posts with their share status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			posts, err := a.Store.ListPosts(ctx, listLimit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tSHARED\tTITLE")
			for _, p := range posts {
				shared := "-"
				st, err := a.Store.Status(ctx, p.ID)
				if err != nil {
					return err
				}
				if st != nil {
					shared = st.Status
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.PostType, p.Status, shared, p.Title)
			}
			return w.Flush()
		})
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "number of posts to show")
	rootCmd.AddCommand(listCmd)
}
