package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikequentel/autoshare/internal/app"
	"github.com/mikequentel/autoshare/internal/model"
)

var (
	attachPost   int64
	attachID     int64
	attachFile   string
	attachWidth  int
	attachHeight int
	attachBytes  int64
	attachSizes  []string
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Register a featured image and its renditions for a post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if attachPost <= 0 || attachFile == "" {
			return fmt.Errorf("--post and --file are required")
		}
		file, err := filepath.Abs(attachFile)
		if err != nil {
			return err
		}

		att := &model.Attachment{
			ID:       attachID,
			PostID:   attachPost,
			File:     file,
			Width:    attachWidth,
			Height:   attachHeight,
			FileSize: attachBytes,
			Sizes:    map[string]model.Rendition{},
		}
		for _, s := range attachSizes {
			r, err := parseSize(s)
			if err != nil {
				return err
			}
			att.Sizes[r.Name] = r
		}

		return withApp(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			post, err := a.Store.GetPost(ctx, attachPost)
			if err != nil {
				return fmt.Errorf("post %d: %w", attachPost, err)
			}
			if err := a.Store.SaveAttachment(ctx, att); err != nil {
				return err
			}
			post.ThumbnailID = att.ID
			if err := a.Store.SavePost(ctx, post); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attachment %d set as featured image of post %d (%d renditions)\n", att.ID, post.ID, len(att.Sizes))
			return nil
		})
	},
}

func init() {
	f := attachCmd.Flags()
	f.Int64Var(&attachPost, "post", 0, "post id")
	f.Int64Var(&attachID, "id", 0, "attachment id (0 assigns a new one)")
	f.StringVar(&attachFile, "file", "", "full-size image file")
	f.IntVar(&attachWidth, "width", 0, "full-size width in pixels")
	f.IntVar(&attachHeight, "height", 0, "full-size height in pixels")
	f.Int64Var(&attachBytes, "bytes", 0, "full-size file size in bytes")
	f.StringArrayVar(&attachSizes, "size", nil, "rendition as name=file:WxH[:bytes], repeatable")
	rootCmd.AddCommand(attachCmd)
}

// parseSize reads a rendition flag, eg: "medium=photo-300x200.jpg:300x200:15000".
func parseSize(s string) (model.Rendition, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return model.Rendition{}, fmt.Errorf("size %q: want name=file:WxH[:bytes]", s)
	}
	parts := strings.Split(rest, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return model.Rendition{}, fmt.Errorf("size %q: want name=file:WxH[:bytes]", s)
	}
	w, h, ok := strings.Cut(parts[1], "x")
	if !ok {
		return model.Rendition{}, fmt.Errorf("size %q: bad dimensions %q", s, parts[1])
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return model.Rendition{}, fmt.Errorf("size %q: bad width: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return model.Rendition{}, fmt.Errorf("size %q: bad height: %w", s, err)
	}

	r := model.Rendition{Name: name, File: filepath.Base(parts[0]), Width: width, Height: height}
	if len(parts) == 3 {
		if r.FileSize, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
			return model.Rendition{}, fmt.Errorf("size %q: bad byte count: %w", s, err)
		}
	}
	return r, nil
}
