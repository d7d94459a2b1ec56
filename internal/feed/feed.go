// Package feed imports published posts from a blog's RSS or Atom feed.
package feed

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/mikequentel/autoshare/internal/compose"
	"github.com/mikequentel/autoshare/internal/model"
	"github.com/mikequentel/autoshare/internal/store"
)

type PostStore interface {
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	SavePost(ctx context.Context, p *model.Post) error
}

// Result is one imported item. New is false when the post was already known.
type Result struct {
	Post model.Post
	New  bool
}

type Importer struct {
	parser   *gofeed.Parser
	store    PostStore
	postType string
	log      zerolog.Logger
}

func NewImporter(st PostStore, postType string, log zerolog.Logger) *Importer {
	if postType == "" {
		postType = "post"
	}
	return &Importer{
		parser:   gofeed.NewParser(),
		store:    st,
		postType: postType,
		log:      log.With().Str("component", "feed").Logger(),
	}
}

func (im *Importer) ImportURL(ctx context.Context, feedURL string) ([]Result, error) {
	f, err := im.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return im.importFeed(ctx, f)
}

func (im *Importer) Import(ctx context.Context, r io.Reader) ([]Result, error) {
	f, err := im.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return im.importFeed(ctx, f)
}

func (im *Importer) importFeed(ctx context.Context, f *gofeed.Feed) ([]Result, error) {
	var out []Result
	for _, item := range f.Items {
		p, ok := PostFromItem(item, im.postType)
		if !ok {
			im.log.Debug().Str("guid", item.GUID).Msg("Skipping item without link")
			continue
		}

		res := Result{New: true}
		existing, err := im.store.GetPost(ctx, p.ID)
		switch {
		case err == nil:
			res.New = false
			p.PostType = existing.PostType
			p.ThumbnailID = existing.ThumbnailID
		case !errors.Is(err, store.ErrNotFound):
			return out, err
		}

		if err := im.store.SavePost(ctx, &p); err != nil {
			return out, err
		}
		res.Post = p
		out = append(out, res)
	}
	im.log.Info().Str("feed", f.Title).Int("items", len(f.Items)).Int("imported", len(out)).Msg("Feed imported")
	return out, nil
}

// PostFromItem maps a feed item to a published post. The id comes from a
// "?p=<id>" permalink GUID when there is one, otherwise from a hash of the
// link, so re-importing the same item updates the same post.
func PostFromItem(item *gofeed.Item, postType string) (model.Post, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return model.Post{}, false
	}
	return model.Post{
		ID:        itemID(item.GUID, link),
		Title:     compose.Sanitize(item.Title),
		Permalink: link,
		PostType:  postType,
		Status:    model.PostStatusPublish,
	}, true
}

func itemID(guid, link string) int64 {
	for _, raw := range []string{guid, link} {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if id, err := strconv.ParseInt(u.Query().Get("p"), 10, 64); err == nil && id > 0 {
			return id
		}
	}
	h := fnv.New64a()
	h.Write([]byte(link))
	// Keep it positive and clear of small hand-assigned ids.
	return int64(h.Sum64()>>2) | 1<<40
}
