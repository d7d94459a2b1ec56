// Package publish decides whether a post is shared to X and shares it once.
package publish

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/mikequentel/autoshare/internal/compose"
	"github.com/mikequentel/autoshare/internal/media"
	"github.com/mikequentel/autoshare/internal/model"
)

var (
	ErrNotPublished     = errors.New("publish: post is not published")
	ErrNotEligible      = errors.New("publish: autoshare is not enabled for post")
	ErrAlreadyPublished = errors.New("publish: post was already shared")
)

// Poster is the outbound side of X.
type Poster interface {
	UpdateStatus(ctx context.Context, u model.StatusUpdate) (*model.Tweet, error)
	UploadMedia(ctx context.Context, path string) (string, error)
}

type Store interface {
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	GetAttachment(ctx context.Context, id int64) (*model.Attachment, error)
	Settings(ctx context.Context, postID int64) (model.Settings, bool, error)
	Status(ctx context.Context, postID int64) (*model.Status, error)
	SaveStatus(ctx context.Context, postID int64, st model.Status) error
}

type Options struct {
	// PostTypes that support autoshare.
	PostTypes []string
	// EnableDefault applies to posts that never saved the enabled flag.
	EnableDefault bool
	MaxImageSize  int64
	Handle        string
	Timezone      string
}

type Publisher struct {
	store  Store
	poster Poster
	hooks  Hooks
	opts   Options
	log    zerolog.Logger
	stat   func(string) (int64, error)
	locks  postLocks
}

func New(store Store, poster Poster, opts Options, hooks Hooks, log zerolog.Logger) *Publisher {
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = media.DefaultMaxImageSize
	}
	return &Publisher{
		store:  store,
		poster: poster,
		hooks:  hooks,
		opts:   opts,
		log:    log.With().Str("component", "publish").Logger(),
	}
}

// Draft is the tweet a post would produce, without sending anything.
type Draft struct {
	Text  string
	Image *media.Choice
}

func (p *Publisher) SupportsType(postType string) bool {
	return slices.Contains(p.opts.PostTypes, postType)
}

// Eligible reports whether post's type supports autoshare and the post has it
// switched on.
func (p *Publisher) Eligible(ctx context.Context, post *model.Post) (bool, error) {
	if !p.SupportsType(post.PostType) {
		return false, nil
	}
	st, err := p.Settings(ctx, post.ID)
	if err != nil {
		return false, err
	}
	return st.Enabled, nil
}

// AlreadyPublished looks only at the stored status record; X is never asked.
func (p *Publisher) AlreadyPublished(ctx context.Context, postID int64) (bool, error) {
	st, err := p.store.Status(ctx, postID)
	if err != nil {
		return false, err
	}
	return st != nil && st.Status == model.StatusPublished, nil
}

// TweetBody is the override text when one is saved, otherwise the title.
func (p *Publisher) TweetBody(ctx context.Context, post *model.Post) (string, error) {
	st, err := p.Settings(ctx, post.ID)
	if err != nil {
		return "", err
	}
	if st.TweetBody != "" {
		return st.TweetBody, nil
	}
	return compose.Sanitize(post.Title), nil
}

// ComposeTweet runs the body and URL hooks and builds the final text.
func (p *Publisher) ComposeTweet(ctx context.Context, post *model.Post) (string, error) {
	body, err := p.TweetBody(ctx, post)
	if err != nil {
		return "", err
	}
	body = compose.Sanitize(p.hooks.transformBody(body, post))
	url := p.hooks.transformURL(post.Permalink, post)

	text, err := compose.Tweet(body, url)
	if err != nil {
		return "", fmt.Errorf("post %d: %w", post.ID, err)
	}
	return text, nil
}

// SelectImage picks the featured image rendition to attach, or nil when the
// post has no image, images are turned off, or nothing fits the size limit.
func (p *Publisher) SelectImage(ctx context.Context, post *model.Post) (*media.Choice, error) {
	ok, err := p.imageAllowed(ctx, post)
	if err != nil || !ok {
		return nil, err
	}
	return p.largestImage(ctx, post)
}

func (p *Publisher) imageAllowed(ctx context.Context, post *model.Post) (bool, error) {
	st, err := p.Settings(ctx, post.ID)
	if err != nil {
		return false, err
	}
	return p.hooks.attachImage(st.AllowImage && post.ThumbnailID != 0, post), nil
}

func (p *Publisher) largestImage(ctx context.Context, post *model.Post) (*media.Choice, error) {
	att, err := p.store.GetAttachment(ctx, post.ThumbnailID)
	if err != nil {
		return nil, err
	}

	sel := media.NewSelector(p.hooks.maxImageSize(p.opts.MaxImageSize, post))
	if p.stat != nil {
		sel.Stat = p.stat
	}
	choice, ok := sel.ForAttachment(att)
	if !ok {
		p.log.Info().Int64("post_id", post.ID).Int64("max_bytes", sel.MaxBytes).Msg("No image rendition under size limit")
		return nil, nil
	}
	return &choice, nil
}

func (p *Publisher) Preview(ctx context.Context, postID int64) (*Draft, error) {
	post, err := p.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	text, err := p.ComposeTweet(ctx, post)
	if err != nil {
		return nil, err
	}
	img, err := p.SelectImage(ctx, post)
	if err != nil {
		return nil, err
	}
	return &Draft{Text: text, Image: img}, nil
}

// Publish shares the post once. The outcome is stored as the post's status
// record; a failed attempt is recorded and returned, never retried.
func (p *Publisher) Publish(ctx context.Context, postID int64) (*model.Status, error) {
	unlock := p.locks.lock(postID)
	defer unlock()

	post, err := p.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	log := p.log.With().Int64("post_id", post.ID).Logger()

	if post.Status != model.PostStatusPublish {
		return nil, ErrNotPublished
	}
	ok, err := p.Eligible(ctx, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotEligible
	}
	done, err := p.AlreadyPublished(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, ErrAlreadyPublished
	}

	text, err := p.ComposeTweet(ctx, post)
	if err != nil {
		return p.fail(ctx, post.ID, err)
	}
	update := model.StatusUpdate{Text: text}

	mediaID, err := p.mediaID(ctx, post)
	if err != nil {
		return p.fail(ctx, post.ID, err)
	}
	if mediaID != "" {
		update.MediaIDs = []string{mediaID}
	}

	update = p.hooks.transformRequestPayload(update, post)

	var tweet *model.Tweet
	handled := false
	if p.hooks.PreStatusUpdate != nil {
		tweet, handled = p.hooks.PreStatusUpdate(update, post)
	}
	switch {
	case handled && tweet == nil:
		log.Info().Msg("Status update short-circuited")
		return nil, nil
	case !handled:
		if tweet, err = p.poster.UpdateStatus(ctx, update); err != nil {
			return p.fail(ctx, post.ID, err)
		}
	}

	st := model.Status{
		Status:    model.StatusPublished,
		TwitterID: tweet.ID,
		CreatedAt: tweet.CreatedAt,
		Handle:    p.opts.Handle,
	}
	if err := p.store.SaveStatus(ctx, post.ID, st); err != nil {
		return nil, fmt.Errorf("tweet %s posted but status not saved: %w", tweet.ID, err)
	}
	log.Info().Str("tweet_id", tweet.ID).Msg("Post shared")
	return &st, nil
}

func (p *Publisher) mediaID(ctx context.Context, post *model.Post) (string, error) {
	ok, err := p.imageAllowed(ctx, post)
	if err != nil || !ok {
		return "", err
	}
	if p.hooks.PreMediaUpload != nil {
		if id, ok := p.hooks.PreMediaUpload(post); ok {
			return id, nil
		}
	}

	img, err := p.largestImage(ctx, post)
	if err != nil || img == nil {
		return "", err
	}
	id, err := p.poster.UploadMedia(ctx, img.Path)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", img.Path, err)
	}
	return id, nil
}

func (p *Publisher) fail(ctx context.Context, postID int64, cause error) (*model.Status, error) {
	st := model.Status{Status: model.StatusError, Message: cause.Error()}
	if err := p.store.SaveStatus(ctx, postID, st); err != nil {
		p.log.Error().Err(err).Int64("post_id", postID).Msg("Failed to save error status")
	}
	p.log.Warn().Err(cause).Int64("post_id", postID).Msg("Share failed")
	return &st, cause
}

// Settings are the post's effective autoshare options: the saved ones, with
// EnableDefault standing in for an enabled flag that was never saved.
func (p *Publisher) Settings(ctx context.Context, postID int64) (model.Settings, error) {
	st, set, err := p.store.Settings(ctx, postID)
	if err != nil {
		return st, err
	}
	if !set {
		st.Enabled = p.opts.EnableDefault
	}
	return st, nil
}
