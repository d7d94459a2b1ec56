package publish

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikequentel/autoshare/internal/compose"
	"github.com/mikequentel/autoshare/internal/model"
	"github.com/mikequentel/autoshare/internal/store"
)

type fakePoster struct {
	uploads   []string
	updates   []model.StatusUpdate
	uploadErr error
	updateErr error
}

func (f *fakePoster) UploadMedia(_ context.Context, path string) (string, error) {
	f.uploads = append(f.uploads, path)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "555", nil
}

func (f *fakePoster) UpdateStatus(_ context.Context, u model.StatusUpdate) (*model.Tweet, error) {
	f.updates = append(f.updates, u)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &model.Tweet{ID: "1050118621198921728", CreatedAt: "Wed Oct 10 20:19:24 +0000 2018", Text: u.Text}, nil
}

type fixture struct {
	store  *store.Store
	poster *fakePoster
	post   *model.Post
}

// newFixture stores a published post with a featured image whose original is
// 400KB and whose renditions are thumbnail 50KB, medium 120KB, large 172KB.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	att := &model.Attachment{
		File: "/up/photo.jpg", Width: 3000, Height: 2000,
		Sizes: map[string]model.Rendition{
			"thumbnail": {File: "photo-150x150.jpg", Width: 150, Height: 150, FileSize: 50000},
			"medium":    {File: "photo-600x400.jpg", Width: 600, Height: 400, FileSize: 120000},
			"large":     {File: "photo-1536x864.jpg", Width: 1536, Height: 864, FileSize: 172000},
		},
	}
	require.NoError(t, s.SaveAttachment(ctx, att))

	post := &model.Post{
		ID: 7, Title: "Hello &amp; <em>welcome</em>", Permalink: "https://blog.example/?p=7",
		PostType: "post", Status: model.PostStatusPublish, ThumbnailID: att.ID,
	}
	require.NoError(t, s.SavePost(ctx, post))
	require.NoError(t, s.SaveSettings(ctx, post.ID, model.Settings{Enabled: true, AllowImage: true}))

	return &fixture{store: s, poster: &fakePoster{}, post: post}
}

func (f *fixture) publisher(opts Options, hooks Hooks) *Publisher {
	if opts.PostTypes == nil {
		opts.PostTypes = []string{"post", "page"}
	}
	if opts.MaxImageSize == 0 {
		opts.MaxImageSize = 150000
	}
	p := New(f.store, f.poster, opts, hooks, zerolog.Nop())
	p.stat = func(path string) (int64, error) {
		if path == "/up/photo.jpg" {
			return 400000, nil
		}
		return 0, os.ErrNotExist
	}
	return p
}

// ===================== Publish =====================

func TestPublish_SharesWithLargestImage(t *testing.T) {
	f := newFixture(t)
	p := f.publisher(Options{Handle: "blog"}, Hooks{})

	st, err := p.Publish(context.Background(), f.post.ID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, model.StatusPublished, st.Status)
	assert.Equal(t, "1050118621198921728", st.TwitterID)
	assert.Equal(t, "blog", st.Handle)

	assert.Equal(t, []string{"/up/photo-600x400.jpg"}, f.poster.uploads)
	require.Len(t, f.poster.updates, 1)
	assert.Equal(t, "Hello & welcome https://blog.example/?p=7", f.poster.updates[0].Text)
	assert.Equal(t, []string{"555"}, f.poster.updates[0].MediaIDs)

	saved, err := f.store.Status(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, *st, *saved)
}

func TestPublish_UsesOverrideText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveSettings(ctx, f.post.ID, model.Settings{Enabled: true, TweetBody: "  Read   this now "}))
	p := f.publisher(Options{}, Hooks{})

	_, err := p.Publish(ctx, f.post.ID)
	require.NoError(t, err)
	require.Len(t, f.poster.updates, 1)
	assert.Equal(t, "Read this now https://blog.example/?p=7", f.poster.updates[0].Text)
	assert.Empty(t, f.poster.uploads, "image not allowed")
	assert.Empty(t, f.poster.updates[0].MediaIDs)
}

func TestPublish_Refusals(t *testing.T) {
	ctx := context.Background()

	t.Run("draft", func(t *testing.T) {
		f := newFixture(t)
		f.post.Status = "draft"
		require.NoError(t, f.store.SavePost(ctx, f.post))
		_, err := f.publisher(Options{}, Hooks{}).Publish(ctx, f.post.ID)
		assert.ErrorIs(t, err, ErrNotPublished)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.SaveSettings(ctx, f.post.ID, model.Settings{Enabled: false}))
		_, err := f.publisher(Options{EnableDefault: true}, Hooks{}).Publish(ctx, f.post.ID)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("unsupported type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.publisher(Options{PostTypes: []string{"page"}}, Hooks{}).Publish(ctx, f.post.ID)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("already published", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.SaveStatus(ctx, f.post.ID, model.Status{Status: model.StatusPublished, TwitterID: "1"}))
		_, err := f.publisher(Options{}, Hooks{}).Publish(ctx, f.post.ID)
		assert.ErrorIs(t, err, ErrAlreadyPublished)
	})

	t.Run("missing post", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.publisher(Options{}, Hooks{}).Publish(ctx, 404)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestPublish_EnableDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fresh := &model.Post{ID: 8, Title: "Fresh", Permalink: "https://blog.example/?p=8", Status: model.PostStatusPublish}
	require.NoError(t, f.store.SavePost(ctx, fresh))

	_, err := f.publisher(Options{}, Hooks{}).Publish(ctx, fresh.ID)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = f.publisher(Options{EnableDefault: true}, Hooks{}).Publish(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Len(t, f.poster.updates, 1)
}

func TestSettings_EnableDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	st, err := f.publisher(Options{EnableDefault: true}, Hooks{}).Settings(ctx, 8)
	require.NoError(t, err)
	assert.True(t, st.Enabled, "never saved, default applies")

	require.NoError(t, f.store.SaveSettings(ctx, 8, model.Settings{Enabled: false}))
	st, err = f.publisher(Options{EnableDefault: true}, Hooks{}).Settings(ctx, 8)
	require.NoError(t, err)
	assert.False(t, st.Enabled, "a saved flag wins")
}

// slowPoster counts status updates and takes a while to answer each one.
type slowPoster struct {
	updates atomic.Int32
}

func (s *slowPoster) UploadMedia(context.Context, string) (string, error) { return "555", nil }

func (s *slowPoster) UpdateStatus(_ context.Context, u model.StatusUpdate) (*model.Tweet, error) {
	s.updates.Add(1)
	time.Sleep(50 * time.Millisecond)
	return &model.Tweet{ID: "1", CreatedAt: "Wed Oct 10 20:19:24 +0000 2018", Text: u.Text}, nil
}

func TestPublish_ConcurrentCallsShareOnce(t *testing.T) {
	f := newFixture(t)
	poster := &slowPoster{}
	p := New(f.store, poster, Options{PostTypes: []string{"post"}}, Hooks{
		AttachImage: func(bool, *model.Post) bool { return false },
	}, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Publish(context.Background(), f.post.ID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), poster.updates.Load())
	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyPublished):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, dup)
}

func TestPublish_ComposeFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	longURL := "https://blog.example/?p=7&ref=" + strings.Repeat("x", 300)
	p := f.publisher(Options{}, Hooks{
		TransformURL: func(string, *model.Post) string { return longURL },
	})

	st, err := p.Publish(ctx, f.post.ID)
	require.ErrorIs(t, err, compose.ErrURLTooLong)
	require.NotNil(t, st)
	assert.Equal(t, model.StatusError, st.Status)

	saved, err := f.store.Status(ctx, f.post.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, model.StatusError, saved.Status)
	assert.Empty(t, f.poster.updates)
	assert.Empty(t, f.poster.uploads)
}

func TestPublish_RemoteFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.poster.updateErr = errors.New("HTTP 403: duplicate")
	p := f.publisher(Options{}, Hooks{})

	st, err := p.Publish(ctx, f.post.ID)
	require.Error(t, err)
	require.NotNil(t, st)
	assert.Equal(t, model.StatusError, st.Status)

	saved, err := f.store.Status(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, saved.Status)
	assert.Contains(t, saved.Message, "duplicate")

	// A failed attempt does not count as published; the user may try again.
	f.poster.updateErr = nil
	st, err = p.Publish(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, st.Status)
}

func TestPublish_UploadFailureStopsPublish(t *testing.T) {
	f := newFixture(t)
	f.poster.uploadErr = errors.New("HTTP 413")

	_, err := f.publisher(Options{}, Hooks{}).Publish(context.Background(), f.post.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/up/photo-600x400.jpg")
	assert.Empty(t, f.poster.updates)
}

// ===================== hooks =====================

func TestPublish_HookOrderAndPayload(t *testing.T) {
	f := newFixture(t)
	var calls []string
	params := url.Values{"utm_source": {"x"}, "utm_medium": {"social"}}

	hooks := Hooks{
		TransformBody: func(body string, _ *model.Post) string {
			calls = append(calls, "body")
			return strings.ToUpper(body)
		},
		TransformURL: func(u string, _ *model.Post) string {
			calls = append(calls, "url")
			return u + "&" + params.Encode()
		},
		AttachImage: func(allow bool, _ *model.Post) bool {
			calls = append(calls, "attach")
			return allow
		},
		MaxImageSize: func(limit int64, _ *model.Post) int64 {
			calls = append(calls, "maxsize")
			return limit
		},
		TransformRequestPayload: func(u model.StatusUpdate, _ *model.Post) model.StatusUpdate {
			calls = append(calls, "payload")
			return u
		},
		PreStatusUpdate: func(u model.StatusUpdate, _ *model.Post) (*model.Tweet, bool) {
			calls = append(calls, "pre")
			assert.Contains(t, u.Text, "https://blog.example/?p=7&utm_medium=social&utm_source=x")
			return nil, false
		},
	}

	_, err := f.publisher(Options{}, hooks).Publish(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "url", "attach", "maxsize", "payload", "pre"}, calls)
	assert.Equal(t, "HELLO & WELCOME https://blog.example/?p=7&utm_medium=social&utm_source=x", f.poster.updates[0].Text)
}

func TestPublish_PreStatusUpdateShortCircuit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hooks := Hooks{PreStatusUpdate: func(model.StatusUpdate, *model.Post) (*model.Tweet, bool) { return nil, true }}

	st, err := f.publisher(Options{}, hooks).Publish(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Empty(t, f.poster.updates)

	saved, err := f.store.Status(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestPublish_PreStatusUpdateSuppliesTweet(t *testing.T) {
	f := newFixture(t)
	hooks := Hooks{PreStatusUpdate: func(model.StatusUpdate, *model.Post) (*model.Tweet, bool) {
		return &model.Tweet{ID: "42"}, true
	}}

	st, err := f.publisher(Options{}, hooks).Publish(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "42", st.TwitterID)
	assert.Empty(t, f.poster.updates)
}

func TestMediaID_Hooks(t *testing.T) {
	ctx := context.Background()

	t.Run("attach image vetoed", func(t *testing.T) {
		f := newFixture(t)
		p := f.publisher(Options{}, Hooks{AttachImage: func(bool, *model.Post) bool { return false }})
		id, err := p.mediaID(ctx, f.post)
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.Empty(t, f.poster.uploads)
	})

	t.Run("pre media upload", func(t *testing.T) {
		f := newFixture(t)
		p := f.publisher(Options{}, Hooks{PreMediaUpload: func(*model.Post) (string, bool) { return "999", true }})
		id, err := p.mediaID(ctx, f.post)
		require.NoError(t, err)
		assert.Equal(t, "999", id)
		assert.Empty(t, f.poster.uploads)
	})

	t.Run("size limit too small", func(t *testing.T) {
		f := newFixture(t)
		p := f.publisher(Options{}, Hooks{MaxImageSize: func(int64, *model.Post) int64 { return 1000 }})
		id, err := p.mediaID(ctx, f.post)
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.Empty(t, f.poster.uploads)
	})

	t.Run("no featured image", func(t *testing.T) {
		f := newFixture(t)
		f.post.ThumbnailID = 0
		id, err := f.publisher(Options{}, Hooks{}).mediaID(ctx, f.post)
		require.NoError(t, err)
		assert.Empty(t, id)
	})
}

// ===================== Preview =====================

func TestPreview(t *testing.T) {
	f := newFixture(t)
	d, err := f.publisher(Options{}, Hooks{}).Preview(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome https://blog.example/?p=7", d.Text)
	require.NotNil(t, d.Image)
	assert.Equal(t, "medium", d.Image.Name)
	assert.Empty(t, f.poster.updates)
	assert.Empty(t, f.poster.uploads)
}
