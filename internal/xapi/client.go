// Package xapi talks to the X (Twitter) API: one status update per publish,
// optionally preceded by a media upload.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog"

	"github.com/mikequentel/autoshare/internal/media"
	"github.com/mikequentel/autoshare/internal/model"
)

const DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

const (
	opUpdate = "POST /1.1/statuses/update.json"
	opUpload = "POST /1.1/media/upload.json"
)

type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

type Client struct {
	http      *http.Client
	api       *twitter.Client
	uploadURL string
	log       zerolog.Logger
}

type Option func(*Client)

// WithUploadURL points media uploads somewhere other than upload.twitter.com.
func WithUploadURL(u string) Option {
	return func(c *Client) { c.uploadURL = u }
}

// New returns a client whose requests are OAuth1 signed with creds. Requests
// give up after timeout; nothing is retried.
func New(ctx context.Context, creds Credentials, timeout time.Duration, log zerolog.Logger, opts ...Option) *Client {
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(ctx, token)
	httpClient.Timeout = timeout
	return NewWithHTTPClient(httpClient, log, opts...)
}

func NewWithHTTPClient(httpClient *http.Client, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		http:      httpClient,
		api:       twitter.NewClient(httpClient),
		uploadURL: DefaultUploadURL,
		log:       log.With().Str("component", "xapi").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateStatus posts u and returns the created tweet.
func (c *Client) UpdateStatus(ctx context.Context, u model.StatusUpdate) (*model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &twitter.StatusUpdateParams{}
	for _, id := range u.MediaIDs {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid media id %q: %w", id, err)
		}
		params.MediaIds = append(params.MediaIds, n)
	}

	tweet, resp, err := c.api.Statuses.Update(u.Text, params)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &APIError{
			Op:         opUpdate,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Message:    describeTwitterError(resp, err),
			Err:        err,
		}
	}
	if err != nil {
		return nil, &APIError{Op: opUpdate, Message: err.Error(), Err: err}
	}
	if tweet == nil || tweet.IDStr == "" {
		return nil, &APIError{Op: opUpdate, Message: "response missing tweet id"}
	}

	c.log.Info().Str("tweet_id", tweet.IDStr).Int("media", len(u.MediaIDs)).Msg("Status updated")
	return &model.Tweet{ID: tweet.IDStr, CreatedAt: tweet.CreatedAt, Text: tweet.Text}, nil
}

// UploadMedia sends the image at path with the v1.1 simple upload and returns
// its media id.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	data, mime, err := media.ReadImage(path)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", mime)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &APIError{Op: opUpload, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Op: opUpload, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{
			Op:         opUpload,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Message:    diagnoseHTTPError(resp, body, opUpload),
		}
	}

	var out model.MediaUploadResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode media upload response: %w", err)
	}
	id := out.MediaIDString
	if id == "" && out.MediaID != 0 {
		id = strconv.FormatInt(out.MediaID, 10)
	}
	if id == "" {
		return "", errors.New("media upload: missing media_id in response")
	}

	c.log.Info().Str("media_id", id).Str("mime", mime).Int("bytes", len(data)).Msg("Media uploaded")
	return id, nil
}
