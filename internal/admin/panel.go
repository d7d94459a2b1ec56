package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mikequentel/autoshare/internal/compose"
)

var ErrSaveInFlight = errors.New("admin: a save is already in flight")

// SaveError is a non-2xx answer from the settings endpoint.
type SaveError struct {
	Status     int
	StatusText string
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("settings endpoint: %d %s", e.Status, e.StatusText)
}

// PanelState is everything the edit screen renders.
type PanelState struct {
	Enabled        bool
	TweetBody      string
	AllowImage     bool
	Pending        bool
	SubmitDisabled bool
	ErrorMessage   string
}

// Panel holds the autoshare controls for one post and saves them through the
// admin endpoint. Only one save runs at a time; submit stays disabled while
// it does.
type Panel struct {
	client           *http.Client
	url              string
	ErrorText        string
	UnknownErrorText string

	inflight atomic.Bool
	mu       sync.Mutex
	state    PanelState
}

func NewPanel(client *http.Client, baseURL string, postID int64, initial PanelState) *Panel {
	if client == nil {
		client = http.DefaultClient
	}
	return &Panel{
		client:           client,
		url:              fmt.Sprintf("%s%s/posts/%d", strings.TrimRight(baseURL, "/"), apiPrefix, postID),
		ErrorText:        "Error",
		UnknownErrorText: "Unknown error",
		state:            initial,
	}
}

func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Panel) SetEnabled(v bool) {
	p.mu.Lock()
	p.state.Enabled = v
	p.mu.Unlock()
}

func (p *Panel) SetTweetBody(v string) {
	p.mu.Lock()
	p.state.TweetBody = v
	p.mu.Unlock()
}

func (p *Panel) SetAllowImage(v bool) {
	p.mu.Lock()
	p.state.AllowImage = v
	p.mu.Unlock()
}

// Remaining is the character counter shown under the override text.
func (p *Panel) Remaining() int { return compose.Remaining(p.State().TweetBody) }

func (p *Panel) OverLimit() bool { return compose.OverLimit(p.State().TweetBody) }

// Save sends the current settings. On success the panel takes the enabled and
// allowImage values the server answered with. On failure the error is shown,
// enabled is switched back off and submit is enabled again.
func (p *Panel) Save(ctx context.Context) error {
	if !p.inflight.CompareAndSwap(false, true) {
		return ErrSaveInFlight
	}
	defer p.inflight.Store(false)

	p.mu.Lock()
	req := settingsRequest{
		Enabled:    &p.state.Enabled,
		TweetBody:  p.state.TweetBody,
		AllowImage: p.state.AllowImage,
	}
	body, err := json.Marshal(req)
	p.state.Pending = true
	p.state.SubmitDisabled = true
	p.mu.Unlock()
	if err != nil {
		return p.failed(err)
	}

	res, err := p.post(ctx, body)
	if err != nil {
		return p.failed(err)
	}

	p.mu.Lock()
	p.state.Enabled = res.Enabled
	p.state.AllowImage = res.AllowImage
	p.state.ErrorMessage = ""
	p.state.Pending = false
	p.state.SubmitDisabled = false
	p.mu.Unlock()
	return nil
}

func (p *Panel) post(ctx context.Context, body []byte) (*settingsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, &SaveError{Status: resp.StatusCode, StatusText: text}
	}

	var out settingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode settings response: %w", err)
	}
	return &out, nil
}

func (p *Panel) failed(err error) error {
	msg := p.UnknownErrorText
	var se *SaveError
	if errors.As(err, &se) {
		msg = fmt.Sprintf("%s %d: %s", p.ErrorText, se.Status, se.StatusText)
	}

	p.mu.Lock()
	p.state.ErrorMessage = msg
	p.state.Enabled = false
	p.state.Pending = false
	p.state.SubmitDisabled = false
	p.mu.Unlock()
	return err
}
