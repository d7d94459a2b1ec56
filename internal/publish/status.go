package publish

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mikequentel/autoshare/internal/model"
)

// StatusView is a status record with the link and local date derived from it.
type StatusView struct {
	model.Status
	URL  string `json:"url,omitempty"`
	Date string `json:"date,omitempty"`
}

// DateFromTwitter renders X's created_at in tz ("" means UTC), eg:
// "2018-10-10 @ 8:19PM".
func DateFromTwitter(createdAt, tz string) (string, error) {
	t, err := time.Parse(time.RubyDate, createdAt)
	if err != nil {
		return "", fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("timezone %q: %w", tz, err)
	}
	return t.In(loc).Format("2006-01-02 @ 3:04PM"), nil
}

// LinkFromTwitter is the public URL of a tweet. Without a handle there is no
// URL to build and "" is returned.
func LinkFromTwitter(handle, id string) string {
	if handle == "" || id == "" {
		return ""
	}
	return "https://twitter.com/" + url.PathEscape(handle) + "/status/" + url.PathEscape(id)
}

// StatusView returns the post's status record, or nil if it was never shared.
func (p *Publisher) StatusView(ctx context.Context, postID int64) (*StatusView, error) {
	st, err := p.store.Status(ctx, postID)
	if err != nil || st == nil {
		return nil, err
	}
	v := &StatusView{Status: *st}
	if st.Status != model.StatusPublished {
		return v, nil
	}

	handle := st.Handle
	if handle == "" {
		handle = p.opts.Handle
	}
	v.URL = LinkFromTwitter(handle, st.TwitterID)
	if st.CreatedAt != "" {
		if v.Date, err = DateFromTwitter(st.CreatedAt, p.opts.Timezone); err != nil {
			p.log.Warn().Err(err).Int64("post_id", postID).Msg("Unreadable tweet date")
		}
	}
	return v, nil
}
