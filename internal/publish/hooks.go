package publish

import "github.com/mikequentel/autoshare/internal/model"

// Hooks are optional extension points. They run in the order they are
// declared here; a nil hook leaves its input unchanged.
type Hooks struct {
	TransformBody func(body string, post *model.Post) string
	TransformURL  func(url string, post *model.Post) string
	// AttachImage can veto (or force) using the featured image.
	AttachImage  func(allow bool, post *model.Post) bool
	MaxImageSize func(limit int64, post *model.Post) int64
	// PreMediaUpload supplies a media id without uploading when ok is true.
	PreMediaUpload          func(post *model.Post) (mediaID string, ok bool)
	TransformRequestPayload func(u model.StatusUpdate, post *model.Post) model.StatusUpdate
	// PreStatusUpdate skips the call to X when handled is true. A nil tweet
	// means nothing was posted and no status is recorded.
	PreStatusUpdate func(u model.StatusUpdate, post *model.Post) (tweet *model.Tweet, handled bool)
}

func (h Hooks) transformBody(body string, post *model.Post) string {
	if h.TransformBody == nil {
		return body
	}
	return h.TransformBody(body, post)
}

func (h Hooks) transformURL(url string, post *model.Post) string {
	if h.TransformURL == nil {
		return url
	}
	return h.TransformURL(url, post)
}

func (h Hooks) attachImage(allow bool, post *model.Post) bool {
	if h.AttachImage == nil {
		return allow
	}
	return h.AttachImage(allow, post)
}

func (h Hooks) maxImageSize(limit int64, post *model.Post) int64 {
	if h.MaxImageSize == nil {
		return limit
	}
	return h.MaxImageSize(limit, post)
}

func (h Hooks) transformRequestPayload(u model.StatusUpdate, post *model.Post) model.StatusUpdate {
	if h.TransformRequestPayload == nil {
		return u
	}
	return h.TransformRequestPayload(u, post)
}
