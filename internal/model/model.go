package model

// MaxTweetLength is the X character limit for a single post.
const MaxTweetLength = 280

type Post struct {
	ID          int64
	Title       string
	Permalink   string
	PostType    string // eg: "post", "page"
	Status      string // eg: "publish", "draft"
	ThumbnailID int64  // 0 when the post has no featured image
}

const PostStatusPublish = "publish"

// Attachment is an uploaded image and the renditions generated from it.
// File is the absolute path of the full-size image; renditions live beside it.
type Attachment struct {
	ID       int64
	PostID   int64
	File     string
	Width    int
	Height   int
	FileSize int64
	Sizes    map[string]Rendition
}

// Rendition is one generated size of an attachment. File is a bare file
// name relative to the attachment's directory. FileSize is 0 when unknown.
type Rendition struct {
	Name     string
	File     string
	Width    int
	Height   int
	FileSize int64
}

func (r Rendition) Area() int { return r.Width * r.Height }

// Settings are the per-post autoshare options edited in the admin panel.
type Settings struct {
	Enabled    bool   `json:"enabled"`
	TweetBody  string `json:"tweetBody"`
	AllowImage bool   `json:"allowImage"`
}

const (
	StatusPublished = "published"
	StatusError     = "error"
	StatusUnknown   = "unknown"
)

// Status is the record persisted after a publish attempt.
type Status struct {
	Status    string `json:"status"`
	TwitterID string `json:"twitter_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"` // X created_at, eg: "Wed Oct 10 20:19:24 +0000 2018"
	Handle    string `json:"handle,omitempty"`
	Message   string `json:"message,omitempty"`
}

// --- outbound status update ---

type StatusUpdate struct {
	Text     string   `json:"text"`
	MediaIDs []string `json:"media_ids,omitempty"`
}

type Tweet struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Text      string `json:"text"`
}

// --- v1.1 media/upload (simple upload) ---

type MediaUploadResp struct {
	MediaID       int64  `json:"media_id"`
	MediaIDString string `json:"media_id_string"`
}

// --- error bodies ---

type V1Errors struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type V2Problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}
