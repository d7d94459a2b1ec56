// Package compose builds the text of an outbound post from a body and a URL.
package compose

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikequentel/autoshare/internal/model"
)

// ErrURLTooLong is returned when the URL alone does not fit in the tweet.
var ErrURLTooLong = errors.New("compose: url leaves no room in the tweet")

const (
	// bodyBudget is 275 instead of 280: one space before the URL and the ellipsis.
	bodyBudget = model.MaxTweetLength - 5
	// Plain ASCII; an HTML entity would be posted literally.
	ellipsis = " ..."
)

// Tweet composes "<body>[ ...] <url>" so the result is never longer than
// model.MaxTweetLength runes. Words are dropped from the end of body until it
// fits; a body without whitespace is cut hard at the limit. A body that
// truncates to nothing yields the URL alone.
func Tweet(body, url string) (string, error) {
	if runeLen(url) > bodyBudget {
		return "", ErrURLTooLong
	}
	bodyMax := bodyBudget - runeLen(url)

	suffix := ""
	for runeLen(body) > bodyMax {
		suffix = ellipsis

		i := strings.LastIndexFunc(body, unicode.IsSpace)
		if i < 0 {
			body = truncateRunes(body, bodyMax)
			break
		}
		body = strings.TrimRightFunc(body[:i], unicode.IsSpace)
	}

	switch {
	case body == "":
		return url, nil
	case url == "":
		return body + suffix, nil
	}
	return body + suffix + " " + url, nil
}

// Count returns the number of characters X will count for text.
func Count(text string) int { return runeLen(text) }

// Remaining is the number of characters left before the tweet limit. It is
// negative when text is over the limit.
func Remaining(text string) int { return model.MaxTweetLength - runeLen(text) }

func OverLimit(text string) bool { return Remaining(text) < 0 }

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
