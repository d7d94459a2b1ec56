package compose

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortURL = "https://x.co/abc"

// ===================== Tweet =====================

func TestTweet(t *testing.T) {
	tests := []struct {
		name string
		body string
		url  string
		want string
	}{
		{
			name: "fits without truncation",
			body: "Hello world this is a long tweet",
			url:  shortURL,
			want: "Hello world this is a long tweet https://x.co/abc",
		},
		{
			name: "drops whole words",
			body: strings.TrimSpace(strings.Repeat("word ", 100)),
			url:  shortURL,
			want: strings.TrimSpace(strings.Repeat("word ", 52)) + " ... " + shortURL,
		},
		{
			name: "hard cut without spaces",
			body: strings.Repeat("a", 300),
			url:  shortURL,
			want: strings.Repeat("a", 259) + " ... " + shortURL,
		},
		{
			name: "hard cut counts runes",
			body: strings.Repeat("日", 300),
			url:  shortURL,
			want: strings.Repeat("日", 259) + " ... " + shortURL,
		},
		{
			name: "empty body",
			body: "",
			url:  shortURL,
			want: shortURL,
		},
		{
			name: "no url",
			body: "Just words",
			url:  "",
			want: "Just words",
		},
		{
			name: "url consumes whole budget",
			body: "hello",
			url:  strings.Repeat("u", 275),
			want: strings.Repeat("u", 275),
		},
		{
			name: "repeated spaces collapse at the cut",
			body: "aaa  bbb",
			url:  strings.Repeat("u", 270),
			want: "aaa ... " + strings.Repeat("u", 270),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tweet(tt.body, tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, Count(got), 280)
		})
	}
}

func TestTweet_URLTooLong(t *testing.T) {
	_, err := Tweet("hello", strings.Repeat("u", 276))
	assert.ErrorIs(t, err, ErrURLTooLong)
}

func TestTweet_FitsExactly(t *testing.T) {
	// 275 - 16 = 259, the longest body that needs no truncation.
	body := strings.Repeat("b", 259)
	got, err := Tweet(body, shortURL)
	require.NoError(t, err)
	assert.Equal(t, body+" "+shortURL, got)

	got, err = Tweet(body+"b", shortURL)
	require.NoError(t, err)
	assert.Contains(t, got, " ... ")
}

func TestTweet_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"a", "quick", "brown", "fox", "jumps", "über", "the", "lazy", "dog", "日本語", "supercalifragilistic"}

	for i := 0; i < 500; i++ {
		n := rng.Intn(120)
		parts := make([]string, n)
		for j := range parts {
			parts[j] = words[rng.Intn(len(words))]
		}
		body := strings.Join(parts, " ")
		url := "https://example.com/" + strings.Repeat("p", rng.Intn(250))

		got, err := Tweet(body, url)
		require.NoError(t, err)
		require.LessOrEqual(t, Count(got), 280, "body=%q url=%q", body, url)
		require.True(t, strings.HasSuffix(got, url))

		if Count(body) <= 275-Count(url) && body != "" {
			require.Equal(t, body+" "+url, got)
			continue
		}
		if got == url {
			continue
		}
		require.Contains(t, got, " ... "+url)
		head := strings.TrimSuffix(got, " ... "+url)
		require.Equal(t, strings.TrimSpace(head), head)
		require.NotContains(t, head, "  ")
		require.True(t, strings.HasPrefix(body, head))
	}
}

// ===================== counter =====================

func TestCounter(t *testing.T) {
	assert.Equal(t, 4, Count("café"))
	assert.Equal(t, 276, Remaining("café"))
	assert.False(t, OverLimit(strings.Repeat("x", 280)))
	assert.True(t, OverLimit(strings.Repeat("x", 281)))
	assert.Equal(t, -1, Remaining(strings.Repeat("日", 281)))
}

// ===================== Sanitize =====================

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain title", "Plain title"},
		{"  padded \n\t title  ", "padded title"},
		{"<strong>Bold</strong> move", "Bold move"},
		{"Fish &amp; Chips", "Fish & Chips"},
		{"Hi<script>alert(1)</script> there", "Hi there"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
