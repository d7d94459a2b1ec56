package compose

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sanitize reduces s to plain single-line text: markup is stripped, entities
// are decoded and runs of whitespace collapse to one space.
func Sanitize(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("script, style").Remove()
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
