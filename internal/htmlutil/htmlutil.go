// Package htmlutil removes HTML markup from question text.
package htmlutil

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoadHTML parses HTML bytes into a goquery Document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses HTML string into a goquery Document.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return LoadHTML(strings.NewReader(htmlStr))
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// HasMarkup reports whether text contains something that looks like a tag.
func HasMarkup(text string) bool {
	return tagRe.MatchString(text)
}

// StripTags returns the text content of s with all markup removed. Text
// without anything tag-like is returned unchanged. Script and style bodies
// are dropped.
func StripTags(s string) string {
	if !HasMarkup(s) {
		return s
	}
	doc, err := LoadHTMLString(s)
	if err != nil {
		return tagRe.ReplaceAllString(s, "")
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}
