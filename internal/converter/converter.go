// Package converter turns staged word-processor documents into sanitized HTML.
package converter

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrUnreadable is returned when the file cannot be opened or is not a container
	ErrUnreadable = errors.New("document is unreadable")
	// ErrMalformed is returned when the container does not hold a valid document
	ErrMalformed = errors.New("document is malformed")
)

// Converter produces HTML for the document stored at path.
// Implementations are stateless: converting the same file twice yields
// the same HTML.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// Sanitizer strips unsafe markup while keeping document structure
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer with the user-generated-content policy
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Sanitizer{policy: p}
}

// Sanitize returns the sanitized form of html
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}

// PlainText returns the visible text of html with whitespace collapsed
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	// keep block boundaries from gluing words together
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, td, br").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Describe returns at most maxRunes of the text of html, cut on a word
// boundary when possible
func Describe(html string, maxRunes int) (string, error) {
	text, err := PlainText(html)
	if err != nil {
		return "", err
	}
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text, nil
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "...", nil
}
