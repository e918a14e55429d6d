// Package readtime derives "minutes to read" from converted article HTML.
//
// The word count is deliberately naive: the HTML is split on runs of
// whitespace and the pieces are counted, markup included. Existing
// articles were scored this way, so the numbers must stay stable.
package readtime

import (
	"math"
	"unicode"
)

// WordsPerMinute is the assumed reading speed
const WordsPerMinute = 200

// WordCount returns the number of pieces obtained by splitting s on
// whitespace runs. An empty string counts as one piece, and leading or
// trailing whitespace contributes an empty piece.
func WordCount(s string) int {
	count := 1
	inSpace := false
	for _, r := range s {
		if isSpace(r) {
			if !inSpace {
				count++
				inSpace = true
			}
			continue
		}
		inSpace = false
	}
	return count
}

// Estimate converts a word count to whole minutes, never less than one
func Estimate(words int) int {
	minutes := int(math.Floor(float64(words)/WordsPerMinute + 0.5))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// FromHTML is Estimate(WordCount(html))
func FromHTML(html string) int {
	return Estimate(WordCount(html))
}

// isSpace matches the ECMAScript whitespace and line terminator set:
// any space separator (Zs), TAB, VT, FF, BOM, LF, CR, U+2028 and U+2029.
// Unlike unicode.IsSpace it excludes NEL (U+0085).
func isSpace(r rune) bool {
	switch r {
	case '\t', '\v', '\f', '\uFEFF', '\n', '\r', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}
