// Package textclean normalizes extracted page text and removes repeated content.
package textclean

import (
	"regexp"
	"strings"
)

var (
	emoticons  = regexp.MustCompile(`[\x{1F600}-\x{1F64F}]`)
	nonASCII   = regexp.MustCompile(`[^\x00-\x7F]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize strips emoticons and all non-ASCII characters, collapses runs of
// whitespace (newlines included) into a single space and trims the result.
func Normalize(raw string) string {
	text := emoticons.ReplaceAllString(raw, "")
	text = nonASCII.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
