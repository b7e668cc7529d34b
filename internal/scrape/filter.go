package scrape

import (
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/safescrape/internal/dictionary"
)

// DefaultRedactionMarker replaces every filtered word.
const DefaultRedactionMarker = "***"

// Redactor replaces block-listed words in a fragment. It only reads the
// dictionaries and is safe for concurrent use.
type Redactor struct {
	terms     *dictionary.Lexicon
	names     *dictionary.Lexicon
	marker    string
	minPrefix int
}

// NewRedactor builds a Redactor over one dictionary generation. Terms match
// exactly; names match exactly or when the word begins a listed name and is
// at least minPrefix runes long.
func NewRedactor(d *dictionary.Dictionaries, marker string, minPrefix int) *Redactor {
	if marker == "" {
		marker = DefaultRedactionMarker
	}
	if minPrefix < 1 {
		minPrefix = 1
	}
	return &Redactor{terms: d.Terms, names: d.Names, marker: marker, minPrefix: minPrefix}
}

// Marker returns the replacement token.
func (r *Redactor) Marker() string { return r.marker }

// Redact splits text on single spaces, replaces matching words with the
// marker and rejoins. It returns the number of replaced words.
func (r *Redactor) Redact(text string) (string, int) {
	if text == "" {
		return text, 0
	}
	words := strings.Split(text, " ")
	replaced := 0
	for i, word := range words {
		if r.matches(word) {
			words[i] = r.marker
			replaced++
		}
	}
	if replaced == 0 {
		return text, 0
	}
	return strings.Join(words, " "), replaced
}

func (r *Redactor) matches(word string) bool {
	if word == "" {
		return false
	}
	if r.terms != nil && r.terms.ContainsExact(word) {
		return true
	}
	if r.names == nil {
		return false
	}
	if r.names.ContainsExact(word) {
		return true
	}
	return utf8.RuneCountInString(word) >= r.minPrefix && r.names.HasPrefix(word)
}
