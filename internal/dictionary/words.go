// Package dictionary loads the block-lists used to redact words and flag
// domains, and caches them for the life of the process.
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/JakeFAU/safescrape/internal/trie"
)

const maxLineBytes = 1 << 20

// ParseWords reads one entry per line, trimming whitespace and skipping blank
// lines. Entries keep their case.
func ParseWords(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var words []string
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan words: %w", err)
	}
	return words, nil
}

// Set answers exact membership. A bloom filter rejects most misses before
// the map lookup.
type Set struct {
	filter  *bloom.BloomFilter
	members map[string]struct{}
}

// NewSet builds a Set sized for entries at the given false-positive rate.
func NewSet(entries []string, fpRate float64) *Set {
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.001
	}
	n := uint(len(entries))
	if n == 0 {
		n = 1
	}
	s := &Set{
		filter:  bloom.NewWithEstimates(n, fpRate),
		members: make(map[string]struct{}, len(entries)),
	}
	for _, entry := range entries {
		s.filter.AddString(entry)
		s.members[entry] = struct{}{}
	}
	return s
}

// Contains reports whether word is a member.
func (s *Set) Contains(word string) bool {
	if s == nil || !s.filter.TestString(word) {
		return false
	}
	_, ok := s.members[word]
	return ok
}

// Len returns the number of distinct members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Lexicon is one loaded word list with both a membership set and a prefix tree.
type Lexicon struct {
	name  string
	set   *Set
	index *trie.Trie
}

// NewLexicon indexes words under name.
func NewLexicon(name string, words []string, fpRate float64) *Lexicon {
	return &Lexicon{
		name:  name,
		set:   NewSet(words, fpRate),
		index: trie.Build(words),
	}
}

// Name identifies the list, e.g. "terms".
func (l *Lexicon) Name() string { return l.name }

// Len returns the number of distinct words.
func (l *Lexicon) Len() int { return l.set.Len() }

// ContainsExact reports an exact match in either the set or the tree.
func (l *Lexicon) ContainsExact(word string) bool {
	return l.set.Contains(word) || l.index.ContainsExact(word)
}

// HasPrefix reports whether word begins some listed word.
func (l *Lexicon) HasPrefix(word string) bool {
	return l.index.HasPrefix(word)
}
