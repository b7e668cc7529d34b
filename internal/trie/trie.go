// Package trie implements the prefix tree used to match block-listed words.
package trie

// node is a single character position in the tree.
type node struct {
	children map[rune]*node
	terminal bool
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Trie stores words keyed by rune and answers exact and prefix queries.
// A Trie is not safe for concurrent mutation; build it once with Build and
// share the result read-only.
type Trie struct {
	root  *node
	words int
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Build constructs a Trie holding every entry. Empty entries are skipped.
func Build(entries []string) *Trie {
	t := New()
	for _, entry := range entries {
		t.Insert(entry)
	}
	return t
}

// Insert adds word to the tree. Terminal flags are never cleared once set.
func (t *Trie) Insert(word string) {
	if word == "" {
		return
	}
	current := t.root
	for _, r := range word {
		next, ok := current.children[r]
		if !ok {
			next = newNode()
			current.children[r] = next
		}
		current = next
	}
	if !current.terminal {
		current.terminal = true
		t.words++
	}
}

// ContainsExact reports whether word was inserted.
func (t *Trie) ContainsExact(word string) bool {
	n := t.walk(word)
	return n != nil && n.terminal
}

// HasPrefix reports whether word is a prefix of (or equal to) some stored word.
// The empty string is never reported as a prefix.
func (t *Trie) HasPrefix(word string) bool {
	if word == "" {
		return false
	}
	return t.walk(word) != nil
}

// Len returns the number of distinct stored words.
func (t *Trie) Len() int {
	if t == nil {
		return 0
	}
	return t.words
}

func (t *Trie) walk(word string) *node {
	if t == nil || t.root == nil {
		return nil
	}
	current := t.root
	for _, r := range word {
		next, ok := current.children[r]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}
