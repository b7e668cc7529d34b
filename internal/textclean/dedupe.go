package textclean

import "strings"

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// Segments splits text after every run of sentence terminators ('.', '!', '?').
// Trailing text without a terminator forms the final segment. Segments are
// trimmed and empty ones dropped.
func Segments(text string) []string {
	var (
		out   []string
		start int
	)
	emit := func(end int) {
		if seg := strings.TrimSpace(text[start:end]); seg != "" {
			out = append(out, seg)
		}
		start = end
	}
	for i := 0; i < len(text); i++ {
		if !isTerminator(text[i]) {
			continue
		}
		for i+1 < len(text) && isTerminator(text[i+1]) {
			i++
		}
		emit(i + 1)
	}
	emit(len(text))
	return out
}

// DedupeSentences drops every segment identical to one seen earlier in text
// and rejoins the survivors with single spaces in first-seen order. Applying
// it to its own output is a no-op.
func DedupeSentences(text string) string {
	segments := Segments(text)
	if len(segments) == 0 {
		return ""
	}
	return strings.Join(DedupeFragments(segments), " ")
}

// DedupeFragments removes repeated whole fragments, keeping the first occurrence.
func DedupeFragments(fragments []string) []string {
	seen := make(map[string]struct{}, len(fragments))
	out := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if _, dup := seen[fragment]; dup {
			continue
		}
		seen[fragment] = struct{}{}
		out = append(out, fragment)
	}
	return out
}
