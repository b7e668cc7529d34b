package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"emoji", "great 😀 news 🙏", "great news"},
		{"non ascii", "café über", "caf ber"},
		{"newlines and tabs", "line one\n\n\tline two\r\n", "line one line two"},
		{"only noise", "  😀 \n ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSegments(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"One.", "Two!!", "Three?"}, Segments("One. Two!! Three?"))
	assert.Equal(t, []string{"no terminator here"}, Segments("no terminator here"))
	assert.Equal(t, []string{"First.", "trailing words"}, Segments("First. trailing words"))
	assert.Equal(t, []string{"...", "Hi."}, Segments("...Hi."))
	assert.Empty(t, Segments("   "))
}

func TestDedupeSentencesKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	in := "Buy now. Great deal! Buy now. Limited offer? Great deal!"
	assert.Equal(t, "Buy now. Great deal! Limited offer?", DedupeSentences(in))
}

func TestDedupeSentencesWithoutTerminator(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "just one fragment", DedupeSentences("just one fragment"))
	assert.Equal(t, "", DedupeSentences(""))
}

func TestDedupeSentencesIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"A. A. B! B! C?",
		"Hello.World.Hello.",
		"...Lead. Lead.",
		"x. . y. .",
		"tail without end",
		"Mixed!? Mixed!? end",
	}
	for _, in := range inputs {
		once := DedupeSentences(in)
		assert.Equalf(t, once, DedupeSentences(once), "input %q", in)
	}
}

func TestDedupeFragments(t *testing.T) {
	t.Parallel()

	got := DedupeFragments([]string{"b", "a", "b", "c", "a"})
	assert.Equal(t, []string{"b", "a", "c"}, got)
	assert.Empty(t, DedupeFragments(nil))
}

func FuzzDedupeSentencesIdempotent(f *testing.F) {
	for _, seed := range []string{"A. B. A.", "no end", "!!!", "a.b?c!"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		once := DedupeSentences(in)
		if twice := DedupeSentences(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}
