package dictionary

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/safescrape/internal/source/memory"
)

var testConfig = Config{
	TermsFile:   "slurs.txt",
	NamesFile:   "nsfw-names.txt",
	DomainsFile: "nsfw.txt",
	BloomFPRate: 0.01,
}

func seededSource() *memory.Source {
	src := memory.New()
	src.PutLines("slurs.txt", "badword", "  worse  ", "", "Badword")
	src.PutLines("nsfw-names.txt", "spicyname")
	src.PutLines("nsfw.txt", "evil.example", "*.adult.example")
	return src
}

func TestParseWords(t *testing.T) {
	t.Parallel()

	words, err := ParseWords(strings.NewReader("one\r\n\n  two  \n\t\nThree"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "Three"}, words)

	words, err = ParseWords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestLexiconContainsEveryEntry(t *testing.T) {
	t.Parallel()

	words := []string{"alpha", "alphabet", "Beta", "gamma-ray", "δέλτα"}
	lex := NewLexicon("terms", words, 0.001)
	for _, w := range words {
		assert.True(t, lex.ContainsExact(w), w)
	}
	assert.False(t, lex.ContainsExact("beta"), "matching is case-sensitive")
	assert.False(t, lex.ContainsExact("alph"))
	assert.True(t, lex.HasPrefix("alph"))
	assert.False(t, lex.HasPrefix(""))
	assert.Equal(t, 5, lex.Len())
	assert.Equal(t, "terms", lex.Name())
}

func TestSetNil(t *testing.T) {
	t.Parallel()

	var s *Set
	assert.False(t, s.Contains("x"))
	assert.Zero(t, s.Len())

	empty := NewSet(nil, 0)
	assert.False(t, empty.Contains(""))
}

func TestStoreLoad(t *testing.T) {
	t.Parallel()

	src := seededSource()
	store := NewStore(src, testConfig, nil)
	assert.False(t, store.Loaded())

	d, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, store.Loaded())
	assert.True(t, d.Terms.ContainsExact("badword"))
	assert.True(t, d.Terms.ContainsExact("worse"))
	assert.True(t, d.Terms.ContainsExact("Badword"))
	assert.True(t, d.Names.HasPrefix("spicy"))
	assert.True(t, d.Domains.Contains("evil.example"))
	assert.True(t, d.Domains.Contains("www.adult.example"))

	again, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, d, again, "subsequent loads return the cached generation")
	assert.Equal(t, 1, src.Opens("slurs.txt"))
}

func TestStoreLoadRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	src := seededSource()
	src.Delete("nsfw.txt")
	store := NewStore(src, testConfig, nil)

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.False(t, store.Loaded())

	src.PutLines("nsfw.txt", "evil.example")
	d, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.Domains.Len())
	assert.Equal(t, 2, src.Opens("nsfw.txt"))
}

func TestStoreEmptyList(t *testing.T) {
	t.Parallel()

	src := seededSource()
	src.Put("nsfw-names.txt", "\n   \n")
	store := NewStore(src, testConfig, nil)

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyList))
}

func TestStoreNoSource(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, testConfig, nil).Load(context.Background())
	assert.Error(t, err)
}

// countingSource blocks every Open until release is closed.
type countingSource struct {
	inner   *memory.Source
	release chan struct{}
	opens   atomic.Int32
}

func (c *countingSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	c.opens.Add(1)
	<-c.release
	return c.inner.Open(ctx, name)
}

func TestStoreConcurrentFirstLoadIsSingleFlight(t *testing.T) {
	t.Parallel()

	src := &countingSource{inner: seededSource(), release: make(chan struct{})}
	store := NewStore(src, testConfig, nil)

	const callers = 16
	var (
		wg      sync.WaitGroup
		results = make([]*Dictionaries, callers)
		errs    = make([]error, callers)
		started sync.WaitGroup
	)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = store.Load(context.Background())
		}(i)
	}
	started.Wait()
	close(src.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(3), src.opens.Load(), "one load reads each resource once")
}

func TestStoreReloadSwapsGeneration(t *testing.T) {
	t.Parallel()

	src := seededSource()
	store := NewStore(src, testConfig, nil)

	first, err := store.Load(context.Background())
	require.NoError(t, err)

	src.PutLines("slurs.txt", "fresh")
	second, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.True(t, second.Terms.ContainsExact("fresh"))
	assert.False(t, second.Terms.ContainsExact("badword"))
	assert.True(t, first.Terms.ContainsExact("badword"), "old generation is untouched")

	current, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, current)

	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	same, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.Fingerprint, same.Fingerprint, "unchanged lists keep their fingerprint")
	second = same

	src.Delete("slurs.txt")
	_, err = store.Reload(context.Background())
	require.Error(t, err)
	current, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, current, "failed reload keeps the previous generation")
}

func TestStoreLoadIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := NewStore(seededSource(), testConfig, nil).Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, d)
}
