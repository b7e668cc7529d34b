package robots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	t.Parallel()

	doc := "# comment line\n" +
		"Disallow: /orphan\n" +
		"User-agent: *\n" +
		"Disallow: /private # trailing comment\n" +
		"ALLOW: /private/open\n" +
		"\n" +
		"user-agent: SafeScrapeBot\n" +
		"Disallow:\n" +
		"Crawl-delay: 10\n" +
		"garbage line\n"

	set := Parse(doc)

	require.Len(t, set.Blocks, 2)
	assert.Equal(t, "*", set.Blocks[0].UserAgent)
	assert.Equal(t, []Rule{
		{Directive: Disallow, Path: "/private"},
		{Directive: Allow, Path: "/private/open"},
	}, set.Blocks[0].Rules)
	assert.Equal(t, "SafeScrapeBot", set.Blocks[1].UserAgent)
	assert.Equal(t, []Rule{{Directive: Disallow, Path: ""}}, set.Blocks[1].Rules)
}

func TestParseUserAgentResetsAccumulator(t *testing.T) {
	t.Parallel()

	set := Parse("User-agent: a\nUser-agent: b\nDisallow: /x\n")

	require.Len(t, set.Blocks, 2)
	assert.Empty(t, set.Blocks[0].Rules)
	assert.Len(t, set.Blocks[1].Rules, 1)
}

func TestEvaluateWildcardDisallow(t *testing.T) {
	t.Parallel()

	set := Parse("User-agent: *\nDisallow: /private\n")

	got := Evaluate(set, "SafeScrapeBot/1.0", "/private/page")
	assert.True(t, got.Disallowed)

	got = Evaluate(set, "SafeScrapeBot/1.0", "/public")
	assert.False(t, got.Disallowed)
	assert.False(t, got.Allowed)
}

func TestEvaluateAllowAndAgentMatching(t *testing.T) {
	t.Parallel()

	set := Parse("User-agent: otherbot\nDisallow: /\n\nUser-agent: safescrapebot\nAllow: /\n")

	got := Evaluate(set, "SafeScrapeBot/1.0", "https://example.com/page")
	assert.True(t, got.Allowed)
	assert.False(t, got.Disallowed, "rules for other agents must not apply")

	got = Evaluate(set, "", "https://example.com/page")
	assert.False(t, got.Allowed)
}

func TestEvaluateEmptyDisallowMatchesEverything(t *testing.T) {
	t.Parallel()

	set := Parse("User-agent: *\nDisallow:\nAllow: /ok\n")
	got := Evaluate(set, "bot", "https://example.com/ok")
	assert.True(t, got.Disallowed)
	assert.True(t, got.Allowed)
}

func TestEvaluateSubstringOverMatch(t *testing.T) {
	t.Parallel()

	set := Parse("User-agent: *\nDisallow: /pub\n")
	assert.True(t, Evaluate(set, "bot", "https://example.com/public").Disallowed)
}

func TestDocumentURL(t *testing.T) {
	t.Parallel()

	got, err := DocumentURL("https://example.com:8443/a/b?c=d#e")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443/robots.txt", got)

	_, err = DocumentURL("example.com/path")
	assert.Error(t, err)

	_, err = DocumentURL("http://%zz")
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	t.Parallel()

	var disabled *Cache
	disabled.Add("k", "v")
	_, ok := disabled.Get("k")
	assert.False(t, ok)
	assert.Nil(t, NewCache(10, 0))
	assert.Nil(t, NewCache(0, time.Minute))

	c := NewCache(2, time.Minute)
	require.NotNil(t, c)
	c.Add("https://a.example/robots.txt", "User-agent: *")
	doc, ok := c.Get("https://a.example/robots.txt")
	require.True(t, ok)
	assert.Equal(t, "User-agent: *", doc)
	assert.Equal(t, 1, c.Len())
}
