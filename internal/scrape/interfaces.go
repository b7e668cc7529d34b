package scrape

import (
	"context"
	"time"

	"github.com/JakeFAU/safescrape/internal/dictionary"
)

// Browser starts isolated browser sessions. Sessions are never shared
// between requests.
type Browser interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one live browser page.
type Session interface {
	// FetchDocument returns the body of a plain-text resource such as
	// robots.txt, or "" when the server answers with a non-success status.
	FetchDocument(ctx context.Context, url string) (string, error)
	// Navigate loads url, waits for DOMContentLoaded and returns the final
	// URL after redirects.
	Navigate(ctx context.Context, url string) (string, error)
	// ExtractText returns the trimmed, non-empty text of text-bearing elements.
	ExtractText(ctx context.Context) ([]string, error)
	Close() error
}

// Clock tells time and waits.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// DictionaryLoader hands out the current block-list generation.
type DictionaryLoader interface {
	Load(ctx context.Context) (*dictionary.Dictionaries, error)
}
