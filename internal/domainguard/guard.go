// Package domainguard decides whether a URL points at a block-listed host.
package domainguard

import (
	"net"
	"strings"
)

// List stores exact hosts and suffix wildcards loaded from the domain block-list.
// A List is immutable after construction and safe for concurrent readers.
type List struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewList builds a List. Entries of the form "*.example" or ".example" match
// example and any of its subdomains; every other entry matches verbatim.
func NewList(entries []string) *List {
	list := &List{exact: make(map[string]struct{}, len(entries))}
	for _, raw := range entries {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			list.addSuffix(strings.ToLower(strings.TrimPrefix(value, "*.")))
		case strings.HasPrefix(value, "."):
			list.addSuffix(strings.ToLower(strings.TrimPrefix(value, ".")))
		default:
			list.exact[value] = struct{}{}
			if lower := strings.ToLower(value); lower != value {
				list.exact[lower] = struct{}{}
			}
		}
	}
	return list
}

func (l *List) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range l.suffixes {
		if existing == suffix {
			return
		}
	}
	l.suffixes = append(l.suffixes, suffix)
}

// Len returns the number of exact and wildcard entries.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.exact) + len(l.suffixes)
}

// Contains reports whether key is listed, either verbatim or through a wildcard.
func (l *List) Contains(key string) bool {
	if l == nil || key == "" {
		return false
	}
	if _, ok := l.exact[key]; ok {
		return true
	}
	lower := strings.ToLower(key)
	if _, ok := l.exact[lower]; ok {
		return true
	}
	for _, suffix := range l.suffixes {
		if lower == suffix || strings.HasSuffix(lower, "."+suffix) {
			return true
		}
	}
	return false
}

// LookupKey returns the string tested against the list for rawURL. When the
// first "/"-separated segment is exactly "www" the whole URL is used
// verbatim; otherwise the third segment, the host of a URL with a scheme, is
// used with any userinfo, port, query or fragment removed.
//
// The verbatim branch is kept as observed behaviour, see DESIGN.md.
func LookupKey(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	if parts[0] == "www" {
		return rawURL
	}
	if len(parts) < 3 {
		return ""
	}
	return hostOnly(parts[2])
}

func hostOnly(authority string) string {
	if i := strings.IndexAny(authority, "?#"); i >= 0 {
		authority = authority[:i]
	}
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}
	if host, _, err := net.SplitHostPort(authority); err == nil {
		authority = host
	}
	return strings.TrimSuffix(authority, ".")
}

// IsBlocked reports whether rawURL resolves to a listed domain.
func IsBlocked(rawURL string, list *List) bool {
	return list.Contains(LookupKey(rawURL))
}
