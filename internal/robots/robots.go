// Package robots parses robots.txt documents and evaluates candidate URLs
// against the allow and disallow directives that apply to a user agent.
package robots

import (
	"net/url"
	"strings"
)

// Directive is the kind of a path rule.
type Directive string

// Supported directives.
const (
	Allow    Directive = "allow"
	Disallow Directive = "disallow"
)

// Rule pairs a directive with its path value.
type Rule struct {
	Directive Directive
	Path      string
}

// Block holds the rules declared under one user-agent line.
type Block struct {
	UserAgent string
	Rules     []Rule
}

// RuleSet is the ordered list of blocks in a robots.txt document.
type RuleSet struct {
	Blocks []Block
}

// Verdict is the outcome of evaluating a URL. Both flags may be set at once.
type Verdict struct {
	Allowed    bool
	Disallowed bool
}

// Parse splits document into user-agent blocks. Every "user-agent:" line
// opens a new block; "allow:" and "disallow:" lines attach to the most recent
// block. Keys are case-insensitive, "#" comments are ignored and directives
// appearing before the first user-agent line are dropped.
func Parse(document string) RuleSet {
	var (
		set     RuleSet
		current = -1
	)
	for _, line := range strings.Split(document, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "user-agent":
			set.Blocks = append(set.Blocks, Block{UserAgent: value})
			current = len(set.Blocks) - 1
		case string(Allow):
			if current >= 0 {
				set.Blocks[current].Rules = append(set.Blocks[current].Rules, Rule{Directive: Allow, Path: value})
			}
		case string(Disallow):
			if current >= 0 {
				set.Blocks[current].Rules = append(set.Blocks[current].Rules, Rule{Directive: Disallow, Path: value})
			}
		}
	}
	return set
}

// Evaluate tests candidate against every block addressed to "*" or to
// userAgent. A rule matches when its path is contained anywhere in candidate,
// so an empty disallow path matches every URL.
//
// Containment over-matches ("/pub" matches "/public") and can also match
// outside the path component.
func Evaluate(set RuleSet, userAgent, candidate string) Verdict {
	var verdict Verdict
	for _, block := range set.Blocks {
		if !appliesTo(block.UserAgent, userAgent) {
			continue
		}
		for _, rule := range block.Rules {
			if !strings.Contains(candidate, rule.Path) {
				continue
			}
			switch rule.Directive {
			case Disallow:
				verdict.Disallowed = true
			case Allow:
				verdict.Allowed = true
			}
		}
	}
	return verdict
}

// appliesTo matches a block's agent token against the configured user agent,
// either as a whole or by its product token ("Bot" in "Bot/1.0").
func appliesTo(blockAgent, userAgent string) bool {
	if blockAgent == "*" {
		return true
	}
	if blockAgent == "" || userAgent == "" {
		return false
	}
	if strings.EqualFold(blockAgent, userAgent) {
		return true
	}
	product, _, _ := strings.Cut(userAgent, "/")
	return strings.EqualFold(blockAgent, strings.TrimSpace(product))
}

// DocumentURL returns the robots.txt location for rawURL's origin.
func DocumentURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", &url.Error{Op: "robots", URL: rawURL, Err: errMissingOrigin}
	}
	origin := url.URL{Scheme: parsed.Scheme, User: parsed.User, Host: parsed.Host, Path: "/robots.txt"}
	return origin.String(), nil
}
