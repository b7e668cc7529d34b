// Package scrape drives one browser session per request through the robots
// check, domain checks, text extraction, cleanup, and redaction.
package scrape

// Outcome names the terminal state a scrape reached.
type Outcome string

// Terminal states.
const (
	OutcomeDone        Outcome = "done"
	OutcomeDisallowed  Outcome = "disallowed"
	OutcomeBlockedPre  Outcome = "blocked_pre"
	OutcomeBlockedPost Outcome = "blocked_post"
	OutcomeFailed      Outcome = "failed"
)

// Reasons reported with OutcomeDisallowed.
const (
	ReasonRobotsDisallowed     = "robots.txt disallows scraping this URL"
	ReasonNotExplicitlyAllowed = "robots.txt does not explicitly allow scraping this URL"
)

// Result is the verdict and cleaned text for one URL.
type Result struct {
	Outcome          Outcome  `json:"-"`
	FinalURL         string   `json:"-"`
	FlaggedDomain    bool     `json:"flaggedDomain"`
	Allowed          bool     `json:"allowed"`
	DisallowReason   string   `json:"disallowReason,omitempty"`
	ContainsCensored bool     `json:"containsCensored"`
	FilteredTexts    []string `json:"filteredTexts"`
}

func disallowed(reason string) Result {
	return Result{
		Outcome:        OutcomeDisallowed,
		DisallowReason: reason,
		FilteredTexts:  []string{},
	}
}

func blocked(outcome Outcome, finalURL string) Result {
	return Result{
		Outcome:       outcome,
		FinalURL:      finalURL,
		FlaggedDomain: true,
		Allowed:       true,
		FilteredTexts: []string{},
	}
}
