package scrape

import (
	"errors"
	"fmt"
)

// Stage identifies where a scrape failed.
type Stage string

// Fault stages.
const (
	StageDictionary Stage = "dictionary"
	StageLaunch     Stage = "launch"
	StageRobots     Stage = "robots"
	StageNavigate   Stage = "navigate"
	StageSettle     Stage = "settle"
	StageExtract    Stage = "extract"
	StageFilter     Stage = "filter"
)

var (
	// ErrTransport marks failures talking to the browser or loading a page.
	ErrTransport = errors.New("transport fault")
	// ErrConfiguration marks missing or unusable block-lists.
	ErrConfiguration = errors.New("configuration fault")
	// ErrInvalidURL marks a request URL without a usable scheme and host.
	ErrInvalidURL = errors.New("invalid url")
)

// Error is a scrape fault tagged with the stage that produced it. errors.Is
// matches both Kind and the wrapped cause.
type Error struct {
	Stage Stage
	Kind  error
	URL   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scrape %s failed at %s: %v", e.URL, e.Stage, e.Err)
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func fault(stage Stage, kind error, rawURL string, err error) *Error {
	return &Error{Stage: stage, Kind: kind, URL: rawURL, Err: err}
}

// StageOf returns the failing stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
