package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when an orchestrator already runs.
	ErrRunInProgress = errors.New("analysis already in progress")
	// ErrCacheCorrupt marks malformed cached data. It is never surfaced.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
	// ErrSourceTimeout is the cause of a source that ran past its timeout.
	ErrSourceTimeout = errors.New("source timed out")
)

// SourceError is the failure of one underlying analysis.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return fmt.Sprintf("%s analysis: %v", e.Source, e.Err) }

func (e *SourceError) Unwrap() error { return e.Err }

// NoUsableDataError means every source failed and nothing can be shown.
type NoUsableDataError struct {
	SEOError string
	AIOError string
}

func (e *NoUsableDataError) Error() string {
	return fmt.Sprintf("no real data obtained (seo: %s; aio: %s)", orNone(e.SEOError), orNone(e.AIOError))
}

// Remediation lists the steps shown on the full-failure view.
func (e *NoUsableDataError) Remediation() []string {
	return []string{
		"Check that the URL is publicly reachable over HTTPS.",
		"Verify the PageSpeed API key and quota in the backend configuration.",
		"Verify the OpenAI API key or switch the content analyzer to heuristic mode.",
		"Retry the analysis; the cache is cleared before the new run.",
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
