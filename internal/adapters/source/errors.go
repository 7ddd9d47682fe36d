package source

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable reports that the score sheet could not be read:
// network failure, timeout, non-2xx status or an HTML page instead of CSV.
var ErrSourceUnavailable = errors.New("score source unavailable")

// Failure kinds.
const (
	KindTransport = "transport"
	KindTimeout   = "timeout"
	KindStatus    = "status"
	KindHTML      = "html"
	KindQuery     = "query"
)

// FetchError describes a failed fetch. It matches ErrSourceUnavailable
// with errors.Is.
type FetchError struct {
	Tab    string
	Kind   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindHTML:
		return fmt.Sprintf("tab %q: expected CSV but received HTML; ensure the sheet is shared as \"anyone with the link can view\"", e.Tab)
	case e.Status != 0:
		return fmt.Sprintf("tab %q: unexpected status %d", e.Tab, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("tab %q: %s: %v", e.Tab, e.Kind, e.Err)
	default:
		return fmt.Sprintf("tab %q: %s", e.Tab, e.Kind)
	}
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSourceUnavailable}
	}
	return []error{ErrSourceUnavailable, e.Err}
}

// Retryable reports whether another attempt may succeed. A timeout has
// already spent the fetch budget and is not retried.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindStatus:
		return e.Status == 429 || e.Status >= 500
	}
	return false
}
