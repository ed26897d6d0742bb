package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatMismatch means the page no longer carries the embedded
	// payload where we expect it. Not retriable.
	ErrFormatMismatch = errors.New("page format mismatch")

	// ErrPageCountUnavailable means the results-count description is
	// missing or has no number in it.
	ErrPageCountUnavailable = errors.New("page count unavailable")

	// ErrTransport wraps failures of the fetch collaborator.
	ErrTransport = errors.New("transport error")

	// ErrStopped is returned when a collection ends early because the
	// context was cancelled or the continuation predicate said no.
	ErrStopped = errors.New("collection stopped")
)

type FormatMismatchError struct {
	Page   int // 0 when not known
	Reason string
	Err    error
}

func (e *FormatMismatchError) Error() string {
	msg := ErrFormatMismatch.Error()
	if e.Page > 0 {
		msg = fmt.Sprintf("%s on page %d", msg, e.Page)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatMismatchError) Is(target error) bool { return target == ErrFormatMismatch }
func (e *FormatMismatchError) Unwrap() error        { return e.Err }

type PageCountUnavailableError struct {
	Description string
	Reason      string
}

func (e *PageCountUnavailableError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", ErrPageCountUnavailable, e.Reason)
	}
	return fmt.Sprintf("%s: %s (description %q)", ErrPageCountUnavailable, e.Reason, e.Description)
}

func (e *PageCountUnavailableError) Is(target error) bool { return target == ErrPageCountUnavailable }

type TransportError struct {
	Page int
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: page %d (%s): %v", ErrTransport, e.Page, e.URL, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
func (e *TransportError) Unwrap() error        { return e.Err }

func formatMismatch(reason string, err error) error {
	return &FormatMismatchError{Reason: reason, Err: err}
}
