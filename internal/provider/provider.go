package provider

import (
	"context"
	"errors"
	"fmt"
)

// Link is one candidate subject on a disambiguation page.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ScrapeReply is the structured answer a provider produced for one query.
// Data is set iff Disambiguous is false; DisambiguousData iff it is true.
type ScrapeReply struct {
	Language         string `json:"language"`
	Disambiguous     bool   `json:"disambiguous"`
	Data             string `json:"data,omitempty"`
	DisambiguousData []Link `json:"disambiguousData,omitempty"`
}

// Client is a backend lookup service able to answer a query in one language.
type Client interface {
	Search(ctx context.Context, text string) (*ScrapeReply, error)
	LongSearch(ctx context.Context, text string) (*ScrapeReply, error)
	Name() string
}

// Status classifies provider failures.
type Status int

const (
	// StatusNotFound means the backend answered but has no result for the query.
	StatusNotFound Status = iota
	// StatusUnavailable means the backend could not be reached.
	StatusUnavailable
	// StatusInternal covers every other provider fault.
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "not_found"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error carries a machine-readable provider failure status.
type Error struct {
	Status  Status
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("provider %s: %s", e.Status, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("provider %s", e.Status)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NotFoundError builds an application-level "no result" failure.
func NotFoundError(message string) *Error {
	return &Error{Status: StatusNotFound, Message: message}
}

// UnavailableError builds a transport-level failure.
func UnavailableError(message string, cause error) *Error {
	return &Error{Status: StatusUnavailable, Message: message, Cause: cause}
}

// InternalError wraps an unexpected provider fault.
func InternalError(cause error) *Error {
	return &Error{Status: StatusInternal, Cause: cause}
}

// IsNotFound reports whether err is an application-level "no result" failure.
func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Status == StatusNotFound
}

// IsUnavailable reports whether err is a transport-level failure.
func IsUnavailable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Status == StatusUnavailable
}

// IsSoftFailure reports whether err may be skipped during fallback iteration.
// Not-found and unreachable backends never abort a whole request.
func IsSoftFailure(err error) bool {
	return IsNotFound(err) || IsUnavailable(err)
}
