// Package errs defines the failure kinds surfaced to the user and the exit
// codes they map to.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a user-facing failure condition.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnknownDate
	KindTooManyStreams
	KindNoStreams
)

// Code returns the process exit code for the kind.
func (k Kind) Code() int {
	switch k {
	case KindUnknownDate:
		return 3
	case KindTooManyStreams:
		return 6
	case KindNoStreams:
		return 7
	default:
		return 1
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnknownDate:
		return "unknown_date"
	case KindTooManyStreams:
		return "too_many_streams"
	case KindNoStreams:
		return "no_streams"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Only the fields relevant to Kind are set.
type Error struct {
	Kind    Kind
	Text    string // offending time expression
	Pattern string // stream pattern
	Count   int    // streams matched
	Limit   int    // service filter limit
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Hint(), e.Cause)
	}
	return e.Hint()
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the exit code for the error's kind.
func (e *Error) Code() int { return e.Kind.Code() }

// Hint renders the message shown to the user on stderr.
func (e *Error) Hint() string {
	switch e.Kind {
	case KindUnknownDate:
		return fmt.Sprintf("awslogs doesn't understand '%s' as a date.", e.Text)
	case KindTooManyStreams:
		return fmt.Sprintf("The number of streams that match your pattern '%s' is '%d'. "+
			"AWS API limits the number of streams you can filter by to %d. "+
			"It might be helpful to you to not filter streams by any "+
			"pattern and filter the output of awslogs.", e.Pattern, e.Count, e.Limit)
	case KindNoStreams:
		return fmt.Sprintf("No streams match your pattern '%s' for the given time period.", e.Pattern)
	default:
		return "Unknown Error."
	}
}

// UnknownDate reports a time expression that is neither relative nor a
// recognizable absolute date.
func UnknownDate(text string) error {
	return &Error{Kind: KindUnknownDate, Text: text}
}

// TooManyStreams reports a pattern matching more streams than the service
// accepts in a single filter request.
func TooManyStreams(pattern string, count, limit int) error {
	return &Error{Kind: KindTooManyStreams, Pattern: pattern, Count: count, Limit: limit}
}

// NoStreams reports a pattern matching no stream in the requested window.
func NoStreams(pattern string) error {
	return &Error{Kind: KindNoStreams, Pattern: pattern}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return kind == KindUnknown && err != nil
}

// ExitCode maps any error to a process exit code: 0 for nil, the kind's code
// for classified errors and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return KindUnknown.Code()
}

// Hint returns the user-facing text for err. Unclassified errors print their
// own message.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Hint()
	}
	return err.Error()
}
