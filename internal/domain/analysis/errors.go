package analysis

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies errors that cross the orchestrator boundary.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindRateLimited        Kind = "rate_limited"
	KindPersistenceFailure Kind = "persistence_failure"
	KindInternal           Kind = "internal"
)

// InvalidReason enum
type InvalidReason string

const (
	ReasonEmpty    InvalidReason = "empty"
	ReasonTooShort InvalidReason = "too_short"
	ReasonTooLong  InvalidReason = "too_long"
)

// InvalidInputError is returned when submitted text fails validation.
type InvalidInputError struct {
	Reason InvalidReason
	// Words is set when the text exceeded the word bound.
	Words int
	// Chars is set when the text exceeded the character bound.
	Chars int
	msg   string
}

func (e *InvalidInputError) Error() string { return e.msg }

func ErrEmptyInput() *InvalidInputError {
	return &InvalidInputError{Reason: ReasonEmpty, msg: "Logs cannot be empty"}
}

func ErrTooShort(minChars int) *InvalidInputError {
	return &InvalidInputError{
		Reason: ReasonTooShort,
		msg:    fmt.Sprintf("Logs are too short. Please provide more context (at least %d characters)", minChars),
	}
}

func ErrTooManyWords(words, maxWords int) *InvalidInputError {
	return &InvalidInputError{
		Reason: ReasonTooLong,
		Words:  words,
		msg:    fmt.Sprintf("Logs are too long (%d words). Please limit to %d words or less", words, maxWords),
	}
}

func ErrTooManyChars(chars, maxChars int) *InvalidInputError {
	return &InvalidInputError{
		Reason: ReasonTooLong,
		Chars:  chars,
		msg:    fmt.Sprintf("Logs must be at most %d characters (got %d)", maxChars, chars),
	}
}

// RateLimitedError carries the configured quota so callers can render it.
type RateLimitedError struct {
	Limit  int
	Window time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Maximum %d requests allowed per %s.", e.Limit, FormatWindow(e.Window))
}

// PersistenceError wraps a HistoryStore failure. Its message is safe to show to callers.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string { return "An unexpected error occurred" }

func (e *PersistenceError) Unwrap() error { return e.Cause }

// KindOf maps err to its boundary kind.
func KindOf(err error) Kind {
	var inv *InvalidInputError
	var rl *RateLimitedError
	var pe *PersistenceError
	switch {
	case errors.As(err, &inv):
		return KindInvalidInput
	case errors.As(err, &rl):
		return KindRateLimited
	case errors.As(err, &pe):
		return KindPersistenceFailure
	default:
		return KindInternal
	}
}

// FormatWindow renders whole hours as "N hours", anything else as a duration.
func FormatWindow(w time.Duration) string {
	if w > 0 && w%time.Hour == 0 {
		h := int(w / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return w.String()
}
