// Package genfail classifies generation failures so callers can decide
// whether to retry, fall back, downgrade to a warning, or abort.
package genfail

import (
	"errors"
	"fmt"
)

// Kind is the failure class.
type Kind int

const (
	// Validation covers empty or too-short input. Raised before any network call.
	Validation Kind = iota + 1
	// Network covers transport failures, non-2xx statuses and timeouts.
	Network
	// Provider covers explicit error fields, unrecognized response shapes
	// and empty provider text.
	Provider
	// ContentQuality covers outputs that arrived but are not usable as-is.
	ContentQuality
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Network:
		return "network"
	case Provider:
		return "provider"
	case ContentQuality:
		return "content_quality"
	default:
		return "unknown"
	}
}

// Error is a classified generation failure.
type Error struct {
	Kind Kind
	Op   string // e.g. "textgen.codex", "media.tts"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message and no cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// Is reports whether err's chain carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether err is worth another attempt. Only network
// failures are.
func Retryable(err error) bool {
	return Is(err, Network)
}

// Message returns the human-facing message without the op prefix. Used
// when a failure is surfaced in an execution status.
func Message(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		if ge.Msg != "" {
			return ge.Msg
		}
		if ge.Err != nil {
			return ge.Err.Error()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
