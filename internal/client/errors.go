package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed collaborator call.
type Kind int

const (
	// KindValidation means the input was rejected before any request was sent.
	KindValidation Kind = iota + 1
	// KindSoft means the service answered with success=false.
	KindSoft
	// KindTransport means the request failed or the response was unreadable.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSoft:
		return "soft"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is returned by every collaborator call that did not succeed.
// Message carries the server-supplied text for soft failures and is empty
// for transport failures.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s failure: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s failure: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + " failure"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func softError(message string) *Error {
	return &Error{Kind: KindSoft, Message: message}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// KindOf reports the failure kind of err. Errors that did not come from this
// package are treated as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

// MessageOr returns the server-supplied message of a soft failure, or
// fallback for every other failure and for soft failures without a message.
func MessageOr(err error, fallback string) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == KindSoft && ce.Message != "" {
		return ce.Message
	}
	return fallback
}
