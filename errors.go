package fte

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures of this package.
type ErrorKind int

const (
	// InvalidInput: the caller passed something that cannot be encoded or decoded,
	// such as a nil language or a non-positive fixed slice. Encode also reports a
	// failing random source with this kind; the cause stays available to errors.Is.
	InvalidInput ErrorKind = iota + 1
	// InsufficientCapacity: the format cannot carry the 16-byte header plus payload.
	InsufficientCapacity
	// DecodeFailure: the covertext is too short, its formatted prefix is not in the
	// language, or the recovered header is inconsistent.
	DecodeFailure
	// PatternError: the regular expression could not be compiled into an automaton.
	PatternError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case InsufficientCapacity:
		return "insufficient capacity"
	case DecodeFailure:
		return "decode failure"
	case PatternError:
		return "pattern error"
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Error is the error type returned by this package. Every failure carries
// exactly one ErrorKind; callers branch on it with errors.Is against the
// Err* sentinels or with KindOf.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidInput         = &Error{Kind: InvalidInput}
	ErrInsufficientCapacity = &Error{Kind: InsufficientCapacity}
	ErrDecodeFailure        = &Error{Kind: DecodeFailure}
	ErrPattern              = &Error{Kind: PatternError}
)

// NewError wraps err into an *Error of the given kind. op names the failing
// operation, for example "encode".
func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := "fte: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the ErrorKind of err, or 0 if err does not come from this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
