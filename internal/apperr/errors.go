// Package apperr defines the error taxonomy shared by every order lifecycle operation.
//
// Each error carries a Kind that callers branch on with errors.Is against the
// sentinel values, the operation that produced it, and optionally the cause.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindBadInput Kind = "BAD_INPUT"
	KindNotFound Kind = "NOT_FOUND"
	KindConflict Kind = "CONFLICT"
	KindInternal Kind = "INTERNAL"
)

var (
	ErrBadInput = errors.New("bad input")
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindBadInput: ErrBadInput,
	KindNotFound: ErrNotFound,
	KindConflict: ErrConflict,
	KindInternal: ErrInternal,
}

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind so errors.Is(err, ErrConflict) works
// regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func BadInput(op, format string, args ...any) error {
	return &Error{Kind: KindBadInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Conflict(op, format string, args ...any) error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. Already classified errors pass through unchanged.
func Internal(op string, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindInternal, Op: op, Message: "internal failure", Err: err}
}

// KindOf classifies any error; anything not produced by this package is Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// PublicMessage is what may be shown to a caller: internal causes are hidden.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		return "internal server error"
	}
	return appErr.Message
}
