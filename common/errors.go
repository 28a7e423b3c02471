package common

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can tell them apart.
type Kind string

const (
	// KindDecode is raised for malformed, truncated or unsupported image bytes.
	KindDecode Kind = "decode error"
	// KindShapeMismatch is raised when an image does not match the model's square input.
	KindShapeMismatch Kind = "shape mismatch"
	// KindModelLoad is raised when the model artifact is missing or corrupt.
	KindModelLoad Kind = "model load error"
	// KindInference is raised when the runtime fails while executing the model.
	KindInference Kind = "inference error"
	// KindOutputFormat is raised when the model output is missing or empty.
	KindOutputFormat Kind = "output format error"
)

// Sentinels for use with errors.Is.
var (
	ErrDecode        = &Error{Kind: KindDecode}
	ErrShapeMismatch = &Error{Kind: KindShapeMismatch}
	ErrModelLoad     = &Error{Kind: KindModelLoad}
	ErrInference     = &Error{Kind: KindInference}
	ErrOutputFormat  = &Error{Kind: KindOutputFormat}
)

// Error is a pipeline failure of a known Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels match
// wrapped failures.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates an error of the given kind from a cause.
//
// Arguments:
// - kind: The failure kind.
// - err: The underlying cause, typically already wrapped with context.
//
// Returns:
// - An *Error, or nil when err is nil.
//
// @example
// return common.NewError(common.KindDecode, errors.Wrap(err, "decode jpeg"))
func NewError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf creates an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
