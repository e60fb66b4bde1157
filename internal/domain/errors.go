package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can branch on the category instead of
// matching message text.
type Kind string

const (
	KindMissingArtifact   Kind = "missing_artifact"
	KindDimensionMismatch Kind = "dimension_mismatch"
	KindEmptyCorpus       Kind = "empty_corpus"
	KindMissingDocument   Kind = "missing_document"
	KindEncoding          Kind = "encoding"
	KindGeneration        Kind = "generation"
	KindInvalidArgument   Kind = "invalid_argument"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrMissingArtifact   = &Error{Kind: KindMissingArtifact}
	ErrDimensionMismatch = &Error{Kind: KindDimensionMismatch}
	ErrEmptyCorpus       = &Error{Kind: KindEmptyCorpus}
	ErrMissingDocument   = &Error{Kind: KindMissingDocument}
	ErrEncoding          = &Error{Kind: KindEncoding}
	ErrGeneration        = &Error{Kind: KindGeneration}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
)

// Error is the typed error returned across package boundaries.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and operation to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
