package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind separates bad input from compiler bugs.
type ErrorKind string

const (
	// KindShape marks a malformed input tree: mismatched key lists, an
	// unknown node type, an operator that does not fit its condition.
	KindShape ErrorKind = "SHAPE"

	// KindInternal marks a violated compiler invariant, such as a
	// parameter list that disagrees with the indexes in the tree. These
	// are bugs, not recoverable input problems.
	KindInternal ErrorKind = "INTERNAL"
)

// CompileError is returned for every compilation failure. Compilation is
// all-or-nothing: when a CompileError is returned the result is nil.
type CompileError struct {
	Kind    ErrorKind
	Path    string // location in the input tree, empty when unknown
	Message string
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// ErrMissingCorrelationKey is wrapped when a parent row lacks a key
// column that a sub-query needs.
var ErrMissingCorrelationKey = errors.New("parent row is missing a correlation key")

func shapeErrorf(path, format string, args ...any) *CompileError {
	return &CompileError{Kind: KindShape, Path: path, Message: fmt.Sprintf(format, args...)}
}

func internalErrorf(err error, format string, args ...any) *CompileError {
	return &CompileError{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsShapeError reports whether err is a compile error caused by a
// malformed input tree. Uses errors.As to handle wrapped errors.
func IsShapeError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == KindShape
}

// IsInternalError reports whether err is a violated compiler invariant.
func IsInternalError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == KindInternal
}
