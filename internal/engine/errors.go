package engine

import (
	"errors"
	"fmt"
)

// MergeError represents a failure while merging a row stream.
//
// Rows emitted before the failure remain valid; the failing row is
// discarded and the stream terminates with this error.
type MergeError struct {
	// Code identifies the error category.
	Code MergeErrorCode

	// Row is the 0-based root row being merged, or -1 for the root
	// statement itself.
	Row int

	// Alias is the dotted alias path of the field being resolved, empty
	// when the failure is not tied to a field.
	Alias string

	// RunID identifies the stream that failed.
	RunID string

	// Err is the underlying cause.
	Err error
}

// MergeErrorCode categorizes merge errors.
type MergeErrorCode string

const (
	// ErrCodeExecutionFailed indicates the Executor rejected a statement.
	ErrCodeExecutionFailed MergeErrorCode = "EXECUTION_FAILED"

	// ErrCodeMaterializeFailed indicates a sub-query template could not be
	// compiled for a parent row.
	ErrCodeMaterializeFailed MergeErrorCode = "MATERIALIZE_FAILED"

	// ErrCodeStreamFailed indicates a row stream failed while being read.
	ErrCodeStreamFailed MergeErrorCode = "STREAM_FAILED"

	// ErrCodeInvalidMapping indicates the alias mapping does not fit the
	// rows or the sub-query list.
	ErrCodeInvalidMapping MergeErrorCode = "INVALID_MAPPING"

	// ErrCodeQuotaExceeded indicates the stream issued more sub-queries
	// than WithMaxSubQueries allows.
	ErrCodeQuotaExceeded MergeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *MergeError) Error() string {
	loc := "root query"
	if e.Row >= 0 {
		loc = fmt.Sprintf("row %d", e.Row)
	}
	if e.Alias != "" {
		loc += ", alias " + e.Alias
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, loc)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, loc, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MergeError) Unwrap() error {
	return e.Err
}

// IsExecutionError reports whether err came from the Executor or from
// reading one of its streams.
// Uses errors.As to handle wrapped errors.
func IsExecutionError(err error) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Code == ErrCodeExecutionFailed || me.Code == ErrCodeStreamFailed
	}
	return false
}

// IsQuotaError reports whether err is a sub-query quota failure.
func IsQuotaError(err error) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Code == ErrCodeQuotaExceeded
	}
	return false
}

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.New("engine: stream closed")
