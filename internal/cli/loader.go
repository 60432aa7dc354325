package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/queryir"
)

// LoadError represents an error that occurred while loading a query file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQuery reads an abstract query from a YAML, JSON or CUE file.
//
// A CUE file either is the query or holds it under a top-level "query"
// field; it must evaluate to concrete values. Loading checks wire syntax
// only. Run queryir.Validate or compiler.Compile for shape rules.
func LoadQuery(path string) (queryir.Query, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return queryir.Query{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
	}
	if err != nil {
		return queryir.Query{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query file: %v", err)}
	}
	if info.IsDir() {
		return queryir.Query{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return queryir.Query{}, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading query file: %v", err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	case ".cue":
		if data, err = cueToJSON(path, data); err != nil {
			return queryir.Query{}, err
		}
	default:
		return queryir.Query{}, &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported query file %s: want .yaml, .yml, .json or .cue", path),
		}
	}

	q, err := queryir.Decode(data)
	if err != nil {
		return queryir.Query{}, &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error()}
	}
	return q, nil
}

// cueToJSON evaluates a CUE query file and exports it as JSON.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "building CUE value", err)
	}

	if q := value.LookupPath(cue.ParsePath("query")); q.Exists() {
		value = q
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "CUE query is not concrete", err)
	}

	out, err := value.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "exporting CUE query", err)
	}
	return out, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(code, context string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
	for _, e := range cueerrors.Errors(err) {
		if pos := e.Position(); pos.IsValid() {
			le.Pos = pos
			break
		}
	}
	return le
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E002" // Path not found
	ErrCodeUnsupported  = "E003" // Unsupported file type
	ErrCodeReadFailed   = "E004" // File read error
	ErrCodeBuildFailed  = "E005" // CUE build failed
	ErrCodeDecodeFailed = "E006" // Wire document malformed
	ErrCodeWriteFailed  = "E007" // File write error

	// Compilation errors
	ErrCodeShape    = "E101" // Malformed query tree
	ErrCodeInternal = "E102" // Violated compiler invariant

	// Execution errors
	ErrCodeDatabase = "E201" // Database open/config error
	ErrCodeRender   = "E202" // SQL rendering failed
	ErrCodeMerge    = "E203" // Merge stream failed
)

// MapCompileErrorToCode maps a compiler error to an error code.
func MapCompileErrorToCode(err error) string {
	switch {
	case compiler.IsShapeError(err):
		return ErrCodeShape
	case compiler.IsInternalError(err):
		return ErrCodeInternal
	default:
		return ErrCodeGeneric
	}
}
