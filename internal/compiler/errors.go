package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/selectir/internal/queryir"
)

// Compile error codes (E200-E299)
const (
	ErrMalformedFields   = "E201" // literal field list is not well formed
	ErrProjectionTarget  = "E202" // project/2 target is not a bound variable
	ErrInterpolationPos  = "E203" // interpolation where it cannot be deferred
	ErrUnboundVariable   = "E204" // variable not in the binding environment
	ErrUnsupportedExpr   = "E205" // expression the generic escaper rejects
	ErrProjectionArity   = "E206" // project/take called with wrong arity
	ErrInvalidBindings   = "E207" // empty or duplicate binding names
	ErrParse             = "E208" // clause text does not parse
	ErrInvalidQueryDef   = "E209" // malformed query definition
	ErrInternalInvariant = "E299" // compiled select failed structural checks
)

// CompileError is a compile-time failure. Construct is the offending
// surface syntax, rendered for humans; it may be empty.
type CompileError struct {
	Code      string
	Message   string
	Construct string
	Location  queryir.Location
}

func (e *CompileError) Error() string {
	msg := e.Message
	if e.Construct != "" {
		msg = fmt.Sprintf("%s, got: %s", e.Message, e.Construct)
	}
	if e.Location.Line > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// locationOf converts a CUE position into a Location.
func locationOf(pos token.Pos) queryir.Location {
	if !pos.IsValid() {
		return queryir.Location{}
	}
	return queryir.Location{File: pos.Filename(), Line: pos.Line(), Column: pos.Column()}
}

// FormatCUEError converts a CUE error into a *CompileError at the
// position of its first error. Errors without a position are returned as is.
func FormatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Code:     ErrInvalidQueryDef,
			Message:  firstErr.Error(),
			Location: locationOf(positions[0]),
		}
	}

	return err
}
