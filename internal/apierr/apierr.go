package apierr

import (
	"errors"
	"fmt"
)

// Failure classes the pipeline distinguishes. Retrieval-side failures
// (store/index) are absorbed into "no results" by the callers; generation
// and validation failures surface.
var (
	ErrStoreUnavailable  = errors.New("knowledge store unavailable")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrValidation        = errors.New("validation failed")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
