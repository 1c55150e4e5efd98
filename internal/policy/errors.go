package policy

import (
	"errors"
	"fmt"
)

// PolicyErrorCode categorizes engine failures.
type PolicyErrorCode string

const (
	// ErrCodeMalformedChain indicates a cyclic or self-referential
	// InputTask reference.
	ErrCodeMalformedChain PolicyErrorCode = "MALFORMED_CHAIN"

	// ErrCodeMetadataUnavailable indicates the dataset catalog could not
	// answer a required lookup.
	ErrCodeMetadataUnavailable PolicyErrorCode = "METADATA_UNAVAILABLE"
)

// PolicyError is a hard engine failure. It is distinct from the
// "no applicable bound" outcome, which is not an error at all: a validation
// either produces a full, consistent Decision or a PolicyError, never a
// partially applied one.
type PolicyError struct {
	Code    PolicyErrorCode
	Message string
	Task    string // offending task name, when known
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// IsMalformedChain reports whether err is a malformed-chain failure.
// Uses errors.As to handle wrapped errors.
func IsMalformedChain(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe) && pe.Code == ErrCodeMalformedChain
}

// NewMalformedChainError creates a PolicyError for a repeated InputTask
// reference discovered during efficiency propagation.
func NewMalformedChainError(task string) *PolicyError {
	return &PolicyError{
		Code:    ErrCodeMalformedChain,
		Message: "InputTask chain revisits a task; chains must be strictly upstream",
		Task:    task,
	}
}

// NewMetadataError wraps a dataset catalog failure.
func NewMetadataError(dataset string, err error) *PolicyError {
	return &PolicyError{
		Code:    ErrCodeMetadataUnavailable,
		Message: fmt.Sprintf("failed to resolve events per lumi for %s", dataset),
		Err:     err,
	}
}
