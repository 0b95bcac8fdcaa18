package dispatch

import (
	"fmt"

	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
)

// InputError reports input rejected before any request was sent.
type InputError struct {
	Field   string
	Message string
	Err     error
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func missingField(f Field) *InputError {
	msg := f.Prompt
	if msg == "" {
		msg = fmt.Sprintf("Please enter %s", f.Name)
	}
	return &InputError{Field: f.Name, Message: msg, Err: sharedErrors.ErrMissingRequired}
}

func emptyList(f Field) *InputError {
	msg := f.EmptyListPrompt
	if msg == "" {
		msg = fmt.Sprintf("Please enter valid %s", f.Name)
	}
	return &InputError{Field: f.Name, Message: msg, Err: sharedErrors.ErrEmptyList}
}

// Invalid builds an InputError for tools that reject malformed input in
// BuildRequest.
func Invalid(field, message string) *InputError {
	return &InputError{Field: field, Message: message, Err: sharedErrors.ErrInvalidInput}
}

// ToolError is the error form of a failed Result.
type ToolError struct {
	Tool       string
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sharedErrors.ErrToolFailed
}
