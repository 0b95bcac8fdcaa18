package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrMissingRequired = errors.New("missing required field")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyList       = errors.New("list contains no usable entries")

	// Tool errors
	ErrUnknownTool   = errors.New("unknown tool")
	ErrDuplicateTool = errors.New("tool already registered")
	ErrBusy          = errors.New("a request for this tool is already in flight")
	ErrInvalidOutput = errors.New("unsupported output format")
	ErrToolFailed    = errors.New("tool invocation failed")
	ErrNilTool       = errors.New("tool is nil")

	// Credential errors
	ErrCredentialsNotFound = errors.New("no stored credentials")
	ErrInvalidToken        = errors.New("token is not a valid JWT")

	// Batch errors
	ErrEmptyBatch  = errors.New("batch file contains no jobs")
	ErrBatchFailed = errors.New("one or more batch jobs failed")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)
