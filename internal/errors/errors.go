package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SidecarMissing indicates a source file has no .meta sidecar
	SidecarMissing ErrorCode = "SIDECAR_MISSING"
	// SidecarMalformed indicates a sidecar could not be parsed
	SidecarMalformed ErrorCode = "SIDECAR_MALFORMED"
	// DefinitionInvalid indicates a module definition could not be read
	DefinitionInvalid ErrorCode = "DEFINITION_INVALID"
	// BinaryMissing indicates the compiled binary for a module does not exist
	BinaryMissing ErrorCode = "BINARY_MISSING"
	// DuplicateScope indicates two module definitions share a directory
	DuplicateScope ErrorCode = "DUPLICATE_SCOPE"
	// IdentityCollision indicates two files share an original identity
	IdentityCollision ErrorCode = "IDENTITY_COLLISION"
	// IOFailure indicates a document or artifact could not be read or written
	IOFailure ErrorCode = "IO_FAILURE"
	// ResolverUnavailable indicates the C# parser is not compiled in
	ResolverUnavailable ErrorCode = "RESOLVER_UNAVAILABLE"
	// BuildFailed indicates the external build command failed
	BuildFailed ErrorCode = "BUILD_FAILED"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file by hand
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// UpcError is a coded error carrying optional details and suggested fixes.
type UpcError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new UpcError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *UpcError {
	return &UpcError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new UpcError without a cause, formatting the message.
func Newf(code ErrorCode, format string, args ...interface{}) *UpcError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *UpcError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *UpcError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *UpcError) WithDetails(details interface{}) *UpcError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first UpcError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ue *UpcError
	if stderrors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SidecarMissing: {
		{
			Type:        RunCommand,
			Description: "Open the project in the editor once so .meta files are generated",
		},
	},
	BinaryMissing: {
		{
			Type:        RunCommand,
			Command:     "upc compile --build",
			Description: "Build the solution before compiling, or enable build.enabled",
		},
	},
	IdentityCollision: {
		{
			Type:        EditFile,
			Description: "Give one of the colliding files a fresh guid in its .meta file",
		},
	},
	DuplicateScope: {
		{
			Type:        EditFile,
			Description: "Keep a single module definition per directory",
		},
	},
	ResolverUnavailable: {
		{
			Type:        RunCommand,
			Command:     "CGO_ENABLED=1 go build ./cmd/upc",
			Description: "Rebuild with cgo enabled",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
