package errors

import "fmt"

// ErrorCode represents a coursedeck error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrImportInvalid  ErrorCode = "IMPORT_INVALID"  // 422
	ErrLoadFailed     ErrorCode = "LOAD_FAILED"     // 502
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// DeckError represents a structured error with code, status, and details.
type DeckError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DeckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DeckError {
	return &DeckError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a section cannot be found.
func NewNotFound(identifier string) *DeckError {
	return &DeckError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("section not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewImportInvalid creates a 422 error for an unparsable import document.
// The caller must leave the prior preference state untouched.
func NewImportInvalid(err error) *DeckError {
	msg := "import document could not be parsed"
	if err != nil {
		msg = fmt.Sprintf("import document could not be parsed: %v", err)
	}
	return &DeckError{
		Code:    ErrImportInvalid,
		Status:  422,
		Message: msg,
	}
}

// NewLoadFailed creates a 502 error for a snapshot load failure.
// This is the only error class surfaced as a blocking state to the user.
func NewLoadFailed(err error) *DeckError {
	msg := "failed to load course data"
	if err != nil {
		msg = fmt.Sprintf("failed to load course data: %v", err)
	}
	return &DeckError{
		Code:    ErrLoadFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DeckError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DeckError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a DeckError with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*DeckError); ok {
		return dErr.Code == code
	}
	return false
}
