package slerror

import "net/http"

// Tags identifying each variant of the error taxonomy.
const (
	TagAccessDenied           = "access-denied"
	TagNotFound               = "not-found"
	TagValidation             = "validation"
	TagConcurrentModification = "concurrent-modification"
	TagStoreUnavailable       = "store-unavailable"
)

type (
	// An SLError represents the error format that can be rendered by the sharelist server.
	SLError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if slerr, ok := err.(*SLError); ok {
		return slerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// New returns a new SLError with the given message.
func New(message string) *SLError {
	return &SLError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new SLError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *SLError {
	return &SLError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// NewAccessDenied returns the error used when the caller is not a member of a list.
// It carries the same code and message as NewNotFound so a denied caller
// cannot tell a list it may not see from a list that does not exist.
func NewAccessDenied() *SLError {
	return NewWithTagCode(http.StatusNotFound, TagAccessDenied, "List not found.")
}

// NewNotFound returns the error used when a referenced record is absent.
func NewNotFound(message string) *SLError {
	return NewWithTagCode(http.StatusNotFound, TagNotFound, message)
}

// NewValidation returns the error used when a request payload is malformed.
// The whole batch carrying the malformed record is rejected.
func NewValidation(message string) *SLError {
	return NewWithTagCode(http.StatusBadRequest, TagValidation, message)
}

// NewConcurrentModification returns the error used when another writer advanced
// a list's clock while a reconciliation was in flight and retries ran out.
func NewConcurrentModification() *SLError {
	return NewWithTagCode(http.StatusConflict, TagConcurrentModification,
		"List was modified concurrently. Please retry.")
}

// NewStoreUnavailable returns the error used when the underlying storage fails.
func NewStoreUnavailable(message string) *SLError {
	return NewWithTagCode(http.StatusInternalServerError, TagStoreUnavailable, message)
}

// Error implements error interface.
func (e *SLError) Error() string {
	return e.FieldError.Message
}

// Tag returns the taxonomy tag of the error.
func (e *SLError) Tag() string {
	return e.FieldError.Tag
}

// IsAccessDenied returns true if err is an AccessDenied error.
func IsAccessDenied(err error) bool {
	return hasTag(err, TagAccessDenied)
}

// IsNotFound returns true if err is a NotFound error.
func IsNotFound(err error) bool {
	return hasTag(err, TagNotFound)
}

// IsValidation returns true if err is a Validation error.
func IsValidation(err error) bool {
	return hasTag(err, TagValidation)
}

// IsConcurrentModification returns true if err is a ConcurrentModification error.
func IsConcurrentModification(err error) bool {
	return hasTag(err, TagConcurrentModification)
}

func hasTag(err error, tag string) bool {
	slerr, ok := err.(*SLError)
	return ok && slerr.FieldError.Tag == tag
}
