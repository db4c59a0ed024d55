package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code and message.
// A wrapped failure therefore still matches its sentinel with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap attaches cause to a copy of the sentinel so callers can match it with errors.Is.
func Wrap(sentinel *DomainError, cause error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, cause)
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeIngestion        = "INGESTION_FAILURE"
	ErrCodeEmptyQuery       = "EMPTY_QUERY"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeExtractor        = "EXTRACTOR_FAILURE"
	ErrCodeTooLarge         = "UPLOAD_TOO_LARGE"
)

// Validation errors
var (
	ErrEmptyQuery         = NewDomainError(ErrCodeEmptyQuery, "relevance query requires query text or a filter")
	ErrInvalidFilter      = NewDomainError(ErrCodeValidation, "filter values must be scalar")
	ErrNoPages            = NewDomainError(ErrCodeValidation, "document has no pages")
	ErrMissingSource      = NewDomainError(ErrCodeValidation, "document source is required")
	ErrInvalidReportShape = NewDomainError(ErrCodeValidation, "well report does not match the expected shape")
	ErrUploadTooLarge     = NewDomainError(ErrCodeTooLarge, "request body too large")
)

// Not found errors
var (
	ErrPageNotFound   = NewDomainError(ErrCodeNotFound, "page not found")
	ErrReportNotFound = NewDomainError(ErrCodeNotFound, "archived report not found")
)

// Runtime degradation errors
var (
	ErrIngestionFailure   = NewDomainError(ErrCodeIngestion, "page ingestion failed")
	ErrStoreUnavailable   = NewDomainError(ErrCodeStoreUnavailable, "chunk store unavailable")
	ErrArchiveUnavailable = NewDomainError(ErrCodeStoreUnavailable, "document archive unavailable")
	ErrExtractorFailure   = NewDomainError(ErrCodeExtractor, "field extractor failed")
)
