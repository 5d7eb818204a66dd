package errs

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable failure category surfaced to callers.
type Code string

const (
	CodeInvalidFile     Code = "INVALID_FILE"
	CodeFileTooLarge    Code = "FILE_TOO_LARGE"
	CodeDuplicate       Code = "DUPLICATE"
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"
	CodeQuotaError      Code = "QUOTA_ERROR"
	CodePDFParseError   Code = "PDF_PARSE_ERROR"
	CodeEmptyPDF        Code = "EMPTY_PDF"
	CodeValidationError Code = "VALIDATION_ERROR"
	CodeExtractionError Code = "EXTRACTION_ERROR"
	CodeInternalError   Code = "INTERNAL_ERROR"
)

// Error carries a stable code plus a human message. Quota marks the quota
// and rate-limit family so the caller can route the user to an upgrade path
// instead of a generic failure screen.
type Error struct {
	Code    Code
	Message string
	Quota   bool
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Quota:   code == CodeQuotaExceeded,
	}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// CodeOf extracts the code from err, defaulting to INTERNAL_ERROR.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}

// MessageOf extracts the human message from err. For unclassified errors the
// raw error text is returned so diagnostics survive.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsQuota reports whether err belongs to the quota/rate-limit family.
func IsQuota(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Quota
	}
	return false
}
