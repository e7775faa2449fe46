package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeConfigurationMissing    Code = "CONFIGURATION_MISSING"
	CodeAuthenticationFailed    Code = "AUTHENTICATION_FAILED"
	CodeNotAuthenticated        Code = "NOT_AUTHENTICATED"
	CodeSelectionElementMissing Code = "SELECTION_ELEMENT_MISSING"
	CodePageLoadFailure         Code = "PAGE_LOAD_FAILURE"
	CodeMalformedMatchBlock     Code = "MALFORMED_MATCH_BLOCK"
)

// Process exit codes.
const (
	ExitOK                   = 0
	ExitUnexpected           = 1
	ExitConfigurationMissing = 2
	ExitAuthenticationFailed = 3
	ExitExtractionFailure    = 4
	ExitNotAuthenticated     = 5
)

type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether any error in err's chain is an *Error carrying code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var e *Error
	if !errors.As(err, &e) {
		return ExitUnexpected
	}

	switch e.Code {
	case CodeConfigurationMissing:
		return ExitConfigurationMissing
	case CodeAuthenticationFailed:
		return ExitAuthenticationFailed
	case CodeNotAuthenticated:
		return ExitNotAuthenticated
	case CodePageLoadFailure, CodeMalformedMatchBlock:
		return ExitExtractionFailure
	default:
		return ExitUnexpected
	}
}
