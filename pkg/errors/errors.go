// Package errors provides structured error handling for walletvet.
// It defines the compliance error taxonomy, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes for the CLI front end.
const (
	ExitSuccess     = 0 // Successful execution
	ExitGeneral     = 1 // General/unknown error
	ExitInput       = 2 // Invalid input
	ExitConflict    = 3 // Registry conflict (duplicate entry)
	ExitNotFound    = 4 // Resource not found
	ExitUpstream    = 5 // Ledger service failure
	ExitPersistence = 6 // Registry or audit log failure
)

// Machine-readable error codes. These double as the outcome column of failed
// report rows, so they must stay stable.
const (
	CodeGeneral                   = "GENERAL_ERROR"
	CodeMissingParameter          = "MISSING_PARAMETER"
	CodeInvalidFormat             = "INVALID_FORMAT"
	CodeAlreadyBlacklisted        = "ALREADY_BLACKLISTED"
	CodeNotFound                  = "NOT_FOUND"
	CodeUpstreamUnavailable       = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamRateLimited       = "UPSTREAM_RATE_LIMITED"
	CodeUpstreamMalformedResponse = "UPSTREAM_MALFORMED_RESPONSE"
	CodePersistence               = "PERSISTENCE_ERROR"
	CodeCanceled                  = "CANCELED"
	CodeConfigInvalid             = "CONFIG_INVALID"
	CodeConfigNotFound            = "CONFIG_NOT_FOUND"
)

// VetError is the structured error type for walletvet.
type VetError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for the operator
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *VetError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *VetError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for VetError.
func (e *VetError) Is(target error) bool {
	var t *VetError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &VetError{
		Code:     CodeGeneral,
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	// Input errors.
	ErrMissingParameter = &VetError{
		Code:     CodeMissingParameter,
		Message:  "required parameter is missing",
		ExitCode: ExitInput,
	}

	ErrInvalidFormat = &VetError{
		Code:     CodeInvalidFormat,
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	// Registry errors.
	ErrAlreadyBlacklisted = &VetError{
		Code:     CodeAlreadyBlacklisted,
		Message:  "address is already blacklisted",
		ExitCode: ExitConflict,
	}

	ErrNotFound = &VetError{
		Code:     CodeNotFound,
		Message:  "entry not found",
		ExitCode: ExitNotFound,
	}

	ErrPersistence = &VetError{
		Code:     CodePersistence,
		Message:  "registry persistence failed",
		ExitCode: ExitPersistence,
	}

	// Ledger errors.
	ErrUpstreamUnavailable = &VetError{
		Code:     CodeUpstreamUnavailable,
		Message:  "ledger service unavailable",
		ExitCode: ExitUpstream,
	}

	ErrUpstreamRateLimited = &VetError{
		Code:     CodeUpstreamRateLimited,
		Message:  "ledger service rate limit exceeded",
		ExitCode: ExitUpstream,
	}

	ErrUpstreamMalformedResponse = &VetError{
		Code:     CodeUpstreamMalformedResponse,
		Message:  "ledger service returned a malformed response",
		ExitCode: ExitUpstream,
	}

	ErrCanceled = &VetError{
		Code:     CodeCanceled,
		Message:  "operation canceled",
		ExitCode: ExitGeneral,
	}

	// Config errors.
	ErrConfigNotFound = &VetError{
		Code:     CodeConfigNotFound,
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &VetError{
		Code:     CodeConfigInvalid,
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new VetError with the given code and message.
func New(code, message string) *VetError {
	return &VetError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ve *VetError
	if errors.As(err, &ve) {
		return &VetError{
			Code:       ve.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ve.Message),
			Details:    ve.Details,
			Suggestion: ve.Suggestion,
			Cause:      err,
			ExitCode:   ve.ExitCode,
		}
	}

	return &VetError{
		Code:     CodeGeneral,
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel, keeping its code.
func WithCause(sentinel *VetError, cause error) error {
	return &VetError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error. Existing details are kept and
// overwritten key by key.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ve *VetError
	if errors.As(err, &ve) {
		merged := make(map[string]string, len(ve.Details)+len(details))
		for k, v := range ve.Details {
			merged[k] = v
		}
		for k, v := range details {
			merged[k] = v
		}
		return &VetError{
			Code:       ve.Code,
			Message:    ve.Message,
			Details:    merged,
			Suggestion: ve.Suggestion,
			Cause:      ve.Cause,
			ExitCode:   ve.ExitCode,
		}
	}

	return &VetError{
		Code:     CodeGeneral,
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ve *VetError
	if errors.As(err, &ve) {
		return &VetError{
			Code:       ve.Code,
			Message:    ve.Message,
			Details:    ve.Details,
			Suggestion: suggestion,
			Cause:      ve.Cause,
			ExitCode:   ve.ExitCode,
		}
	}

	return &VetError{
		Code:       CodeGeneral,
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ve *VetError
	if errors.As(err, &ve) {
		return ve.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ve *VetError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return CodeGeneral
}

// Message returns the human-readable message of the outermost VetError,
// without details or cause. Plain errors return their Error() text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *VetError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
