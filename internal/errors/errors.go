// Package errors provides structured error types and exit codes for regtest.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/AndreyAkinshin/regtest/pkg/regtest"
)

// Exit codes returned by the regtest CLI.
const (
	ExitSuccess          = regtest.ExitSuccess     // Success, every test case passed
	ExitRuntimeError     = regtest.ExitFailure     // A test case failed or a command failed
	ExitConfigError      = regtest.ExitConfigError // Configuration error (bad config.txt, settings, flags)
	ExitEnvironmentError = regtest.ExitEnvError    // Environment error (engine not available)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
)

// RegtestError is the base error type for regtest.
type RegtestError struct {
	Kind    ErrorKind
	Message string
	Test    string // Test case name if applicable
	Cause   error  // Underlying error
}

func (e *RegtestError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Test != "" {
		return fmt.Sprintf("[%s] %s", e.Test, msg)
	}
	return msg
}

func (e *RegtestError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *RegtestError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *RegtestError {
	return &RegtestError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *RegtestError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *RegtestError {
	return &RegtestError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *RegtestError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *RegtestError {
	return &RegtestError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *RegtestError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the kind of err if
// it is already a *RegtestError.
func Wrap(err error, message string) *RegtestError {
	kind := KindRuntime
	var re *RegtestError
	if stderrors.As(err, &re) {
		kind = re.Kind
	}
	return &RegtestError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// WrapConfig wraps err as a configuration error.
func WrapConfig(err error, message string) *RegtestError {
	return &RegtestError{
		Kind:    KindConfig,
		Message: message,
		Cause:   err,
	}
}

// WrapEnvironment wraps err as an environment error.
func WrapEnvironment(err error, message string) *RegtestError {
	return &RegtestError{
		Kind:    KindEnvironment,
		Message: message,
		Cause:   err,
	}
}

// TestError creates an error for a specific test case.
func TestError(test, message string) *RegtestError {
	return &RegtestError{
		Kind:    KindRuntime,
		Test:    test,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *RegtestError {
	return &RegtestError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var re *RegtestError
	if stderrors.As(err, &re) {
		return re.ExitCode()
	}
	return ExitRuntimeError
}
