package main

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	ExitSuccess      = 0 // Every reported case passed
	ExitFailure      = 1 // A case failed, or the bus could not be tested
	ExitCommandError = 2 // Invalid flags, configuration or expectation files
)

// ExitError carries the process exit code for a command error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// errTestsFailed is returned after a run that reported failures. The
// report already describes them.
var errTestsFailed = &ExitError{Code: ExitFailure, Message: "compliance tests failed"}

// exitCode extracts the exit code from an error. Errors that are not an
// ExitError are flag or argument problems reported by cobra.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
