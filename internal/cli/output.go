package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
)

// Exit codes for pandauractl commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a catalogue/pipeline operation rejected the request
	ExitCommandError = 2 // invalid flags, unreachable database, missing migrations dir
)

// ExitError carries the process exit code a command should terminate with.
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

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError with no wrapped cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with the given exit code and message.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// WrapServiceError maps a service-layer error to an exit code: invalid
// input (apperr.ErrValidation) and a missing entity (apperr.ErrNotFound)
// are a command error, anything else is a generic failure.
func WrapServiceError(message string, err error) *ExitError {
	if err == nil {
		return nil
	}
	code := ExitFailure
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound):
		code = ExitCommandError
	}
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the process exit code from an error, defaulting to
// ExitFailure for anything that isn't an *ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as human-readable text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes a successful result.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	fmt.Fprintf(f.Writer, "%+v\n", data)
	return nil
}
