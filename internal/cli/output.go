package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Some reminders failed, or an unclassified error
	ExitCommandError = 2 // Bad config, unreachable database or mail server
)

// ExitError represents an error with a specific exit code.
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every command result.
type CLIResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Data   any    `json:"data,omitempty"`  // success payload
	Error  string `json:"error,omitempty"` // first error, if any
}

// Success writes data. Text output is produced by render.
func (f *OutputFormatter) Success(data any, render func(io.Writer) error) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	return render(f.Writer)
}

// Partial writes data produced alongside a non-fatal error.
func (f *OutputFormatter) Partial(data any, err error, render func(io.Writer) error) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "error", Data: data, Error: err.Error()})
	}
	if rerr := render(f.Writer); rerr != nil {
		return rerr
	}
	_, werr := fmt.Fprintf(f.Writer, "\nwarning: %v\n", err)
	return werr
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
