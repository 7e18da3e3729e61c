package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/hangup/internal/config"
	"github.com/roach88/hangup/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (scenarios failed, corrupted state, etc.)
	ExitCommandError = 2 // Command error (invalid input, no session, bad config, etc.)
)

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeNotFound        = "E005" // Key or path not found
	ErrCodeInvalidArgument = "E010" // Input rejected before any write
	ErrCodeNotBootstrapped = "E011" // No identity for this session
	ErrCodeCorruptedState  = "E012" // A shared record is malformed
	ErrCodeStore           = "E013" // Database could not be opened
	ErrCodeConfig          = "E014" // Configuration file rejected
	ErrCodeNotImplemented  = "E015" // Operation outside the supported surface
	ErrCodeSubscriber      = "E016" // Event handler failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps an error to its CLI error code and exit code.
func classify(err error) (code string, exit int) {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return ErrCodeConfig, ExitCommandError
	}
	switch ir.CodeOf(err) {
	case ir.ErrCodeInvalidArgument:
		return ErrCodeInvalidArgument, ExitCommandError
	case ir.ErrCodeNotBootstrapped:
		return ErrCodeNotBootstrapped, ExitCommandError
	case ir.ErrCodeCorruptedState:
		return ErrCodeCorruptedState, ExitFailure
	case ir.ErrCodeNotImplemented:
		return ErrCodeNotImplemented, ExitFailure
	case ir.ErrCodeSubscriberFailure:
		return ErrCodeSubscriber, ExitFailure
	}
	return ErrCodeGeneric, ExitFailure
}

// fail reports err through the formatter in JSON mode and returns it as an
// ExitError carrying the matching exit code. In text mode the caller of
// Execute prints the message.
func fail(f *OutputFormatter, message string, err error) error {
	code, exit := classify(err)
	return failWith(f, code, exit, message, err)
}

// failWith is fail with an explicit error and exit code.
func failWith(f *OutputFormatter, code string, exit int, message string, err error) error {
	if f.Format == "json" {
		_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	}
	return WrapExitError(exit, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`          // "ok" or "error"
	Data    any       `json:"data,omitempty"`  // success payload
	Error   *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
