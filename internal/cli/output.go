package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/app"
	"github.com/roach88/petitions/internal/config"
	"github.com/roach88/petitions/internal/tiers"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input: validation, not logged in, not the owner
	ExitCommandError = 2 // Command error (bad config, unreachable or failing API, local state)
)

// Error codes carried in the JSON envelope.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeConfig    = "E002" // Config failed to load or validate
	ErrCodeInput     = "E003" // Input rejected before reaching the API
	ErrCodeAuth      = "E004" // Not logged in or session rejected
	ErrCodeNotFound  = "E005" // Petition, user or image not found
	ErrCodeAPI       = "E006" // API refused the request
	ErrCodeOffline   = "E007" // API unreachable
	ErrCodeTierStep  = "E008" // A support tier change failed mid-edit
	ErrCodeLocalFile = "E009" // Draft or image file unreadable
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
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Render outputs data as JSON, or calls text to write it for people.
func (f *OutputFormatter) Render(data any, text func(io.Writer) error) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	return text(f.Writer)
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err as the outcome of action and returns the ExitError the
// command should return. Messages use the wording the API's users expect;
// the raw error goes into the details.
func (f *OutputFormatter) Fail(action api.Action, err error) error {
	code, exit := classify(err)
	msg := api.UserMessage(action, err)
	_ = f.Error(code, msg, err.Error())
	return WrapExitError(exit, msg, err)
}

func classify(err error) (code string, exit int) {
	var cfgErr *config.Error
	var stepErr *tiers.StepError
	switch {
	case errors.As(err, &cfgErr):
		return ErrCodeConfig, ExitCommandError
	case errors.Is(err, app.ErrNotLoggedIn), api.IsUnauthorized(err):
		return ErrCodeAuth, ExitFailure
	case app.IsInputError(err):
		return ErrCodeInput, ExitFailure
	case errors.As(err, &stepErr):
		return ErrCodeTierStep, ExitCommandError
	case api.IsNotFound(err):
		return ErrCodeNotFound, ExitCommandError
	case api.IsTransport(err):
		return ErrCodeOffline, ExitCommandError
	case api.StatusOf(err) != 0:
		return ErrCodeAPI, ExitCommandError
	}
	return ErrCodeGeneric, ExitCommandError
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
