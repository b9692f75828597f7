package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation (validation, wrong PIN, unknown id)
	ExitCommandError = 2 // Command error (bad flags, store unavailable)
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
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// Success writes data as a JSON envelope, or calls text for human output.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail reports a rejected operation and returns the matching ExitError.
// In JSON mode the error envelope goes to the output writer as well.
func (f *OutputFormatter) Fail(err error) error {
	code, field := errorCode(err)
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: errorMessage(err), Field: field},
		})
	}
	return WrapExitError(ExitFailure, code, err)
}

func errorCode(err error) (code, field string) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var duplicate *domain.ErrDuplicate
	var transition *domain.ErrInvalidTransition
	var deepLink *domain.ErrInvalidDeepLink
	var capability *domain.ErrCapability

	switch {
	case errors.As(err, &notFound):
		return "not_found", ""
	case errors.As(err, &validation):
		return "validation", validation.Field
	case errors.As(err, &duplicate):
		return "duplicate", ""
	case errors.As(err, &transition):
		return "invalid_transition", ""
	case errors.As(err, &deepLink):
		return "invalid_qr", ""
	case errors.As(err, &capability):
		return "capability", ""
	default:
		return "error", ""
	}
}

// errorMessage is the text a user sees for err.
func errorMessage(err error) string {
	var validation *domain.ErrValidation
	var deepLink *domain.ErrInvalidDeepLink
	var capability *domain.ErrCapability

	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &deepLink):
		return domain.InvalidQRMessage
	case errors.As(err, &capability):
		return capability.Message
	default:
		return err.Error()
	}
}

// ============================================================
// Text rendering
// ============================================================

const timeLayout = "02 Jan 2006, 03:04 PM"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatAmount(tx domain.Transaction) string {
	return "₹" + tx.Amount.StringFixedBank(0)
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func printTransaction(w io.Writer, tx domain.Transaction) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t%s\n", tx.ID)
	fmt.Fprintf(tw, "Paid to\t%s (%s)\n", tx.Payee.Name, tx.Payee.UpiID)
	fmt.Fprintf(tw, "Amount\t%s\n", formatAmount(tx))
	fmt.Fprintf(tw, "Date\t%s\n", formatTime(tx.Timestamp))
	fmt.Fprintf(tw, "Cashback\t%.1f%%\n", tx.CashbackPercentage)
	tw.Flush()
}

func printContacts(w io.Writer, contacts []domain.UpiContact) {
	if len(contacts) == 0 {
		fmt.Fprintln(w, "No contacts.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tUPI ID")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.UpiID)
	}
	tw.Flush()
}

func printProfile(w io.Writer, p domain.Profile) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Phone\t%s\n", p.Phone)
	fmt.Fprintf(tw, "Image\t%s\n", p.ImageReference)
	tw.Flush()
}
