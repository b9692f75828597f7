package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrDuplicate indicates the resource identifier is already taken.
// Message is shown to the user verbatim.
type ErrDuplicate struct {
	Key     string
	Message string
}

func (e *ErrDuplicate) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("duplicate: %s", e.Key)
}

// InvalidQRMessage is shown when a scanned code is not a payable UPI link.
const InvalidQRMessage = "Invalid or non-UPI QR code detected."

// ErrInvalidDeepLink is the "no match" signal of the deep-link classifier.
type ErrInvalidDeepLink struct {
	Input  string
	Reason string
}

func (e *ErrInvalidDeepLink) Error() string {
	return fmt.Sprintf("invalid upi link: %s", e.Reason)
}

// ErrCapability indicates a device capability (camera, detector) is missing or denied.
type ErrCapability struct {
	Capability string
	Message    string
	Err        error
}

func (e *ErrCapability) Error() string {
	return e.Message
}

func (e *ErrCapability) Unwrap() error {
	return e.Err
}

// ErrInvalidTransition indicates an action that the payment session cannot
// accept in its current state.
type ErrInvalidTransition struct {
	State  SessionState
	Action string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Action, e.State)
}

// ErrUnauthorized indicates an invalid or expired session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
