// Package chaterr defines the error variants shared by the SDK packages.
//
// Callers match the sentinel errors with errors.Is and the structured
// variants (APIError, MissingRequiredFieldError) with errors.As.
package chaterr

import (
	"errors"
	"fmt"
)

var (
	// ErrUploadCancelled is returned when an upload is aborted through its
	// cancel handle, before or during the transfer.
	ErrUploadCancelled = errors.New("upload cancelled")
	// ErrNotInitialized is returned by operations that require Initialize to
	// have completed first.
	ErrNotInitialized = errors.New("chat session not initialized")
	// ErrNotRegistered is returned by operations that require a registered
	// browser key.
	ErrNotRegistered = errors.New("browser not registered")
	// ErrInactiveApp is returned by Initialize when the remote configuration
	// reports the chat as disabled for this application.
	ErrInactiveApp = errors.New("chat is not active for this application")
)

// ChatError is the base user-facing SDK error.
type ChatError struct {
	Message string
}

func (e *ChatError) Error() string { return e.Message }

// New returns a ChatError with the given user-facing message.
func New(message string) *ChatError {
	return &ChatError{Message: message}
}

// APIError reports a failed RemoteAPI request. StatusCode is the HTTP status
// of the response, or 0 when no response was obtained (network failure,
// timeout, client-side cancellation).
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// MissingRequiredFieldError reports the first required profile field that was
// absent, or blank after trimming, in a registration submission. Label is the
// human-readable name supplied by the remote configuration.
type MissingRequiredFieldError struct {
	Field string
	Label string
}

func (e *MissingRequiredFieldError) Error() string {
	label := e.Label
	if label == "" {
		label = e.Field
	}
	return fmt.Sprintf("required field missing: %s", label)
}
