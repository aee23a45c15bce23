package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// PermissionDenied wraps a message as permission denied.
func PermissionDenied(message string) error {
	return fmt.Errorf("%s: %w", message, ErrPermissionDenied)
}

// NotFound wraps a message as not found.
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// DuplicateName wraps a message as a duplicate server name.
func DuplicateName(message string) error {
	return fmt.Errorf("%s: %w", message, ErrDuplicateName)
}

// NoServerSelected wraps a message as missing server selection.
func NoServerSelected(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNoServerSelected)
}

// ConnectionFailed wraps a message as a connectivity failure.
func ConnectionFailed(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConnectionFailed)
}

// AuthFailed wraps a message as an ssh authentication failure.
func AuthFailed(message string) error {
	return fmt.Errorf("%s: %w", message, ErrAuthFailed)
}

// CommandTimeout wraps a message as a per-command timeout.
func CommandTimeout(message string) error {
	return fmt.Errorf("%s: %w", message, ErrCommandTimeout)
}

// AssistantUnavailable wraps a message as an assistant upstream failure.
func AssistantUnavailable(message string) error {
	return fmt.Errorf("%s: %w", message, ErrAssistantUnavailable)
}

// Storage wraps a message as a durable-write failure.
func Storage(message string) error {
	return fmt.Errorf("%s: %w", message, ErrStorage)
}

// InvalidInput wraps a message as malformed input.
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// IsCategory checks whether err belongs to the given sentinel category.
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// Category returns the taxonomy name for an error, for structured logs.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "PermissionDenied"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrDuplicateName):
		return "DuplicateName"
	case errors.Is(err, ErrNoServerSelected):
		return "NoServerSelected"
	case errors.Is(err, ErrConnectionFailed):
		return "ConnectionFailed"
	case errors.Is(err, ErrAuthFailed):
		return "AuthFailed"
	case errors.Is(err, ErrCommandTimeout):
		return "CommandTimeout"
	case errors.Is(err, ErrAssistantUnavailable):
		return "AssistantUnavailable"
	case errors.Is(err, ErrStorage):
		return "Storage"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	default:
		return "Unknown"
	}
}

// UserMessage maps an error to the text sent back to the chat. Validation
// errors carry the wrapped detail; connectivity errors add the guidance the
// operator needs to fix the server record or key installation.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "You are not authorized to use this bot. Ask the admin to run /grant with your user or chat id."
	case errors.Is(err, ErrNoServerSelected):
		return "No server selected. Register one with /set_server or pick one with /select_server."
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrAuthFailed):
		return fmt.Sprintf("Could not reach the server: %v. Verify the /set_server host, port and user, and that the bot's public key is installed on the host.", err)
	case errors.Is(err, ErrAssistantUnavailable):
		return fmt.Sprintf("The assistant is unavailable right now: %v", err)
	case errors.Is(err, ErrStorage):
		return "Failed to save the change, nothing was modified. Try again."
	default:
		return err.Error()
	}
}
