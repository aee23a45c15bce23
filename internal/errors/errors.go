package errors

import (
	"errors"
)

// Sentinel errors for the bot's failure taxonomy. Every error returned
// from a core operation wraps exactly one of these so callers can route
// on category with errors.Is.
var (
	// ErrPermissionDenied - principal is not in the authorized sets, or a
	// non-admin attempted grant/revoke.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound - no server record with that name in the chat scope.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName - a server with that name already exists in the chat.
	ErrDuplicateName = errors.New("duplicate server name")

	// ErrNoServerSelected - a report was requested while the chat has no
	// selected server.
	ErrNoServerSelected = errors.New("no server selected")

	// ErrConnectionFailed - remote host refused or was unreachable; aborts
	// the whole report.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrAuthFailed - ssh key authentication was rejected by the host;
	// aborts the whole report.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrCommandTimeout - a single diagnostic command exceeded its budget.
	// Partial failure, never aborts the report.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrAssistantUnavailable - the upstream assistant service failed or
	// timed out. Surfaced once, no retry.
	ErrAssistantUnavailable = errors.New("assistant unavailable")

	// ErrStorage - a durable snapshot could not be written; the mutation
	// is reported as failed, never silently dropped.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidInput - malformed command arguments.
	ErrInvalidInput = errors.New("invalid input")
)
