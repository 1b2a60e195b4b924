package cli

import "errors"

// Minimal sentinel errors - let Cobra handle usage/flag errors
var (
	// ErrConfig indicates invalid or unsafe configuration (business logic)
	ErrConfig = errors.New("configuration error")

	// ErrAuth indicates a login, renewal, or revocation failure
	ErrAuth = errors.New("authentication error")

	// ErrUsage indicates a command was invoked with invalid flags/arguments
	// that Cobra itself did not catch.
	ErrUsage = errors.New("usage error")

	// ErrInternal indicates an unexpected failure unrelated to user input.
	ErrInternal = errors.New("internal error")
)
