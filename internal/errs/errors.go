// Package errs defines the sentinel errors shared across the driveflow
// backend. Callers match them with errors.Is; packages wrap them with
// fmt.Errorf("...: %w", ...) to add context.
package errs

import "errors"

var (
	// ErrNoClientConfig is returned when no OAuth client-secret
	// configuration is available. No consent flow can be started without it.
	ErrNoClientConfig = errors.New("oauth client configuration not found")

	// ErrAuthFlow is returned when the interactive consent flow could not
	// complete (denied, timed out, or the callback never arrived).
	ErrAuthFlow = errors.New("interactive authorization failed")

	// ErrNotFound is returned when a named file, folder or local path is
	// absent.
	ErrNotFound = errors.New("not found")

	// ErrClassification is returned when the language-model call failed or
	// produced an unusable decision.
	ErrClassification = errors.New("classification failed")

	// ErrTransfer is returned when a remote upload or download was rejected.
	ErrTransfer = errors.New("transfer rejected")
)
