package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyCapability = "capability"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyFile       = "file"
	KeyFolder     = "folder"
	KeyDuration   = "duration"
	KeyRequestID  = "request_id"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Capability returns a slog attribute for the invoked capability name.
func Capability(name string) slog.Attr {
	return slog.String(KeyCapability, name)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// File returns a slog attribute for a file name.
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Folder returns a slog attribute for a folder name.
func Folder(name string) slog.Attr {
	return slog.String(KeyFolder, name)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err returns a slog attribute for an error. If err is nil, an empty Group
// attribute is returned, which slog omits from output; this makes
// Err(maybeNilErr) safe to pass unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email address for
// logging. Log entries stay correlatable without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// Recipient returns a slog attribute with the anonymized recipient address.
func Recipient(email string) slog.Attr {
	return slog.String("recipient", AnonymizeEmail(email))
}
