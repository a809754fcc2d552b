// Package logging provides slog helpers shared across the backend:
// canonical attribute keys, small attribute constructors, and PII-safe
// anonymization for email addresses appearing in logs.
package logging
