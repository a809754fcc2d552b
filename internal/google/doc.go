// Package google manages the OAuth credential shared by the Drive and
// Gmail gateways.
//
// The Store owns the persisted token file for the single configured
// account. Credential() implements the full lifecycle: load a persisted
// token, refresh it silently when it is expired but refreshable, or run the
// interactive consent flow when nothing usable is on disk. Whichever path
// produced the token, it is persisted before being returned.
//
// The whole lifecycle runs under one mutex. A refreshed token invalidates
// the one a concurrent reader might still hold, so refresh/consent
// sequences must never interleave; the lock makes last-writer-wins behavior
// on the token file safe.
package google
