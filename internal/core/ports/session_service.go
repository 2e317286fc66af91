package ports

import (
	"context"

	"github.com/ventamovil/session-core/internal/core/domain"
)

// SessionService is the consumer-facing session surface that screens and the
// navigation layer call. Login, Logout and Initialize must not be invoked
// concurrently with each other; disabling the triggering control while
// Snapshot().IsLoading is true is the caller's responsibility. Snapshot and
// Subscribe are safe at any time.
type SessionService interface {
	// Initialize runs once at startup: it recovers a persisted session by
	// re-fetching the profile for the stored token. Recovery failure demotes
	// to unauthenticated and the cause is returned for logging; it is not a
	// user-facing error.
	Initialize(ctx context.Context) error

	// Login authenticates and establishes the session. On failure the error
	// is returned unchanged and in-memory state is left as it was.
	Login(ctx context.Context, creds domain.Credentials) error

	// Logout tears the session down locally no matter what; backend or
	// storage failures are logged, never returned. forgetCredentials also
	// clears the remember-me flag and saved email.
	Logout(ctx context.Context, forgetCredentials bool)

	// SavedLoginEmail returns the email to pre-fill the login form with, and
	// whether one is saved. It yields nothing unless remember-me is on.
	SavedLoginEmail(ctx context.Context) (string, bool)

	// Snapshot returns the current session view.
	Snapshot() domain.Snapshot

	// Subscribe registers fn to be called synchronously on every session
	// change. The returned function cancels the subscription.
	Subscribe(fn func(domain.Snapshot)) (cancel func())
}
