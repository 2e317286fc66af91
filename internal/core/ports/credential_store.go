package ports

import (
	"context"

	"github.com/ventamovil/session-core/internal/core/domain"
)

// CredentialStore persists session credentials across process restarts.
//
// Reads never fail across this boundary: adapters log storage errors and
// return the zero value (absent token/profile/email, remember-me false).
// Writes return errors, because a token that cannot be persisted must fail
// the login that produced it.
type CredentialStore interface {
	SaveToken(ctx context.Context, token string) error
	Token(ctx context.Context) string
	RemoveToken(ctx context.Context) error

	SaveProfile(ctx context.Context, profile *domain.UserProfile) error
	Profile(ctx context.Context) *domain.UserProfile
	RemoveProfile(ctx context.Context) error

	SetRememberMe(ctx context.Context, remember bool) error
	RememberMe(ctx context.Context) bool

	SaveLoginEmail(ctx context.Context, email string) error
	LoginEmail(ctx context.Context) string
	ClearLoginEmail(ctx context.Context) error

	// ClearSession removes the token and cached profile, leaving the
	// remember-me flag and saved email untouched.
	ClearSession(ctx context.Context) error
	// ClearAll removes every persisted field unconditionally.
	ClearAll(ctx context.Context) error
}
