package ports

import (
	"context"

	"github.com/ventamovil/session-core/internal/core/domain"
)

// LoginResult is the backend's answer to a successful authentication.
type LoginResult struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// AuthAPI is the remote authentication backend. Errors returned by Login and
// FetchProfile are *domain.APIError values wrapping the domain sentinels, so
// callers can distinguish rejected credentials from connectivity failures.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Logout(ctx context.Context, token string) error
	FetchProfile(ctx context.Context, token string) (*domain.UserProfile, error)
}
