// Package accounts is the account directory behind the development auth
// server: login identities with bcrypt password hashes and the profile the
// backend serves for them.
package accounts

import (
	"context"
	"errors"

	"github.com/ventamovil/session-core/internal/core/domain"
)

var (
	ErrNotFound = errors.New("account not found")
	ErrExists   = errors.New("account already exists")
)

// Account is a login-capable identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Profile      domain.UserProfile
}

// Repository defines the interface for account persistence.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
}
