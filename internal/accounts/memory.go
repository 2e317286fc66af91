package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ventamovil/session-core/internal/core/domain"
)

// MemoryRepository is the default account directory for the development
// server: everything lives in process and disappears on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*Account
	byID    map[string]*Account
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail: make(map[string]*Account),
		byID:    make(map[string]*Account),
	}
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *MemoryRepository) Create(_ context.Context, account *Account) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[account.Email]; exists {
		return nil, ErrExists
	}
	stored := cloneAccount(account)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Profile.ID = stored.ID
	r.byEmail[stored.Email] = stored
	r.byID[stored.ID] = stored
	return cloneAccount(stored), nil
}

func cloneAccount(a *Account) *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Profile.Roles = append([]domain.RoleAssignment(nil), a.Profile.Roles...)
	return &clone
}

// SeedDemo loads the fixed demo directory: one administrator, one customer,
// one suspended customer. Passwords follow the "<local part>123" convention.
func SeedDemo(ctx context.Context, repo Repository) error {
	demo := []struct {
		email    string
		password string
		name     string
		status   string
		roles    []domain.RoleAssignment
	}{
		{
			email:    "admin@ventamovil.dev",
			password: "admin123",
			name:     "Demo Administrator",
			status:   domain.StatusActive,
			roles:    []domain.RoleAssignment{{ID: 1, Name: domain.RoleNameAdmin}},
		},
		{
			email:    "cliente@ventamovil.dev",
			password: "cliente123",
			name:     "Demo Customer",
			status:   domain.StatusActive,
			roles:    []domain.RoleAssignment{{ID: 2, Name: domain.RoleNameCliente}},
		},
		{
			email:    "suspended@ventamovil.dev",
			password: "suspended123",
			name:     "Suspended Customer",
			status:   domain.StatusSuspended,
			roles:    []domain.RoleAssignment{{ID: 2, Name: domain.RoleNameCliente}},
		},
	}

	for _, d := range demo {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		_, err = repo.Create(ctx, &Account{
			Email:        d.email,
			PasswordHash: string(hash),
			Profile: domain.UserProfile{
				FullName: d.name,
				Email:    d.email,
				Status:   d.status,
				Roles:    d.roles,
			},
		})
		if err != nil && err != ErrExists {
			return fmt.Errorf("seed account %s: %w", d.email, err)
		}
	}
	return nil
}
