// Package stubauth implements the fixed backend auth contract for local
// development: bcrypt-checked logins, HS256 bearer tokens, and an in-process
// revocation list so a logged-out token stops proving an identity.
package stubauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ventamovil/session-core/internal/accounts"
	"github.com/ventamovil/session-core/internal/core/domain"
)

type Service struct {
	repo   accounts.Repository
	secret []byte
	ttl    time.Duration
	log    zerolog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

func NewService(repo accounts.Repository, secret string, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		repo:    repo,
		secret:  []byte(secret),
		ttl:     ttl,
		log:     log,
		revoked: make(map[string]time.Time),
	}
}

// Login checks the credentials and issues a bearer token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if err == accounts.ErrNotFound {
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	if !account.Profile.IsActive() {
		return "", domain.ErrAccountDisabled
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": account.ID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("token issued")
	return token, nil
}

// Verify returns the account ID a valid, unrevoked token stands for.
func (s *Service) Verify(_ context.Context, token string) (string, error) {
	sub, jti, _, err := s.parse(token)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	_, isRevoked := s.revoked[jti]
	s.mu.Unlock()
	if isRevoked {
		return "", domain.ErrTokenInvalid
	}
	return sub, nil
}

// Logout revokes the token until its natural expiry. Revoking an already
// revoked token is a no-op.
func (s *Service) Logout(_ context.Context, token string) error {
	_, jti, exp, err := s.parse(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked[jti] = exp
	for id, expiry := range s.revoked {
		if time.Now().After(expiry) {
			delete(s.revoked, id)
		}
	}
	s.mu.Unlock()

	s.log.Info().Msg("token revoked")
	return nil
}

// ProfileFor serves the profile behind an authenticated account ID.
func (s *Service) ProfileFor(ctx context.Context, accountID string) (*domain.UserProfile, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if err == accounts.ErrNotFound {
			// The account vanished from under the token.
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	profile := account.Profile
	return &profile, nil
}

func (s *Service) parse(token string) (sub, jti string, exp time.Time, err error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", time.Time{}, domain.ErrTokenInvalid
	}

	sub, _ = claims["sub"].(string)
	jti, _ = claims["jti"].(string)
	if sub == "" || jti == "" {
		return "", "", time.Time{}, domain.ErrTokenInvalid
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return "", "", time.Time{}, domain.ErrTokenInvalid
	}
	return sub, jti, expiry.Time, nil
}
