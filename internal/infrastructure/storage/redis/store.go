// Package redis implements a CredentialStore on plain Redis keys, for
// deployments where the client runs on shared kiosk hardware and session
// state lives off-device.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ventamovil/session-core/internal/core/domain"
	"github.com/ventamovil/session-core/internal/core/ports"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
// A default timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

const (
	keyToken      = "session:token"
	keyProfile    = "session:profile"
	keyRememberMe = "session:remember_me"
	keyLoginEmail = "session:login_email"
)

type Store struct {
	client *redis.Client
	log    zerolog.Logger
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(client *redis.Client, log zerolog.Logger) *Store {
	return &Store{client: client, log: log}
}

func (s *Store) SaveToken(ctx context.Context, token string) error {
	return s.set(ctx, keyToken, token)
}

func (s *Store) Token(ctx context.Context) string {
	return s.get(ctx, keyToken)
}

func (s *Store) RemoveToken(ctx context.Context) error {
	return s.del(ctx, keyToken)
}

func (s *Store) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.set(ctx, keyProfile, string(data))
}

func (s *Store) Profile(ctx context.Context) *domain.UserProfile {
	data := s.get(ctx, keyProfile)
	if data == "" {
		return nil
	}
	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		s.log.Error().Err(err).Msg("cached profile unreadable, treating as absent")
		return nil
	}
	return &profile
}

func (s *Store) RemoveProfile(ctx context.Context) error {
	return s.del(ctx, keyProfile)
}

func (s *Store) SetRememberMe(ctx context.Context, remember bool) error {
	value := "false"
	if remember {
		value = "true"
	}
	return s.set(ctx, keyRememberMe, value)
}

func (s *Store) RememberMe(ctx context.Context) bool {
	return s.get(ctx, keyRememberMe) == "true"
}

func (s *Store) SaveLoginEmail(ctx context.Context, email string) error {
	return s.set(ctx, keyLoginEmail, email)
}

func (s *Store) LoginEmail(ctx context.Context) string {
	return s.get(ctx, keyLoginEmail)
}

func (s *Store) ClearLoginEmail(ctx context.Context) error {
	return s.del(ctx, keyLoginEmail)
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.del(ctx, keyToken, keyProfile)
}

func (s *Store) ClearAll(ctx context.Context) error {
	return s.del(ctx, keyToken, keyProfile, keyRememberMe, keyLoginEmail)
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// get returns the value or "" when absent. Read failures never escape this
// boundary: they are logged and reported as absence.
func (s *Store) get(ctx context.Context, key string) string {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Error().Err(err).Str("key", key).Msg("credential read failed")
		}
		return ""
	}
	return value
}

func (s *Store) del(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del %v: %w", keys, err)
	}
	return nil
}
