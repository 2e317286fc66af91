// Package file implements a CredentialStore backed by one file per logical
// key under a private directory, mirroring the mobile platform's key-value
// storage. Each write goes through a temp file and rename, so individual
// keys are updated atomically; no cross-key transactions exist.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ventamovil/session-core/internal/core/domain"
	"github.com/ventamovil/session-core/internal/core/ports"
)

const (
	tokenFile      = "token"
	profileFile    = "profile.json"
	rememberFile   = "remember_me"
	loginEmailFile = "login_email"
)

type Store struct {
	dir string
	log zerolog.Logger
}

var _ ports.CredentialStore = (*Store)(nil)

// NewStore creates the credential directory if needed. Files are created
// with 0600 and the directory with 0700; tokens are secrets.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) SaveToken(_ context.Context, token string) error {
	return s.write(tokenFile, []byte(token))
}

func (s *Store) Token(_ context.Context) string {
	data, ok := s.read(tokenFile)
	if !ok {
		return ""
	}
	return string(data)
}

func (s *Store) RemoveToken(_ context.Context) error {
	return s.remove(tokenFile)
}

func (s *Store) SaveProfile(_ context.Context, profile *domain.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.write(profileFile, data)
}

func (s *Store) Profile(_ context.Context) *domain.UserProfile {
	data, ok := s.read(profileFile)
	if !ok {
		return nil
	}
	var profile domain.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		s.log.Error().Err(err).Msg("cached profile unreadable, treating as absent")
		return nil
	}
	return &profile
}

func (s *Store) RemoveProfile(_ context.Context) error {
	return s.remove(profileFile)
}

func (s *Store) SetRememberMe(_ context.Context, remember bool) error {
	return s.write(rememberFile, []byte(strconv.FormatBool(remember)))
}

func (s *Store) RememberMe(_ context.Context) bool {
	data, ok := s.read(rememberFile)
	if !ok {
		return false
	}
	remember, err := strconv.ParseBool(string(data))
	if err != nil {
		s.log.Error().Err(err).Msg("remember-me flag unreadable, defaulting to false")
		return false
	}
	return remember
}

func (s *Store) SaveLoginEmail(_ context.Context, email string) error {
	return s.write(loginEmailFile, []byte(email))
}

func (s *Store) LoginEmail(_ context.Context) string {
	data, ok := s.read(loginEmailFile)
	if !ok {
		return ""
	}
	return string(data)
}

func (s *Store) ClearLoginEmail(_ context.Context) error {
	return s.remove(loginEmailFile)
}

func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.RemoveToken(ctx); err != nil {
		return err
	}
	return s.RemoveProfile(ctx)
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.ClearSession(ctx); err != nil {
		return err
	}
	if err := s.remove(rememberFile); err != nil {
		return err
	}
	return s.remove(loginEmailFile)
}

func (s *Store) write(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// read returns the key's bytes, or false when absent. Read failures never
// escape this boundary: they are logged and reported as absence.
func (s *Store) read(name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Error().Err(err).Str("key", name).Msg("credential read failed")
		}
		return nil, false
	}
	return data, true
}

func (s *Store) remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
