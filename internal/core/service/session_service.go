package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ventamovil/session-core/internal/core/domain"
	"github.com/ventamovil/session-core/internal/core/ports"
	"github.com/ventamovil/session-core/internal/metrics"
)

// SessionManager owns the in-memory session and is its only mutator. All
// consumers are readers: they pull Snapshot or subscribe for synchronous
// change notifications. Login, Logout and Initialize must not overlap; the
// UI disables their triggers while IsLoading is true.
type SessionManager struct {
	store    ports.CredentialStore
	api      ports.AuthAPI
	log      zerolog.Logger
	validate *validator.Validate

	mu      sync.Mutex
	state   domain.SessionState
	token   string
	user    *domain.UserProfile
	loading bool

	subMu   sync.Mutex
	subs    map[int]func(domain.Snapshot)
	nextSub int
}

var _ ports.SessionService = (*SessionManager)(nil)

func NewSessionManager(store ports.CredentialStore, api ports.AuthAPI, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		store:    store,
		api:      api,
		log:      log,
		validate: validator.New(),
		state:    domain.StateUninitialized,
		subs:     make(map[int]func(domain.Snapshot)),
	}
}

// Snapshot returns the current session view. Safe to call from any goroutine.
func (m *SessionManager) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *SessionManager) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		State:           m.state,
		User:            m.user,
		Role:            domain.ResolveRole(m.user),
		IsLoading:       m.loading,
		IsAuthenticated: m.token != "" && m.user != nil,
	}
}

// Subscribe registers fn for synchronous notification on every session
// change. The returned cancel function is idempotent.
func (m *SessionManager) Subscribe(fn func(domain.Snapshot)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *SessionManager) notify() {
	snap := m.Snapshot()

	m.subMu.Lock()
	fns := make([]func(domain.Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Initialize recovers a persisted session at startup. A stored token counts
// for nothing until the backend re-serves the profile for it; any re-fetch
// failure demotes to unauthenticated and clears the stored session. The
// cause is returned so the caller can log it, but it is not a user-facing
// error. The loading flag is reset on every exit path.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.setState(domain.StateRecovering)
	m.setLoading(true)
	defer m.setLoading(false)

	token := m.store.Token(ctx)
	if token == "" {
		m.becomeUnauthenticated()
		metrics.RecoveriesTotal.WithLabelValues("empty").Inc()
		m.log.Debug().Msg("no stored session to recover")
		return nil
	}

	profile, err := m.api.FetchProfile(ctx, token)
	if err != nil {
		// The server already rejects this token, so no backend logout
		// round-trip is made; teardown is local only.
		if cerr := m.store.ClearSession(ctx); cerr != nil {
			m.log.Error().Err(cerr).Msg("failed to clear stored session after rejected token")
		}
		m.becomeUnauthenticated()
		metrics.RecoveriesTotal.WithLabelValues("rejected").Inc()
		metrics.ForcedLogoutsTotal.Inc()
		m.log.Warn().Err(err).Msg("stored token rejected, session demoted")
		return fmt.Errorf("session recovery: %w", err)
	}

	if err := m.store.SaveProfile(ctx, profile); err != nil {
		// The session stays valid on a stale cached profile; only the token
		// write is correctness-relevant.
		m.log.Warn().Err(err).Msg("failed to persist refreshed profile")
	}

	m.mu.Lock()
	m.token = token
	m.user = profile
	m.state = domain.StateAuthenticated
	m.mu.Unlock()
	m.notify()

	metrics.RecoveriesTotal.WithLabelValues("restored").Inc()
	m.log.Info().Str("user_id", profile.ID).Msg("session restored")
	return nil
}

// Login authenticates against the backend and establishes the session. On
// any failure the error is returned and in-memory state is left untouched.
// The token is durably saved before the profile fetch is attempted, so a
// crash mid-login leaves a recoverable state for the next Initialize.
func (m *SessionManager) Login(ctx context.Context, creds domain.Credentials) error {
	if err := m.validate.Struct(creds); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}

	m.setLoading(true)
	defer m.setLoading(false)

	result, err := m.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		m.log.Warn().Err(err).Str("email", creds.Email).Msg("login rejected")
		return err
	}

	if err := m.store.SaveToken(ctx, result.Token); err != nil {
		// The backend accepted the credentials, but a session that cannot
		// survive a restart must not claim to exist.
		metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("persist token: %w", err)
	}

	if creds.RememberMe {
		if err := m.store.SetRememberMe(ctx, true); err != nil {
			metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
			return fmt.Errorf("persist remember-me: %w", err)
		}
		if err := m.store.SaveLoginEmail(ctx, creds.Email); err != nil {
			metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
			return fmt.Errorf("persist login email: %w", err)
		}
	} else {
		if err := m.store.SetRememberMe(ctx, false); err != nil {
			metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
			return fmt.Errorf("persist remember-me: %w", err)
		}
		if err := m.store.ClearLoginEmail(ctx); err != nil {
			metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
			return fmt.Errorf("clear login email: %w", err)
		}
	}

	profile, err := m.api.FetchProfile(ctx, result.Token)
	if err != nil {
		// The persisted token is deliberately kept; the next Initialize
		// settles the half-login against the backend.
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return fmt.Errorf("fetch profile: %w", err)
	}

	if err := m.store.SaveProfile(ctx, profile); err != nil {
		metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("persist profile: %w", err)
	}

	m.mu.Lock()
	m.token = result.Token
	m.user = profile
	m.state = domain.StateAuthenticated
	m.mu.Unlock()
	m.notify()

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	m.log.Info().
		Str("user_id", profile.ID).
		Str("role", domain.ResolveRole(profile).String()).
		Bool("remember_me", creds.RememberMe).
		Msg("login succeeded")
	return nil
}

// Logout tears the session down. The backend call is best effort: the user's
// intent to leave outranks server acknowledgement, so its failure is logged
// and local teardown proceeds. forgetCredentials additionally clears the
// remember-me flag and saved email.
func (m *SessionManager) Logout(ctx context.Context, forgetCredentials bool) {
	m.mu.Lock()
	token := m.token
	m.state = domain.StateLoggingOut
	m.mu.Unlock()
	m.setLoading(true)
	defer m.setLoading(false)

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.log.Warn().Err(err).Msg("backend logout failed, proceeding with local teardown")
		}
	}

	var err error
	if forgetCredentials {
		err = m.store.ClearAll(ctx)
	} else {
		err = m.store.ClearSession(ctx)
	}
	if err != nil {
		m.log.Error().Err(err).Bool("forget", forgetCredentials).Msg("failed to clear stored credentials")
	}

	m.becomeUnauthenticated()

	mode := "partial"
	if forgetCredentials {
		mode = "full"
	}
	metrics.LogoutsTotal.WithLabelValues(mode).Inc()
	m.log.Info().Str("mode", mode).Msg("logged out")
}

// SavedLoginEmail returns the email to pre-fill the login form with. It
// yields nothing unless remember-me is currently on.
func (m *SessionManager) SavedLoginEmail(ctx context.Context) (string, bool) {
	if !m.store.RememberMe(ctx) {
		return "", false
	}
	email := m.store.LoginEmail(ctx)
	if email == "" {
		return "", false
	}
	return email, true
}

func (m *SessionManager) becomeUnauthenticated() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.state = domain.StateUnauthenticated
	m.mu.Unlock()
	m.notify()
}

func (m *SessionManager) setState(s domain.SessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.notify()
}

func (m *SessionManager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.notify()
}

// loginResult maps a login failure to its metrics label.
func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrAccountDisabled):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}
