package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ventamovil/session-core/internal/core/domain"
	"github.com/ventamovil/session-core/internal/core/ports"
)

// recorder collects the order of storage and backend calls so tests can
// assert the login sequencing contract.
type recorder struct {
	calls []string
}

func (r *recorder) add(name string) {
	r.calls = append(r.calls, name)
}

type stubStore struct {
	rec *recorder

	token    string
	profile  *domain.UserProfile
	remember bool
	email    string

	failSaveToken    error
	failSaveProfile  error
	failSetRemember  error
	failSaveEmail    error
	failClearSession error
	failClearAll     error
}

func newStubStore(rec *recorder) *stubStore {
	return &stubStore{rec: rec}
}

func (s *stubStore) SaveToken(_ context.Context, token string) error {
	s.rec.add("save_token")
	if s.failSaveToken != nil {
		return s.failSaveToken
	}
	s.token = token
	return nil
}

func (s *stubStore) Token(_ context.Context) string { return s.token }

func (s *stubStore) RemoveToken(_ context.Context) error {
	s.rec.add("remove_token")
	s.token = ""
	return nil
}

func (s *stubStore) SaveProfile(_ context.Context, profile *domain.UserProfile) error {
	s.rec.add("save_profile")
	if s.failSaveProfile != nil {
		return s.failSaveProfile
	}
	s.profile = profile
	return nil
}

func (s *stubStore) Profile(_ context.Context) *domain.UserProfile { return s.profile }

func (s *stubStore) RemoveProfile(_ context.Context) error {
	s.rec.add("remove_profile")
	s.profile = nil
	return nil
}

func (s *stubStore) SetRememberMe(_ context.Context, remember bool) error {
	s.rec.add("set_remember_me")
	if s.failSetRemember != nil {
		return s.failSetRemember
	}
	s.remember = remember
	return nil
}

func (s *stubStore) RememberMe(_ context.Context) bool { return s.remember }

func (s *stubStore) SaveLoginEmail(_ context.Context, email string) error {
	s.rec.add("save_login_email")
	if s.failSaveEmail != nil {
		return s.failSaveEmail
	}
	s.email = email
	return nil
}

func (s *stubStore) LoginEmail(_ context.Context) string { return s.email }

func (s *stubStore) ClearLoginEmail(_ context.Context) error {
	s.rec.add("clear_login_email")
	s.email = ""
	return nil
}

func (s *stubStore) ClearSession(_ context.Context) error {
	s.rec.add("clear_session")
	if s.failClearSession != nil {
		return s.failClearSession
	}
	s.token = ""
	s.profile = nil
	return nil
}

func (s *stubStore) ClearAll(_ context.Context) error {
	s.rec.add("clear_all")
	if s.failClearAll != nil {
		return s.failClearAll
	}
	s.token = ""
	s.profile = nil
	s.remember = false
	s.email = ""
	return nil
}

type stubAPI struct {
	rec *recorder

	loginFn   func(email, password string) (ports.LoginResult, error)
	logoutFn  func(token string) error
	profileFn func(token string) (*domain.UserProfile, error)
}

func (a *stubAPI) Login(_ context.Context, email, password string) (ports.LoginResult, error) {
	a.rec.add("api_login")
	return a.loginFn(email, password)
}

func (a *stubAPI) Logout(_ context.Context, token string) error {
	a.rec.add("api_logout")
	if a.logoutFn == nil {
		return nil
	}
	return a.logoutFn(token)
}

func (a *stubAPI) FetchProfile(_ context.Context, token string) (*domain.UserProfile, error) {
	a.rec.add("fetch_profile")
	return a.profileFn(token)
}

func adminProfile() *domain.UserProfile {
	return &domain.UserProfile{
		ID:       "u1",
		FullName: "Ada Admin",
		Email:    "admin@x.com",
		Status:   domain.StatusActive,
		Roles:    []domain.RoleAssignment{{ID: 1, Name: domain.RoleNameAdmin}},
	}
}

func okAPI(rec *recorder, token string, profile *domain.UserProfile) *stubAPI {
	return &stubAPI{
		rec: rec,
		loginFn: func(string, string) (ports.LoginResult, error) {
			return ports.LoginResult{Token: token, TokenType: "Bearer"}, nil
		},
		profileFn: func(string) (*domain.UserProfile, error) {
			return profile, nil
		},
	}
}

func TestSessionManager_Login_Success(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	creds := domain.Credentials{Email: "admin@x.com", Password: "pw"}
	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	snap := m.Snapshot()
	if !snap.IsAuthenticated {
		t.Fatalf("expected authenticated session, got %+v", snap)
	}
	if snap.State != domain.StateAuthenticated {
		t.Fatalf("expected authenticated state, got %s", snap.State)
	}
	if snap.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", snap.Role)
	}
	if snap.IsLoading {
		t.Fatalf("loading flag stuck after login")
	}
	if store.token != "T1" {
		t.Fatalf("token not persisted: %q", store.token)
	}
	if store.profile == nil || store.profile.ID != "u1" {
		t.Fatalf("profile not persisted: %+v", store.profile)
	}
}

func TestSessionManager_Login_CallOrdering(t *testing.T) {
	cases := []struct {
		name     string
		remember bool
		want     []string
	}{
		{
			name:     "remember me on",
			remember: true,
			want:     []string{"api_login", "save_token", "set_remember_me", "save_login_email", "fetch_profile", "save_profile"},
		},
		{
			name:     "remember me off",
			remember: false,
			want:     []string{"api_login", "save_token", "set_remember_me", "clear_login_email", "fetch_profile", "save_profile"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			store := newStubStore(rec)
			api := okAPI(rec, "T1", adminProfile())
			m := NewSessionManager(store, api, zerolog.Nop())

			creds := domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: tc.remember}
			if err := m.Login(context.Background(), creds); err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if !reflect.DeepEqual(rec.calls, tc.want) {
				t.Fatalf("call order mismatch:\n got  %v\n want %v", rec.calls, tc.want)
			}
		})
	}
}

func TestSessionManager_Login_InvalidCredentials_NoMutation(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := &stubAPI{
		rec: rec,
		loginFn: func(string, string) (ports.LoginResult, error) {
			return ports.LoginResult{}, &domain.APIError{Status: 401, Err: domain.ErrInvalidCredentials}
		},
	}
	m := NewSessionManager(store, api, zerolog.Nop())

	err := m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "bad"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	snap := m.Snapshot()
	if snap.IsAuthenticated || snap.User != nil {
		t.Fatalf("session mutated on failed login: %+v", snap)
	}
	if snap.IsLoading {
		t.Fatalf("loading flag stuck after rejected login")
	}
	if store.token != "" || store.profile != nil {
		t.Fatalf("storage mutated on failed login")
	}
}

func TestSessionManager_Login_MalformedCredentials(t *testing.T) {
	rec := &recorder{}
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(newStubStore(rec), api, zerolog.Nop())

	err := m.Login(context.Background(), domain.Credentials{Email: "not-an-email", Password: "pw"})
	if !errors.Is(err, domain.ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("backend or storage touched before validation: %v", rec.calls)
	}
}

func TestSessionManager_Login_TokenWriteFailure(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	store.failSaveToken = errors.New("disk full")
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	err := m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "pw"})
	if err == nil {
		t.Fatalf("expected login failure on token write error")
	}
	snap := m.Snapshot()
	if snap.IsAuthenticated {
		t.Fatalf("session claims authenticated with unpersisted token")
	}
	if snap.IsLoading {
		t.Fatalf("loading flag stuck after storage failure")
	}
}

func TestSessionManager_Login_ProfileFetchFailure_KeepsStoredToken(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := &stubAPI{
		rec: rec,
		loginFn: func(string, string) (ports.LoginResult, error) {
			return ports.LoginResult{Token: "T1"}, nil
		},
		profileFn: func(string) (*domain.UserProfile, error) {
			return nil, &domain.APIError{Err: domain.ErrUnreachable, Message: "timeout"}
		},
	}
	m := NewSessionManager(store, api, zerolog.Nop())

	err := m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "pw"})
	if !errors.Is(err, domain.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if m.Snapshot().IsAuthenticated {
		t.Fatalf("session authenticated without a profile")
	}
	// The token stays on disk so the next Initialize can settle the half-login.
	if store.token != "T1" {
		t.Fatalf("expected stored token to survive, got %q", store.token)
	}
}

func TestSessionManager_RememberMe_RoundTrip(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	creds := domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: true}
	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Simulated process death: a fresh manager over the same store.
	restarted := NewSessionManager(store, api, zerolog.Nop())
	if err := restarted.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	email, ok := restarted.SavedLoginEmail(context.Background())
	if !ok || email != "a@b.com" {
		t.Fatalf("expected saved email a@b.com, got %q (ok=%v)", email, ok)
	}
	if !restarted.Snapshot().IsAuthenticated {
		t.Fatalf("expected restored session to be authenticated")
	}
}

func TestSessionManager_RememberMe_Disabled(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	store.remember = true
	store.email = "old@b.com"
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	creds := domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: false}
	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, ok := m.SavedLoginEmail(context.Background()); ok {
		t.Fatalf("expected no saved email after remember-me off login")
	}
	if store.remember || store.email != "" {
		t.Fatalf("remember-me data not cleared: remember=%v email=%q", store.remember, store.email)
	}
}

func TestSessionManager_Logout_Partial(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	creds := domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: true}
	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout(context.Background(), false)

	snap := m.Snapshot()
	if snap.IsAuthenticated || snap.User != nil {
		t.Fatalf("session not torn down: %+v", snap)
	}
	if snap.State != domain.StateUnauthenticated {
		t.Fatalf("expected unauthenticated state, got %s", snap.State)
	}
	if store.token != "" || store.profile != nil {
		t.Fatalf("stored session not cleared")
	}
	if !store.remember || store.email != "a@b.com" {
		t.Fatalf("remember-me data lost on partial logout: remember=%v email=%q", store.remember, store.email)
	}
}

func TestSessionManager_Logout_Full(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	creds := domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: true}
	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout(context.Background(), true)

	if store.token != "" || store.profile != nil || store.remember || store.email != "" {
		t.Fatalf("expected all persisted fields cleared, got token=%q profile=%v remember=%v email=%q",
			store.token, store.profile, store.remember, store.email)
	}
}

func TestSessionManager_Logout_BackendFailureSwallowed(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := okAPI(rec, "T1", adminProfile())
	api.logoutFn = func(string) error {
		return &domain.APIError{Err: domain.ErrUnreachable, Message: "connection refused"}
	}
	m := NewSessionManager(store, api, zerolog.Nop())

	if err := m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout(context.Background(), false)

	snap := m.Snapshot()
	if snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("local teardown incomplete after backend logout failure: %+v", snap)
	}
	if store.token != "" {
		t.Fatalf("stored token survived logout")
	}
}

func TestSessionManager_Initialize_NoStoredToken(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := &stubAPI{rec: rec, profileFn: func(string) (*domain.UserProfile, error) {
		t.Fatalf("profile fetch without a stored token")
		return nil, nil
	}}
	m := NewSessionManager(store, api, zerolog.Nop())

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	snap := m.Snapshot()
	if snap.State != domain.StateUnauthenticated || snap.IsLoading {
		t.Fatalf("unexpected state after empty recovery: %+v", snap)
	}
}

func TestSessionManager_Initialize_StaleToken(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	store.token = "stale"
	store.profile = adminProfile()
	api := &stubAPI{rec: rec, profileFn: func(string) (*domain.UserProfile, error) {
		return nil, &domain.APIError{Status: 401, Err: domain.ErrTokenInvalid}
	}}
	m := NewSessionManager(store, api, zerolog.Nop())

	err := m.Initialize(context.Background())
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid cause, got %v", err)
	}

	snap := m.Snapshot()
	if snap.State != domain.StateUnauthenticated || snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("expected clean unauthenticated state, got %+v", snap)
	}
	if store.token != "" || store.profile != nil {
		t.Fatalf("stored session not cleared after rejected token")
	}
	// No backend logout round-trip against a token the server already rejects.
	for _, call := range rec.calls {
		if call == "api_logout" {
			t.Fatalf("unexpected backend logout during startup teardown: %v", rec.calls)
		}
	}
}

func TestSessionManager_Initialize_RefreshesProfile(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	store.token = "T1"
	store.profile = &domain.UserProfile{ID: "u1", FullName: "Stale Name", Status: domain.StatusActive}
	fresh := adminProfile()
	api := &stubAPI{rec: rec, profileFn: func(token string) (*domain.UserProfile, error) {
		if token != "T1" {
			t.Fatalf("unexpected token: %q", token)
		}
		return fresh, nil
	}}
	m := NewSessionManager(store, api, zerolog.Nop())

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	snap := m.Snapshot()
	if !snap.IsAuthenticated || snap.User != fresh {
		t.Fatalf("expected refreshed profile, got %+v", snap)
	}
	if store.profile != fresh {
		t.Fatalf("refreshed profile not persisted")
	}
}

// The authentication invariant must hold in every snapshot observers ever
// see: IsAuthenticated exactly when a profile is present.
func TestSessionManager_AuthInvariant_AllSnapshots(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	api := okAPI(rec, "T1", adminProfile())
	m := NewSessionManager(store, api, zerolog.Nop())

	var snapshots []domain.Snapshot
	cancel := m.Subscribe(func(s domain.Snapshot) {
		snapshots = append(snapshots, s)
	})
	defer cancel()

	ctx := context.Background()
	_ = m.Initialize(ctx)
	_ = m.Login(ctx, domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: true})
	m.Logout(ctx, false)
	_ = m.Login(ctx, domain.Credentials{Email: "a@b.com", Password: "x"})
	m.Logout(ctx, true)

	if len(snapshots) == 0 {
		t.Fatalf("no snapshots observed")
	}
	for i, s := range snapshots {
		if s.IsAuthenticated != (s.User != nil) {
			t.Fatalf("snapshot %d violates auth invariant: %+v", i, s)
		}
		if s.IsAuthenticated && s.Role == domain.RoleNone {
			t.Fatalf("snapshot %d authenticated without a role: %+v", i, s)
		}
	}
}

// The loading flag must settle to false whatever combination of backend and
// storage failures is injected.
func TestSessionManager_LoadingNeverStuck(t *testing.T) {
	apiErr := &domain.APIError{Status: 500, Err: domain.ErrServer}
	storErr := errors.New("io error")

	scenarios := []struct {
		name string
		run  func(t *testing.T) *SessionManager
	}{
		{"login backend failure", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			api := &stubAPI{rec: rec, loginFn: func(string, string) (ports.LoginResult, error) {
				return ports.LoginResult{}, apiErr
			}}
			m := NewSessionManager(newStubStore(rec), api, zerolog.Nop())
			_ = m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"})
			return m
		}},
		{"login token write failure", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			store := newStubStore(rec)
			store.failSaveToken = storErr
			m := NewSessionManager(store, okAPI(rec, "T1", adminProfile()), zerolog.Nop())
			_ = m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"})
			return m
		}},
		{"login remember-me write failure", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			store := newStubStore(rec)
			store.failSetRemember = storErr
			m := NewSessionManager(store, okAPI(rec, "T1", adminProfile()), zerolog.Nop())
			_ = m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x", RememberMe: true})
			return m
		}},
		{"login profile fetch failure", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			api := &stubAPI{
				rec:       rec,
				loginFn:   func(string, string) (ports.LoginResult, error) { return ports.LoginResult{Token: "T1"}, nil },
				profileFn: func(string) (*domain.UserProfile, error) { return nil, apiErr },
			}
			m := NewSessionManager(newStubStore(rec), api, zerolog.Nop())
			_ = m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"})
			return m
		}},
		{"login profile write failure", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			store := newStubStore(rec)
			store.failSaveProfile = storErr
			m := NewSessionManager(store, okAPI(rec, "T1", adminProfile()), zerolog.Nop())
			_ = m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"})
			return m
		}},
		{"initialize stale token", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			store := newStubStore(rec)
			store.token = "stale"
			store.failClearSession = storErr
			api := &stubAPI{rec: rec, profileFn: func(string) (*domain.UserProfile, error) { return nil, apiErr }}
			m := NewSessionManager(store, api, zerolog.Nop())
			_ = m.Initialize(context.Background())
			return m
		}},
		{"logout everything failing", func(t *testing.T) *SessionManager {
			rec := &recorder{}
			store := newStubStore(rec)
			store.failClearAll = storErr
			api := okAPI(rec, "T1", adminProfile())
			api.logoutFn = func(string) error { return apiErr }
			m := NewSessionManager(store, api, zerolog.Nop())
			if err := m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"}); err != nil {
				t.Fatalf("login failed: %v", err)
			}
			m.Logout(context.Background(), true)
			return m
		}},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			m := sc.run(t)
			if m.Snapshot().IsLoading {
				t.Fatalf("loading flag stuck")
			}
		})
	}
}

func TestSessionManager_Subscribe_Cancel(t *testing.T) {
	rec := &recorder{}
	m := NewSessionManager(newStubStore(rec), okAPI(rec, "T1", adminProfile()), zerolog.Nop())

	calls := 0
	cancel := m.Subscribe(func(domain.Snapshot) { calls++ })
	cancel()
	cancel() // idempotent

	if err := m.Login(context.Background(), domain.Credentials{Email: "a@b.com", Password: "x"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled subscriber still notified %d times", calls)
	}
}

func TestSessionManager_SavedLoginEmail_RequiresRememberMe(t *testing.T) {
	rec := &recorder{}
	store := newStubStore(rec)
	store.email = "ghost@b.com" // email present but flag off
	m := NewSessionManager(store, okAPI(rec, "T1", adminProfile()), zerolog.Nop())

	if email, ok := m.SavedLoginEmail(context.Background()); ok {
		t.Fatalf("expected no saved email, got %q", email)
	}
}
