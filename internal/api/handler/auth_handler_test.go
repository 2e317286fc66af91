package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ventamovil/session-core/internal/core/domain"
)

type stubAuthService struct {
	loginFn   func(ctx context.Context, email, password string) (string, error)
	logoutFn  func(ctx context.Context, token string) error
	profileFn func(ctx context.Context, accountID string) (*domain.UserProfile, error)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error {
	return s.logoutFn(ctx, token)
}

func (s *stubAuthService) ProfileFor(ctx context.Context, accountID string) (*domain.UserProfile, error) {
	return s.profileFn(ctx, accountID)
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (string, error) {
			if email != "admin@x.com" || password != "pw" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "T1", nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"admin@x.com","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "T1" || resp["token_type"] != "Bearer" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentialsPassthrough(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, error) {
			return "", domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"bad"}`)
	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials passthrough, got %v", err)
	}
}

func TestAuthHandler_Login_MalformedPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, error) {
			t.Fatalf("should not be called")
			return "", nil
		},
	}
	h := NewAuthHandler(stub)

	for _, body := range []string{"not-json", `{"email":"not-an-email","password":"pw"}`, `{"email":"a@b.com"}`} {
		c, _ := newTestContext(t, http.MethodPost, "/auth/login", body)
		err := h.Login(c)

		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %v", body, err)
		}
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var revoked string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, token string) error {
			revoked = token
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/logout", "")
	c.Set("token", "T1")

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if revoked != "T1" {
		t.Fatalf("expected token T1 revoked, got %q", revoked)
	}
}

func TestAuthHandler_Profile(t *testing.T) {
	stub := &stubAuthService{
		profileFn: func(_ context.Context, accountID string) (*domain.UserProfile, error) {
			if accountID != "u1" {
				t.Fatalf("unexpected account id: %s", accountID)
			}
			return &domain.UserProfile{
				ID:     "u1",
				Email:  "admin@x.com",
				Status: domain.StatusActive,
				Roles:  []domain.RoleAssignment{{ID: 1, Name: domain.RoleNameAdmin}},
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/auth/profile", "")
	c.Set("account_id", "u1")

	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if profile.ID != "u1" || len(profile.Roles) != 1 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAuthHandler_Profile_MissingClaims(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newTestContext(t, http.MethodGet, "/auth/profile", "")
	err := h.Profile(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
