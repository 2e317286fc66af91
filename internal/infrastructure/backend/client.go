// Package backend adapts the remote auth REST API to the AuthAPI port. The
// bearer token is treated as opaque; classification of failures happens here
// so the core only ever sees *domain.APIError values.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ventamovil/session-core/internal/core/domain"
	"github.com/ventamovil/session-core/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ ports.AuthAPI = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, email, password string) (ports.LoginResult, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.LoginResult{}, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ports.LoginResult{}, c.loginError(resp)
	}

	var result ports.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ports.LoginResult{}, fmt.Errorf("decode login response: %w", err)
	}
	if result.TokenType == "" {
		result.TokenType = "Bearer"
	}
	return result, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
			Err:     domain.ErrServer,
		}
	}
	return nil
}

func (c *Client) FetchProfile(ctx context.Context, token string) (*domain.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	// Any non-2xx answer on the profile endpoint means the token no longer
	// proves an identity.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
			Err:     domain.ErrTokenInvalid,
		}
	}

	var profile domain.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}
	return &profile, nil
}

func (c *Client) loginError(resp *http.Response) error {
	msg := errorMessage(resp.Body)

	var cause error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		cause = domain.ErrInvalidCredentials
	case resp.StatusCode == http.StatusForbidden:
		cause = domain.ErrAccountDisabled
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		cause = domain.ErrMalformedRequest
	default:
		cause = domain.ErrServer
	}

	return &domain.APIError{Status: resp.StatusCode, Message: msg, Err: cause}
}

func (c *Client) transportError(err error) error {
	c.log.Debug().Err(err).Msg("transport failure")
	return &domain.APIError{Message: err.Error(), Err: domain.ErrUnreachable}
}

// errorMessage pulls the {"error": "..."} envelope off a failure body, or
// the raw text when the body is not that shape.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(data))
}
