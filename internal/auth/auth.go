// Package auth resolves who is playing, so saved games can be filed under a
// stable user id. The rest of the program treats the id as opaque.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")

	// ErrInvalidCredentials indicates an email address failed local checks.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

const defaultTimeout = 2 * time.Second

// Identity represents an authenticated user.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Validator turns a session token into an identity.
type Validator interface {
	// Validate returns:
	//   - (*Identity, nil) if the token is valid
	//   - (nil, ErrInvalidToken) if the token is definitively invalid
	//   - (nil, ErrUnavailable) if the identity service cannot be reached
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPValidator validates tokens via HTTP callback to an identity service.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
	timeout     time.Duration
}

// Option configures an HTTPValidator
type Option func(*HTTPValidator)

// WithTimeout bounds each validation request.
func WithTimeout(d time.Duration) Option {
	return func(v *HTTPValidator) {
		v.timeout = d
		v.client.Timeout = d
	}
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string, adminSecret string, opts ...Option) *HTTPValidator {
	v := &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		timeout:     defaultTimeout,
		client:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var authResp validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !authResp.Valid || authResp.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: authResp.UserID, Email: authResp.Email}, nil
}

// StaticValidator returns a fixed identity for any token. It is used when
// games are kept locally and there is no identity service.
type StaticValidator struct {
	identity Identity
}

// NewStaticValidator creates a validator that always answers with userID.
func NewStaticValidator(userID, email string) *StaticValidator {
	return &StaticValidator{identity: Identity{UserID: userID, Email: email}}
}

func (v *StaticValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if v.identity.UserID == "" {
		return nil, ErrInvalidToken
	}
	id := v.identity
	return &id, nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the shape of an email address before it is used as
// an identity.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: please enter an email address", ErrInvalidCredentials)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: please enter a valid email address", ErrInvalidCredentials)
	}
	return nil
}
