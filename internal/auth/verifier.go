package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Verifier confirms a bearer token with the external identity provider.
//
// Implementations must return *RejectedError when the provider refused the
// token and *UnavailableError when the provider could not be reached.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// RejectedError means the provider answered and did not accept the token.
type RejectedError struct {
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("token rejected (status %d): %s", e.Status, e.Reason)
}

// UnavailableError means the provider could not be reached: dial or DNS
// failures, connection resets and timeouts.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("identity provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is an infrastructure failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// RemoteVerifier calls a Supabase-compatible GET /auth/v1/user endpoint.
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteVerifier builds a verifier. A nil client selects a default one;
// per-call deadlines come from the context.
func NewRemoteVerifier(baseURL, apiKey string, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type providerUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Verify implements Verifier.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return domain.Identity{}, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Identity{}, &UnavailableError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, &RejectedError{Status: resp.StatusCode, Reason: providerMessage(body)}
	}

	var user providerUser
	if err := json.Unmarshal(body, &user); err != nil {
		return domain.Identity{}, &RejectedError{Status: resp.StatusCode, Reason: "malformed user payload"}
	}
	if user.ID == "" || user.Email == "" {
		return domain.Identity{}, &RejectedError{Status: resp.StatusCode, Reason: "user payload lacks id or email"}
	}

	claims := map[string]any{}
	if user.AppMetadata != nil {
		claims["app_metadata"] = user.AppMetadata
	}
	if user.UserMetadata != nil {
		claims["user_metadata"] = user.UserMetadata
	}
	if user.Role != "" {
		claims["role"] = user.Role
	}

	return domain.Identity{
		SubjectID: user.ID,
		Email:     user.Email,
		Claims:    claims,
		Assurance: domain.AssuranceVerified,
	}, nil
}

func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"msg"`
		Error   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "unauthorized"
}
