package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
)

var (
	// ErrMissingToken is returned when no bearer credential was presented.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrMissingClaims is returned when a decoded token lacks sub or email.
	ErrMissingClaims = errors.New("token lacks subject or email claim")
	// ErrTokenExpired is returned when a locally decoded token is past its exp claim.
	ErrTokenExpired = errors.New("token expired")
)

// carriedClaims are copied into Identity.Claims when present.
var carriedClaims = []string{"app_metadata", "user_metadata", "role", "aud"}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// DecodeUnverified reads the payload segment of a JWT without checking its
// signature. The result has AssuranceDegraded and must only be trusted while
// the identity provider is unreachable.
func DecodeUnverified(raw string, now time.Time) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return domain.Identity{}, fmt.Errorf("decode token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return domain.Identity{}, ErrMissingClaims
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("decode token: %w", err)
	}
	if exp != nil && now.After(exp.Time) {
		return domain.Identity{}, ErrTokenExpired
	}

	return domain.Identity{
		SubjectID: sub,
		Email:     email,
		Claims:    pickClaims(claims),
		Assurance: domain.AssuranceDegraded,
	}, nil
}

func pickClaims(src map[string]any) map[string]any {
	out := make(map[string]any, len(carriedClaims))
	for _, key := range carriedClaims {
		if v, ok := src[key]; ok && v != nil {
			out[key] = v
		}
	}
	return out
}
