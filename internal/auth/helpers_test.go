package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("not-the-provider-secret"))
	require.NoError(t, err)
	return signed
}

func userToken(t *testing.T, sub, email string) string {
	return signToken(t, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"role":  "authenticated",
	})
}

// stubVerifier returns a canned result and counts calls.
type stubVerifier struct {
	identity domain.Identity
	err      error
	block    bool
	calls    atomic.Int32
}

func (s *stubVerifier) Verify(ctx context.Context, _ string) (domain.Identity, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return domain.Identity{}, ctx.Err()
	}
	return s.identity, s.err
}
