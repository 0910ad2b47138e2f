package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const roleKey = "auth_role"

// RoleResolver maps an identity to its internal role.
type RoleResolver interface {
	Resolve(ctx context.Context, identity domain.Identity) (domain.Role, error)
}

// ResolveRole loads the caller's role after authentication. Lookup failures
// abort the request rather than defaulting to a role.
func ResolveRole(roles RoleResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		role, err := roles.Resolve(c.UserContext(), identity)
		if err != nil {
			return err
		}
		c.Locals(roleKey, role)
		return c.Next()
	}
}

// RoleFromContext retrieves the role stored by ResolveRole.
func RoleFromContext(c *fiber.Ctx) (domain.Role, bool) {
	role, ok := c.Locals(roleKey).(domain.Role)
	return role, ok
}
