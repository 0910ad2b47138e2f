package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// UsersHandler manages account endpoints.
type UsersHandler struct {
	registry *service.RoleRegistry
}

// NewUsersHandler constructs handler.
func NewUsersHandler(registry *service.RoleRegistry) *UsersHandler {
	return &UsersHandler{registry: registry}
}

// Sync POST /users/sync.
func (h *UsersHandler) Sync(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	role, err := h.registry.Sync(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.SyncResponse{Role: role})
}
