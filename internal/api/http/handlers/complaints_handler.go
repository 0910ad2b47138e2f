package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintsHandler serves complaint endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// Create POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	identity, _, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.service.Create(c.UserContext(), identity, service.CreateComplaintInput{
		Text:     req.Text,
		OrderID:  req.OrderID,
		Category: req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(complaintResponse(complaint))
}

// List GET /complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	identity, role, err := caller(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}
	complaints, err := h.service.List(c.UserContext(), identity, role, service.Page{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintResponse(&complaints[i]))
	}
	return c.JSON(dto.ComplaintListResponse{Complaints: items, Role: role})
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	identity, role, err := caller(c)
	if err != nil {
		return err
	}
	complaint, err := h.service.GetByID(c.UserContext(), identity, role, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(complaintResponse(complaint))
}

// UpdateStatus PATCH /complaints/:id.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, role, err := caller(c)
	if err != nil {
		return err
	}
	// Role comes before the body so callers without the capability always see 403.
	if !role.Can(domain.CapTransitionComplaints) {
		return apperrors.NewForbidden("not authorized to update complaints")
	}
	var req dto.UpdateComplaintStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.service.Transition(c.UserContext(), identity, role, c.Params("id"), service.TransitionInput{
		Status:          req.Status,
		ResolutionNotes: req.ResolutionNotes,
	})
	if err != nil {
		return err
	}
	return c.JSON(complaintResponse(complaint))
}

// History GET /complaints/:id/history.
func (h *ComplaintsHandler) History(c *fiber.Ctx) error {
	identity, role, err := caller(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), identity, role, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.ComplaintHistoryResponse{
			ID:              entry.ID,
			ChangedBy:       entry.ChangedBy,
			OldStatus:       entry.OldStatus,
			NewStatus:       entry.NewStatus,
			ResolutionNotes: entry.ResolutionNotes,
			CreatedAt:       entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"history": items})
}

// queryInt reads an optional integer query parameter; absent means zero.
func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	return n, nil
}

func caller(c *fiber.Ctx) (domain.Identity, domain.Role, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, "", apperrors.NewUnauthorized("authentication required")
	}
	role, ok := auth.RoleFromContext(c)
	if !ok {
		return domain.Identity{}, "", apperrors.NewUnauthorized("authentication required")
	}
	return identity, role, nil
}

func complaintResponse(c *domain.Complaint) dto.ComplaintResponse {
	return dto.ComplaintResponse{
		ID:              c.ID,
		UserID:          c.OwnerID,
		Email:           c.OwnerEmail,
		Text:            c.Text,
		OrderID:         c.OrderID,
		TrackingCode:    c.TrackingCode,
		Category:        c.Category,
		Priority:        c.Priority,
		Department:      c.Department,
		Summary:         c.Summary,
		Status:          c.Status,
		ResolutionNotes: c.ResolutionNotes,
		ResolvedBy:      c.ResolvedBy,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
