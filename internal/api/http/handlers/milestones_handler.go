package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portal-service/internal/api/dto"
	"github.com/spec-kit/portal-service/internal/auth"
	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/service"
	"github.com/spec-kit/portal-service/pkg/util/errorutil"
)

// MilestonesHandler manages milestone endpoints.
type MilestonesHandler struct {
	service *service.MilestoneService
}

// NewMilestonesHandler constructs handler.
func NewMilestonesHandler(milestoneService *service.MilestoneService) *MilestonesHandler {
	return &MilestonesHandler{service: milestoneService}
}

// CreateMilestone POST /milestones.
func (h *MilestonesHandler) CreateMilestone(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.CreateMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.ProjectID == "" {
		return errorutil.NewValidationError("project_id required", nil)
	}

	milestone, err := h.service.CreateMilestone(c.Context(), principal.Actor(), service.MilestoneCreateInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": milestoneResponse(milestone, nil)})
}

// ListMilestones GET /milestones.
func (h *MilestonesHandler) ListMilestones(c *fiber.Ctx) error {
	projectID := c.Query("project_id")
	if projectID == "" {
		return errorutil.NewValidationError("project_id required", nil)
	}
	milestones, err := h.service.ListMilestones(c.Context(), projectID)
	if err != nil {
		return err
	}
	items := make([]dto.MilestoneResponse, 0, len(milestones))
	for i := range milestones {
		items = append(items, milestoneResponse(&milestones[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetMilestone GET /milestones/:id.
func (h *MilestonesHandler) GetMilestone(c *fiber.Ctx) error {
	milestone, mv, paymentSatisfied, err := h.service.GetMilestone(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := milestoneResponse(milestone, mv)
	resp.PaymentSatisfied = &paymentSatisfied
	return c.JSON(fiber.Map{"data": resp})
}

// Validate POST /milestones/:id/validate.
func (h *MilestonesHandler) Validate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.ValidateMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	mv, err := h.service.Validate(c.Context(), c.Params("id"), principal.Actor(), req.Comment)
	if err != nil {
		return err
	}
	milestone, _, paymentSatisfied, err := h.service.GetMilestone(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := milestoneResponse(milestone, mv)
	resp.PaymentSatisfied = &paymentSatisfied
	return c.JSON(fiber.Map{"data": resp})
}

func milestoneResponse(milestone *domain.Milestone, mv *domain.MilestoneValidation) dto.MilestoneResponse {
	resp := dto.MilestoneResponse{
		ID:              milestone.ID,
		ProjectID:       milestone.ProjectID,
		Title:           milestone.Title,
		AmountCents:     milestone.AmountCents,
		RequiresPayment: milestone.RequiresPayment,
		PaymentID:       milestone.PaymentID,
		CreatedAt:       milestone.CreatedAt,
	}
	if mv != nil {
		resp.Admin = dto.NewValidationSlotResponse(mv.Admin)
		resp.Client = dto.NewValidationSlotResponse(mv.Client)
		resp.FullyValidated = mv.FullyValidated()
	}
	return resp
}
