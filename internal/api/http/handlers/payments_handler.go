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

// PaymentsHandler manages checkout and the provider callback.
type PaymentsHandler struct {
	service *service.PaymentService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(paymentService *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{service: paymentService}
}

// Checkout POST /payments/checkout.
func (h *PaymentsHandler) Checkout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	payment, err := h.service.InitiateCheckout(c.Context(), principal.Actor(), service.CheckoutInput{
		TicketID:    req.TicketID,
		MilestoneID: req.MilestoneID,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": paymentResponse(payment)})
}

// Callback POST /payments/callback. Unauthenticated provider webhook; in
// production a signature check sits in front of this route.
func (h *PaymentsHandler) Callback(c *fiber.Ctx) error {
	var req dto.PaymentCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.PaymentID == "" {
		return errorutil.NewValidationError("payment_id required", nil)
	}

	if err := h.service.HandleProviderCallback(c.Context(), req.PaymentID, req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"acknowledged": true}})
}

// GetPayment GET /payments/:id.
func (h *PaymentsHandler) GetPayment(c *fiber.Ctx) error {
	payment, err := h.service.GetPayment(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": paymentResponse(payment)})
}

func paymentResponse(payment *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:          payment.ID,
		Status:      payment.Status,
		AmountCents: payment.AmountCents,
		TicketID:    payment.TicketID,
		MilestoneID: payment.MilestoneID,
		CreatedAt:   payment.CreatedAt,
		SettledAt:   payment.SettledAt,
	}
}
