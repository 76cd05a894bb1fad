package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// PaymentHandler receives the provider's browser redirect after a completed
// checkout. It is deliberately unauthenticated: the session id is the
// credential, and the confirmation is idempotent.
type PaymentHandler struct {
	service    service.PaymentService
	logger     *zap.Logger
	successURL string
}

func NewPaymentHandler(service service.PaymentService, logger *zap.Logger, successURL string) *PaymentHandler {
	return &PaymentHandler{
		service:    service,
		logger:     logger,
		successURL: successURL,
	}
}

func (h *PaymentHandler) Success(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "order_id is invalid",
		})
	}

	if err := h.service.ConfirmPayment(ctx, orderID, sessionID); err != nil {
		mylogger.Warn(
			ctx,
			h.logger,
			"Payment confirmation failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return writeError(c, ctx, h.logger, err)
	}

	return c.Redirect(h.successURL, fiber.StatusSeeOther)
}
