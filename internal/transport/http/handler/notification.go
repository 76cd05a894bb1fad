package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/middleware"
)

type NotificationHandler struct {
	service service.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *NotificationHandler) Unread(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	notifications, err := h.service.Unread(ctx, identity)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notifications": notifications,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	notificationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.service.MarkRead(ctx, identity, notificationID); err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

func (h *NotificationHandler) MarkReadByOrder(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	orderID, err := strconv.ParseInt(c.Params("orderID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	count, err := h.service.MarkReadByOrder(ctx, identity, orderID)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"marked": count,
	})
}
