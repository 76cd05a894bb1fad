package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/middleware"
)

type ChatHandler struct {
	service service.ChatService
	logger  *zap.Logger
}

func NewChatHandler(service service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	messages, err := h.service.History(ctx, identity, c.Params("room"))
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"messages": messages,
	})
}
