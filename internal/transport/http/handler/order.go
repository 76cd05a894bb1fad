package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/middleware"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
	"github.com/brtkpo/RestaurantApp/pkg/utils"
)

type OrderHandler struct {
	service  service.OrderService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type createOrderRequest struct {
	SessionID    string `json:"session_id" validate:"required"`
	AddressID    int64  `json:"address_id" validate:"required,gt=0"`
	PaymentType  string `json:"payment_type" validate:"required,oneof=card cash online"`
	DeliveryType string `json:"delivery_type" validate:"required,oneof=pickup delivery"`
	OrderNotes   string `json:"order_notes"`
}

type updateStatusRequest struct {
	Status      string `json:"status" validate:"required"`
	Description string `json:"description"`
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	input := new(createOrderRequest)
	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	order, err := h.service.CreateOrder(ctx, identity, service.CreateOrderParams{
		SessionID:    input.SessionID,
		AddressID:    input.AddressID,
		PaymentType:  domain.PaymentType(input.PaymentType),
		DeliveryType: domain.DeliveryType(input.DeliveryType),
		OrderNotes:   input.OrderNotes,
	})
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
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

	order, err := h.service.Get(ctx, identity, orderID)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(order)
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
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

	input := new(updateStatusRequest)
	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	status, err := domain.ParseOrderStatus(input.Status)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	order, err := h.service.UpdateStatus(ctx, identity, orderID, status, input.Description)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(order)
}

func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	return h.listMine(c, false)
}

func (h *OrderHandler) ListMineArchived(c *fiber.Ctx) error {
	return h.listMine(c, true)
}

func (h *OrderHandler) listMine(c *fiber.Ctx, archived bool) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	orders, err := h.service.ListUserOrders(ctx, identity, archived)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders": orders,
	})
}

func (h *OrderHandler) ListRestaurant(c *fiber.Ctx) error {
	return h.listRestaurant(c, false)
}

func (h *OrderHandler) ListRestaurantArchived(c *fiber.Ctx) error {
	return h.listRestaurant(c, true)
}

func (h *OrderHandler) listRestaurant(c *fiber.Ctx, archived bool) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	identity, ok := middleware.Identity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	restaurantID, err := strconv.ParseInt(c.Params("restaurantID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	orders, err := h.service.ListRestaurantOrders(ctx, identity, restaurantID, archived)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders": orders,
	})
}
