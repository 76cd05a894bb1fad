package handler

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/service"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
	"github.com/brtkpo/RestaurantApp/pkg/utils"
)

const requestTimeout = 5 * time.Second

type CartHandler struct {
	service  service.CartService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCartHandler(service service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gte=1"`
}

type updateQuantityRequest struct {
	Quantity int32 `json:"quantity" validate:"required,gte=1"`
}

func (h *CartHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	cart, err := h.service.CreateCart(ctx)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(cart)
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	cart, err := h.service.GetOrCreateCart(ctx, c.Params("sessionID"))
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(cart)
}

func (h *CartHandler) ListItems(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	items, err := h.service.ListItems(ctx, c.Params("sessionID"))
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"items": items,
	})
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	input := new(addItemRequest)
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

	item, err := h.service.AddItem(ctx, c.Params("sessionID"), input.ProductID, input.Quantity)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CartHandler) UpdateItemQuantity(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	itemID, err := strconv.ParseInt(c.Params("itemID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(updateQuantityRequest)
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

	item, err := h.service.UpdateItemQuantity(ctx, c.Params("sessionID"), itemID, input.Quantity)
	if err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(item)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	itemID, err := strconv.ParseInt(c.Params("itemID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.service.RemoveItem(ctx, c.Params("sessionID"), itemID); err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

func (h *CartHandler) ClearOtherRestaurant(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	restaurantID, err := strconv.ParseInt(c.Params("restaurantID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.service.ClearOtherRestaurant(ctx, c.Params("sessionID"), restaurantID); err != nil {
		return writeError(c, ctx, h.logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
