package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
)

// writeError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 and gets logged; taxonomy errors are the
// caller's fault and only carry their message out.
func writeError(c *fiber.Ctx, ctx context.Context, logger *zap.Logger, err error) error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Message,
			"rule":  validationErr.Rule,
		})
	}

	var authErr *domain.AuthenticationError
	if errors.As(err, &authErr) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": authErr.Error(),
		})
	}

	var forbiddenErr *domain.ForbiddenError
	if errors.As(err, &forbiddenErr) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": forbiddenErr.Error(),
		})
	}

	var notFoundErr *domain.NotFoundError
	if errors.As(err, &notFoundErr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundErr.Error(),
		})
	}

	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": conflictErr.Error(),
		})
	}

	mylogger.Error(ctx, logger, "Unhandled service error", zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
