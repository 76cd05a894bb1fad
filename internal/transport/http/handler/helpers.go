package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

func contextWithTimeout(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}
