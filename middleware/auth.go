package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/pkg/auth"
)

const IdentityKey = "identity"

func NewAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Invalid header format"})
		}

		identity, err := auth.ResolveIdentity(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Invalid token"})
		}

		c.Locals(IdentityKey, identity)
		return c.Next()
	}
}

// Identity pulls the resolved caller out of the request context. The auth
// middleware guarantees it is present on protected routes.
func Identity(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(IdentityKey).(domain.Identity)
	return identity, ok
}
