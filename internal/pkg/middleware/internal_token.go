package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// InternalTokenMiddleware guards service-to-service endpoints with a shared
// static bearer token.
func InternalTokenMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		presented := extractBearerToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid internal token"})
		}
		return c.Next()
	}
}
