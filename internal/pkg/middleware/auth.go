package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/identity"
	"github.com/vysahq/vysa-server/internal/pkg/usercontext"
)

// AuthMiddleware authenticates requests carrying an identity-provider session
// token. First contact provisions the local user mirror; user-lifecycle
// webhooks keep it current afterwards.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing session token"})
		}

		claims, err := identity.VerifySessionToken(token, jwtSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid session token"})
		}

		repo := repository.GetGlobalFactory().GetUserRepository()
		user, err := repo.GetByIdentityID(claims.Subject)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = &models.User{
				IdentityID: claims.Subject,
				Email:      claims.Email,
				Name:       claims.Name,
			}
			if err = repo.Upsert(user); err == nil {
				user, err = repo.GetByIdentityID(claims.Subject)
			}
		}
		if err != nil {
			log.Errorf("[Auth] User lookup for %s failed: %v", claims.Subject, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "User lookup failed"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			IdentityID: user.IdentityID,
			Email:      user.Email,
			Name:       user.Name,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
