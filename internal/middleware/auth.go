// Package middleware provides the JWT authentication middleware.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"kobapay/internal/models"
	"kobapay/internal/pipeline"
	"kobapay/internal/repositories"
	"kobapay/internal/services/auth"
)

// Authenticate resolves the bearer token to a user and stores it in locals.
// Resolution failures leave the actor unset; routes that require auth reject
// inside the pipeline. A token whose version no longer matches the user row
// has been logged out and is treated as absent.
func Authenticate(authService *auth.Service, users *repositories.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.Next()
		}

		claims, err := authService.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.TokenType != models.TokenTypeAccess {
			return c.Next()
		}

		user, err := users.FindByID(claims.UserID)
		if err != nil {
			return c.Next()
		}
		if user.TokenVersion != claims.TokenVersion {
			return c.Next()
		}

		c.Locals(pipeline.ActorKey, user)
		return c.Next()
	}
}
