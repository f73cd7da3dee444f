package middleware

import (
	"strings"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenParser validates a bearer token and returns the user id it was issued for.
type TokenParser func(token string) (uint, error)

// BearerAuth enforces a valid "Authorization: Bearer <token>" header on JSON
// API routes and records the token's user on the request.
func BearerAuth(parse TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		userID, err := parse(parts[1])
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		SetUser(c, userID)
		return c.Next()
	}
}
