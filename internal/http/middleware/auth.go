package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"dkn/internal/auth"
)

// ClaimsLocalKey is the fiber locals key holding the verified *auth.Claims.
const ClaimsLocalKey = "auth_claims"

// RequireAuth rejects requests without a valid "Bearer <jwt>" Authorization
// header. Verified claims are stored under ClaimsLocalKey.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return unauthorized(c, "No token, authorization denied")
		}

		claims, err := auth.ValidateToken(secret, strings.TrimSpace(token))
		if err != nil {
			return unauthorized(c, "Token is not valid")
		}

		c.Locals(ClaimsLocalKey, claims)
		return c.Next()
	}
}

// UserID returns the authenticated caller's ID, or 0 outside RequireAuth.
func UserID(c *fiber.Ctx) int64 {
	if claims, ok := c.Locals(ClaimsLocalKey).(*auth.Claims); ok {
		return claims.UserID
	}
	return 0
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success":    false,
		"message":    message,
		"code":       "UNAUTHORIZED",
		"request_id": RequestIDFromCtx(c),
	})
}
