package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storecore/internal/auth"
)

// ClaimsContextKey is the fiber locals key under which validated token
// claims are stored for downstream handlers.
const ClaimsContextKey = "claims"

// AuthMiddleware validates the Bearer token and stores its claims in the
// request locals.
func AuthMiddleware(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}
		claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}
		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// RequireRole allows the request through when the token carries at least one
// of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(ClaimsContextKey).(*auth.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authentication required",
			})
		}
		for _, role := range claims.Roles {
			if _, ok := allowed[role]; ok {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Insufficient role",
		})
	}
}
