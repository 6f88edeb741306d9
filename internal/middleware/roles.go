package middleware

// roles.go: role-based access control. Users hold one global role (admin,
// manager or user); league-level permissions are checked in the handlers.

import "github.com/gofiber/fiber/v2"

// RequireRole allows only users whose global role is one of roles, answering
// 403 Forbidden otherwise. It must run after Auth, which sets "userRole".
//
//	api.Post("/leagues", middleware.RequireRole("admin", "manager"), handlers.CreateLeague(db))
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Auth stored the role earlier in this request
		userRole, ok := c.Locals("userRole").(string)
		if !ok || userRole == "" {
			// No role means Auth did not run on this route. Deny with 403, not
			// 401: the caller may well be authenticated.
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		// Let the request through on the first allowed role that matches
		for _, role := range roles {
			if userRole == role {
				return c.Next()
			}
		}
		// Authenticated but not authorized for this action
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}
