// Package middleware contains HTTP middleware for the Racing League API.
// Middleware runs on every request routed through it, ahead of the handlers, so it
// is where authentication and role checks live.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	// jwt parses and verifies the bearer token from the Authorization header.
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/config"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
)

// Claims defines the data we expect inside a token payload. Subject is the
// identity provider's user ID; the custom claims populate the users table.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`  // "admin", "manager" or "user"
	Email string `json:"email"` // Primary email address
	Name  string `json:"name"`  // Display name
}

// Auth returns a Fiber middleware handler that:
//  1. Verifies the HS256 JWT from the "Authorization: Bearer <token>" header
//  2. Finds the matching user in our database (or creates one on first visit)
//  3. Syncs the user's role from the token into the database
//  4. Stores the user's internal UUID and role in c.Locals for the handlers
func Auth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *fiber.Ctx) error {
		// --- Step 1: Extract the token from the Authorization header ---
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}
		// Strip the "Bearer " prefix to get the raw JWT string
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		// --- Step 2: Verify the JWT ---
		// The parser checks the HS256 signature and the exp/nbf claims. Any other
		// algorithm, including "none", is rejected before the key is consulted.
		claims := &Claims{}
		_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		// Subject is the identity provider's user ID and keys our users table
		subject := claims.Subject
		if subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}

		// --- Step 3: Find or create the user and sync their role ---
		user, err := syncUser(db.WithContext(c.UserContext()), subject, claims)
		if err != nil {
			slog.Error("user sync failed", "subject", subject, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "database error",
			})
		}

		// --- Step 4: Store user info in the request context ---
		// Handlers read "userID" (our internal UUID) and "userRole" from c.Locals.
		c.Locals("userID", user.ID.String())
		c.Locals("userRole", string(user.Role))

		// Pass control to the next middleware or route handler
		return c.Next()
	}
}

// syncUser is the lazy user sync: the first authenticated request creates the
// user row, later ones pick up role changes made at the identity provider.
func syncUser(db *gorm.DB, subject string, claims *Claims) (models.User, error) {
	role := roleFromClaim(claims.Role)

	var user models.User
	err := db.Where("external_id = ?", subject).First(&user).Error
	switch {
	case err == nil:
		// Known user. An empty role claim leaves the stored role unchanged.
		if claims.Role != "" && user.Role != role {
			if err := db.Model(&user).Update("role", role).Error; err != nil {
				return models.User{}, err
			}
			user.Role = role
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		// Anything other than "not found" is a database problem
		return models.User{}, err
	}

	// First visit: create the row. Placeholders are deterministic per subject so
	// the unique email index holds.
	email := claims.Email
	if email == "" {
		email = fmt.Sprintf("%s@users.invalid", subject)
	}
	name := claims.Name
	if name == "" {
		name = "Driver"
	}

	user = models.User{
		ExternalID:  &subject,
		DisplayName: name,
		Email:       email,
		Role:        role,
	}
	if err := db.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

// roleFromClaim converts the raw role claim into a UserRole, defaulting to the
// least privileged role when it is missing or unknown.
func roleFromClaim(s string) models.UserRole {
	switch s {
	case "admin":
		return models.UserRoleAdmin
	case "manager":
		return models.UserRoleManager
	default:
		// Unknown or empty role: regular user
		return models.UserRoleUser
	}
}
