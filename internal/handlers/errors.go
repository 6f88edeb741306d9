package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// fail maps an error from the store or the standings pipeline onto a response.
func fail(c *fiber.Ctx, err error) error {
	var invalid standings.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": invalid,
		})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, store.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, standings.ErrInvalidConfig), errors.Is(err, standings.ErrInvariantViolation):
		// Saved data should never reach these; it is a bug, not a bad request.
		slog.Error("standings computation failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "standings could not be computed",
		})
	default:
		slog.Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized"})
}

// currentUser reads what the Auth middleware stored for this request.
func currentUser(c *fiber.Ctx) (uuid.UUID, string, error) {
	userIDStr, _ := c.Locals("userID").(string)
	userRole, _ := c.Locals("userRole").(string)
	userID, err := uuid.Parse(userIDStr)
	return userID, userRole, err
}

// paramID parses a UUID route parameter.
func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// canManage reports whether the current user may change a league's data.
//   - Global "admin" role: any league.
//   - Everyone else: only leagues where they hold the organizer membership.
func canManage(c *fiber.Ctx, st *store.Store, leagueID uuid.UUID) (bool, error) {
	userID, role, err := currentUser(c)
	if err != nil {
		return false, nil
	}
	if role == string(models.UserRoleAdmin) {
		return true, nil
	}
	return st.IsLeagueOrganizer(c.UserContext(), leagueID, userID)
}
