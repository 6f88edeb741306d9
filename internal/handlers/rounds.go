package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/broadcast"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/cache"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// UpdateRoundStatusRequest is the JSON body of PUT /api/v1/rounds/:roundID/status.
type UpdateRoundStatusRequest struct {
	Status string `json:"status"` // "scheduled", "in_progress" or "completed"
}

// UpdateRoundStatus returns a handler for PUT /api/v1/rounds/:roundID/status.
// Only completed rounds count towards standings, so every transition refreshes them.
func UpdateRoundStatus(st *store.Store, sc cache.Cache, hub *broadcast.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roundID, ok := paramID(c, "roundID")
		if !ok {
			return badRequest(c, "invalid round ID")
		}
		owner, err := st.RoundOwner(c.UserContext(), roundID)
		if err != nil {
			return fail(c, err)
		}
		allowed, err := canManage(c, st, owner.LeagueID)
		if err != nil {
			return fail(c, err)
		}
		if !allowed {
			return forbidden(c)
		}

		var req UpdateRoundStatusRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if _, err := st.SetRoundStatus(c.UserContext(), roundID, models.RoundStatus(req.Status)); err != nil {
			return fail(c, err)
		}

		refreshStandings(c.UserContext(), st, sc, hub, owner.SeasonID)
		return c.JSON(fiber.Map{
			"round_id": roundID.String(),
			"status":   req.Status,
		})
	}
}
