package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/broadcast"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/cache"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// GetScoring returns a handler for GET /api/v1/seasons/:seasonID/scoring.
func GetScoring(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, ok := paramID(c, "seasonID")
		if !ok {
			return badRequest(c, "invalid season ID")
		}
		cfg, err := st.Scoring(c.UserContext(), seasonID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(cfg)
	}
}

// UpdateScoring returns a handler for PUT /api/v1/seasons/:seasonID/scoring.
// The body is a complete configuration; it replaces what the season had. An
// invalid configuration is answered with 400 and every offending field.
func UpdateScoring(st *store.Store, sc cache.Cache, hub *broadcast.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, ok := paramID(c, "seasonID")
		if !ok {
			return badRequest(c, "invalid season ID")
		}
		owner, err := st.SeasonOwner(c.UserContext(), seasonID)
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

		var cfg standings.Config
		if err := c.BodyParser(&cfg); err != nil {
			return badRequest(c, "invalid request body")
		}
		if err := st.SaveScoring(c.UserContext(), seasonID, cfg); err != nil {
			return fail(c, err)
		}

		refreshStandings(c.UserContext(), st, sc, hub, seasonID)

		saved, err := st.Scoring(c.UserContext(), seasonID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(saved)
	}
}
