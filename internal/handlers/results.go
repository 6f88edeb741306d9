package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/broadcast"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/cache"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// ReplaceResultsRequest is the JSON body of PUT /api/v1/races/:raceID/results.
type ReplaceResultsRequest struct {
	Results []store.ResultInput `json:"results"`
}

// ResultResponse is one row of a race's result history.
type ResultResponse struct {
	ID             string  `json:"id"`
	DriverID       string  `json:"driver_id"`
	TeamID         *string `json:"team_id"`
	Position       *int    `json:"position"`
	Status         string  `json:"status"`
	FastestLap     bool    `json:"fastest_lap"`
	Pole           bool    `json:"pole"`
	PenaltySeconds int     `json:"penalty_seconds"`
	CreatedAt      string  `json:"created_at"`
	SupersededAt   *string `json:"superseded_at"` // null for the current row
}

func toResultResponse(r models.RaceResult) ResultResponse {
	resp := ResultResponse{
		ID:             r.ID.String(),
		DriverID:       r.DriverID.String(),
		Position:       r.Position,
		Status:         string(r.Status),
		FastestLap:     r.FastestLap,
		Pole:           r.Pole,
		PenaltySeconds: r.PenaltySeconds,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.TeamID != nil {
		s := r.TeamID.String()
		resp.TeamID = &s
	}
	if r.SupersededAt != nil {
		s := r.SupersededAt.UTC().Format(time.RFC3339)
		resp.SupersededAt = &s
	}
	return resp
}

// ReplaceRaceResults returns a handler for PUT /api/v1/races/:raceID/results.
// The body is the full result sheet of the race. Earlier rows are kept as
// superseded history, and resubmitting the current sheet is a no-op.
func ReplaceRaceResults(st *store.Store, sc cache.Cache, hub *broadcast.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raceID, ok := paramID(c, "raceID")
		if !ok {
			return badRequest(c, "invalid race ID")
		}
		owner, err := st.RaceOwner(c.UserContext(), raceID)
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

		var req ReplaceResultsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		userID, _, _ := currentUser(c)
		_, changed, err := st.ReplaceRaceResults(c.UserContext(), raceID, req.Results, &userID)
		if err != nil {
			return fail(c, err)
		}
		if changed {
			refreshStandings(c.UserContext(), st, sc, hub, owner.SeasonID)
		}

		return c.JSON(fiber.Map{
			"race_id": raceID.String(),
			"changed": changed,
			"results": len(req.Results),
		})
	}
}

// GetResultHistory returns a handler for GET /api/v1/races/:raceID/results/history.
func GetResultHistory(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raceID, ok := paramID(c, "raceID")
		if !ok {
			return badRequest(c, "invalid race ID")
		}
		if _, err := st.RaceOwner(c.UserContext(), raceID); err != nil {
			return fail(c, err)
		}
		rows, err := st.ResultHistory(c.UserContext(), raceID)
		if err != nil {
			return fail(c, err)
		}

		response := make([]ResultResponse, 0, len(rows))
		for _, r := range rows {
			response = append(response, toResultResponse(r))
		}
		return c.JSON(response)
	}
}
