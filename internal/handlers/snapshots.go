package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/snapshots"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// SnapshotResponse describes one stored snapshot version.
type SnapshotResponse struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Version    int     `json:"version"`
	AsOfRound  int     `json:"as_of_round"`
	ArchiveURL *string `json:"archive_url"` // null until the archive copy exists
	CreatedAt  string  `json:"created_at"`
}

// SnapshotDetailResponse is one snapshot including its frozen table.
type SnapshotDetailResponse struct {
	SnapshotResponse
	Standings *standings.Table `json:"standings"`
}

func toSnapshotResponse(s models.StandingsSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:         s.ID.String(),
		Kind:       string(s.Kind),
		Version:    s.Version,
		AsOfRound:  s.AsOfRound,
		ArchiveURL: s.ArchiveURL,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// parseKind accepts an empty kind when any is allowed.
func parseKind(s string, allowEmpty bool) (models.StandingsKind, bool) {
	switch kind := models.StandingsKind(s); kind {
	case models.StandingsKindDriver, models.StandingsKindTeam:
		return kind, true
	case "":
		return "", allowEmpty
	default:
		return "", false
	}
}

// ListSnapshots returns a handler for GET /api/v1/seasons/:seasonID/snapshots.
// Optional query param: ?kind=driver or ?kind=team.
func ListSnapshots(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, ok := paramID(c, "seasonID")
		if !ok {
			return badRequest(c, "invalid season ID")
		}
		kind, ok := parseKind(c.Query("kind"), true)
		if !ok {
			return badRequest(c, "kind must be 'driver' or 'team'")
		}
		if _, err := st.SeasonOwner(c.UserContext(), seasonID); err != nil {
			return fail(c, err)
		}

		snaps, err := st.ListSnapshots(c.UserContext(), seasonID, kind)
		if err != nil {
			return fail(c, err)
		}
		response := make([]SnapshotResponse, 0, len(snaps))
		for _, s := range snaps {
			response = append(response, toSnapshotResponse(s))
		}
		return c.JSON(response)
	}
}

// GetSnapshot returns a handler for GET /api/v1/seasons/:seasonID/snapshots/:kind/:version.
func GetSnapshot(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, ok := paramID(c, "seasonID")
		if !ok {
			return badRequest(c, "invalid season ID")
		}
		kind, ok := parseKind(c.Params("kind"), false)
		if !ok {
			return badRequest(c, "kind must be 'driver' or 'team'")
		}
		version, err := c.ParamsInt("version")
		if err != nil || version < 1 {
			return badRequest(c, "version must be a positive integer")
		}

		snap, table, err := st.Snapshot(c.UserContext(), seasonID, kind, version)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(SnapshotDetailResponse{
			SnapshotResponse: toSnapshotResponse(*snap),
			Standings:        table,
		})
	}
}

// CreateSnapshot returns a handler for POST /api/v1/seasons/:seasonID/snapshots.
// It freezes the season's current tables on demand, the same way the scheduled
// job does. Responds 201 when a new version was stored and 200 when the latest
// version already matched.
func CreateSnapshot(st *store.Store, job *snapshots.Job) fiber.Handler {
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

		season, err := st.Season(c.UserContext(), seasonID)
		if err != nil {
			return fail(c, err)
		}
		created, err := job.SnapshotSeason(c.UserContext(), season)
		if err != nil {
			return fail(c, err)
		}

		response := make([]SnapshotResponse, 0, len(created))
		for _, s := range created {
			response = append(response, toSnapshotResponse(s))
		}
		status := fiber.StatusOK
		if len(created) > 0 {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{"created": response})
	}
}
