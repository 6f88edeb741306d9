package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/broadcast"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/cache"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/middleware"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/snapshots"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// Deps bundles what the routes need.
type Deps struct {
	DB        *gorm.DB
	Store     *store.Store
	Cache     cache.Cache
	Hub       *broadcast.Hub
	Snapshots *snapshots.Job
}

// Register mounts every authenticated route on api, which the caller has
// already guarded with middleware.Auth.
func Register(api fiber.Router, d Deps) {
	// League routes
	api.Get("/leagues", GetLeagues(d.DB))
	api.Post("/leagues", middleware.RequireRole("admin", "manager"), CreateLeague(d.DB))

	// Standings
	api.Get("/seasons/:seasonID/standings", GetStandings(d.Store, d.Cache))
	api.Get("/seasons/:seasonID/standings/stream", StreamStandings(d.Store, d.Cache, d.Hub))

	// Scoring configuration
	api.Get("/seasons/:seasonID/scoring", GetScoring(d.Store))
	api.Put("/seasons/:seasonID/scoring", UpdateScoring(d.Store, d.Cache, d.Hub))

	// Results and rounds
	api.Put("/races/:raceID/results", ReplaceRaceResults(d.Store, d.Cache, d.Hub))
	api.Get("/races/:raceID/results/history", GetResultHistory(d.Store))
	api.Put("/rounds/:roundID/status", UpdateRoundStatus(d.Store, d.Cache, d.Hub))

	// Snapshots
	api.Get("/seasons/:seasonID/snapshots", ListSnapshots(d.Store))
	api.Post("/seasons/:seasonID/snapshots", CreateSnapshot(d.Store, d.Snapshots))
	api.Get("/seasons/:seasonID/snapshots/:kind/:version", GetSnapshot(d.Store))
}
