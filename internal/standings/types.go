// Package standings turns recorded race results into a ranked championship table.
//
// Everything in this package is pure: callers hand in an immutable Season snapshot
// (rounds, races, results, roster and the season's scoring configuration) and get a
// freshly computed Table back. Nothing is cached or persisted here. Loading the
// snapshot consistently is the store's job, caching the output is the cache's job.
//
// The pipeline is:
//
//	results → PointsSystem (per race) → per-round totals → DropRoundSelector
//	        → cumulative totals → sort by points, then Chain → ranks → Table
package standings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntrantKind selects whose championship is being computed.
type EntrantKind string

const (
	EntrantDriver EntrantKind = "driver" // One row per driver
	EntrantTeam   EntrantKind = "team"   // One row per team; every driver result credited to the team counts
)

// RoundStatus mirrors the lifecycle of a round. Only completed rounds contribute points.
type RoundStatus string

const (
	RoundScheduled  RoundStatus = "scheduled"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

// ResultStatus is the classification recorded against a single race result.
type ResultStatus string

const (
	ResultFinished     ResultStatus = "finished"
	ResultDNF          ResultStatus = "dnf" // Did not finish
	ResultDNS          ResultStatus = "dns" // Did not start
	ResultDisqualified ResultStatus = "dsq" // Excluded from the results; scored like a DNS
)

// RaceResult is one driver's outcome in one race.
// Position is nil when the driver was not classified.
type RaceResult struct {
	DriverID       uuid.UUID
	TeamID         uuid.UUID // uuid.Nil when the driver raced without a team
	Position       *int
	FastestLap     bool
	Pole           bool
	DNF            bool
	DNS            bool
	Status         ResultStatus
	PenaltySeconds int // Already reflected in Position; kept for display
}

// Flags are the scoring-relevant booleans of a result.
type Flags struct {
	FastestLap bool
	Pole       bool
	DNF        bool
	DNS        bool
}

// flags folds the status column into the boolean flags so both ways of recording
// a retirement (status or flag) score the same.
func (r RaceResult) flags() Flags {
	return Flags{
		FastestLap: r.FastestLap,
		Pole:       r.Pole,
		DNF:        r.DNF || r.Status == ResultDNF,
		DNS:        r.DNS || r.Status == ResultDNS || r.Status == ResultDisqualified,
	}
}

// classified reports whether the result counts as a finish at Position.
func (r RaceResult) classified() bool {
	f := r.flags()
	return r.Position != nil && !f.DNF && !f.DNS
}

// Race is a single scored session inside a round (qualifier, sprint, feature...).
type Race struct {
	ID    uuid.UUID
	Name  string
	Order int // Running order inside the round

	// PointsMultiplier scales position points (not bonuses). Null means 1,
	// 0.5 is the classic "half points" for a shortened race.
	PointsMultiplier decimal.NullDecimal

	Results []RaceResult
}

// Round is a scheduled event inside a season.
type Round struct {
	ID          uuid.UUID
	Number      int
	Status      RoundStatus
	CompletedAt *time.Time
	Races       []Race
}

// Entrant is a roster row: a driver or a team that belongs in the table even
// before it has scored.
type Entrant struct {
	ID   uuid.UUID
	Name string
}

// Season is the complete, already-consistent input for one computation.
type Season struct {
	ID      uuid.UUID
	Rounds  []Round
	Drivers []Entrant
	Teams   []Entrant
	Config  Config
}

// Options narrow a computation.
type Options struct {
	Kind EntrantKind // Defaults to EntrantDriver

	// AsOf keeps only rounds completed at or before this instant.
	// Rounds without a CompletedAt timestamp are excluded when AsOf is set.
	AsOf *time.Time

	// ThroughRound keeps only rounds numbered <= ThroughRound. Zero means no limit.
	ThroughRound int
}

// RoundScore is one cell of the per-round breakdown.
type RoundScore struct {
	RoundNumber int             `json:"round_number"`
	Points      decimal.Decimal `json:"points"`
	Dropped     bool            `json:"dropped"`
}

// Entry is one computed row of the standings table.
type Entry struct {
	EntrantID   uuid.UUID       `json:"entrant_id"`
	Name        string          `json:"name"`
	Position    int             `json:"position"`
	Points      decimal.Decimal `json:"points"`
	GapToLeader decimal.Decimal `json:"gap_to_leader"`
	GapToNext   decimal.Decimal `json:"gap_to_next"`
	Rounds      []RoundScore    `json:"rounds"`
	Wins        int             `json:"wins"`
	Podiums     int             `json:"podiums"`
	FastestLaps int             `json:"fastest_laps"`
	Poles       int             `json:"poles"`
	DNFs        int             `json:"dnfs"`
	Starts      int             `json:"starts"`
	BestFinish  int             `json:"best_finish"` // 0 when never classified
}

// Table is the output of Compute.
type Table struct {
	SeasonID        uuid.UUID   `json:"season_id"`
	Kind            EntrantKind `json:"kind"`
	CompletedRounds int         `json:"completed_rounds"`
	AsOfRound       int         `json:"as_of_round"` // Highest counted round number, 0 when none
	Entries         []Entry     `json:"entries"`
}
