// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints and relationships. The authoritative Postgres
// schema lives in migrations/; the tags are kept in step so AutoMigrate can build an
// equivalent schema for the SQLite-backed tests.
//
// The data model represents a multi-tenant racing league platform where:
//   - Users belong to Leagues (organizers manage, members watch)
//   - Leagues run Competitions, and each Competition has Seasons
//   - Seasons contain Rounds, Rounds contain Races, Races record RaceResults
//   - Each Season owns its scoring configuration: a points table, bonus and
//     drop-round settings, and an ordered tiebreaker chain
//
// Race results are never edited in place. A correction inserts a new row and stamps
// SupersededAt on the old one, so the history of a result is always recoverable.
package models

import (
	"time"

	// uuid provides universally unique identifiers for primary keys.
	"github.com/google/uuid"
	// decimal keeps points exact; half-point races would drift with float64.
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Enums ---
// Named string types plus constants, stored as Postgres enum types (see migrations/).

// UserRole represents a user's global permission level across the entire platform.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"   // Full access to every league
	UserRoleManager UserRole = "manager" // Can create leagues
	UserRoleUser    UserRole = "user"    // Regular member
)

// LeagueMemberRole controls what a user can do within one league.
// This is separate from UserRole, which is platform-wide.
type LeagueMemberRole string

const (
	LeagueMemberRoleOrganizer LeagueMemberRole = "organizer" // Can enter results and change scoring
	LeagueMemberRoleMember    LeagueMemberRole = "member"    // Read-only participant
)

// SeasonStatus tracks the lifecycle of a season.
type SeasonStatus string

const (
	SeasonStatusSetup     SeasonStatus = "setup"
	SeasonStatusActive    SeasonStatus = "active"
	SeasonStatusCompleted SeasonStatus = "completed"
	SeasonStatusArchived  SeasonStatus = "archived"
)

// RoundStatus tracks the lifecycle of a round. Only completed rounds score.
type RoundStatus string

const (
	RoundStatusScheduled  RoundStatus = "scheduled"
	RoundStatusInProgress RoundStatus = "in_progress"
	RoundStatusCompleted  RoundStatus = "completed"
)

// ResultStatus is the classification recorded against a race result.
type ResultStatus string

const (
	ResultStatusFinished     ResultStatus = "finished"
	ResultStatusDNF          ResultStatus = "dnf"
	ResultStatusDNS          ResultStatus = "dns"
	ResultStatusDisqualified ResultStatus = "dsq"
)

// StandingsKind selects the championship a snapshot belongs to.
type StandingsKind string

const (
	StandingsKindDriver StandingsKind = "driver"
	StandingsKindTeam   StandingsKind = "team"
)

// --- Models ---

// User represents a registered person in the system.
// Users are created automatically the first time an authenticated token hits the API.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalID  *string   `gorm:"uniqueIndex:idx_users_external_id"` // Token subject; nullable for seeded rows
	DisplayName string    `gorm:"not null"`
	Email       string    `gorm:"uniqueIndex;not null"`
	Role        UserRole  `gorm:"type:user_role;not null;default:'user'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// League is the tenant: every competition, driver and membership hangs off one.
type League struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null"`
	Description  *string
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	Creator      User      `gorm:"foreignKey:CreatedBy"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Members      []LeagueMember `gorm:"foreignKey:LeagueID"`
	Competitions []Competition  `gorm:"foreignKey:LeagueID"`
}

// LeagueMember links a User to a League. The unique index keeps one row per user per league.
type LeagueMember struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	LeagueID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_league_user"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_league_user"`
	User      User             `gorm:"foreignKey:UserID"`
	Role      LeagueMemberRole `gorm:"type:league_member_role;not null;default:'member'"`
	CreatedAt time.Time
}

// Competition is a named series inside a league ("GT3 Cup", "Sunday Sprints").
type Competition struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	LeagueID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Seasons   []Season `gorm:"foreignKey:CompetitionID"`
}

// Season is one championship run of a competition and the unit standings are computed for.
type Season struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	CompetitionID uuid.UUID    `gorm:"type:uuid;not null;index"`
	Competition   Competition  `gorm:"foreignKey:CompetitionID"`
	Name          string       `gorm:"not null"`
	Status        SeasonStatus `gorm:"type:season_status;not null;default:'setup'"`
	// TeamChampionship enables the team table alongside the driver table.
	TeamChampionship bool `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Rounds           []Round `gorm:"foreignKey:SeasonID"`
}

// Team is scoped to a season because line-ups change between seasons.
type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SeasonID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}

// Driver is a league-level identity that can enter many seasons.
type Driver struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LeagueID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID    *uuid.UUID `gorm:"type:uuid"` // Set when the driver has an account
	Name      string     `gorm:"not null"`
	Number    *int       // Car number
	CreatedAt time.Time
}

// SeasonDriver is the season roster: a driver entered into a season, optionally for a team.
type SeasonDriver struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SeasonID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_season_driver"`
	DriverID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_season_driver"`
	Driver    Driver     `gorm:"foreignKey:DriverID"`
	TeamID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

// Round is a scheduled event inside a season.
type Round struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	SeasonID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_season_round"`
	RoundNumber int         `gorm:"not null;uniqueIndex:idx_season_round"`
	Name        string      `gorm:"not null;default:''"`
	ScheduledAt *time.Time
	Status      RoundStatus `gorm:"type:round_status;not null;default:'scheduled'"`
	CompletedAt *time.Time  // Stamped when Status becomes completed; drives as-of queries
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Races       []Race `gorm:"foreignKey:RoundID"`
}

// Race is a scored session inside a round (sprint, feature, qualifying race).
type Race struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoundID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	RaceOrder int       `gorm:"not null;default:1"` // Running order inside the round
	// PointsMultiplier scales position points; NULL means full points.
	PointsMultiplier decimal.NullDecimal `gorm:"type:numeric(6,3)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Results          []RaceResult `gorm:"foreignKey:RaceID"`
}

// RaceResult is one driver's outcome in one race. Rows are immutable: a correction
// stamps SupersededAt on the current row and inserts its replacement.
type RaceResult struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey"`
	RaceID         uuid.UUID    `gorm:"type:uuid;not null;index"`
	DriverID       uuid.UUID    `gorm:"type:uuid;not null"`
	TeamID         *uuid.UUID   `gorm:"type:uuid"` // Team credited with this result, if any
	Position       *int         // NULL when not classified
	Status         ResultStatus `gorm:"type:result_status;not null;default:'finished'"`
	FastestLap     bool         `gorm:"not null;default:false"`
	Pole           bool         `gorm:"not null;default:false"`
	PenaltySeconds int          `gorm:"not null;default:0"`
	EnteredBy      *uuid.UUID   `gorm:"type:uuid"`
	CreatedAt      time.Time
	SupersededAt   *time.Time `gorm:"index"`
}

// SeasonPointsRule is one row of a season's points table.
type SeasonPointsRule struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SeasonID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_season_position"`
	Position int             `gorm:"not null;uniqueIndex:idx_season_position"`
	Points   decimal.Decimal `gorm:"type:numeric(8,2);not null"`
}

// SeasonScoring holds the bonus and drop-round settings, one row per season.
type SeasonScoring struct {
	SeasonID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FastestLapEnabled     bool            `gorm:"not null;default:false"`
	FastestLapPoints      decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	FastestLapMaxPosition int             `gorm:"not null;default:0"`
	PoleEnabled           bool            `gorm:"not null;default:false"`
	PolePoints            decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	PoleMaxPosition       int             `gorm:"not null;default:0"`
	BonusOnDNF            bool            `gorm:"column:bonus_on_dnf;not null;default:false"`
	DropRoundsEnabled     bool            `gorm:"not null;default:false"`
	DropRoundsCount       int             `gorm:"not null;default:0"`
	UpdatedAt             time.Time
}

// SeasonTiebreaker is one step of a season's tiebreaker chain; Priority 1 is applied first.
type SeasonTiebreaker struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	SeasonID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_season_priority"`
	Priority int       `gorm:"not null;uniqueIndex:idx_season_priority"`
	Kind     string    `gorm:"not null"`
	Param    int       `gorm:"not null;default:0"`
}

// StandingsSnapshot is a frozen, versioned copy of a computed table.
// Version increases per (season, kind); Payload is the table as JSON.
type StandingsSnapshot struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	SeasonID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_version"`
	Kind       StandingsKind `gorm:"type:standings_kind;not null;uniqueIndex:idx_snapshot_version"`
	Version    int           `gorm:"not null;uniqueIndex:idx_snapshot_version"`
	AsOfRound  int           `gorm:"not null"`
	Payload    []byte        `gorm:"type:jsonb;not null"`
	ArchiveURL *string
	CreatedAt  time.Time
}

// All lists every model in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&User{}, &League{}, &LeagueMember{}, &Competition{}, &Season{}, &Team{}, &Driver{},
		&SeasonDriver{}, &Round{}, &Race{}, &RaceResult{}, &SeasonPointsRule{},
		&SeasonScoring{}, &SeasonTiebreaker{}, &StandingsSnapshot{},
	}
}

// --- ID hooks ---
// Primary keys are generated in Go so inserts behave the same on Postgres and SQLite.

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *User) BeforeCreate(*gorm.DB) error             { newID(&m.ID); return nil }
func (m *League) BeforeCreate(*gorm.DB) error           { newID(&m.ID); return nil }
func (m *LeagueMember) BeforeCreate(*gorm.DB) error     { newID(&m.ID); return nil }
func (m *Competition) BeforeCreate(*gorm.DB) error      { newID(&m.ID); return nil }
func (m *Season) BeforeCreate(*gorm.DB) error           { newID(&m.ID); return nil }
func (m *Team) BeforeCreate(*gorm.DB) error             { newID(&m.ID); return nil }
func (m *Driver) BeforeCreate(*gorm.DB) error           { newID(&m.ID); return nil }
func (m *SeasonDriver) BeforeCreate(*gorm.DB) error     { newID(&m.ID); return nil }
func (m *Round) BeforeCreate(*gorm.DB) error            { newID(&m.ID); return nil }
func (m *Race) BeforeCreate(*gorm.DB) error             { newID(&m.ID); return nil }
func (m *RaceResult) BeforeCreate(*gorm.DB) error       { newID(&m.ID); return nil }
func (m *SeasonPointsRule) BeforeCreate(*gorm.DB) error { newID(&m.ID); return nil }
func (m *SeasonTiebreaker) BeforeCreate(*gorm.DB) error { newID(&m.ID); return nil }
func (m *StandingsSnapshot) BeforeCreate(*gorm.DB) error {
	newID(&m.ID)
	return nil
}
