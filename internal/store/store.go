// Package store is the persistence layer between the database and the standings core.
//
// It loads a season as one consistent snapshot, hands it to standings.Compute and
// writes the things organizers change: race results, round status, scoring
// configuration and frozen standings snapshots.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

// ErrNotFound is returned when a season, round or race does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the GORM handle used for every query.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Owner identifies the season and league a round or race belongs to, for
// authorization and cache invalidation.
type Owner struct {
	LeagueID uuid.UUID
	SeasonID uuid.UUID
}

// readTx runs fn inside one transaction so every query sees the same data.
// On Postgres the transaction is REPEATABLE READ and read-only, which gives a
// single snapshot across all the statements fn issues.
func (s *Store) readTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return s.db.WithContext(ctx).Transaction(fn, opts...)
}

// ComputeStandings loads the season and runs the standings pipeline over it.
func (s *Store) ComputeStandings(ctx context.Context, seasonID uuid.UUID, opts standings.Options) (*standings.Table, error) {
	season, err := s.LoadSeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	return standings.Compute(season, opts)
}

// SeasonOwner returns the league that runs a season.
func (s *Store) SeasonOwner(ctx context.Context, seasonID uuid.UUID) (Owner, error) {
	return s.owner(ctx, "seasons", "seasons.id = ?", seasonID)
}

// RoundOwner returns the season and league of a round.
func (s *Store) RoundOwner(ctx context.Context, roundID uuid.UUID) (Owner, error) {
	return s.owner(ctx, "rounds", "rounds.id = ?", roundID)
}

// RaceOwner returns the season and league of a race.
func (s *Store) RaceOwner(ctx context.Context, raceID uuid.UUID) (Owner, error) {
	return s.owner(ctx, "races", "races.id = ?", raceID)
}

func (s *Store) owner(ctx context.Context, from, where string, id uuid.UUID) (Owner, error) {
	q := s.db.WithContext(ctx).Table(from).
		Select("seasons.id AS season_id, competitions.league_id AS league_id")
	switch from {
	case "races":
		q = q.Joins("JOIN rounds ON rounds.id = races.round_id").
			Joins("JOIN seasons ON seasons.id = rounds.season_id")
	case "rounds":
		q = q.Joins("JOIN seasons ON seasons.id = rounds.season_id")
	}
	q = q.Joins("JOIN competitions ON competitions.id = seasons.competition_id").Where(where, id)

	var o Owner
	if err := q.Scan(&o).Error; err != nil {
		return Owner{}, err
	}
	if o.SeasonID == uuid.Nil {
		return Owner{}, ErrNotFound
	}
	return o, nil
}

// IsLeagueOrganizer reports whether the user holds the organizer role in a league.
func (s *Store) IsLeagueOrganizer(ctx context.Context, leagueID, userID uuid.UUID) (bool, error) {
	var member models.LeagueMember
	err := s.db.WithContext(ctx).
		Where("league_id = ? AND user_id = ?", leagueID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return member.Role == models.LeagueMemberRoleOrganizer, nil
}

// ActiveSeasons lists every season currently in progress.
func (s *Store) ActiveSeasons(ctx context.Context) ([]models.Season, error) {
	var seasons []models.Season
	err := s.db.WithContext(ctx).
		Where("status = ?", models.SeasonStatusActive).
		Order("id").
		Find(&seasons).Error
	return seasons, err
}

// Season loads one season row.
func (s *Store) Season(ctx context.Context, seasonID uuid.UUID) (models.Season, error) {
	var season models.Season
	err := s.db.WithContext(ctx).First(&season, "id = ?", seasonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Season{}, ErrNotFound
	}
	return season, err
}
