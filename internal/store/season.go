package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

// LoadSeason reads everything Compute needs for one season inside a single
// read transaction. Superseded results are left out.
func (s *Store) LoadSeason(ctx context.Context, seasonID uuid.UUID) (standings.Season, error) {
	var out standings.Season

	err := s.readTx(ctx, func(tx *gorm.DB) error {
		var season models.Season
		if err := tx.First(&season, "id = ?", seasonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		cfg, err := loadConfig(tx, seasonID)
		if err != nil {
			return err
		}

		var rounds []models.Round
		if err := tx.Where("season_id = ?", seasonID).Order("round_number").Find(&rounds).Error; err != nil {
			return err
		}
		roundIDs := make([]uuid.UUID, len(rounds))
		for i, r := range rounds {
			roundIDs[i] = r.ID
		}

		var races []models.Race
		if len(roundIDs) > 0 {
			if err := tx.Where("round_id IN ?", roundIDs).Order("race_order, id").Find(&races).Error; err != nil {
				return err
			}
		}
		raceIDs := make([]uuid.UUID, len(races))
		for i, r := range races {
			raceIDs[i] = r.ID
		}

		var results []models.RaceResult
		if len(raceIDs) > 0 {
			if err := tx.Where("race_id IN ? AND superseded_at IS NULL", raceIDs).
				Order("race_id, position").
				Find(&results).Error; err != nil {
				return err
			}
		}

		drivers, teams, err := loadRoster(tx, seasonID)
		if err != nil {
			return err
		}

		out = assembleSeason(season.ID, cfg, rounds, races, results)
		out.Drivers = drivers
		out.Teams = teams
		return nil
	})

	return out, err
}

func loadRoster(tx *gorm.DB, seasonID uuid.UUID) (drivers, teams []standings.Entrant, err error) {
	var rows []struct {
		DriverID uuid.UUID
		Name     string
	}
	err = tx.Table("season_drivers").
		Select("season_drivers.driver_id, drivers.name").
		Joins("JOIN drivers ON drivers.id = season_drivers.driver_id").
		Where("season_drivers.season_id = ?", seasonID).
		Order("drivers.name").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rows {
		drivers = append(drivers, standings.Entrant{ID: r.DriverID, Name: r.Name})
	}

	var ts []models.Team
	if err := tx.Where("season_id = ?", seasonID).Order("name").Find(&ts).Error; err != nil {
		return nil, nil, err
	}
	for _, t := range ts {
		teams = append(teams, standings.Entrant{ID: t.ID, Name: t.Name})
	}
	return drivers, teams, nil
}

// assembleSeason nests flat rows into the core's Season shape.
func assembleSeason(
	seasonID uuid.UUID,
	cfg standings.Config,
	rounds []models.Round,
	races []models.Race,
	results []models.RaceResult,
) standings.Season {
	byRace := make(map[uuid.UUID][]standings.RaceResult, len(races))
	for _, r := range results {
		byRace[r.RaceID] = append(byRace[r.RaceID], toCoreResult(r))
	}

	byRound := make(map[uuid.UUID][]standings.Race, len(rounds))
	for _, r := range races {
		byRound[r.RoundID] = append(byRound[r.RoundID], standings.Race{
			ID:               r.ID,
			Name:             r.Name,
			Order:            r.RaceOrder,
			PointsMultiplier: r.PointsMultiplier,
			Results:          byRace[r.ID],
		})
	}

	season := standings.Season{ID: seasonID, Config: cfg}
	for _, r := range rounds {
		season.Rounds = append(season.Rounds, standings.Round{
			ID:          r.ID,
			Number:      r.RoundNumber,
			Status:      standings.RoundStatus(r.Status),
			CompletedAt: r.CompletedAt,
			Races:       byRound[r.ID],
		})
	}
	return season
}

func toCoreResult(r models.RaceResult) standings.RaceResult {
	out := standings.RaceResult{
		DriverID:       r.DriverID,
		Position:       r.Position,
		FastestLap:     r.FastestLap,
		Pole:           r.Pole,
		Status:         standings.ResultStatus(r.Status),
		PenaltySeconds: r.PenaltySeconds,
	}
	if r.TeamID != nil {
		out.TeamID = *r.TeamID
	}
	return out
}
