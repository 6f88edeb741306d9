package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

// ResultInput is one row of a submitted result sheet.
type ResultInput struct {
	DriverID       uuid.UUID           `json:"driver_id"`
	TeamID         *uuid.UUID          `json:"team_id"` // Defaults to the driver's roster team
	Position       *int                `json:"position"`
	Status         models.ResultStatus `json:"status"`
	FastestLap     bool                `json:"fastest_lap"`
	Pole           bool                `json:"pole"`
	PenaltySeconds int                 `json:"penalty_seconds"`
}

// ValidateResults checks a result sheet before anything is written. Problems are
// reported per row, the same way scoring configuration errors are.
func ValidateResults(in []ResultInput) error {
	var errs standings.ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, standings.ValidationError{Field: field, Message: msg})
	}

	drivers := make(map[uuid.UUID]bool, len(in))
	positions := make(map[int]bool, len(in))
	var fastest, poles int

	for i, r := range in {
		row := fmt.Sprintf("results[%d]", i)
		if r.DriverID == uuid.Nil {
			add(row+".driver_id", "driver is required")
		} else if drivers[r.DriverID] {
			add(row+".driver_id", "driver appears more than once")
		}
		drivers[r.DriverID] = true

		switch r.Status {
		case "", models.ResultStatusFinished, models.ResultStatusDNF,
			models.ResultStatusDNS, models.ResultStatusDisqualified:
		default:
			add(row+".status", fmt.Sprintf("unknown status %q", r.Status))
		}

		if r.Position != nil {
			switch {
			case *r.Position < 1:
				add(row+".position", "position must be 1 or greater")
			case positions[*r.Position]:
				add(row+".position", fmt.Sprintf("position %d is already taken", *r.Position))
			}
			positions[*r.Position] = true
		}
		if r.PenaltySeconds < 0 {
			add(row+".penalty_seconds", "penalty must not be negative")
		}
		if r.FastestLap {
			fastest++
		}
		if r.Pole {
			poles++
		}
	}
	if fastest > 1 {
		add("results", "only one driver can set the fastest lap")
	}
	if poles > 1 {
		add("results", "only one driver can start from pole")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ReplaceRaceResults makes in the current result set of a race. Rows that are no
// longer current are stamped superseded rather than deleted. Submitting the set
// that is already current changes nothing and reports changed=false.
func (s *Store) ReplaceRaceResults(
	ctx context.Context,
	raceID uuid.UUID,
	in []ResultInput,
	enteredBy *uuid.UUID,
) (owner Owner, changed bool, err error) {
	if err := ValidateResults(in); err != nil {
		return Owner{}, false, err
	}

	owner, err = s.RaceOwner(ctx, raceID)
	if err != nil {
		return Owner{}, false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var race models.Race
		if err := tx.First(&race, "id = ?", raceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		teams, err := rosterTeams(tx, owner.SeasonID)
		if err != nil {
			return err
		}

		next := make([]models.RaceResult, len(in))
		for i, r := range in {
			status := r.Status
			if status == "" {
				status = models.ResultStatusFinished
			}
			teamID := r.TeamID
			if teamID == nil {
				teamID = teams[r.DriverID]
			}
			next[i] = models.RaceResult{
				RaceID:         raceID,
				DriverID:       r.DriverID,
				TeamID:         teamID,
				Position:       r.Position,
				Status:         status,
				FastestLap:     r.FastestLap,
				Pole:           r.Pole,
				PenaltySeconds: r.PenaltySeconds,
				EnteredBy:      enteredBy,
			}
		}

		var current []models.RaceResult
		if err := tx.Where("race_id = ? AND superseded_at IS NULL", raceID).Find(&current).Error; err != nil {
			return err
		}
		if sameResults(current, next) {
			return nil
		}

		now := time.Now().UTC()
		if len(current) > 0 {
			if err := tx.Model(&models.RaceResult{}).
				Where("race_id = ? AND superseded_at IS NULL", raceID).
				Update("superseded_at", now).Error; err != nil {
				return err
			}
		}
		if len(next) > 0 {
			if err := tx.Create(&next).Error; err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return Owner{}, false, err
	}
	return owner, changed, nil
}

// ResultHistory returns every row ever recorded for a race, current and
// superseded, oldest first.
func (s *Store) ResultHistory(ctx context.Context, raceID uuid.UUID) ([]models.RaceResult, error) {
	var rows []models.RaceResult
	err := s.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("created_at, driver_id").
		Find(&rows).Error
	return rows, err
}

func rosterTeams(tx *gorm.DB, seasonID uuid.UUID) (map[uuid.UUID]*uuid.UUID, error) {
	var roster []models.SeasonDriver
	if err := tx.Where("season_id = ? AND team_id IS NOT NULL", seasonID).Find(&roster).Error; err != nil {
		return nil, err
	}
	teams := make(map[uuid.UUID]*uuid.UUID, len(roster))
	for _, r := range roster {
		teams[r.DriverID] = r.TeamID
	}
	return teams, nil
}

// sameResults compares the scoring-relevant columns of two result sets.
func sameResults(current, next []models.RaceResult) bool {
	if len(current) != len(next) {
		return false
	}
	type key struct {
		team     uuid.UUID
		position int
		status   models.ResultStatus
		fastest  bool
		pole     bool
		penalty  int
	}
	keyOf := func(r models.RaceResult) key {
		k := key{status: r.Status, fastest: r.FastestLap, pole: r.Pole, penalty: r.PenaltySeconds}
		if r.TeamID != nil {
			k.team = *r.TeamID
		}
		if r.Position != nil {
			k.position = *r.Position
		}
		return k
	}

	byDriver := make(map[uuid.UUID]key, len(current))
	for _, r := range current {
		byDriver[r.DriverID] = keyOf(r)
	}
	for _, r := range next {
		k, ok := byDriver[r.DriverID]
		if !ok || k != keyOf(r) {
			return false
		}
	}
	return true
}
