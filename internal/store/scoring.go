package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

// Scoring returns the stored scoring configuration of a season. A season that
// never saved tiebreakers gets standings.DefaultTiebreakers.
func (s *Store) Scoring(ctx context.Context, seasonID uuid.UUID) (standings.Config, error) {
	var cfg standings.Config
	err := s.readTx(ctx, func(tx *gorm.DB) error {
		if err := seasonExists(tx, seasonID); err != nil {
			return err
		}
		var err error
		cfg, err = loadConfig(tx, seasonID)
		return err
	})
	if err != nil {
		return standings.Config{}, err
	}
	if len(cfg.Tiebreakers) == 0 {
		cfg.Tiebreakers = standings.DefaultTiebreakers()
	}
	return cfg, nil
}

// SaveScoring validates cfg and replaces the season's points table, bonus and
// drop-round settings and tiebreaker chain in one transaction. Validation
// failures come back as standings.ValidationErrors and nothing is written.
func (s *Store) SaveScoring(ctx context.Context, seasonID uuid.UUID, cfg standings.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seasonExists(tx, seasonID); err != nil {
			return err
		}

		if err := tx.Where("season_id = ?", seasonID).Delete(&models.SeasonPointsRule{}).Error; err != nil {
			return err
		}
		rules := make([]models.SeasonPointsRule, len(cfg.Points.Positions))
		for i, p := range cfg.Points.Positions {
			rules[i] = models.SeasonPointsRule{SeasonID: seasonID, Position: p.Position, Points: p.Points}
		}
		if err := tx.Create(&rules).Error; err != nil {
			return err
		}

		if err := tx.Where("season_id = ?", seasonID).Delete(&models.SeasonScoring{}).Error; err != nil {
			return err
		}
		scoring := models.SeasonScoring{
			SeasonID:              seasonID,
			FastestLapEnabled:     cfg.Points.FastestLap.Enabled,
			FastestLapPoints:      cfg.Points.FastestLap.Points,
			FastestLapMaxPosition: cfg.Points.FastestLap.MaxPosition,
			PoleEnabled:           cfg.Points.Pole.Enabled,
			PolePoints:            cfg.Points.Pole.Points,
			PoleMaxPosition:       cfg.Points.Pole.MaxPosition,
			BonusOnDNF:            cfg.Points.BonusOnDNF,
			DropRoundsEnabled:     cfg.DropRounds.Enabled,
			DropRoundsCount:       cfg.DropRounds.Count,
			UpdatedAt:             time.Now().UTC(),
		}
		if err := tx.Create(&scoring).Error; err != nil {
			return err
		}

		if err := tx.Where("season_id = ?", seasonID).Delete(&models.SeasonTiebreaker{}).Error; err != nil {
			return err
		}
		if len(cfg.Tiebreakers) == 0 {
			return nil
		}
		chain := make([]models.SeasonTiebreaker, len(cfg.Tiebreakers))
		for i, r := range cfg.Tiebreakers {
			chain[i] = models.SeasonTiebreaker{
				SeasonID: seasonID,
				Priority: i + 1,
				Kind:     string(r.Kind),
				Param:    r.Param,
			}
		}
		return tx.Create(&chain).Error
	})
}

func seasonExists(tx *gorm.DB, seasonID uuid.UUID) error {
	var season models.Season
	err := tx.Select("id").First(&season, "id = ?", seasonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// loadConfig maps the three scoring tables onto a standings.Config. Tiebreakers
// come back exactly as stored, so an empty chain stays empty here.
func loadConfig(tx *gorm.DB, seasonID uuid.UUID) (standings.Config, error) {
	var cfg standings.Config

	var rules []models.SeasonPointsRule
	if err := tx.Where("season_id = ?", seasonID).Order("position").Find(&rules).Error; err != nil {
		return cfg, err
	}
	for _, r := range rules {
		cfg.Points.Positions = append(cfg.Points.Positions, standings.PositionPoints{
			Position: r.Position,
			Points:   r.Points,
		})
	}

	var scoring models.SeasonScoring
	err := tx.First(&scoring, "season_id = ?", seasonID).Error
	switch {
	case err == nil:
		cfg.Points.FastestLap = standings.BonusRule{
			Enabled:     scoring.FastestLapEnabled,
			Points:      scoring.FastestLapPoints,
			MaxPosition: scoring.FastestLapMaxPosition,
		}
		cfg.Points.Pole = standings.BonusRule{
			Enabled:     scoring.PoleEnabled,
			Points:      scoring.PolePoints,
			MaxPosition: scoring.PoleMaxPosition,
		}
		cfg.Points.BonusOnDNF = scoring.BonusOnDNF
		cfg.DropRounds = standings.DropRoundsConfig{
			Enabled: scoring.DropRoundsEnabled,
			Count:   scoring.DropRoundsCount,
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return cfg, err
	}

	var chain []models.SeasonTiebreaker
	if err := tx.Where("season_id = ?", seasonID).Order("priority").Find(&chain).Error; err != nil {
		return cfg, err
	}
	for _, t := range chain {
		cfg.Tiebreakers = append(cfg.Tiebreakers, standings.TiebreakerRule{
			Kind:  standings.RuleKind(t.Kind),
			Param: t.Param,
		})
	}
	return cfg, nil
}
