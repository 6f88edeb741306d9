package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
)

// ErrInvalidStatus is returned for a round status outside the known set.
var ErrInvalidStatus = errors.New("store: invalid round status")

// SetRoundStatus moves a round through its lifecycle. Completing a round stamps
// CompletedAt once; leaving the completed state clears it so the round stops
// counting towards as-of views.
func (s *Store) SetRoundStatus(ctx context.Context, roundID uuid.UUID, status models.RoundStatus) (Owner, error) {
	switch status {
	case models.RoundStatusScheduled, models.RoundStatusInProgress, models.RoundStatusCompleted:
	default:
		return Owner{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	owner, err := s.RoundOwner(ctx, roundID)
	if err != nil {
		return Owner{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round models.Round
		if err := tx.First(&round, "id = ?", roundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]any{"status": status}
		switch {
		case status == models.RoundStatusCompleted && round.CompletedAt == nil:
			updates["completed_at"] = time.Now().UTC()
		case status != models.RoundStatusCompleted:
			updates["completed_at"] = nil
		}
		return tx.Model(&round).Updates(updates).Error
	})
	if err != nil {
		return Owner{}, err
	}
	return owner, nil
}
