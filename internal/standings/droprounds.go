package standings

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// RoundPoints is an entrant's total for one completed round.
type RoundPoints struct {
	RoundNumber int
	Points      decimal.Decimal
}

// DropRoundSelector picks the rounds an entrant does not count.
type DropRoundSelector struct {
	cfg DropRoundsConfig
}

func NewDropRoundSelector(cfg DropRoundsConfig) DropRoundSelector {
	return DropRoundSelector{cfg: cfg}
}

// SelectDropped returns the round numbers to exclude from one entrant's total.
//
// Nothing is dropped when the policy is off or when the entrant has no more
// completed rounds than the drop count, so at least one round always counts.
// Otherwise the Count lowest rounds go; equal scores drop the earliest round first.
func (s DropRoundSelector) SelectDropped(rounds []RoundPoints) map[int]bool {
	dropped := make(map[int]bool)
	if !s.cfg.Enabled || s.cfg.Count <= 0 || len(rounds) <= s.cfg.Count {
		return dropped
	}

	sorted := slices.Clone(rounds)
	slices.SortFunc(sorted, func(a, b RoundPoints) int {
		if c := a.Points.Cmp(b.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.RoundNumber, b.RoundNumber)
	})

	for _, r := range sorted[:s.cfg.Count] {
		dropped[r.RoundNumber] = true
	}
	return dropped
}
