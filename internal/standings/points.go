package standings

import (
	"github.com/shopspring/decimal"
)

// PointsSystem maps a single race result to points. It is immutable once built
// and safe to share between goroutines.
type PointsSystem struct {
	table      map[int]decimal.Decimal
	fastestLap BonusRule
	pole       BonusRule
	bonusOnDNF bool
}

// NewPointsSystem builds a lookup from a validated PointsConfig.
func NewPointsSystem(cfg PointsConfig) *PointsSystem {
	table := make(map[int]decimal.Decimal, len(cfg.Positions))
	for _, p := range cfg.Positions {
		table[p.Position] = p.Points
	}
	return &PointsSystem{
		table:      table,
		fastestLap: cfg.FastestLap,
		pole:       cfg.Pole,
		bonusOnDNF: cfg.BonusOnDNF,
	}
}

// Score returns the points for one race result.
func (ps *PointsSystem) Score(position *int, f Flags) decimal.Decimal {
	base, bonus := ps.Breakdown(position, f)
	return base.Add(bonus)
}

// Breakdown splits Score into position points and bonus points.
//
//   - no position, DNS: nothing at all
//   - DNF: no position points; bonuses only when BonusOnDNF is set, and then
//     the position gate is skipped
//   - position outside the table: zero position points, bonuses still possible
func (ps *PointsSystem) Breakdown(position *int, f Flags) (base, bonus decimal.Decimal) {
	if position == nil || f.DNS {
		return decimal.Zero, decimal.Zero
	}

	if f.DNF {
		if !ps.bonusOnDNF {
			return decimal.Zero, decimal.Zero
		}
		return decimal.Zero, ps.bonuses(*position, f, false)
	}

	base = ps.table[*position] // zero value when the position is not in the table
	return base, ps.bonuses(*position, f, true)
}

func (ps *PointsSystem) bonuses(position int, f Flags, gated bool) decimal.Decimal {
	total := decimal.Zero
	if f.FastestLap && ps.fastestLap.Enabled && (!gated || passesGate(ps.fastestLap, position)) {
		total = total.Add(ps.fastestLap.Points)
	}
	if f.Pole && ps.pole.Enabled && (!gated || passesGate(ps.pole, position)) {
		total = total.Add(ps.pole.Points)
	}
	return total
}

func passesGate(rule BonusRule, position int) bool {
	return rule.MaxPosition == 0 || position <= rule.MaxPosition
}
