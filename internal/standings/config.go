package standings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidConfig is returned by Compute when it is handed a configuration that
	// should have been rejected when it was saved. It signals a bug in the caller.
	ErrInvalidConfig = errors.New("standings: invalid configuration")

	// ErrInvariantViolation is returned when scoring produced an impossible value
	// (for example a negative total). It is never a user error.
	ErrInvariantViolation = errors.New("standings: invariant violation")
)

// PositionPoints is one row of a points table.
type PositionPoints struct {
	Position int             `json:"position"`
	Points   decimal.Decimal `json:"points"`
}

// BonusRule describes a fastest-lap or pole bonus.
type BonusRule struct {
	Enabled bool            `json:"enabled"`
	Points  decimal.Decimal `json:"points"`

	// MaxPosition gates the bonus on a finishing position: "fastest lap only counts
	// inside the top 10" is MaxPosition 10. Zero disables the gate.
	MaxPosition int `json:"max_position"`
}

// PointsConfig is the serializable form of a points system.
type PointsConfig struct {
	Positions  []PositionPoints `json:"positions"`
	FastestLap BonusRule        `json:"fastest_lap"`
	Pole       BonusRule        `json:"pole"`

	// BonusOnDNF lets a retired driver who still has a recorded position keep
	// bonus points. Off by default: bonuses need a classified finish.
	BonusOnDNF bool `json:"bonus_on_dnf"`
}

// DropRoundsConfig controls how many of each entrant's worst rounds are discarded.
type DropRoundsConfig struct {
	Enabled bool `json:"enabled"`
	Count   int  `json:"count"`
}

// Config bundles everything a season needs to be scored.
type Config struct {
	Points      PointsConfig     `json:"points"`
	DropRounds  DropRoundsConfig `json:"drop_rounds"`
	Tiebreakers []TiebreakerRule `json:"tiebreakers"`
}

// DefaultTiebreakers is applied when a season has not picked its own chain:
// countback on finishing positions, then the most recent race decides.
func DefaultTiebreakers() []TiebreakerRule {
	return []TiebreakerRule{
		{Kind: RuleCountback},
		{Kind: RuleMostRecentResult},
	}
}

// ValidationError names the offending field of a rejected configuration.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in one pass so an admin form can
// highlight all of them at once.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration the way the admin save path must before
// persisting it. It returns nil or a ValidationErrors value.
func (c Config) Validate() error {
	var errs ValidationErrors

	if len(c.Points.Positions) == 0 {
		errs.add("points.positions", "points table must not be empty")
	}
	seen := make(map[int]bool, len(c.Points.Positions))
	for i, p := range c.Points.Positions {
		field := fmt.Sprintf("points.positions[%d]", i)
		if p.Position < 1 {
			errs.add(field+".position", "position must be 1 or greater, got %d", p.Position)
		}
		if seen[p.Position] {
			errs.add(field+".position", "duplicate position %d", p.Position)
		}
		seen[p.Position] = true
		if p.Points.IsNegative() {
			errs.add(field+".points", "points must not be negative")
		}
	}

	validateBonus(&errs, "points.fastest_lap", c.Points.FastestLap)
	validateBonus(&errs, "points.pole", c.Points.Pole)

	if c.DropRounds.Count < 0 {
		errs.add("drop_rounds.count", "drop count must not be negative, got %d", c.DropRounds.Count)
	}

	type ruleKey struct {
		kind  RuleKind
		param int
	}
	seenRules := make(map[ruleKey]bool, len(c.Tiebreakers))
	for i, r := range c.Tiebreakers {
		field := fmt.Sprintf("tiebreakers[%d]", i)
		if _, ok := registry[r.Kind]; !ok {
			errs.add(field+".kind", "unknown tiebreaker %q", r.Kind)
			continue
		}
		if err := r.validateParam(); err != nil {
			errs.add(field+".param", "%s", err.Error())
		}
		k := ruleKey{r.Kind, r.Param}
		if seenRules[k] {
			errs.add(field, "duplicate tiebreaker %s", r)
		}
		seenRules[k] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateBonus(errs *ValidationErrors, field string, b BonusRule) {
	if b.Points.IsNegative() {
		errs.add(field+".points", "bonus points must not be negative")
	}
	if b.MaxPosition < 0 {
		errs.add(field+".max_position", "position gate must not be negative, got %d", b.MaxPosition)
	}
}
