package standings

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleKind identifies one tiebreaker criterion. The values are what leagues store
// in their season configuration, so they must never be renamed.
type RuleKind string

const (
	RuleMostWins         RuleKind = "most_wins"
	RuleMostPodiums      RuleKind = "most_podiums"
	RuleMostPosition     RuleKind = "most_position"
	RuleCountback        RuleKind = "countback"
	RuleHeadToHead       RuleKind = "head_to_head"
	RuleBestFinish       RuleKind = "best_finish"
	RuleMostRecentResult RuleKind = "most_recent_result"
	RuleMostFastestLaps  RuleKind = "most_fastest_laps"
	RuleMostPoles        RuleKind = "most_poles"
	RuleFewestDNFs       RuleKind = "fewest_dnfs"
)

// TiebreakerRule is one configured step of a chain.
type TiebreakerRule struct {
	Kind  RuleKind `json:"kind"`
	Param int      `json:"param,omitempty"`
}

func (r TiebreakerRule) String() string {
	if r.Param != 0 {
		return fmt.Sprintf("%s(%d)", r.Kind, r.Param)
	}
	return string(r.Kind)
}

func (r TiebreakerRule) validateParam() error {
	switch r.Kind {
	case RuleMostPosition:
		if r.Param < 1 {
			return fmt.Errorf("%s needs a position of 1 or greater", r.Kind)
		}
	case RuleCountback:
		if r.Param < 0 {
			return fmt.Errorf("%s depth must not be negative", r.Kind)
		}
	default:
		if r.Param != 0 {
			return fmt.Errorf("%s takes no parameter", r.Kind)
		}
	}
	return nil
}

// Comparator orders two aggregates on a single metric: negative when a ranks
// ahead of b, positive when b ranks ahead, zero when the metric is equal.
type Comparator func(a, b *Aggregate) int

type comparatorFactory func(param int) Comparator

// registry maps every stored rule kind to its comparator.
//
//   - most_wins: more 1st places ranks ahead
//   - most_podiums: more top-3 finishes ranks ahead
//   - most_position(N): more finishes in exactly position N ranks ahead
//   - countback(D): compare counts of 1st places, then 2nd places... down to D
//     (D = 0 walks to the deepest position either entrant reached)
//   - head_to_head: more races finished ahead of the other, counting only races
//     both started; a classified finish beats a retirement
//   - best_finish: the better single best classified position ranks ahead
//   - most_recent_result: walk races from the latest backwards; the first race
//     where their results differ decides (not starting is worst)
//   - most_fastest_laps, most_poles: higher count ranks ahead
//   - fewest_dnfs: lower retirement count ranks ahead
var registry = map[RuleKind]comparatorFactory{
	RuleMostWins: func(int) Comparator {
		return func(a, b *Aggregate) int { return cmp.Compare(b.finishes[1], a.finishes[1]) }
	},
	RuleMostPodiums: func(int) Comparator {
		return func(a, b *Aggregate) int { return cmp.Compare(b.Podiums(), a.Podiums()) }
	},
	RuleMostPosition: func(n int) Comparator {
		return func(a, b *Aggregate) int { return cmp.Compare(b.finishes[n], a.finishes[n]) }
	},
	RuleCountback:        countback,
	RuleHeadToHead:       func(int) Comparator { return headToHead },
	RuleBestFinish:       func(int) Comparator { return bestFinish },
	RuleMostRecentResult: func(int) Comparator { return mostRecentResult },
	RuleMostFastestLaps: func(int) Comparator {
		return func(a, b *Aggregate) int { return cmp.Compare(b.fastestLaps, a.fastestLaps) }
	},
	RuleMostPoles: func(int) Comparator {
		return func(a, b *Aggregate) int { return cmp.Compare(b.poles, a.poles) }
	},
	RuleFewestDNFs: func(int) Comparator {
		return func(a, b *Aggregate) int { return cmp.Compare(a.dnfs, b.dnfs) }
	},
}

// Chain is an ordered composition of comparators.
type Chain []Comparator

// NewChain composes the configured rules in priority order.
func NewChain(rules []TiebreakerRule) (Chain, error) {
	chain := make(Chain, 0, len(rules))
	for _, r := range rules {
		factory, ok := registry[r.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: unknown tiebreaker %q", ErrInvalidConfig, r.Kind)
		}
		if err := r.validateParam(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		chain = append(chain, factory(r.Param))
	}
	return chain, nil
}

// Compare returns the first non-zero comparator result, or 0 when the entrants
// are genuinely tied on every configured rule.
func (c Chain) Compare(a, b *Aggregate) int {
	for _, cmpFn := range c {
		if r := cmpFn(a, b); r != 0 {
			return sign(r)
		}
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// raceKey orders races chronologically across a season.
type raceKey struct {
	round int
	order int
	id    uuid.UUID
}

func compareRaceKeys(a, b raceKey) int {
	if c := cmp.Compare(a.round, b.round); c != 0 {
		return c
	}
	if c := cmp.Compare(a.order, b.order); c != 0 {
		return c
	}
	return bytes.Compare(a.id[:], b.id[:])
}

// notClassified sorts after every real position.
const notClassified = math.MaxInt

// Aggregate is everything the tiebreakers know about one entrant.
type Aggregate struct {
	EntrantID uuid.UUID
	Total     decimal.Decimal

	finishes    map[int]int // classified finishing position -> count
	deepest     int         // worst classified position reached
	fastestLaps int
	poles       int
	dnfs        int
	starts      int

	// races holds one value per race started: the classified position, or
	// notClassified. Team entrants keep their best car.
	races map[raceKey]int
}

func newAggregate(id uuid.UUID) *Aggregate {
	return &Aggregate{
		EntrantID: id,
		Total:     decimal.Zero,
		finishes:  make(map[int]int),
		races:     make(map[raceKey]int),
	}
}

// record folds one race result into the aggregate.
func (a *Aggregate) record(key raceKey, r RaceResult) {
	f := r.flags()
	if f.DNS {
		return
	}
	a.starts++
	if f.FastestLap {
		a.fastestLaps++
	}
	if f.Pole {
		a.poles++
	}
	if f.DNF {
		a.dnfs++
	}

	value := notClassified
	if r.classified() {
		value = *r.Position
		a.finishes[value]++
		a.deepest = max(a.deepest, value)
	}
	if prev, ok := a.races[key]; !ok || value < prev {
		a.races[key] = value
	}
}

func (a *Aggregate) Wins() int { return a.finishes[1] }

func (a *Aggregate) Podiums() int { return a.finishes[1] + a.finishes[2] + a.finishes[3] }

// BestFinish returns the best classified position, or 0 when there is none.
func (a *Aggregate) BestFinish() int {
	best := 0
	for pos := range a.finishes {
		if best == 0 || pos < best {
			best = pos
		}
	}
	return best
}

func countback(depth int) Comparator {
	return func(a, b *Aggregate) int {
		d := depth
		if d == 0 {
			d = max(a.deepest, b.deepest)
		}
		for pos := 1; pos <= d; pos++ {
			if c := cmp.Compare(b.finishes[pos], a.finishes[pos]); c != 0 {
				return c
			}
		}
		return 0
	}
}

func headToHead(a, b *Aggregate) int {
	var aAhead, bAhead int
	for key, va := range a.races {
		vb, ok := b.races[key]
		if !ok {
			continue
		}
		switch {
		case va < vb:
			aAhead++
		case vb < va:
			bAhead++
		}
	}
	return cmp.Compare(bAhead, aAhead)
}

func bestFinish(a, b *Aggregate) int {
	return cmp.Compare(bestOrWorst(a), bestOrWorst(b))
}

func bestOrWorst(a *Aggregate) int {
	if best := a.BestFinish(); best > 0 {
		return best
	}
	return notClassified
}

func mostRecentResult(a, b *Aggregate) int {
	keys := make([]raceKey, 0, len(a.races)+len(b.races))
	for k := range a.races {
		keys = append(keys, k)
	}
	for k := range b.races {
		if _, ok := a.races[k]; !ok {
			keys = append(keys, k)
		}
	}
	// Latest race first.
	slices.SortFunc(keys, func(x, y raceKey) int { return compareRaceKeys(y, x) })

	for _, k := range keys {
		va, ok := a.races[k]
		if !ok {
			va = notClassified
		}
		vb, ok := b.races[k]
		if !ok {
			vb = notClassified
		}
		if va != vb {
			return cmp.Compare(va, vb)
		}
	}
	return 0
}
