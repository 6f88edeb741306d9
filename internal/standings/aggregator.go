package standings

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// row is the working state for one entrant while the table is being built.
type row struct {
	agg    *Aggregate
	name   string
	rounds []RoundScore
	rank   int
}

// Compute runs the full standings pipeline over one season snapshot.
//
// The configuration is expected to have passed Config.Validate when it was saved;
// anything that fails validation here is reported as ErrInvalidConfig rather than
// silently corrected. The returned table is fully ordered and identical for
// identical inputs.
func Compute(season Season, opts Options) (*Table, error) {
	if err := season.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	kind := opts.Kind
	if kind == "" {
		kind = EntrantDriver
	}
	if kind != EntrantDriver && kind != EntrantTeam {
		return nil, fmt.Errorf("standings: unknown entrant kind %q", kind)
	}

	rules := season.Config.Tiebreakers
	if len(rules) == 0 {
		rules = DefaultTiebreakers()
	}
	chain, err := NewChain(rules)
	if err != nil {
		return nil, err
	}
	points := NewPointsSystem(season.Config.Points)
	dropper := NewDropRoundSelector(season.Config.DropRounds)

	rounds := countedRounds(season.Rounds, opts)

	rows := make(map[uuid.UUID]*row)
	ensure := func(id uuid.UUID) *row {
		r, ok := rows[id]
		if !ok {
			r = &row{agg: newAggregate(id)}
			rows[id] = r
		}
		return r
	}

	roster := season.Drivers
	if kind == EntrantTeam {
		roster = season.Teams
	}
	for _, e := range roster {
		r := ensure(e.ID)
		r.name = e.Name
	}

	// Per entrant, per round number: summed race points.
	perRound := make(map[uuid.UUID]map[int]decimal.Decimal)

	for _, round := range rounds {
		races := slices.Clone(round.Races)
		slices.SortFunc(races, func(a, b Race) int {
			if c := cmp.Compare(a.Order, b.Order); c != 0 {
				return c
			}
			return bytes.Compare(a.ID[:], b.ID[:])
		})

		for _, race := range races {
			multiplier := decimal.NewFromInt(1)
			if race.PointsMultiplier.Valid {
				multiplier = race.PointsMultiplier.Decimal
			}
			if multiplier.IsNegative() {
				return nil, fmt.Errorf("%w: race %s has negative points multiplier %s",
					ErrInvariantViolation, race.ID, multiplier)
			}
			key := raceKey{round: round.Number, order: race.Order, id: race.ID}

			for _, res := range race.Results {
				id := res.DriverID
				if kind == EntrantTeam {
					id = res.TeamID
				}
				if id == uuid.Nil {
					continue
				}

				r := ensure(id)
				base, bonus := points.Breakdown(res.Position, res.flags())
				pts := base.Mul(multiplier).Add(bonus)

				if perRound[id] == nil {
					perRound[id] = make(map[int]decimal.Decimal)
				}
				perRound[id][round.Number] = perRound[id][round.Number].Add(pts)
				r.agg.record(key, res)
			}
		}
	}

	ordered := make([]*row, 0, len(rows))
	for id, r := range rows {
		list := make([]RoundPoints, 0, len(rounds))
		for _, round := range rounds {
			list = append(list, RoundPoints{RoundNumber: round.Number, Points: perRound[id][round.Number]})
		}
		dropped := dropper.SelectDropped(list)

		total := decimal.Zero
		r.rounds = make([]RoundScore, 0, len(list))
		for _, rp := range list {
			if rp.Points.IsNegative() {
				return nil, fmt.Errorf("%w: entrant %s scored %s in round %d",
					ErrInvariantViolation, id, rp.Points, rp.RoundNumber)
			}
			if !dropped[rp.RoundNumber] {
				total = total.Add(rp.Points)
			}
			r.rounds = append(r.rounds, RoundScore{
				RoundNumber: rp.RoundNumber,
				Points:      rp.Points,
				Dropped:     dropped[rp.RoundNumber],
			})
		}
		r.agg.Total = total
		ordered = append(ordered, r)
	}

	// Start from ID order so a non-transitive rule such as head_to_head still
	// yields the same table on every call.
	slices.SortFunc(ordered, func(x, y *row) int {
		return bytes.Compare(x.agg.EntrantID[:], y.agg.EntrantID[:])
	})
	slices.SortStableFunc(ordered, func(x, y *row) int {
		if c := y.agg.Total.Cmp(x.agg.Total); c != 0 {
			return c
		}
		if c := chain.Compare(x.agg, y.agg); c != 0 {
			return c
		}
		return bytes.Compare(x.agg.EntrantID[:], y.agg.EntrantID[:])
	})

	table := &Table{
		SeasonID:        season.ID,
		Kind:            kind,
		CompletedRounds: len(rounds),
		Entries:         make([]Entry, 0, len(ordered)),
	}
	if len(rounds) > 0 {
		table.AsOfRound = rounds[len(rounds)-1].Number
	}

	var leader decimal.Decimal
	group := 0 // index of the first row sharing the current rank
	for i, r := range ordered {
		// 1,1,3: tied entrants share a rank and the next distinct entrant takes
		// its index-based rank. head_to_head is not transitive, so a row joins
		// the group only when it ties with every member, not just the row above.
		r.rank = i + 1
		if i > 0 && tiesWithAll(chain, ordered[group:i], r) {
			r.rank = ordered[group].rank
		} else {
			group = i
		}

		gapToNext := decimal.Zero
		if i == 0 {
			leader = r.agg.Total
		} else {
			gapToNext = ordered[i-1].agg.Total.Sub(r.agg.Total)
		}

		table.Entries = append(table.Entries, Entry{
			EntrantID:   r.agg.EntrantID,
			Name:        r.name,
			Position:    r.rank,
			Points:      r.agg.Total,
			GapToLeader: leader.Sub(r.agg.Total),
			GapToNext:   gapToNext,
			Rounds:      r.rounds,
			Wins:        r.agg.Wins(),
			Podiums:     r.agg.Podiums(),
			FastestLaps: r.agg.fastestLaps,
			Poles:       r.agg.poles,
			DNFs:        r.agg.dnfs,
			Starts:      r.agg.starts,
			BestFinish:  r.agg.BestFinish(),
		})
	}

	return table, nil
}

func tiesWithAll(chain Chain, members []*row, r *row) bool {
	for _, m := range members {
		if !m.agg.Total.Equal(r.agg.Total) || chain.Compare(m.agg, r.agg) != 0 {
			return false
		}
	}
	return true
}

// countedRounds filters to completed rounds inside the requested window and
// returns them ordered by round number.
func countedRounds(all []Round, opts Options) []Round {
	out := make([]Round, 0, len(all))
	for _, r := range all {
		if r.Status != RoundCompleted {
			continue
		}
		if opts.ThroughRound > 0 && r.Number > opts.ThroughRound {
			continue
		}
		if opts.AsOf != nil && (r.CompletedAt == nil || r.CompletedAt.After(*opts.AsOf)) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Round) int { return cmp.Compare(a.Number, b.Number) })
	return out
}
