package standings

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// id returns a UUID whose textual and byte order follow n.
func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func pos(n int) *int { return &n }

func pts(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func table(points ...int64) []PositionPoints {
	out := make([]PositionPoints, len(points))
	for i, p := range points {
		out[i] = PositionPoints{Position: i + 1, Points: pts(p)}
	}
	return out
}

// finish builds a classified result for a driver.
func finish(driver, position int) RaceResult {
	return RaceResult{DriverID: id(driver), Position: pos(position), Status: ResultFinished}
}

// completedRound builds a completed round with one race per result set.
func completedRound(number int, races ...[]RaceResult) Round {
	done := time.Date(2026, 3, number, 18, 0, 0, 0, time.UTC)
	r := Round{ID: id(1000 + number), Number: number, Status: RoundCompleted, CompletedAt: &done}
	for i, results := range races {
		r.Races = append(r.Races, Race{
			ID:      id(10000 + number*10 + i),
			Name:    fmt.Sprintf("Race %d", i+1),
			Order:   i + 1,
			Results: results,
		})
	}
	return r
}

func drivers(ns ...int) []Entrant {
	out := make([]Entrant, len(ns))
	for i, n := range ns {
		out[i] = Entrant{ID: id(n), Name: fmt.Sprintf("Driver %d", n)}
	}
	return out
}

// summary renders the parts of a table that must be stable.
func summary(t *Table) string {
	var b strings.Builder
	for _, e := range t.Entries {
		fmt.Fprintf(&b, "%d:%s=%s;", e.Position, e.EntrantID, e.Points.String())
	}
	return b.String()
}

func entryFor(t *Table, entrant uuid.UUID) (Entry, bool) {
	for _, e := range t.Entries {
		if e.EntrantID == entrant {
			return e, true
		}
	}
	return Entry{}, false
}
