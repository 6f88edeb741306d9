package standings

import (
	"testing"
)

func TestPointsSystem_Score(t *testing.T) {
	ps := NewPointsSystem(PointsConfig{
		Positions:  table(25, 18, 15, 12, 10, 8, 6, 4, 2, 1),
		FastestLap: BonusRule{Enabled: true, Points: pts(1), MaxPosition: 10},
		Pole:       BonusRule{Enabled: true, Points: pts(3)},
	})

	tests := []struct {
		name     string
		position *int
		flags    Flags
		expected int64
	}{
		{name: "winner", position: pos(1), expected: 25},
		{name: "last scoring position", position: pos(10), expected: 1},
		{name: "beyond the table", position: pos(11), expected: 0},
		{name: "no position", position: nil, flags: Flags{FastestLap: true, Pole: true}, expected: 0},
		{name: "did not start", position: pos(1), flags: Flags{DNS: true, Pole: true}, expected: 0},
		{name: "retired keeps no bonus by default", position: pos(3), flags: Flags{DNF: true, FastestLap: true}, expected: 0},
		{name: "fastest lap outside top ten", position: pos(12), flags: Flags{FastestLap: true}, expected: 0},
		{name: "fastest lap inside top ten", position: pos(8), flags: Flags{FastestLap: true}, expected: 5},
		{name: "pole has no gate", position: pos(20), flags: Flags{Pole: true}, expected: 3},
		{name: "pole and fastest lap from the win", position: pos(1), flags: Flags{Pole: true, FastestLap: true}, expected: 29},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ps.Score(test.position, test.flags)
			if !got.Equal(pts(test.expected)) {
				t.Errorf("Expected %d points, got %s", test.expected, got)
			}
		})
	}
}

func TestPointsSystem_BonusOnDNF(t *testing.T) {
	ps := NewPointsSystem(PointsConfig{
		Positions:  table(25, 18, 15),
		FastestLap: BonusRule{Enabled: true, Points: pts(1), MaxPosition: 10},
		BonusOnDNF: true,
	})

	base, bonus := ps.Breakdown(pos(15), Flags{DNF: true, FastestLap: true})
	if !base.IsZero() {
		t.Errorf("Expected no position points for a retirement, got %s", base)
	}
	if !bonus.Equal(pts(1)) {
		t.Errorf("Expected the fastest lap bonus to ignore the gate, got %s", bonus)
	}

	if got := ps.Score(nil, Flags{DNF: true, FastestLap: true}); !got.IsZero() {
		t.Errorf("Expected nothing without a recorded position, got %s", got)
	}
}

func TestPointsSystem_DisabledBonus(t *testing.T) {
	ps := NewPointsSystem(PointsConfig{
		Positions:  table(25, 18, 15),
		FastestLap: BonusRule{Enabled: false, Points: pts(1)},
	})
	if got := ps.Score(pos(1), Flags{FastestLap: true}); !got.Equal(pts(25)) {
		t.Errorf("Expected 25, got %s", got)
	}
}

func TestPointsSystem_OrderIndependent(t *testing.T) {
	ps := NewPointsSystem(PointsConfig{Positions: table(25, 18, 15)})
	first := ps.Score(pos(2), Flags{})
	ps.Score(pos(1), Flags{})
	ps.Score(nil, Flags{DNS: true})
	if again := ps.Score(pos(2), Flags{}); !again.Equal(first) {
		t.Errorf("Expected repeated calls to agree, got %s then %s", first, again)
	}
}
