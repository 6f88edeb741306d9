package standings

import (
	"testing"
)

func rounds(points ...int64) []RoundPoints {
	out := make([]RoundPoints, len(points))
	for i, p := range points {
		out[i] = RoundPoints{RoundNumber: i + 1, Points: pts(p)}
	}
	return out
}

func TestDropRoundSelector_SelectDropped(t *testing.T) {
	tests := []struct {
		name     string
		cfg      DropRoundsConfig
		rounds   []RoundPoints
		expected []int
	}{
		{
			name:     "disabled",
			cfg:      DropRoundsConfig{Enabled: false, Count: 1},
			rounds:   rounds(25, 0, 18),
			expected: nil,
		},
		{
			name:     "drops the lowest round",
			cfg:      DropRoundsConfig{Enabled: true, Count: 1},
			rounds:   rounds(25, 0, 18),
			expected: []int{2},
		},
		{
			name:     "equal lowest drops the earliest",
			cfg:      DropRoundsConfig{Enabled: true, Count: 1},
			rounds:   rounds(10, 0, 0),
			expected: []int{2},
		},
		{
			name:     "two drops across a tie",
			cfg:      DropRoundsConfig{Enabled: true, Count: 2},
			rounds:   rounds(5, 5, 25, 5),
			expected: []int{1, 2},
		},
		{
			name:     "not more rounds than the drop count",
			cfg:      DropRoundsConfig{Enabled: true, Count: 3},
			rounds:   rounds(1, 2, 3),
			expected: nil,
		},
		{
			name:     "zero count",
			cfg:      DropRoundsConfig{Enabled: true, Count: 0},
			rounds:   rounds(1, 2, 3),
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dropped := NewDropRoundSelector(test.cfg).SelectDropped(test.rounds)
			if len(dropped) != len(test.expected) {
				t.Fatalf("Expected %d dropped rounds, got %v", len(test.expected), dropped)
			}
			for _, n := range test.expected {
				if !dropped[n] {
					t.Errorf("Expected round %d to be dropped, got %v", n, dropped)
				}
			}
			if len(dropped) > test.cfg.Count {
				t.Errorf("Dropped %d rounds with a drop count of %d", len(dropped), test.cfg.Count)
			}
		})
	}
}

func TestDropRoundSelector_DoesNotReorderInput(t *testing.T) {
	in := rounds(25, 0, 18)
	NewDropRoundSelector(DropRoundsConfig{Enabled: true, Count: 1}).SelectDropped(in)
	if in[0].RoundNumber != 1 || in[1].RoundNumber != 2 || in[2].RoundNumber != 3 {
		t.Errorf("Expected input order to be untouched, got %+v", in)
	}
}
