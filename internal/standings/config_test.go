package standings

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

func validConfig() Config {
	return Config{
		Points: PointsConfig{
			Positions:  table(25, 18, 15),
			FastestLap: BonusRule{Enabled: true, Points: pts(1), MaxPosition: 10},
		},
		DropRounds:  DropRoundsConfig{Enabled: true, Count: 1},
		Tiebreakers: []TiebreakerRule{{Kind: RuleMostWins}, {Kind: RuleMostPosition, Param: 2}},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "empty points table",
			mutate: func(c *Config) { c.Points.Positions = nil },
			fields: []string{"points.positions"},
		},
		{
			name: "zero position and duplicate",
			mutate: func(c *Config) {
				c.Points.Positions = append(c.Points.Positions,
					PositionPoints{Position: 0, Points: pts(1)},
					PositionPoints{Position: 2, Points: pts(1)})
			},
			fields: []string{"points.positions[3].position", "points.positions[4].position"},
		},
		{
			name:   "negative points",
			mutate: func(c *Config) { c.Points.Positions[1].Points = pts(-5) },
			fields: []string{"points.positions[1].points"},
		},
		{
			name: "bad bonus",
			mutate: func(c *Config) {
				c.Points.FastestLap.Points = pts(-1)
				c.Points.Pole.MaxPosition = -3
			},
			fields: []string{"points.fastest_lap.points", "points.pole.max_position"},
		},
		{
			name:   "negative drop count",
			mutate: func(c *Config) { c.DropRounds.Count = -1 },
			fields: []string{"drop_rounds.count"},
		},
		{
			name: "bad tiebreakers",
			mutate: func(c *Config) {
				c.Tiebreakers = []TiebreakerRule{
					{Kind: "coin_toss"},
					{Kind: RuleMostPosition},
					{Kind: RuleMostWins},
					{Kind: RuleMostWins},
				}
			},
			fields: []string{"tiebreakers[0].kind", "tiebreakers[1].param", "tiebreakers[3]"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig()
			test.mutate(&cfg)
			err := cfg.Validate()

			if len(test.fields) == 0 {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected ValidationErrors, got %v", err)
			}
			got := make([]string, 0, len(verrs))
			for _, e := range verrs {
				got = append(got, e.Field)
			}
			if !slices.Equal(got, test.fields) {
				t.Errorf("Expected fields %v, got %v", test.fields, got)
			}
		})
	}
}

func TestConfig_JSONShape(t *testing.T) {
	raw := `{
		"points": {
			"positions": [{"position": 1, "points": "25"}, {"position": 2, "points": 18.5}],
			"pole": {"enabled": true, "points": "1"}
		},
		"drop_rounds": {"enabled": true, "count": 2},
		"tiebreakers": [{"kind": "countback", "param": 3}, {"kind": "head_to_head"}]
	}`

	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected a valid config, got %v", err)
	}
	if got := cfg.Points.Positions[1].Points.String(); got != "18.5" {
		t.Errorf("Expected 18.5, got %s", got)
	}
	if cfg.Tiebreakers[0].String() != "countback(3)" || cfg.Tiebreakers[1].String() != "head_to_head" {
		t.Errorf("Unexpected tiebreakers %v", cfg.Tiebreakers)
	}
	if cfg.DropRounds.Count != 2 || !cfg.Points.Pole.Enabled {
		t.Errorf("Unexpected config %+v", cfg)
	}
}
