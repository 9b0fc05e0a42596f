package review

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the tuned constants behind the grade ladder and its
// overrides. The defaults are inherited tuning, not derived values; treat
// them as adjustable policy.
type Policy struct {
	// Inclusive upper bounds on centipawn loss, ascending.
	BestMaxCP       int `yaml:"best_max_cp"`
	ExcellentMaxCP  int `yaml:"excellent_max_cp"`
	GoodMaxCP       int `yaml:"good_max_cp"`
	InaccuracyMaxCP int `yaml:"inaccuracy_max_cp"`
	MistakeMaxCP    int `yaml:"mistake_max_cp"`

	// MateCP is the fixed magnitude a mate score collapses to when
	// projected onto the centipawn scale.
	MateCP int `yaml:"mate_cp"`

	// SacrificeMaterialCP is the immediate material loss, at least a
	// minor piece by default, that arms the material overrides.
	SacrificeMaterialCP int `yaml:"sacrifice_material_cp"`
	// MaterialFloorDeltaCP floors the grade to Mistake when material was
	// lost and the centipawn loss reaches this bound.
	MaterialFloorDeltaCP int `yaml:"material_floor_delta_cp"`
	// MaterialBlunderDeltaCP escalates to Blunder when material was lost
	// and the centipawn loss exceeds this bound.
	MaterialBlunderDeltaCP int `yaml:"material_blunder_delta_cp"`

	// BrilliantGoodCP is the mover-perspective evaluation at which a
	// sacrifice's resulting position counts as clearly favorable.
	BrilliantGoodCP int `yaml:"brilliant_good_cp"`
	// BrilliantGainCP is the evaluation improvement over the pre-move
	// position that also qualifies a sacrifice.
	BrilliantGainCP int `yaml:"brilliant_gain_cp"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		BestMaxCP:       10,
		ExcellentMaxCP:  25,
		GoodMaxCP:       60,
		InaccuracyMaxCP: 120,
		MistakeMaxCP:    300,

		MateCP: 100000,

		SacrificeMaterialCP:    100,
		MaterialFloorDeltaCP:   120,
		MaterialBlunderDeltaCP: 300,

		BrilliantGoodCP: 120,
		BrilliantGainCP: 80,
	}
}

// Validate rejects ladders that are not strictly ascending and knobs that
// make no sense as magnitudes.
func (p Policy) Validate() error {
	ladder := []struct {
		name  string
		value int
	}{
		{"best_max_cp", p.BestMaxCP},
		{"excellent_max_cp", p.ExcellentMaxCP},
		{"good_max_cp", p.GoodMaxCP},
		{"inaccuracy_max_cp", p.InaccuracyMaxCP},
		{"mistake_max_cp", p.MistakeMaxCP},
	}
	for i := 1; i < len(ladder); i++ {
		if ladder[i].value <= ladder[i-1].value {
			return fmt.Errorf("policy: %s (%d) must exceed %s (%d)",
				ladder[i].name, ladder[i].value, ladder[i-1].name, ladder[i-1].value)
		}
	}
	if p.MateCP <= p.MistakeMaxCP {
		return fmt.Errorf("policy: mate_cp (%d) must exceed mistake_max_cp (%d)", p.MateCP, p.MistakeMaxCP)
	}
	for name, v := range map[string]int{
		"sacrifice_material_cp":     p.SacrificeMaterialCP,
		"material_floor_delta_cp":   p.MaterialFloorDeltaCP,
		"material_blunder_delta_cp": p.MaterialBlunderDeltaCP,
		"brilliant_good_cp":         p.BrilliantGoodCP,
		"brilliant_gain_cp":         p.BrilliantGainCP,
	} {
		if v <= 0 {
			return fmt.Errorf("policy: %s must be > 0", name)
		}
	}
	return nil
}

// LoadPolicy reads a YAML policy file. Keys left unset keep their default
// values, so a file may override a single threshold.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: %w", err)
	}
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}
