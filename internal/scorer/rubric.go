// Package scorer implements the likelihood scoring rubric and the
// qualification threshold applied to merged company records.
package scorer

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MaxScore is the upper bound of every sub-score and of the final score.
const MaxScore = 10.0

// weightTolerance absorbs floating-point noise in configured weights.
const weightTolerance = 1e-6

// Weights blend the sub-scores. They must sum to 1.
type Weights struct {
	EmployeeCount float64 `yaml:"employee_count" mapstructure:"employee_count" json:"employee_count"`
	Industry      float64 `yaml:"industry" mapstructure:"industry" json:"industry"`
}

// EmployeeBand awards Score to employee counts in [Min, Max].
type EmployeeBand struct {
	Min   int     `yaml:"min" json:"min"`
	Max   int     `yaml:"max" json:"max"`
	Score float64 `yaml:"score" json:"score"`
}

// IndustryTier awards Score when any keyword occurs in the industry.
// Tiers are tried in order; the first matching tier wins.
type IndustryTier struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Score    float64  `yaml:"score" json:"score"`
}

// Rubric is the swappable scoring policy.
type Rubric struct {
	Weights       Weights        `yaml:"weights" json:"weights"`
	EmployeeBands []EmployeeBand `yaml:"employee_bands" json:"employee_bands"`
	IndustryTiers []IndustryTier `yaml:"industry_tiers" json:"industry_tiers"`
}

// DefaultRubric returns the rubric for mid-sized manufacturers: 50-750
// employees is ideal, the adjacent bands score half, and heavy-industry
// keywords outrank generic technology.
func DefaultRubric() Rubric {
	return Rubric{
		Weights: Weights{EmployeeCount: 0.5, Industry: 0.5},
		EmployeeBands: []EmployeeBand{
			{Min: 50, Max: 750, Score: 10},
			{Min: 25, Max: 49, Score: 5},
			{Min: 751, Max: 1500, Score: 5},
		},
		IndustryTiers: []IndustryTier{
			{Name: "strong", Keywords: []string{"manufacturing", "industrial", "machinery", "automotive"}, Score: 10},
			{Name: "weak", Keywords: []string{"technology"}, Score: 3},
		},
	}
}

// ValidateRubric checks that a Rubric keeps every score within [0, 10].
func ValidateRubric(r Rubric) error {
	var errs []string

	w := r.Weights
	switch {
	case !finite(w.EmployeeCount) || !finite(w.Industry):
		errs = append(errs, "weights must be finite numbers")
	case w.EmployeeCount < 0 || w.Industry < 0:
		errs = append(errs, "weights must be >= 0")
	default:
		if sum := w.EmployeeCount + w.Industry; math.Abs(sum-1) > weightTolerance {
			errs = append(errs, fmt.Sprintf("weights must sum to 1.0, got %.4f", sum))
		}
	}

	for i, b := range r.EmployeeBands {
		if b.Max < b.Min {
			errs = append(errs, fmt.Sprintf("employee_bands[%d]: max must be >= min", i))
		}
		if !inScoreRange(b.Score) {
			errs = append(errs, fmt.Sprintf("employee_bands[%d]: score must be between 0 and 10", i))
		}
	}

	for i, t := range r.IndustryTiers {
		if len(t.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("industry_tiers[%d]: at least one keyword required", i))
		}
		for _, kw := range t.Keywords {
			if strings.TrimSpace(kw) == "" {
				errs = append(errs, fmt.Sprintf("industry_tiers[%d]: empty keyword", i))
				break
			}
		}
		if !inScoreRange(t.Score) {
			errs = append(errs, fmt.Sprintf("industry_tiers[%d]: score must be between 0 and 10", i))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: rubric validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadRubric reads a rubric from a YAML file with a top-level "rubric" key.
// Sections missing from the file keep their values from base.
func LoadRubric(path string, base Rubric) (Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, eris.Wrapf(err, "scorer: read rubric %s", path)
	}

	var wrapper struct {
		Rubric struct {
			Weights       *Weights       `yaml:"weights"`
			EmployeeBands []EmployeeBand `yaml:"employee_bands"`
			IndustryTiers []IndustryTier `yaml:"industry_tiers"`
		} `yaml:"rubric"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rubric{}, eris.Wrap(err, "scorer: parse rubric")
	}

	r := base
	if wrapper.Rubric.Weights != nil {
		r.Weights = *wrapper.Rubric.Weights
	}
	if len(wrapper.Rubric.EmployeeBands) > 0 {
		r.EmployeeBands = wrapper.Rubric.EmployeeBands
	}
	if len(wrapper.Rubric.IndustryTiers) > 0 {
		r.IndustryTiers = wrapper.Rubric.IndustryTiers
	}
	return r, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// inScoreRange is false for NaN.
func inScoreRange(f float64) bool {
	return f >= 0 && f <= MaxScore
}
