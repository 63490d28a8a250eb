package scorer

import (
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/sells-group/lead-cli/internal/company"
)

// Engine scores company records against a validated Rubric. An Engine is
// immutable and safe for concurrent use.
type Engine struct {
	rubric Rubric
	tiers  []IndustryTier // keywords case-folded
}

// New validates r and returns an Engine for it.
func New(r Rubric) (*Engine, error) {
	if err := ValidateRubric(r); err != nil {
		return nil, err
	}

	fold := cases.Fold()
	tiers := make([]IndustryTier, len(r.IndustryTiers))
	for i, t := range r.IndustryTiers {
		kws := make([]string, len(t.Keywords))
		for j, kw := range t.Keywords {
			kws[j] = fold.String(strings.TrimSpace(kw))
		}
		tiers[i] = IndustryTier{Name: t.Name, Keywords: kws, Score: t.Score}
	}

	return &Engine{rubric: r, tiers: tiers}, nil
}

// Rubric returns the policy the engine scores with.
func (e *Engine) Rubric() Rubric {
	return e.rubric
}

// EmployeeScore returns the band score for count; unset or out-of-band
// counts score 0. The first matching band wins.
func (e *Engine) EmployeeScore(count *int) float64 {
	if count == nil {
		return 0
	}
	for _, b := range e.rubric.EmployeeBands {
		if *count >= b.Min && *count <= b.Max {
			return b.Score
		}
	}
	return 0
}

// IndustryScore returns the score of the first tier with a keyword contained
// in the case-folded industry.
func (e *Engine) IndustryScore(industry *string) float64 {
	if industry == nil {
		return 0
	}
	text := cases.Fold().String(*industry)
	for _, t := range e.tiers {
		for _, kw := range t.Keywords {
			if strings.Contains(text, kw) {
				return t.Score
			}
		}
	}
	return 0
}

// ScoreOne computes the likelihood score of a single record.
func (e *Engine) ScoreOne(r company.CompanyRecord) company.ScoredCompanyRecord {
	emp := e.EmployeeScore(r.EmployeeCount)
	ind := e.IndustryScore(r.Industry)
	w := e.rubric.Weights
	return company.ScoredCompanyRecord{
		CompanyRecord:   r,
		LikelihoodScore: round2(w.EmployeeCount*emp + w.Industry*ind),
		EmployeeScore:   emp,
		IndustryScore:   ind,
	}
}

// Score scores every record and orders the result by descending likelihood.
// Records with equal scores keep their input order.
func (e *Engine) Score(records []company.CompanyRecord) []company.ScoredCompanyRecord {
	out := make([]company.ScoredCompanyRecord, len(records))
	for i, r := range records {
		out[i] = e.ScoreOne(r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LikelihoodScore > out[j].LikelihoodScore
	})
	return out
}

// Select returns the records scoring at or above threshold, in order.
func Select(scored []company.ScoredCompanyRecord, threshold float64) []company.ScoredCompanyRecord {
	return lo.Filter(scored, func(r company.ScoredCompanyRecord, _ int) bool {
		return r.LikelihoodScore >= threshold
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
