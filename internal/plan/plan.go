// Package plan asks a language model for target customer segments and the
// Places search terms that find companies in each segment.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// TargetGroup is one customer segment and its search terms.
type TargetGroup struct {
	GroupName   string   `json:"group_name" validate:"required"`
	Rationale   string   `json:"rationale" validate:"required"`
	SearchTerms []string `json:"google_search_terms" validate:"required,min=1,dive,required"`
}

type planResponse struct {
	Targets []TargetGroup `json:"targets" validate:"required,min=1,dive"`
}

// Completer returns the raw model output for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options bound the size of a generated plan.
type Options struct {
	MinGroups        int
	MaxGroups        int
	MaxTermsPerGroup int
}

// DefaultOptions asks for 5-10 groups with at most 10 terms each.
func DefaultOptions() Options {
	return Options{MinGroups: 5, MaxGroups: 10, MaxTermsPerGroup: 10}
}

// Generator produces search plans.
type Generator struct {
	completer Completer
	opts      Options
	validate  *validator.Validate
}

// NewGenerator creates a Generator. Zero option values fall back to
// DefaultOptions.
func NewGenerator(c Completer, opts Options) *Generator {
	d := DefaultOptions()
	if opts.MinGroups <= 0 {
		opts.MinGroups = d.MinGroups
	}
	if opts.MaxGroups < opts.MinGroups {
		opts.MaxGroups = max(d.MaxGroups, opts.MinGroups)
	}
	if opts.MaxTermsPerGroup <= 0 {
		opts.MaxTermsPerGroup = d.MaxTermsPerGroup
	}
	return &Generator{
		completer: c,
		opts:      opts,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Generate returns target groups for productDescription. Groups beyond
// MaxGroups are dropped and each group keeps at most MaxTermsPerGroup
// trimmed, de-duplicated terms.
func (g *Generator) Generate(ctx context.Context, productDescription string) ([]TargetGroup, error) {
	desc := strings.TrimSpace(productDescription)
	if desc == "" {
		return nil, eris.New("plan: product description is required")
	}

	raw, err := g.completer.Complete(ctx, systemPrompt, fmt.Sprintf(userPromptFormat, g.opts.MinGroups, g.opts.MaxGroups, desc))
	if err != nil {
		return nil, eris.Wrap(err, "plan: complete")
	}

	groups, err := g.parse(raw)
	if err != nil {
		return nil, err
	}

	if len(groups) > g.opts.MaxGroups {
		zap.L().Warn("plan: truncating target groups",
			zap.Int("returned", len(groups)),
			zap.Int("max", g.opts.MaxGroups),
		)
		groups = groups[:g.opts.MaxGroups]
	}
	if len(groups) < g.opts.MinGroups {
		zap.L().Warn("plan: fewer target groups than requested",
			zap.Int("returned", len(groups)),
			zap.Int("min", g.opts.MinGroups),
		)
	}

	for i := range groups {
		groups[i].GroupName = strings.TrimSpace(groups[i].GroupName)
		groups[i].Rationale = strings.TrimSpace(groups[i].Rationale)
		groups[i].SearchTerms = normalizeTerms(groups[i].SearchTerms, g.opts.MaxTermsPerGroup)
	}

	zap.L().Info("plan: generated target groups",
		zap.Int("groups", len(groups)),
		zap.Int("terms", len(Terms(groups))),
	)
	return groups, nil
}

// parse decodes and validates the model output. Both {"targets": [...]}
// and a bare array are accepted.
func (g *Generator) parse(raw string) ([]TargetGroup, error) {
	text := cleanJSON(raw)

	var resp planResponse
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &resp.Targets); err != nil {
			return nil, eris.Wrap(err, "plan: decode response")
		}
	} else if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, eris.Wrap(err, "plan: decode response")
	}

	if err := g.validate.Struct(resp); err != nil {
		return nil, eris.Wrap(err, "plan: invalid response")
	}
	return resp.Targets, nil
}

// Terms flattens the search terms of groups in order, dropping duplicates.
func Terms(groups []TargetGroup) []string {
	all := lo.FlatMap(groups, func(g TargetGroup, _ int) []string { return g.SearchTerms })
	return lo.Uniq(all)
}

func normalizeTerms(terms []string, limit int) []string {
	out := make([]string, 0, min(len(terms), limit))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.Join(strings.Fields(t), " ")
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

// cleanJSON strips markdown fences and surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	if start := strings.IndexAny(text, "{["); start >= 0 {
		last := "}"
		if text[start] == '[' {
			last = "]"
		}
		if end := strings.LastIndex(text, last); end > start {
			text = text[start : end+1]
		}
	}

	return strings.TrimSpace(text)
}
