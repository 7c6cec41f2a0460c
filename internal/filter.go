package internal

import (
	"fmt"

	"github.com/Knetic/govaluate"
	"github.com/sirupsen/logrus"
)

// SkipRule suppresses reviews for events whose payload satisfies When.
type SkipRule struct {
	Name string `yaml:"name"`
	When string `yaml:"when"`
}

type compiledSkipRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// ReviewFilter decides whether an identified event should be skipped.
type ReviewFilter struct {
	rules []compiledSkipRule
}

// NewReviewFilter compiles the skip rules. A nil filter skips nothing.
func NewReviewFilter(rules []SkipRule) (*ReviewFilter, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	compiled := make([]compiledSkipRule, 0, len(rules))
	for _, rule := range rules {
		expr, err := govaluate.NewEvaluableExpression(rule.When)
		if err != nil {
			return nil, fmt.Errorf("skip rule %s: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledSkipRule{name: rule.Name, expr: expr})
	}
	return &ReviewFilter{rules: compiled}, nil
}

// Skip evaluates the rules in order against the flattened payload and
// returns the name of the first rule that evaluates to true.
func (f *ReviewFilter) Skip(payload []byte, logger *logrus.Entry) (string, bool) {
	if f == nil || len(f.rules) == 0 {
		return "", false
	}
	params := FlattenPayload(payload)
	for _, rule := range f.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			if logger != nil {
				logger.Debugf("skip rule %s not evaluated: %v", rule.name, err)
			}
			continue
		}
		if ok, _ := result.(bool); ok {
			return rule.name, true
		}
	}
	return "", false
}
