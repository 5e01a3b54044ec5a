package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/toxicity/pkg/analyzer/toxicity"
	"github.com/panbanda/toxicity/pkg/models"
)

// Cost calculator kinds accepted in CostConfig.Kind.
const (
	CostConstant = "constant"
	CostRatio    = "ratio"
	CostSeverity = "severity"
)

var (
	// ErrUnknownCostKind is returned for a cost kind other than constant, ratio or severity.
	ErrUnknownCostKind = errors.New("unknown cost kind")
	// ErrNoRules is returned for a debt entry without rule keys.
	ErrNoRules = errors.New("no rule keys")
)

// Build turns the configured table into a classification policy.
// Configured debts come first; the built-in table follows when Defaults is set.
func (p PolicyConfig) Build() (*toxicity.RulePolicy, error) {
	rules := make([]toxicity.Rule, 0, len(p.Debts))
	for i, d := range p.Debts {
		r, err := d.rule()
		if err != nil {
			return nil, fmt.Errorf("debts[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	if p.Defaults {
		rules = append(rules, toxicity.DefaultRules()...)
	}
	return toxicity.NewRulePolicy(rules...)
}

func (d DebtConfig) rule() (toxicity.Rule, error) {
	if strings.TrimSpace(d.Type) == "" {
		return toxicity.Rule{}, toxicity.ErrEmptyDebtType
	}
	if len(d.Rules) == 0 {
		return toxicity.Rule{}, fmt.Errorf("%s: %w", d.Type, ErrNoRules)
	}
	calc, err := d.Cost.calculator()
	if err != nil {
		return toxicity.Rule{}, fmt.Errorf("%s: %w", d.Type, err)
	}
	return toxicity.Rule{
		Type:       models.DebtType(d.Type),
		Priority:   d.Priority,
		Match:      toxicity.RuleKeys(d.Rules...),
		Calculator: calc,
		Keys:       d.Rules,
	}, nil
}

func (c CostConfig) calculator() (toxicity.CostCalculator, error) {
	switch strings.ToLower(c.Kind) {
	case "", CostConstant:
		value := c.Value
		if value == 0 {
			value = 1
		}
		return toxicity.ConstantCost(value), nil
	case CostRatio:
		calc := toxicity.NewRatioCost().WithOffset(c.Offset)
		if c.Value > 0 {
			calc.Fallback = c.Value
		}
		if len(c.Patterns) > 0 {
			calc.Patterns = nil
			for _, p := range c.Patterns {
				re, err := regexp.Compile(p)
				if err != nil {
					return nil, fmt.Errorf("invalid ratio pattern %q: %w", p, err)
				}
				if re.SubexpIndex("value") < 0 || re.SubexpIndex("max") < 0 {
					return nil, fmt.Errorf("ratio pattern %q must define the value and max groups", p)
				}
				calc.Patterns = append(calc.Patterns, re)
			}
		}
		return calc, nil
	case CostSeverity:
		weights := c.Weights
		if len(weights) == 0 {
			weights = toxicity.DefaultSeverityWeights()
		}
		return toxicity.NewSeverityCost(weights, c.Value), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCostKind, c.Kind)
	}
}

// Fingerprint returns a stable textual form of the policy-affecting settings,
// used to key cached results.
func (p PolicyConfig) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "defaults=%t;", p.Defaults)
	for _, d := range p.Debts {
		fmt.Fprintf(&b, "%s|%d|%s|%s|%g|%g|%s|", d.Type, d.Priority, strings.Join(d.Rules, ","),
			d.Cost.Kind, d.Cost.Value, d.Cost.Offset, strings.Join(d.Cost.Patterns, ","))
		for _, k := range sortedKeys(d.Cost.Weights) {
			fmt.Fprintf(&b, "%s=%g,", k, d.Cost.Weights[k])
		}
		b.WriteString(";")
	}
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
