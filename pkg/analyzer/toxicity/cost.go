package toxicity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/panbanda/toxicity/pkg/models"
)

// CostCalculator prices a single matched issue. Implementations must be pure
// and deterministic; the aggregator trusts the value it returns.
type CostCalculator interface {
	Cost(issue models.Issue) float64
}

// CostFunc adapts a plain function to CostCalculator.
type CostFunc func(issue models.Issue) float64

// Cost implements CostCalculator.
func (f CostFunc) Cost(issue models.Issue) float64 {
	return f(issue)
}

// ConstantCost charges the same amount for every issue.
type ConstantCost float64

// Cost implements CostCalculator.
func (c ConstantCost) Cost(models.Issue) float64 {
	return float64(c)
}

// Patterns for Checkstyle messages that report a measured value against an
// allowed maximum. Each pattern must define the "value" and "max" groups.
var (
	// "Method length is 45 lines (max allowed is 30)."
	maxAllowedPattern = regexp.MustCompile(`(?i)\bis (?P<value>\d[\d,]*(?:\.\d+)?)[^()]*\(max allowed is (?P<max>\d[\d,]*(?:\.\d+)?)\)`)
	// "More than 7 parameters (found 9)."
	moreThanPattern = regexp.MustCompile(`(?i)more than (?P<max>\d[\d,]*) parameters \(found (?P<value>\d[\d,]*)\)`)
)

// DefaultRatioPatterns returns the message patterns understood by RatioCost
// when none are configured.
func DefaultRatioPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{maxAllowedPattern, moreThanPattern}
}

// RatioCost charges value/max where both numbers are parsed from the issue
// message, so an issue twice over its threshold costs 2.
type RatioCost struct {
	Patterns []*regexp.Regexp
	// Offset is added to both value and max before dividing. Depth checks
	// count from zero and use an offset of 1.
	Offset float64
	// Fallback is charged when no pattern matches or max is not positive.
	Fallback float64
}

// NewRatioCost creates a RatioCost with the default patterns and a fallback of 1.
func NewRatioCost() RatioCost {
	return RatioCost{
		Patterns: DefaultRatioPatterns(),
		Fallback: 1.0,
	}
}

// WithOffset returns a copy of the calculator using the given offset.
func (r RatioCost) WithOffset(offset float64) RatioCost {
	r.Offset = offset
	return r
}

// Cost implements CostCalculator.
func (r RatioCost) Cost(issue models.Issue) float64 {
	value, limit, ok := r.parse(issue.Message())
	if !ok {
		return r.Fallback
	}
	value += r.Offset
	limit += r.Offset
	if limit <= 0 {
		return r.Fallback
	}
	return value / limit
}

func (r RatioCost) parse(message string) (float64, float64, bool) {
	patterns := r.Patterns
	if len(patterns) == 0 {
		patterns = DefaultRatioPatterns()
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		vi, mi := re.SubexpIndex("value"), re.SubexpIndex("max")
		if vi < 0 || mi < 0 {
			continue
		}
		value, err := parseNumber(m[vi])
		if err != nil {
			continue
		}
		limit, err := parseNumber(m[mi])
		if err != nil {
			continue
		}
		return value, limit, true
	}
	return 0, 0, false
}

// parseNumber parses a decimal that may contain thousands separators.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// SeverityCost charges a weight looked up by the issue severity.
// Severity names are compared case-insensitively.
type SeverityCost struct {
	Weights map[string]float64
	Default float64
}

// DefaultSeverityWeights returns weights for the Sonar severity scale.
func DefaultSeverityWeights() map[string]float64 {
	return map[string]float64{
		"info":     0.5,
		"minor":    1,
		"major":    2,
		"critical": 4,
		"blocker":  8,
	}
}

// NewSeverityCost creates a SeverityCost, normalizing weight keys to lower case.
func NewSeverityCost(weights map[string]float64, fallback float64) SeverityCost {
	normalized := make(map[string]float64, len(weights))
	for k, v := range weights {
		normalized[strings.ToLower(k)] = v
	}
	return SeverityCost{Weights: normalized, Default: fallback}
}

// Cost implements CostCalculator.
func (s SeverityCost) Cost(issue models.Issue) float64 {
	if w, ok := s.Weights[strings.ToLower(issue.Severity())]; ok {
		return w
	}
	return s.Default
}
