package toxicity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/panbanda/toxicity/pkg/models"
)

var (
	// ErrEmptyDebtType is returned for a rule without a debt type.
	ErrEmptyDebtType = errors.New("debt type is empty")
	// ErrNilPredicate is returned for a rule without a predicate.
	ErrNilPredicate = errors.New("rule predicate is nil")
	// ErrNilCalculator is returned for a rule without a cost calculator.
	ErrNilCalculator = errors.New("rule cost calculator is nil")
)

// Match is the outcome of classifying an issue.
type Match struct {
	Type       models.DebtType
	Calculator CostCalculator
}

// Policy decides whether an issue is debt and how to price it.
// Classify must be cheap and side-effect free; a false result means the
// issue is not tracked.
type Policy interface {
	Classify(issue models.Issue) (Match, bool)
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(issue models.Issue) (Match, bool)

// Classify implements Policy.
func (f PolicyFunc) Classify(issue models.Issue) (Match, bool) {
	return f(issue)
}

// Predicate reports whether a rule applies to an issue.
type Predicate func(issue models.Issue) bool

// Rule pairs a predicate with the debt type and calculator it selects.
type Rule struct {
	Type       models.DebtType
	Priority   int
	Match      Predicate
	Calculator CostCalculator
	// Keys lists the rule keys the predicate was built from, for display only.
	Keys []string
}

func (r Rule) validate() error {
	switch {
	case r.Type == "":
		return ErrEmptyDebtType
	case r.Match == nil:
		return fmt.Errorf("%s: %w", r.Type, ErrNilPredicate)
	case r.Calculator == nil:
		return fmt.Errorf("%s: %w", r.Type, ErrNilCalculator)
	}
	return nil
}

// RulePolicy evaluates rules in a fixed order and returns the first match.
// Rules with a higher priority are evaluated first; rules of equal priority
// keep the order they were given in.
type RulePolicy struct {
	rules []Rule
}

// Compile-time check that RulePolicy implements Policy.
var _ Policy = (*RulePolicy)(nil)

// NewRulePolicy validates and orders the rules.
func NewRulePolicy(rules ...Rule) (*RulePolicy, error) {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	for _, r := range ordered {
		if err := r.validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return &RulePolicy{rules: ordered}, nil
}

// Classify implements Policy.
func (p *RulePolicy) Classify(issue models.Issue) (Match, bool) {
	for _, r := range p.rules {
		if r.Match(issue) {
			return Match{Type: r.Type, Calculator: r.Calculator}, true
		}
	}
	return Match{}, false
}

// Rules returns the rules in evaluation order.
func (p *RulePolicy) Rules() []Rule {
	result := make([]Rule, len(p.rules))
	copy(result, p.rules)
	return result
}

// Len returns the number of rules.
func (p *RulePolicy) Len() int {
	return len(p.rules)
}

// RuleKeys matches issues whose rule key equals one of keys, or whose rule
// key ends with one of keys directly after a ':', '.' or '/' separator.
// "MethodLengthCheck" therefore matches
// "checkstyle:com.puppycrawl.tools.checkstyle.checks.sizes.MethodLengthCheck".
func RuleKeys(keys ...string) Predicate {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return func(issue models.Issue) bool {
		key := issue.RuleKey()
		if _, ok := set[key]; ok {
			return true
		}
		for i := len(key) - 1; i >= 0; i-- {
			switch key[i] {
			case ':', '.', '/':
				if _, ok := set[key[i+1:]]; ok {
					return true
				}
			}
		}
		return false
	}
}
