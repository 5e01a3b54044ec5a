package models

import "sort"

// DebtType names a category of technical debt. Two debts are of the same
// type when their keys are equal.
type DebtType string

// String implements fmt.Stringer for toon serialization.
func (t DebtType) String() string {
	return string(t)
}

const (
	DebtAnonInnerLength              DebtType = "anon_inner_length"
	DebtBooleanExpressionComplexity  DebtType = "boolean_expression_complexity"
	DebtClassDataAbstractionCoupling DebtType = "class_data_abstraction_coupling"
	DebtClassFanOutComplexity        DebtType = "class_fan_out_complexity"
	DebtCyclomaticComplexity         DebtType = "cyclomatic_complexity"
	DebtFileLength                   DebtType = "file_length"
	DebtMethodLength                 DebtType = "method_length"
	DebtNestedIfDepth                DebtType = "nested_if_depth"
	DebtNestedTryDepth               DebtType = "nested_try_depth"
	DebtParameterNumber              DebtType = "parameter_number"
	DebtMissingSwitchDefault         DebtType = "missing_switch_default"
	DebtIllegalCatch                 DebtType = "illegal_catch"
	DebtIllegalThrows                DebtType = "illegal_throws"
	DebtInterfaceIsType              DebtType = "interface_is_type"
	DebtHiddenField                  DebtType = "hidden_field"
	DebtInnerAssignment              DebtType = "inner_assignment"
	DebtMagicNumber                  DebtType = "magic_number"
	DebtDuplication                  DebtType = "duplication"
)

// Debt is the accumulated cost of one debt type on one source.
type Debt struct {
	Type  DebtType `json:"type" toon:"type"`
	Cost  float64  `json:"cost" toon:"cost"`
	Count int      `json:"count" toon:"count"` // number of contributing issues
}

// AddCost folds one issue's contribution into the debt.
func (d *Debt) AddCost(cost float64) {
	d.Cost += cost
	d.Count++
}

// Source is the per-file aggregation unit of a toxicity snapshot.
// Debts are ordered by type.
type Source struct {
	Name          string  `json:"name" toon:"name"`
	Debts         []Debt  `json:"debts" toon:"debts"`
	Total         float64 `json:"total" toon:"total"`
	AffectedLines uint64  `json:"affected_lines,omitempty" toon:"affected_lines,omitempty"`
}

// NewSource builds a Source from its debts, sorting them and computing the total.
func NewSource(name string, debts []Debt, affectedLines uint64) Source {
	sort.Slice(debts, func(i, j int) bool {
		return debts[i].Type < debts[j].Type
	})
	var total float64
	for _, d := range debts {
		total += d.Cost
	}
	return Source{
		Name:          name,
		Debts:         debts,
		Total:         total,
		AffectedLines: affectedLines,
	}
}

// Debt returns the debt recorded for the given type.
func (s Source) Debt(t DebtType) (Debt, bool) {
	i := sort.Search(len(s.Debts), func(i int) bool {
		return s.Debts[i].Type >= t
	})
	if i < len(s.Debts) && s.Debts[i].Type == t {
		return s.Debts[i], true
	}
	return Debt{}, false
}

// Cost returns the cost recorded for the given type, or 0.
func (s Source) Cost(t DebtType) float64 {
	d, _ := s.Debt(t)
	return d.Cost
}
