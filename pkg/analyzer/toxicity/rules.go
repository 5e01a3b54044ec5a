package toxicity

import "github.com/panbanda/toxicity/pkg/models"

// DefaultRuleSpec describes one entry of the built-in policy table.
type DefaultRuleSpec struct {
	Type   models.DebtType
	Keys   []string
	Ratio  bool    // price by value/max parsed from the message
	Offset float64 // ratio offset for zero-based depth checks
}

// defaultTable follows the Checkstyle checks priced by the toxicity chart.
// Threshold checks are priced by how far the measured value exceeds the
// limit; the others cost 1 per violation.
var defaultTable = []DefaultRuleSpec{
	{Type: models.DebtAnonInnerLength, Keys: []string{"AnonInnerLengthCheck", "AnonInnerLength"}, Ratio: true},
	{Type: models.DebtBooleanExpressionComplexity, Keys: []string{"BooleanExpressionComplexityCheck", "BooleanExpressionComplexity"}, Ratio: true},
	{Type: models.DebtClassDataAbstractionCoupling, Keys: []string{"ClassDataAbstractionCouplingCheck", "ClassDataAbstractionCoupling"}, Ratio: true},
	{Type: models.DebtClassFanOutComplexity, Keys: []string{"ClassFanOutComplexityCheck", "ClassFanOutComplexity"}, Ratio: true},
	{Type: models.DebtCyclomaticComplexity, Keys: []string{"CyclomaticComplexityCheck", "CyclomaticComplexity"}, Ratio: true},
	{Type: models.DebtFileLength, Keys: []string{"FileLengthCheck", "FileLength"}, Ratio: true},
	{Type: models.DebtMethodLength, Keys: []string{"MethodLengthCheck", "MethodLength"}, Ratio: true},
	{Type: models.DebtNestedIfDepth, Keys: []string{"NestedIfDepthCheck", "NestedIfDepth"}, Ratio: true, Offset: 1},
	{Type: models.DebtNestedTryDepth, Keys: []string{"NestedTryDepthCheck", "NestedTryDepth"}, Ratio: true, Offset: 1},
	{Type: models.DebtParameterNumber, Keys: []string{"ParameterNumberCheck", "ParameterNumber"}, Ratio: true},
	{Type: models.DebtMissingSwitchDefault, Keys: []string{"MissingSwitchDefaultCheck", "MissingSwitchDefault"}},
	{Type: models.DebtIllegalCatch, Keys: []string{"IllegalCatchCheck", "IllegalCatch"}},
	{Type: models.DebtIllegalThrows, Keys: []string{"IllegalThrowsCheck", "IllegalThrows"}},
	{Type: models.DebtInterfaceIsType, Keys: []string{"InterfaceIsTypeCheck", "InterfaceIsType"}},
	{Type: models.DebtHiddenField, Keys: []string{"HiddenFieldCheck", "HiddenField"}},
	{Type: models.DebtInnerAssignment, Keys: []string{"InnerAssignmentCheck", "InnerAssignment"}},
	{Type: models.DebtMagicNumber, Keys: []string{"MagicNumberCheck", "MagicNumber"}},
	{Type: models.DebtDuplication, Keys: []string{"DuplicatedBlocks", "duplicated_blocks"}},
}

// DefaultTable returns a copy of the built-in policy table.
func DefaultTable() []DefaultRuleSpec {
	result := make([]DefaultRuleSpec, len(defaultTable))
	copy(result, defaultTable)
	return result
}

// DefaultRules builds rules for the built-in table at priority 0.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(defaultTable))
	for _, spec := range defaultTable {
		var calc CostCalculator = ConstantCost(1)
		if spec.Ratio {
			calc = NewRatioCost().WithOffset(spec.Offset)
		}
		rules = append(rules, Rule{
			Type:       spec.Type,
			Match:      RuleKeys(spec.Keys...),
			Calculator: calc,
			Keys:       spec.Keys,
		})
	}
	return rules
}

// DefaultPolicy returns a policy over the built-in table.
func DefaultPolicy() *RulePolicy {
	p, err := NewRulePolicy(DefaultRules()...)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return p
}
