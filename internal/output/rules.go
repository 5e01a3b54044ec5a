package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/panbanda/toxicity/pkg/analyzer/toxicity"
)

// RuleData is the serialized form of one policy rule.
type RuleData struct {
	Type     string   `json:"type" toon:"type"`
	Priority int      `json:"priority" toon:"priority"`
	Cost     string   `json:"cost" toon:"cost"`
	Keys     []string `json:"keys" toon:"keys"`
}

// NewRulesTable renders policy rules in evaluation order.
func NewRulesTable(rules []toxicity.Rule) *Table {
	rows := make([][]string, len(rules))
	data := make([]RuleData, len(rules))
	for i, r := range rules {
		cost := describeCost(r.Calculator)
		rows[i] = []string{strconv.Itoa(i + 1), string(r.Type), strconv.Itoa(r.Priority), cost, strings.Join(r.Keys, ", ")}
		data[i] = RuleData{Type: string(r.Type), Priority: r.Priority, Cost: cost, Keys: r.Keys}
	}
	return NewTable("Debt Rules", []string{"#", "Type", "Priority", "Cost", "Rule Keys"}, rows, nil, data)
}

func describeCost(c toxicity.CostCalculator) string {
	switch calc := c.(type) {
	case toxicity.ConstantCost:
		return "constant " + fmtCost(float64(calc))
	case toxicity.RatioCost:
		if calc.Offset != 0 {
			return fmt.Sprintf("ratio (offset %g)", calc.Offset)
		}
		return "ratio"
	case toxicity.SeverityCost:
		return "severity"
	default:
		return "custom"
	}
}
