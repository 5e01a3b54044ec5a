package models

// Issue is a single finding reported by a static-analysis tool against a file.
// Implementations must be safe to read from several goroutines.
type Issue interface {
	// ComponentKey identifies the file or module the issue belongs to.
	ComponentKey() string
	// RuleKey identifies the rule that raised the issue, e.g.
	// "checkstyle:com.puppycrawl.tools.checkstyle.checks.sizes.MethodLengthCheck".
	RuleKey() string
	Severity() string
	Message() string
	// Line is the 1-based line of the issue, or 0 when unknown.
	Line() int
}

// Finding is the concrete Issue decoded from issue reports.
type Finding struct {
	Component string `json:"component" yaml:"component" toon:"component"`
	Rule      string `json:"rule" yaml:"rule" toon:"rule"`
	Level     string `json:"severity,omitempty" yaml:"severity,omitempty" toon:"severity,omitempty"`
	Text      string `json:"message,omitempty" yaml:"message,omitempty" toon:"message,omitempty"`
	Row       int    `json:"line,omitempty" yaml:"line,omitempty" toon:"line,omitempty"`
}

// Compile-time check that Finding implements Issue.
var _ Issue = Finding{}

func (f Finding) ComponentKey() string { return f.Component }
func (f Finding) RuleKey() string      { return f.Rule }
func (f Finding) Severity() string     { return f.Level }
func (f Finding) Message() string      { return f.Text }
func (f Finding) Line() int            { return f.Row }
