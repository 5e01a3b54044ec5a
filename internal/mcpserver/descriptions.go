package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeToxicity() string {
	return `Computes per-source technical debt ("toxicity") from static-analysis issue reports (Checkstyle-style findings in JSON or YAML).

USE WHEN:
- Ranking classes or files by accumulated design debt
- Comparing debt between modules of a multi-module build
- Checking whether a change made a module more or less toxic (use ref)
- Choosing refactoring targets backed by analyzer evidence

INTERPRETING RESULTS:
- Each source's total is the sum of its debt costs
- Threshold checks cost value/max: a method of 60 lines against a limit of 30 costs 2.0
- Boolean checks (magic number, missing switch default) cost 1.0 per violation
- Sources above the P90 total are the most toxic tenth of the codebase
- Issues whose rule is not in the policy are ignored, not priced
- separate=true yields one independent snapshot per report; otherwise all reports share one

METRICS RETURNED:
- Summary: sources, issues, total, mean, stddev, p90, max
- Per-source: name, debts by type (cost, count), affected lines
- Modules: report names included in the run`
}

func describeRules() string {
	return `Lists the debt classification rules in effect: which analyzer rule keys map to which debt type and how each is priced.

USE WHEN:
- Explaining why an issue was or was not counted as debt
- Checking the configured policy before running analyze_toxicity
- Auditing custom rules from the toxicity config file

INTERPRETING RESULTS:
- Rules are tried in order; the first match wins
- Higher priority rules come first; equal priorities keep declaration order
- Rule keys match exactly or as the last segment after ':', '.' or '/'

METRICS RETURNED:
- Per-rule: debt type, priority, rule keys`
}
