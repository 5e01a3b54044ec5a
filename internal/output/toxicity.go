package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/toxicity/pkg/models"
)

// ToxicityReport renders one snapshot: a summary, the most toxic sources and
// the cost per debt type.
type ToxicityReport struct {
	Title    string
	Modules  []string
	Snapshot *models.Toxicity
	// Top limits the ranked sources; 0 shows all.
	Top int
}

// ToxicityData is the serialized form of a ToxicityReport.
type ToxicityData struct {
	Modules []string        `json:"modules,omitempty" toon:"modules,omitempty"`
	Summary models.Summary  `json:"summary" toon:"summary"`
	Sources []models.Source `json:"sources" toon:"sources"`
}

// Ranked returns the sources to show, most toxic first.
func (r *ToxicityReport) Ranked() []models.Source {
	ranked := r.Snapshot.Ranked()
	if r.Top > 0 && len(ranked) > r.Top {
		ranked = ranked[:r.Top]
	}
	return ranked
}

func (r *ToxicityReport) RenderData() any {
	return ToxicityData{
		Modules: r.Modules,
		Summary: r.Snapshot.Summary,
		Sources: r.Ranked(),
	}
}

func (r *ToxicityReport) RenderText(w io.Writer, colored bool) error {
	writeTitle(w, r.title(), colored, "=", color.FgCyan)

	sum := r.Snapshot.Summary
	fmt.Fprintf(w, "Sources: %d  Issues: %d  Total: %s  Mean: %s  StdDev: %s  P90: %s  Max: %s\n\n",
		sum.Sources, sum.Issues, fmtCost(sum.Total), fmtCost(sum.Mean), fmtCost(sum.StdDev),
		fmtCost(sum.P90), fmtCost(sum.Max))

	if len(r.Snapshot.Sources) == 0 {
		fmt.Fprintln(w, "No toxic sources found.")
		return nil
	}

	rows := r.sourceRows()
	if colored {
		for i, s := range r.Ranked() {
			rows[i][2] = LevelColor(LevelFor(s.Total, sum.Mean, sum.P90), rows[i][2])
		}
	}
	if err := NewTable(r.sourcesTitle(), sourceHeaders, rows, nil, nil).RenderText(w, colored); err != nil {
		return err
	}
	return NewTable("Debt by Type", typeHeaders, r.typeRows(), nil, nil).RenderText(w, colored)
}

func (r *ToxicityReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# %s\n\n", r.title())

	sum := r.Snapshot.Summary
	fmt.Fprintf(w, "**Sources:** %d | **Issues:** %d | **Total:** %s | **Mean:** %s | **P90:** %s | **Max:** %s\n\n",
		sum.Sources, sum.Issues, fmtCost(sum.Total), fmtCost(sum.Mean), fmtCost(sum.P90), fmtCost(sum.Max))

	if len(r.Snapshot.Sources) == 0 {
		fmt.Fprintln(w, "No toxic sources found.")
		return nil
	}
	if err := NewTable(r.sourcesTitle(), sourceHeaders, r.sourceRows(), nil, nil).RenderMarkdown(w); err != nil {
		return err
	}
	return NewTable("Debt by Type", typeHeaders, r.typeRows(), nil, nil).RenderMarkdown(w)
}

var (
	sourceHeaders = []string{"Rank", "Source", "Total", "Issues", "Lines", "Top Debt"}
	typeHeaders   = []string{"Debt Type", "Cost", "Share"}
)

func (r *ToxicityReport) title() string {
	if r.Title != "" {
		return r.Title
	}
	if len(r.Modules) == 1 {
		return "Toxicity: " + r.Modules[0]
	}
	return "Toxicity"
}

func (r *ToxicityReport) sourcesTitle() string {
	if r.Top > 0 && len(r.Snapshot.Sources) > r.Top {
		return fmt.Sprintf("Top %d of %d Sources", r.Top, len(r.Snapshot.Sources))
	}
	return "Sources"
}

func (r *ToxicityReport) sourceRows() [][]string {
	ranked := r.Ranked()
	rows := make([][]string, len(ranked))
	for i, s := range ranked {
		issues := 0
		var top models.Debt
		for _, d := range s.Debts {
			issues += d.Count
			if d.Cost > top.Cost {
				top = d
			}
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			s.Name,
			fmtCost(s.Total),
			strconv.Itoa(issues),
			strconv.FormatUint(s.AffectedLines, 10),
			string(top.Type),
		}
	}
	return rows
}

func (r *ToxicityReport) typeRows() [][]string {
	total := r.Snapshot.Summary.Total
	byType := r.Snapshot.Summary.ByType
	rows := make([][]string, 0, len(byType))
	for _, t := range r.Snapshot.Types() {
		share := 0.0
		if total > 0 {
			share = byType[t] / total * 100
		}
		rows = append(rows, []string{string(t), fmtCost(byType[t]), fmt.Sprintf("%.1f%%", share)})
	}
	return rows
}

// ModulesReport renders the snapshots of a separate run, one per module.
type ModulesReport struct {
	Reports []*ToxicityReport
}

// ModuleData is the serialized form of one module in a ModulesReport.
type ModuleData struct {
	Module  string          `json:"module" toon:"module"`
	Summary models.Summary  `json:"summary" toon:"summary"`
	Sources []models.Source `json:"sources" toon:"sources"`
}

func (m *ModulesReport) RenderData() any {
	data := make([]ModuleData, len(m.Reports))
	for i, r := range m.Reports {
		data[i] = ModuleData{Module: r.module(), Summary: r.Snapshot.Summary, Sources: r.Ranked()}
	}
	return data
}

func (m *ModulesReport) RenderText(w io.Writer, colored bool) error {
	if err := m.overview().RenderText(w, colored); err != nil {
		return err
	}
	for _, r := range m.Reports {
		if err := r.RenderText(w, colored); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (m *ModulesReport) RenderMarkdown(w io.Writer) error {
	if err := m.overview().RenderMarkdown(w); err != nil {
		return err
	}
	for _, r := range m.Reports {
		if err := r.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *ModulesReport) overview() *Table {
	rows := make([][]string, len(m.Reports))
	for i, r := range m.Reports {
		sum := r.Snapshot.Summary
		rows[i] = []string{r.module(), strconv.Itoa(sum.Sources), strconv.Itoa(sum.Issues), fmtCost(sum.Total), fmtCost(sum.Max)}
	}
	return NewTable("Modules", []string{"Module", "Sources", "Issues", "Total", "Max"}, rows, nil, nil)
}

func (r *ToxicityReport) module() string {
	return strings.Join(r.Modules, ",")
}

func fmtCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
