package report

import (
	"sort"
	"time"

	"github.com/panbanda/toxicity/internal/output"
	"github.com/panbanda/toxicity/pkg/models"
)

// Metadata contains report generation metadata.
type Metadata struct {
	Paths       []string  `json:"paths"`
	Ref         string    `json:"ref,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
}

// Module is one snapshot to render, named after its report or, for a
// combined run, after all of them.
type Module struct {
	Name     string
	Snapshot *models.Toxicity
}

// SourceRow is one ranked source in a module section.
type SourceRow struct {
	Rank    int
	Name    string
	Total   float64
	Issues  int
	Lines   uint64
	TopDebt models.DebtType
	Level   output.Level
}

// TypeRow is the cost of one debt type in a module section.
type TypeRow struct {
	Type  models.DebtType
	Cost  float64
	Count int
	Share float64 // percent of the module total
}

// Section is the rendered view of one module.
type Section struct {
	Module  string
	Summary models.Summary
	Sources []SourceRow
	Types   []TypeRow
	// Hidden counts the sources cut by the top limit.
	Hidden int
}

// RenderData contains all data needed to render the report.
type RenderData struct {
	Metadata Metadata
	Sections []Section
	Total    float64
	Issues   int
}

// NewRenderData ranks each module's sources and totals its debt types. top
// limits the sources per module; 0 shows all.
func NewRenderData(meta Metadata, modules []Module, top int) *RenderData {
	data := &RenderData{Metadata: meta}
	for _, m := range modules {
		s := newSection(m, top)
		data.Total += s.Summary.Total
		data.Issues += s.Summary.Issues
		data.Sections = append(data.Sections, s)
	}
	return data
}

func newSection(m Module, top int) Section {
	sum := m.Snapshot.Summary
	section := Section{Module: m.Name, Summary: sum}

	ranked := m.Snapshot.Ranked()
	if top > 0 && len(ranked) > top {
		section.Hidden = len(ranked) - top
		ranked = ranked[:top]
	}

	counts := make(map[models.DebtType]int)
	for _, src := range m.Snapshot.Sources {
		for _, d := range src.Debts {
			counts[d.Type] += d.Count
		}
	}

	for i, src := range ranked {
		row := SourceRow{
			Rank:  i + 1,
			Name:  src.Name,
			Total: src.Total,
			Lines: src.AffectedLines,
			Level: output.LevelFor(src.Total, sum.Mean, sum.P90),
		}
		var topCost float64
		for _, d := range src.Debts {
			row.Issues += d.Count
			if d.Cost > topCost {
				topCost = d.Cost
				row.TopDebt = d.Type
			}
		}
		section.Sources = append(section.Sources, row)
	}

	for _, t := range m.Snapshot.Types() {
		row := TypeRow{Type: t, Cost: sum.ByType[t], Count: counts[t]}
		if sum.Total > 0 {
			row.Share = row.Cost / sum.Total * 100
		}
		section.Types = append(section.Types, row)
	}
	sort.SliceStable(section.Types, func(i, j int) bool {
		return section.Types[i].Cost > section.Types[j].Cost
	})
	return section
}
