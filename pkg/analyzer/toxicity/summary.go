package toxicity

import (
	"sort"

	"github.com/panbanda/toxicity/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// Summarize computes aggregate statistics over the per-source totals.
// Returns zero statistics for an empty snapshot.
func Summarize(t *models.Toxicity) models.Summary {
	summary := models.Summary{
		Sources: len(t.Sources),
		ByType:  t.ByType(),
	}
	if len(t.Sources) == 0 {
		return summary
	}

	totals := make([]float64, len(t.Sources))
	for i, s := range t.Sources {
		totals[i] = s.Total
		summary.Total += s.Total
		for _, d := range s.Debts {
			summary.Issues += d.Count
		}
	}
	sort.Float64s(totals)

	summary.Mean = stat.Mean(totals, nil)
	if len(totals) > 1 {
		summary.StdDev = stat.StdDev(totals, nil)
	}
	summary.P90 = stat.Quantile(0.9, stat.Empirical, totals, nil)
	summary.Max = totals[len(totals)-1]
	return summary
}
