package models

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/blake3"
)

// Toxicity is an immutable snapshot of all sources tracked during a run.
// Sources are ordered by name.
type Toxicity struct {
	Sources []Source `json:"sources" toon:"sources"`
	Summary Summary  `json:"summary" toon:"summary"`
}

// Summary provides aggregate statistics over the per-source totals.
type Summary struct {
	Sources int                  `json:"sources" toon:"sources"`
	Issues  int                  `json:"issues" toon:"issues"`
	Total   float64              `json:"total" toon:"total"`
	Mean    float64              `json:"mean" toon:"mean"`
	StdDev  float64              `json:"std_dev" toon:"std_dev"`
	P90     float64              `json:"p90" toon:"p90"`
	Max     float64              `json:"max" toon:"max"`
	ByType  map[DebtType]float64 `json:"by_type" toon:"by_type"`
}

// Total returns the summed cost of every debt in the snapshot.
func (t *Toxicity) Total() float64 {
	var total float64
	for _, s := range t.Sources {
		total += s.Total
	}
	return total
}

// Source returns the source with the given name.
func (t *Toxicity) Source(name string) (Source, bool) {
	i := sort.Search(len(t.Sources), func(i int) bool {
		return t.Sources[i].Name >= name
	})
	if i < len(t.Sources) && t.Sources[i].Name == name {
		return t.Sources[i], true
	}
	return Source{}, false
}

// Ranked returns the sources ordered from most to least toxic.
// Ties are broken by name so the order is stable across runs.
func (t *Toxicity) Ranked() []Source {
	ranked := make([]Source, len(t.Sources))
	copy(ranked, t.Sources)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// ByType sums the cost of every debt type across all sources.
func (t *Toxicity) ByType() map[DebtType]float64 {
	result := make(map[DebtType]float64)
	for _, s := range t.Sources {
		for _, d := range s.Debts {
			result[d.Type] += d.Cost
		}
	}
	return result
}

// Types returns the debt types present in the snapshot, sorted.
func (t *Toxicity) Types() []DebtType {
	byType := t.ByType()
	types := make([]DebtType, 0, len(byType))
	for dt := range byType {
		types = append(types, dt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Fingerprint returns a BLAKE3 digest of the snapshot's sources.
// Equal snapshots have equal fingerprints.
func (t *Toxicity) Fingerprint() string {
	// Sources and their debts are already in canonical order.
	data, err := json.Marshal(t.Sources)
	if err != nil {
		return ""
	}
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
