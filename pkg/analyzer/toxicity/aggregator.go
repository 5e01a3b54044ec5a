// Package toxicity classifies code-quality issues into weighted debt,
// accumulates that debt per source file and reports a project-wide
// toxicity snapshot.
package toxicity

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/toxicity/pkg/models"
)

// DefaultShards is the number of independently locked partitions of the
// source map.
const DefaultShards = 32

// Aggregator accumulates debt for one analysis run. It is safe for concurrent
// use: Ingest calls for different sources proceed in parallel, calls for the
// same source are serialized, and Reset and Snapshot see a consistent state.
//
// An Aggregator is owned by whoever orchestrates the run and must be Reset
// before it is reused for an independent run.
type Aggregator struct {
	policy Policy
	logger *slog.Logger
	shards []*shard
}

type shard struct {
	mu      sync.RWMutex
	sources map[string]*ledger
}

// ledger is the mutable state behind a models.Source.
type ledger struct {
	debts map[models.DebtType]*models.Debt
	lines *roaring.Bitmap
}

// Option is a functional option for configuring Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for match traces.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithShards sets the number of map partitions (minimum 1).
func WithShards(n int) Option {
	return func(a *Aggregator) {
		if n < 1 {
			n = 1
		}
		a.shards = newShards(n)
	}
}

// NewAggregator creates an empty aggregator classifying with policy.
// A nil policy classifies with DefaultPolicy.
func NewAggregator(policy Policy, opts ...Option) *Aggregator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	a := &Aggregator{
		policy: policy,
		logger: slog.Default().With(slog.String("component", "toxicity")),
		shards: newShards(DefaultShards),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{sources: make(map[string]*ledger)}
	}
	return shards
}

func (a *Aggregator) shardFor(key string) *shard {
	return a.shards[xxhash.Sum64String(key)%uint64(len(a.shards))]
}

// Ingest classifies issue and, when it matches, adds its cost to the debt of
// the matched type on the issue's source. The component key is used verbatim;
// an empty key is a valid source name. It reports whether the issue matched.
func (a *Aggregator) Ingest(issue models.Issue) bool {
	match, ok := a.policy.Classify(issue)
	if !ok {
		return false
	}
	cost := match.Calculator.Cost(issue)
	name := issue.ComponentKey()
	line := issue.Line()

	s := a.shardFor(name)
	s.mu.Lock()
	l, ok := s.sources[name]
	if !ok {
		l = &ledger{
			debts: make(map[models.DebtType]*models.Debt),
			lines: roaring.New(),
		}
		s.sources[name] = l
	}
	d, ok := l.debts[match.Type]
	if !ok {
		d = &models.Debt{Type: match.Type}
		l.debts[match.Type] = d
	}
	d.AddCost(cost)
	if line > 0 {
		l.lines.Add(uint32(line))
	}
	s.mu.Unlock()

	a.logger.Debug("match found",
		slog.String("debt_type", string(match.Type)),
		slog.String("source", name),
		slog.Float64("cost", cost),
	)
	return true
}

// IngestAll ingests every issue and returns how many matched.
func (a *Aggregator) IngestAll(issues []models.Issue) int {
	matched := 0
	for _, issue := range issues {
		if a.Ingest(issue) {
			matched++
		}
	}
	return matched
}

// Snapshot returns an immutable view of the current sources. Later Ingest or
// Reset calls do not affect a snapshot already taken.
func (a *Aggregator) Snapshot() *models.Toxicity {
	a.lockAll(true)
	var sources []models.Source
	for _, s := range a.shards {
		for name, l := range s.sources {
			sources = append(sources, l.source(name))
		}
	}
	a.unlockAll(true)

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	if sources == nil {
		sources = []models.Source{}
	}
	t := &models.Toxicity{Sources: sources}
	t.Summary = Summarize(t)
	return t
}

// Reset discards every tracked source. It waits for in-flight Ingest and
// Snapshot calls and excludes new ones until the map is cleared.
func (a *Aggregator) Reset() {
	a.lockAll(false)
	for _, s := range a.shards {
		s.sources = make(map[string]*ledger)
	}
	a.unlockAll(false)
}

// Len returns the number of tracked sources.
func (a *Aggregator) Len() int {
	a.lockAll(true)
	defer a.unlockAll(true)
	n := 0
	for _, s := range a.shards {
		n += len(s.sources)
	}
	return n
}

// lockAll acquires every shard in index order. Ingest holds at most one
// shard at a time, so the fixed order cannot deadlock.
func (a *Aggregator) lockAll(read bool) {
	for _, s := range a.shards {
		if read {
			s.mu.RLock()
		} else {
			s.mu.Lock()
		}
	}
}

func (a *Aggregator) unlockAll(read bool) {
	for i := len(a.shards) - 1; i >= 0; i-- {
		if read {
			a.shards[i].mu.RUnlock()
		} else {
			a.shards[i].mu.Unlock()
		}
	}
}

// source copies the ledger into an immutable models.Source.
func (l *ledger) source(name string) models.Source {
	debts := make([]models.Debt, 0, len(l.debts))
	for _, d := range l.debts {
		debts = append(debts, *d)
	}
	return models.NewSource(name, debts, l.lines.GetCardinality())
}
