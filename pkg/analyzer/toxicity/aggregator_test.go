package toxicity

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/panbanda/toxicity/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	complexity  models.DebtType = "COMPLEXITY"
	duplication models.DebtType = "DUPLICATION"
)

// costFromLine prices an issue by its line number so tests can pick costs.
var costFromLine = CostFunc(func(issue models.Issue) float64 {
	return float64(issue.Line())
})

func testPolicy(t *testing.T) *RulePolicy {
	t.Helper()
	p, err := NewRulePolicy(
		Rule{Type: complexity, Match: RuleKeys("complexity"), Calculator: costFromLine},
		Rule{Type: duplication, Match: RuleKeys("duplication"), Calculator: costFromLine},
	)
	require.NoError(t, err)
	return p
}

func newTestAggregator(t *testing.T, opts ...Option) *Aggregator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(testPolicy(t), append([]Option{WithLogger(logger)}, opts...)...)
}

func issue(key, rule string, cost int) models.Finding {
	return models.Finding{Component: key, Rule: rule, Row: cost}
}

func TestAggregatorScenario(t *testing.T) {
	agg := newTestAggregator(t)

	agg.Ingest(issue("FileA.java", "complexity", 2))
	agg.Ingest(issue("FileA.java", "complexity", 3))
	agg.Ingest(issue("FileA.java", "duplication", 1))
	agg.Ingest(issue("FileB.java", "complexity", 5))

	snap := agg.Snapshot()
	require.Len(t, snap.Sources, 2)

	a, ok := snap.Source("FileA.java")
	require.True(t, ok)
	assert.Equal(t, 5.0, a.Cost(complexity))
	assert.Equal(t, 1.0, a.Cost(duplication))
	assert.Len(t, a.Debts, 2)

	b, ok := snap.Source("FileB.java")
	require.True(t, ok)
	assert.Equal(t, 5.0, b.Cost(complexity))
	assert.Len(t, b.Debts, 1)

	assert.Equal(t, 11.0, snap.Total())
	assert.Equal(t, 4, snap.Summary.Issues)
}

func TestAggregatorAccumulationIsOrderIndependent(t *testing.T) {
	costs := []int{4, 1, 7, 2, 9}
	orders := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
	}

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			agg := newTestAggregator(t)
			for _, i := range order {
				agg.Ingest(issue("Main.java", "complexity", costs[i]))
			}
			src, ok := agg.Snapshot().Source("Main.java")
			require.True(t, ok)
			d, ok := src.Debt(complexity)
			require.True(t, ok)
			assert.Equal(t, 23.0, d.Cost)
			assert.Equal(t, 5, d.Count)
		})
	}
}

func TestAggregatorIsolatesSources(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 1))
	agg.Ingest(issue("A", "duplication", 2))
	agg.Ingest(issue("B", "complexity", 4))

	snap := agg.Snapshot()
	require.Len(t, snap.Sources, 2)

	a, _ := snap.Source("A")
	b, _ := snap.Source("B")
	assert.Equal(t, 3.0, a.Total)
	assert.Equal(t, 4.0, b.Total)
	_, ok := b.Debt(duplication)
	assert.False(t, ok, "B must not see A's duplication debt")
}

func TestAggregatorNoMatchIsNoop(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 1))
	before := agg.Snapshot()

	matched := agg.Ingest(issue("A", "unknown-rule", 100))
	assert.False(t, matched)
	matched = agg.Ingest(issue("C", "unknown-rule", 100))
	assert.False(t, matched)

	after := agg.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, 1, agg.Len())
}

func TestAggregatorSnapshotIsIdempotent(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 1))
	agg.Ingest(issue("B", "duplication", 2))

	first := agg.Snapshot()
	second := agg.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestAggregatorSnapshotDoesNotTrackLaterChanges(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 1))
	snap := agg.Snapshot()

	agg.Ingest(issue("A", "complexity", 10))
	agg.Ingest(issue("B", "complexity", 10))

	require.Len(t, snap.Sources, 1)
	assert.Equal(t, 1.0, snap.Sources[0].Total)

	agg.Reset()
	assert.Len(t, snap.Sources, 1)
}

func TestAggregatorResetClearsFully(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 3))
	agg.Ingest(issue("B", "complexity", 3))

	agg.Reset()
	snap := agg.Snapshot()
	assert.Empty(t, snap.Sources)
	assert.Equal(t, 0, agg.Len())

	agg.Ingest(issue("A", "complexity", 2))
	src, ok := agg.Snapshot().Source("A")
	require.True(t, ok)
	d, _ := src.Debt(complexity)
	assert.Equal(t, 2.0, d.Cost)
	assert.Equal(t, 1, d.Count)
}

func TestAggregatorSeparatesTypes(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 2))
	agg.Ingest(issue("A", "duplication", 7))

	src, ok := agg.Snapshot().Source("A")
	require.True(t, ok)
	require.Len(t, src.Debts, 2)
	assert.Equal(t, complexity, src.Debts[0].Type)
	assert.Equal(t, 2.0, src.Debts[0].Cost)
	assert.Equal(t, duplication, src.Debts[1].Type)
	assert.Equal(t, 7.0, src.Debts[1].Cost)
}

func TestAggregatorAcceptsEmptyKey(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("", "complexity", 1))
	agg.Ingest(issue(" A ", "complexity", 1))

	snap := agg.Snapshot()
	require.Len(t, snap.Sources, 2)
	_, ok := snap.Source("")
	assert.True(t, ok)
	_, ok = snap.Source(" A ")
	assert.True(t, ok, "keys are not trimmed")
}

func TestAggregatorTracksAffectedLines(t *testing.T) {
	agg := newTestAggregator(t)
	agg.Ingest(issue("A", "complexity", 3))
	agg.Ingest(issue("A", "duplication", 3))
	agg.Ingest(issue("A", "complexity", 8))

	src, _ := agg.Snapshot().Source("A")
	assert.Equal(t, uint64(2), src.AffectedLines)
}

func TestAggregatorConcurrentIngest(t *testing.T) {
	for _, shards := range []int{1, 4, DefaultShards} {
		t.Run(fmt.Sprintf("shards=%d", shards), func(t *testing.T) {
			agg := newTestAggregator(t, WithShards(shards))

			const workers = 16
			const perWorker = 200
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						// Every worker hits the shared key plus its own key.
						agg.Ingest(issue("shared.go", "complexity", 1))
						agg.Ingest(issue(fmt.Sprintf("worker-%d.go", w), "duplication", 1))
						if i%50 == 0 {
							_ = agg.Snapshot()
						}
					}
				}(w)
			}
			wg.Wait()

			snap := agg.Snapshot()
			require.Len(t, snap.Sources, workers+1)
			shared, ok := snap.Source("shared.go")
			require.True(t, ok)
			d, _ := shared.Debt(complexity)
			assert.Equal(t, float64(workers*perWorker), d.Cost)
			assert.Equal(t, workers*perWorker, d.Count)
			for w := 0; w < workers; w++ {
				src, ok := snap.Source(fmt.Sprintf("worker-%d.go", w))
				require.True(t, ok)
				assert.Equal(t, float64(perWorker), src.Total)
			}
		})
	}
}

func TestAggregatorResetDuringIngest(t *testing.T) {
	agg := newTestAggregator(t, WithShards(4))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				agg.Ingest(issue(fmt.Sprintf("f%d.go", i%10), "complexity", 1))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			agg.Reset()
		}
	}()
	wg.Wait()

	// Whatever survived the resets must still be internally consistent.
	for _, src := range agg.Snapshot().Sources {
		d, ok := src.Debt(complexity)
		require.True(t, ok)
		assert.Equal(t, float64(d.Count), d.Cost)
	}
}

func TestNewAggregatorDefaultsPolicy(t *testing.T) {
	agg := NewAggregator(nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	matched := agg.Ingest(models.Finding{
		Component: "Foo.java",
		Rule:      "checkstyle:com.puppycrawl.tools.checkstyle.checks.sizes.MethodLengthCheck",
		Text:      "Method length is 45 lines (max allowed is 30).",
	})
	require.True(t, matched)

	src, ok := agg.Snapshot().Source("Foo.java")
	require.True(t, ok)
	assert.InDelta(t, 1.5, src.Cost(models.DebtMethodLength), 1e-9)
}

func TestIngestAll(t *testing.T) {
	agg := newTestAggregator(t)
	n := agg.IngestAll([]models.Issue{
		issue("A", "complexity", 1),
		issue("A", "nothing", 1),
		issue("B", "duplication", 1),
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, agg.Len())
}
