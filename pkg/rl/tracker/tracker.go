// Package tracker implements the execution tracker (spec §4.G): as a
// physical plan executes, it forwards the rows each comparison-join
// operator emits into that operator's attached OperatorRLState, through a
// small per-goroutine cache that avoids taking a lock on every single
// execution chunk.
//
// Grounded on the original source's RLFeatureTracker / thread-local
// RLThreadCache: a capped linear-scan cache gated by a (tracker ID,
// generation) pair, where bumping the generation lazily invalidates every
// outstanding cache without the tracker needing to enumerate or hold a
// reference to them. Go has no thread-local storage, so the adaptation
// here is explicit: each goroutine that drives part of a physical plan's
// execution owns one *ThreadCache, obtained once via NewThreadCache and
// threaded through that goroutine's StartOperator/EndOperator calls.
package tracker

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ao2395/XGDuckDB/pkg/rl/logging"
	"github.com/ao2395/XGDuckDB/pkg/rl/physical"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
	"github.com/ao2395/XGDuckDB/pkg/rl/sample"
)

// ThreadCacheCapacity bounds each ThreadCache's entry list (spec §4.G).
const ThreadCacheCapacity = 64

// MaxTrackedOperators bounds the tracker's own first-touch registry the
// same way the feature collector bounds its maps (spec §4.C's policy,
// reused here since both scope to one query's worth of operators).
const MaxTrackedOperators = 500

// registeredOperator is what StartOperator's first touch records for an
// operator, independent of (and in addition to) the RL state physical.go
// attaches to it.
type registeredOperator struct {
	op       planop.PhysicalOperator
	name     string
	baseline uint64
}

type cacheEntry struct {
	op   planop.PhysicalOperator
	rows uint64
}

// ThreadCache is the per-goroutine cache a caller threads through a
// sequence of StartOperator/EndOperator calls for the operators it drives.
type ThreadCache struct {
	generation uint64
	entries    []cacheEntry
}

func (c *ThreadCache) find(op planop.PhysicalOperator) int {
	for i := range c.entries {
		if c.entries[i].op == op {
			return i
		}
	}
	return -1
}

// ExecutionTracker coordinates per-goroutine ThreadCaches for one query
// execution, plus the tracker's own first-touch registry of every operator
// seen this query (spec §4.G).
type ExecutionTracker struct {
	id         uuid.UUID
	generation atomic.Uint64

	mu  sync.Mutex
	ops map[planop.PhysicalOperator]*registeredOperator
}

// New constructs a tracker with a fresh identity.
func New() *ExecutionTracker {
	return &ExecutionTracker{id: uuid.New(), ops: make(map[planop.PhysicalOperator]*registeredOperator)}
}

// ID returns the tracker's identity, stable for its whole lifetime.
func (t *ExecutionTracker) ID() uuid.UUID { return t.id }

// NewThreadCache allocates a cache stamped with the tracker's current
// generation. Call once per goroutine that will drive operator execution.
func (t *ExecutionTracker) NewThreadCache() *ThreadCache {
	return &ThreadCache{generation: t.generation.Load()}
}

func (t *ExecutionTracker) refreshIfStale(cache *ThreadCache) {
	gen := t.generation.Load()
	if cache.generation != gen {
		cache.entries = cache.entries[:0]
		cache.generation = gen
	}
}

// StartOperator registers op in cache ahead of the first chunk it will
// process, a no-op once the cache is at capacity (operators beyond the cap
// still work correctly, they just forward every chunk straight through in
// EndOperator without a local running total). On a cache miss it also
// takes the global mutex to first-touch-register op in the tracker's own
// registry, which Finalize later walks.
func (t *ExecutionTracker) StartOperator(cache *ThreadCache, op planop.PhysicalOperator) {
	t.refreshIfStale(cache)
	if t.find(cache, op) != -1 {
		return
	}
	if len(cache.entries) < ThreadCacheCapacity {
		cache.entries = append(cache.entries, cacheEntry{op: op})
	}
	t.registerFirstTouch(op)
}

func (t *ExecutionTracker) registerFirstTouch(op planop.PhysicalOperator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ops[op]; ok {
		return
	}
	if len(t.ops) >= MaxTrackedOperators {
		t.ops = make(map[planop.PhysicalOperator]*registeredOperator)
	}
	var baseline uint64
	if state, ok := physical.StateOf(op); ok {
		baseline = state.Baseline
	}
	t.ops[op] = &registeredOperator{op: op, name: op.Name(), baseline: baseline}
}

func (t *ExecutionTracker) find(cache *ThreadCache, op planop.PhysicalOperator) int {
	return cache.find(op)
}

// EndOperator records that op emitted rowsThisChunk more rows, updating
// both the local thread cache's running total (if op was tracked in it)
// and the operator's global OperatorRLState. Operators with no attached RL
// state (not in the comparison-join family, spec §4.F) are silently
// skipped.
func (t *ExecutionTracker) EndOperator(cache *ThreadCache, op planop.PhysicalOperator, rowsThisChunk uint64) {
	t.refreshIfStale(cache)
	if idx := t.find(cache, op); idx != -1 {
		cache.entries[idx].rows += rowsThisChunk
	}
	if state, ok := physical.StateOf(op); ok {
		state.RecordRowsEmitted(rowsThisChunk)
	}
}

// Finalize reports the realized Q-error of every operator this tracker has
// seen, once a query has finished executing (spec §4.G). A no-op unless
// debug logging is enabled, since walking the registry is pure overhead
// when nothing will read the output.
func (t *ExecutionTracker) Finalize() {
	if !logging.IsDebugEnabled() {
		return
	}
	t.mu.Lock()
	entries := make([]*registeredOperator, 0, len(t.ops))
	for _, r := range t.ops {
		entries = append(entries, r)
	}
	t.mu.Unlock()

	for _, r := range entries {
		state, ok := physical.StateOf(r.op)
		if !ok || !state.HasPrediction {
			continue
		}
		actual := float64(state.RowsEmitted())
		qerr := sample.QError(state.Prediction, actual)
		logging.Debugf("[RL TRACKER] %s: predicted=%.1f actual=%.0f baseline=%d q-error=%.4f\n",
			r.name, state.Prediction, actual, r.baseline, qerr)
	}
}

// Reset lazily invalidates every outstanding ThreadCache by bumping the
// tracker's generation counter, to be called once a query's execution has
// fully finished (spec §4.G), instead of enumerating and clearing caches
// the tracker holds no reference to. It also drops the tracker's own
// first-touch registry, matching the spec's "Reset(): ... drops the map."
func (t *ExecutionTracker) Reset() {
	t.generation.Add(1)
	t.mu.Lock()
	t.ops = make(map[planop.PhysicalOperator]*registeredOperator)
	t.mu.Unlock()
}
