// Package planhook implements the optimizer-coupled planning hook (spec
// §4.E): a post-order visitor over a logical plan that overwrites each
// operator's estimated cardinality with the RL model's prediction. This is
// the one piece of the pipeline a deployment can leave unwired to run in
// observe-only mode (spec §5) — everything upstream of it (collection,
// extraction, prediction) and downstream of it (physical attachment,
// tracking, post-query training) runs regardless.
//
// Grounded on the original source's RLCardinalityOptimizer::VisitOperator /
// ApplyToOperator: visit children, then this node; preserve whichever
// cardinality the engine had before the very first overwrite, so repeated
// optimizer passes over the same tree never forget the engine's own
// baseline estimate.
package planhook

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ao2395/XGDuckDB/pkg/rl/collector"
	"github.com/ao2395/XGDuckDB/pkg/rl/features"
	"github.com/ao2395/XGDuckDB/pkg/rl/logging"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

// MaxPredictionsPerQuery bounds the planning cache's size for a single
// query: once a query's cache holds this many signatures, further
// cache-miss operators fall back to their baseline rather than growing the
// cache without limit (spec §4.E: "per-thread planning cache (bounded to
// 300 entries per query; beyond cap, fall back to baseline)").
const MaxPredictionsPerQuery = 300

// MaxTrackedQueries bounds the hook's per-query cache map the same way the
// feature collector bounds its own maps: a hard cap followed by a wholesale
// clear, since StartQuery/EndQuery should keep this map small in practice
// and the cap exists only as a leak guard.
const MaxTrackedQueries = 500

// Hook applies RL cardinality predictions to a logical plan during query
// optimization.
type Hook struct {
	collector *collector.FeatureCollector

	mu     sync.Mutex
	caches map[uuid.UUID]map[string]float64
}

// New constructs a planning hook bound to the given feature collector.
func New(c *collector.FeatureCollector) *Hook {
	return &Hook{collector: c, caches: make(map[uuid.UUID]map[string]float64)}
}

// StartQuery resets the planning cache for a query, to be called once per
// query before the first Apply.
func (h *Hook) StartQuery(queryID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.caches) >= MaxTrackedQueries {
		h.caches = make(map[uuid.UUID]map[string]float64)
	}
	h.caches[queryID] = make(map[string]float64)
}

// EndQuery drops the planning cache for a query once it has finished
// planning, keeping the map's steady-state size proportional to the number
// of queries currently in flight rather than the number ever seen.
func (h *Hook) EndQuery(queryID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.caches, queryID)
}

// Apply walks root in post-order, overwriting each visited operator's
// estimated cardinality with an RL prediction (spec §4.E).
func (h *Hook) Apply(queryID uuid.UUID, root planop.LogicalOperator) {
	if root == nil {
		return
	}
	h.visit(queryID, root)
}

func (h *Hook) visit(queryID uuid.UUID, op planop.LogicalOperator) {
	for _, child := range op.Children() {
		h.visit(queryID, child)
	}
	h.applyToOperator(queryID, op)
}

func (h *Hook) applyToOperator(queryID uuid.UUID, op planop.LogicalOperator) {
	if !op.HasBaseline() {
		op.SetBaseline(op.EstimatedCardinality())
	}

	sig := signatureOf(op)

	h.mu.Lock()
	cache := h.caches[queryID]
	if cache == nil {
		cache = make(map[string]float64)
		h.caches[queryID] = cache
	}
	cached, hit := cache[sig]
	full := !hit && len(cache) >= MaxPredictionsPerQuery
	h.mu.Unlock()

	var prediction float64
	switch {
	case hit:
		prediction = cached
	case full:
		// Cache exhausted for this query: fall back to baseline rather
		// than growing the cache or re-extracting features for a
		// signature we will never remember anyway.
		return
	default:
		f := features.Extract(op, h.collector)
		vector := features.ToSlice(f)
		pred, ok := h.collector.PredictCardinality(op, vector)
		if !ok {
			return
		}
		prediction = pred

		h.mu.Lock()
		if cache := h.caches[queryID]; cache != nil {
			cache[sig] = prediction
		}
		h.mu.Unlock()
	}

	// A prediction of 0 means "unavailable" (model not yet past one tree,
	// or a shape mismatch) — the caller keeps the engine's own estimate.
	if prediction < 1 {
		return
	}

	op.SetEstimatedCardinality(uint64(prediction))
	logging.Debugf("[RL] planning override: %s -> %d (baseline %d)\n", op.Name(), uint64(prediction), op.Baseline())
}

// signatureOf builds the planning-cache key described in spec §4.E: "a
// string containing operator kind, table or relation-set identifier,
// filter/comparison signature" — deliberately excluding literal constant
// values, which live only in the feature vector's filter-constant-summary
// slots (spec scenario B).
func signatureOf(op planop.LogicalOperator) string {
	switch node := op.(type) {
	case *planop.LogicalGet:
		comparisons := make([]string, len(node.Filters))
		for i, f := range node.Filters {
			comparisons[i] = fmt.Sprintf("%d", f.Comparison)
		}
		return fmt.Sprintf("GET:%s:%s", node.TableName, strings.Join(comparisons, ","))
	case *planop.LogicalComparisonJoin:
		comparisons := make([]string, len(node.Conditions))
		for i, c := range node.Conditions {
			comparisons[i] = fmt.Sprintf("%d:%t", c.Comparison, c.Equality)
		}
		return fmt.Sprintf("JOIN:%s:%d:%s", node.RelationSet, node.JoinType, strings.Join(comparisons, ","))
	case *planop.LogicalFilter:
		return fmt.Sprintf("FILTER:%s:%v", strings.Join(node.ExpressionKinds, ","), node.Comparisons)
	case *planop.LogicalAggregate:
		return fmt.Sprintf("AGG:%d:%d:%d", node.GroupByColumns, node.AggregateFunctions, node.GroupingSets)
	default:
		return fmt.Sprintf("%s:%s", op.Kind(), op.Name())
	}
}
