// Package collector implements the feature collector (spec §4.C): a
// process-wide singleton that accumulates per-operator statistics gathered
// during query optimization (HLL distinct counts, TDOM, selectivity
// numerator/denominator, join relation sets) keyed by logical-operator
// identity, and brokers cardinality predictions back to the optimizer
// through a registered callback. Grounded on the teacher's
// feedback.ExecutionFeedback singleton for the sync.Once + RWMutex-guarded
// map idiom, generalized here to several operator-identity-keyed maps
// instead of one string-keyed map.
package collector

import (
	"strconv"
	"strings"
	"sync"

	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

// MaxCachedOperators bounds each per-operator map (spec §4.C). Once a map
// reaches this size it is wholesale-cleared rather than evicted
// piecemeal — the same "hard cap then clear" shape as the original
// source's RLFeatureCollector maps, chosen there (and here) because a
// single query plan rarely touches anywhere near this many distinct
// operators, so the cap is a leak guard, not a working-set limit.
const MaxCachedOperators = 500

// TableScanFeatures is what the collector records about one LogicalGet
// during optimization.
type TableScanFeatures struct {
	TableName            string
	BaseCardinality      uint64
	ColumnDistinctCounts map[string]uint64
	FilterSelectivity    float64
}

// JoinFeatures is what the collector records about one
// LogicalComparisonJoin during optimization.
type JoinFeatures struct {
	RelationSet      string
	TDOM             uint64
	TDOMFromHLL      bool
	LeftCardinality  uint64
	RightCardinality uint64
	Numerator        float64
	Denominator      float64
}

// FilterFeatures is what the collector records about one LogicalFilter
// during optimization.
type FilterFeatures struct {
	ExpressionKinds []string
}

// PredictorFunc predicts a cardinality for a logical operator given its
// already-extracted feature vector. The model package registers one of
// these at construction time so the collector never has to import model
// directly (that would create an import cycle: model -> collector ->
// model).
type PredictorFunc func(op planop.LogicalOperator, features []float64) (float64, error)

// FeatureCollector is the singleton accumulator described above.
type FeatureCollector struct {
	mu sync.RWMutex

	scans      map[planop.LogicalOperator]TableScanFeatures
	joins      map[planop.LogicalOperator]JoinFeatures
	filters    map[planop.LogicalOperator]FilterFeatures
	aggregates map[planop.LogicalOperator]struct{}

	predictionCache     map[string]float64
	relationCardinality map[string]uint64

	predictor PredictorFunc
}

var (
	global     *FeatureCollector
	globalOnce sync.Once
)

// Get returns the singleton FeatureCollector.
func Get() *FeatureCollector {
	globalOnce.Do(func() {
		global = newCollector()
	})
	return global
}

func newCollector() *FeatureCollector {
	return &FeatureCollector{
		scans:               make(map[planop.LogicalOperator]TableScanFeatures),
		joins:               make(map[planop.LogicalOperator]JoinFeatures),
		filters:             make(map[planop.LogicalOperator]FilterFeatures),
		aggregates:          make(map[planop.LogicalOperator]struct{}),
		predictionCache:     make(map[string]float64),
		relationCardinality: make(map[string]uint64),
	}
}

// RegisterPredictor installs the callback PredictCardinality delegates to.
// Called once by model.GetGlobalModel at construction.
func (c *FeatureCollector) RegisterPredictor(fn PredictorFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictor = fn
}

// PredictCardinality predicts a cardinality for op using whatever predictor
// is currently registered. Returns (0, false) if no predictor has been
// registered yet (e.g. the model has not been constructed) so callers can
// fall back to the engine's native estimate. Since FeaturesToVector is a
// pure, deterministic function of its input (testable property 2), two
// operators that happen to vectorize identically always predict
// identically; PredictCardinality exploits that by checking the prediction
// cache (keyed on the vector's own contents) before invoking the predictor,
// and populating it afterwards.
func (c *FeatureCollector) PredictCardinality(op planop.LogicalOperator, features []float64) (float64, bool) {
	key := vectorCacheKey(features)
	if cached, ok := c.PredictionFor(key); ok {
		return cached, true
	}

	c.mu.RLock()
	predictor := c.predictor
	c.mu.RUnlock()
	if predictor == nil {
		return 0, false
	}
	pred, err := predictor(op, features)
	if err != nil {
		return 0, false
	}
	c.CachePrediction(key, pred)
	return pred, true
}

// vectorCacheKey renders a feature vector as a stable string key. strconv
// is used directly (rather than fmt) since this runs on the planning hot
// path for every operator in every query.
func vectorCacheKey(features []float64) string {
	var b strings.Builder
	for _, f := range features {
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		b.WriteByte(',')
	}
	return b.String()
}

// AddScanFeatures records features for a table scan, clearing the scan map
// first if it has grown past MaxCachedOperators.
func (c *FeatureCollector) AddScanFeatures(op planop.LogicalOperator, f TableScanFeatures) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.scans) >= MaxCachedOperators {
		c.scans = make(map[planop.LogicalOperator]TableScanFeatures)
	}
	c.scans[op] = f
}

// GetScanFeatures retrieves previously recorded scan features, if any.
func (c *FeatureCollector) GetScanFeatures(op planop.LogicalOperator) (TableScanFeatures, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.scans[op]
	return f, ok
}

// AddJoinFeatures records features for a join, subject to the same
// overflow-clear policy as AddScanFeatures.
func (c *FeatureCollector) AddJoinFeatures(op planop.LogicalOperator, f JoinFeatures) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.joins) >= MaxCachedOperators {
		c.joins = make(map[planop.LogicalOperator]JoinFeatures)
	}
	c.joins[op] = f
}

// GetJoinFeatures retrieves previously recorded join features, if any.
func (c *FeatureCollector) GetJoinFeatures(op planop.LogicalOperator) (JoinFeatures, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.joins[op]
	return f, ok
}

// AddFilterFeatures records features for a filter, subject to the same
// overflow-clear policy as AddScanFeatures.
func (c *FeatureCollector) AddFilterFeatures(op planop.LogicalOperator, f FilterFeatures) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.filters) >= MaxCachedOperators {
		c.filters = make(map[planop.LogicalOperator]FilterFeatures)
	}
	c.filters[op] = f
}

// GetFilterFeatures retrieves previously recorded filter features, if any.
func (c *FeatureCollector) GetFilterFeatures(op planop.LogicalOperator) (FilterFeatures, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.filters[op]
	return f, ok
}

// MarkAggregate records that op is an aggregate this collector has seen,
// for callers that only need a membership check.
func (c *FeatureCollector) MarkAggregate(op planop.LogicalOperator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.aggregates) >= MaxCachedOperators {
		c.aggregates = make(map[planop.LogicalOperator]struct{})
	}
	c.aggregates[op] = struct{}{}
}

// RecordRelationCardinality caches the resolved cardinality of a relation
// set string (e.g. "{0,1}") so joins over the same relation set within a
// query do not repeat the lookup.
func (c *FeatureCollector) RecordRelationCardinality(relationSet string, card uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.relationCardinality) >= MaxCachedOperators {
		c.relationCardinality = make(map[string]uint64)
	}
	c.relationCardinality[relationSet] = card
}

// RelationCardinality looks up a previously recorded relation cardinality.
func (c *FeatureCollector) RelationCardinality(relationSet string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.relationCardinality[relationSet]
	return card, ok
}

// CachePrediction stores a prediction under an opaque key so PredictionFor
// can short-circuit a repeated call to the predictor. PredictCardinality
// uses this to dedupe by feature-vector contents; it is exported so callers
// with their own notion of a cache key can store into the same map.
// planhook's per-query operator-signature cache is a separate map and does
// not go through it.
func (c *FeatureCollector) CachePrediction(signature string, prediction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.predictionCache) >= MaxCachedOperators {
		c.predictionCache = make(map[string]float64)
	}
	c.predictionCache[signature] = prediction
}

// PredictionFor retrieves a previously cached prediction, if any.
func (c *FeatureCollector) PredictionFor(signature string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.predictionCache[signature]
	return p, ok
}

// ClearPredictionCache drops all cached predictions without touching the
// collected feature maps, matching the original source's
// ClearPredictionCache (called once per query, not once per plan node).
func (c *FeatureCollector) ClearPredictionCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictionCache = make(map[string]float64)
}

// Clear drops every map the collector holds, returning it to its
// just-constructed state. Exposed for tests; the original source never
// calls the equivalent in production since the maps self-limit via the
// overflow-clear policy above.
func (c *FeatureCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans = make(map[planop.LogicalOperator]TableScanFeatures)
	c.joins = make(map[planop.LogicalOperator]JoinFeatures)
	c.filters = make(map[planop.LogicalOperator]FilterFeatures)
	c.aggregates = make(map[planop.LogicalOperator]struct{})
	c.predictionCache = make(map[string]float64)
	c.relationCardinality = make(map[string]uint64)
	c.predictor = nil
}
