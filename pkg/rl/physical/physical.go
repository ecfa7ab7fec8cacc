// Package physical implements the physical attachment hook (spec §4.F):
// at physical-plan construction time, every comparison-join-family operator
// gets an RL state recorded on it — its feature vector and the model's
// prediction — regardless of whether the planning hook is wired in
// upstream. This hook is always on; it is what lets deployments run in
// observe-only mode (predictions recorded for later evaluation, cardinality
// never overwritten) as well as optimizer-coupled mode.
//
// Grounded on the original source's AttachRLState call sites across
// cross-product, hash join, IE join, merge join, nested-loop join and
// blockwise-nested-loop join physical operators — none of which ever write
// back to estimated_cardinality from this hook.
package physical

import (
	"sync/atomic"

	"github.com/ao2395/XGDuckDB/pkg/rl/collector"
	"github.com/ao2395/XGDuckDB/pkg/rl/features"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

// OperatorRLState is what AttachRLState records on a physical operator.
// Physical operators carry this as an opaque interface{} (see
// planop.PhysicalOperator) so planop never has to import this package.
type OperatorRLState struct {
	Features   []float64
	Prediction float64
	HasPrediction bool
	Baseline   uint64
	Attempted  bool

	rowsEmitted atomic.Uint64
}

// RowsEmitted returns the row count accumulated by RecordRowsEmitted so
// far. Safe for concurrent use from the operator's execution goroutine(s).
func (s *OperatorRLState) RowsEmitted() uint64 {
	return s.rowsEmitted.Load()
}

// RecordRowsEmitted adds n to the running row count this operator has
// emitted during execution, called from the hot execution path (spec
// §4.G). Kept lock-free via atomic add since a join operator may run
// across multiple pipeline threads.
func (s *OperatorRLState) RecordRowsEmitted(n uint64) {
	s.rowsEmitted.Add(n)
}

// AttachRLState extracts features for logical (the logical operator a
// physical operator was built from), predicts its cardinality, and stores
// both on phys. It never modifies phys's EstimatedCardinality — that
// belongs entirely to the planning hook, which runs earlier and only when
// wired in.
func AttachRLState(phys planop.PhysicalOperator, logical planop.LogicalOperator, c *collector.FeatureCollector) *OperatorRLState {
	state := &OperatorRLState{Attempted: true}

	if logical != nil {
		if logical.HasBaseline() {
			state.Baseline = logical.Baseline()
		} else {
			// planhook never ran (observe-only deployment, spec §9/
			// SPEC_FULL.md §11): fall back to the engine's own estimate
			// rather than recording the zero-value baseline.
			state.Baseline = logical.EstimatedCardinality()
		}
		f := features.Extract(logical, c)
		vector := features.ToSlice(f)
		state.Features = vector

		if c != nil {
			if pred, ok := c.PredictCardinality(logical, vector); ok {
				state.Prediction = pred
				state.HasPrediction = true
			}
		}
	}

	phys.SetRLState(state)
	return state
}

// StateOf type-asserts a physical operator's opaque RL state back to its
// concrete type. Returns (nil, false) if no state was ever attached, e.g.
// the operator is not in the comparison-join family.
func StateOf(phys planop.PhysicalOperator) (*OperatorRLState, bool) {
	raw := phys.RLState()
	if raw == nil {
		return nil, false
	}
	state, ok := raw.(*OperatorRLState)
	return state, ok
}
