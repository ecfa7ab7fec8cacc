// Package postquery implements the post-query collector (spec §4.H): once
// a query finishes executing, walk its physical plan, pair every
// RL-predicted operator with the row count it actually emitted, push those
// pairs into the training sample buffer, and trigger an incremental model
// update if enough samples have accumulated.
//
// Grounded on the original source's CollectActualCardinalities /
// CollectActualCardinalitiesRecursive: unwraps a RESULT_COLLECTOR root,
// drops samples where both sides are non-positive, trains once at least
// MinSamplesForTraining samples are available, and never lets a failure in
// any of this reach the caller — this hook runs on every query's hot path
// and a broken model must never break query execution.
package postquery

import (
	"github.com/google/uuid"

	"github.com/ao2395/XGDuckDB/pkg/rl/collector"
	"github.com/ao2395/XGDuckDB/pkg/rl/logging"
	"github.com/ao2395/XGDuckDB/pkg/rl/model"
	"github.com/ao2395/XGDuckDB/pkg/rl/physical"
	"github.com/ao2395/XGDuckDB/pkg/rl/planhook"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
	"github.com/ao2395/XGDuckDB/pkg/rl/sample"
)

// TrainingWindow bounds how many of the most recent samples an
// incremental update trains on, distinct from the buffer's own total
// capacity (spec §4.H).
const TrainingWindow = 500

// resultCollectorName is the physical operator name this module treats as
// a transparent root wrapper, mirroring the original source's
// RESULT_COLLECTOR unwrap.
const resultCollectorName = "RESULT_COLLECTOR"

// Collector is the post-query hook, wired to the shared buffer, model,
// planning hook and feature collector for one deployment.
type Collector struct {
	buffer    *sample.Buffer
	model     *model.RLBoostingModel
	hook      *planhook.Hook
	collector *collector.FeatureCollector
}

// New constructs a post-query collector. hook may be nil in observe-only
// deployments that never wired the planning hook in.
func New(buffer *sample.Buffer, m *model.RLBoostingModel, hook *planhook.Hook, fc *collector.FeatureCollector) *Collector {
	return &Collector{buffer: buffer, model: m, hook: hook, collector: fc}
}

// Collect walks root's physical plan, records actual-vs-predicted samples,
// and triggers training. Any error or panic along the way is logged and
// swallowed — training must never fail a query.
func (pc *Collector) Collect(queryID uuid.UUID, root planop.PhysicalOperator) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("post-query collection panicked: %v\n", r)
		}
	}()

	root = unwrapResultCollector(root)
	if root == nil {
		return
	}

	collectRecursive(root, pc.buffer)

	if pc.hook != nil {
		pc.hook.EndQuery(queryID)
	}
	if pc.collector != nil {
		pc.collector.ClearPredictionCache()
	}

	recent := pc.buffer.Recent(TrainingWindow)
	if len(recent) < model.MinSamplesForTraining {
		return
	}
	if err := pc.model.UpdateIncremental(recent); err != nil {
		logging.Errorf("incremental update failed: %v\n", err)
	}
}

func unwrapResultCollector(root planop.PhysicalOperator) planop.PhysicalOperator {
	if root == nil {
		return nil
	}
	if root.Name() == resultCollectorName {
		children := root.Children()
		if len(children) == 1 {
			return children[0]
		}
	}
	return root
}

func collectRecursive(op planop.PhysicalOperator, buffer *sample.Buffer) {
	for _, child := range op.Children() {
		collectRecursive(child, buffer)
	}

	state, ok := physical.StateOf(op)
	if !ok || !state.HasPrediction {
		return
	}

	actual := float64(state.RowsEmitted())
	predicted := state.Prediction
	if actual <= 0 && predicted <= 0 {
		return
	}

	buffer.Add(sample.Sample{
		Features:  state.Features,
		Predicted: predicted,
		Actual:    actual,
	})
}
