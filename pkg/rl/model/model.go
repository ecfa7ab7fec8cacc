// Package model implements the online gradient-boosted cardinality model
// (spec §4.B): a singleton wrapping a booster.Ensemble behind an
// active/shadow pointer swap so that concurrent predictions never observe a
// partially retrained model, grounded on the teacher's
// feedback.GetGlobalFeedback singleton (sync.Once + package-level pointer)
// generalized from a single struct to an atomically swapped pair.
package model

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/ao2395/XGDuckDB/pkg/rl/booster"
	"github.com/ao2395/XGDuckDB/pkg/rl/collector"
	"github.com/ao2395/XGDuckDB/pkg/rl/config"
	"github.com/ao2395/XGDuckDB/pkg/rl/logging"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
	"github.com/ao2395/XGDuckDB/pkg/rl/sample"
)

// MinSamplesForTraining is the minimum number of buffered samples required
// before an incremental update will run (spec §4.B), matching the original
// source's UpdateIncremental guard.
const MinSamplesForTraining = 10

// predictionFloor is the minimum cardinality Predict ever returns once the
// model is ready; while unready it returns exactly 0 instead (spec §4.B
// state machine).
const predictionFloor = 1.0

// RLBoostingModel is the process-wide singleton gradient-boosted
// cardinality predictor. Reads go through an atomic pointer so Predict
// never blocks on UpdateIncremental and never observes a half-built
// ensemble.
type RLBoostingModel struct {
	numFeatures int
	hyper       config.Hyperparameters

	active atomic.Pointer[booster.Ensemble] // lock-free, read by Predict

	trainMu          sync.Mutex // serializes UpdateIncremental/ResetModel
	shadow           *booster.Ensemble
	updatesSinceSwap int
	totalUpdates     atomic.Int64
	rng              *rand.Rand
}

var (
	globalModel     *RLBoostingModel
	globalModelOnce sync.Once
)

// GetGlobalModel returns the singleton RLBoostingModel, constructing it on
// first use with hyperparameters resolved from the environment.
func GetGlobalModel(numFeatures int) *RLBoostingModel {
	globalModelOnce.Do(func() {
		globalModel = NewRLBoostingModel(numFeatures, config.LoadHyperparametersFromEnv())
		collector.Get().RegisterPredictor(func(_ planop.LogicalOperator, features []float64) (float64, error) {
			return globalModel.Predict(features)
		})
	})
	return globalModel
}

// NewRLBoostingModel constructs a model whose active ensemble holds a
// single dummy tree trained on one all-zero row, so the library has
// already learned the feature width before the first real prediction is
// ever requested (spec §4.B: "the first tree is a dummy trained on a
// single zero row"). Exposed separately from GetGlobalModel so tests can
// exercise multiple independent models without sharing global state.
func NewRLBoostingModel(numFeatures int, hyper config.Hyperparameters) *RLBoostingModel {
	m := &RLBoostingModel{
		numFeatures: numFeatures,
		hyper:       hyper,
		rng:         rand.New(rand.NewSource(42)),
	}
	m.active.Store(dummyEnsemble(numFeatures, hyper))
	return m
}

// dummyEnsemble builds the single-tree placeholder ensemble every fresh or
// just-reset model starts from.
func dummyEnsemble(numFeatures int, hyper config.Hyperparameters) *booster.Ensemble {
	e := booster.NewEnsemble(numFeatures, ensembleParams(hyper))
	zeroRow := make([][]float64, 1)
	zeroRow[0] = make([]float64, numFeatures)
	_ = e.BoostRounds(zeroRow, []float64{0}, hyper.LearningRate, 1, rand.New(rand.NewSource(42)))
	return e
}

// IsReady reports whether the active ensemble holds more than the initial
// dummy tree, matching the spec's Ready(>1 tree) state.
func (m *RLBoostingModel) IsReady() bool {
	e := m.active.Load()
	return e != nil && e.NumTrees() > 1
}

// GetNumTrees reports how many trees the currently active ensemble holds.
func (m *RLBoostingModel) GetNumTrees() int {
	e := m.active.Load()
	if e == nil {
		return 0
	}
	return e.NumTrees()
}

// GetTotalUpdates reports how many UpdateIncremental calls have completed
// successfully since construction or the last ResetModel, which sets it
// back to 0.
func (m *RLBoostingModel) GetTotalUpdates() int {
	return int(m.totalUpdates.Load())
}

// Predict returns the cardinality estimate for a single feature vector, or
// 0 if the model has at most one tree or features is the wrong width (spec
// §3 invariants: "the predictor returns 0 iff the model has ≤1 trees or
// the feature vector is the wrong length"). It never errors: a prediction
// failure is always observable to the caller as 0, which callers treat as
// "unavailable, use engine baseline".
func (m *RLBoostingModel) Predict(features []float64) (float64, error) {
	e := m.active.Load()
	if e == nil || e.NumTrees() <= 1 || len(features) != e.NumFeatures() {
		return 0, nil
	}
	logPred := math.Max(0, e.PredictRow(features))
	return math.Max(math.Exp(logPred), predictionFloor), nil
}

// PredictBatch predicts a cardinality for every row in rows against a
// single snapshot of the active ensemble, loaded once up front so a
// concurrent publish from UpdateIncremental cannot mix trees from two
// different ensembles within one batch (spec §4.B, invariant 5). Unready,
// it returns an empty slice, matching "Unready → empty" in §4.B.
func (m *RLBoostingModel) PredictBatch(rows [][]float64) []float64 {
	e := m.active.Load()
	if e == nil || e.NumTrees() <= 1 {
		return []float64{}
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if len(r) != e.NumFeatures() {
			out[i] = 0
			continue
		}
		logPred := math.Max(0, e.PredictRow(r))
		out[i] = math.Max(math.Exp(logPred), predictionFloor)
	}
	return out
}

// UpdateIncremental trains up to TreesPerUpdate additional trees on the
// given samples and, every SwapEveryUpdates calls, publishes the retrained
// ensemble to Predict via an atomic pointer swap. Fewer than
// MinSamplesForTraining samples, or an ensemble already at MaxTotalTrees,
// is a silent no-op (spec §4.B/§7: "tree-budget exhaustion: silently
// no-op updates while still buffering samples").
func (m *RLBoostingModel) UpdateIncremental(samples []sample.Sample) error {
	if len(samples) < MinSamplesForTraining {
		return nil
	}

	m.trainMu.Lock()
	defer m.trainMu.Unlock()

	growing := m.shadow
	if growing == nil {
		growing = m.active.Load()
	}
	budget := m.hyper.MaxTotalTrees - growing.NumTrees()
	if budget <= 0 {
		return nil
	}

	if m.shadow == nil {
		clone, err := cloneEnsemble(m.active.Load())
		if err != nil {
			return fmt.Errorf("rl model: clone active ensemble: %w", err)
		}
		m.shadow = clone
	}

	rows := make([][]float64, 0, len(samples))
	labels := make([]float64, 0, len(samples))
	sumQError := 0.0
	for _, s := range samples {
		sumQError += sample.QError(s.Predicted, s.Actual)
		if len(s.Features) != m.numFeatures {
			// ShapeMismatch (spec §7): drop the sample from training
			// rather than letting a stale or corrupt feature vector
			// poison the boosting matrix; its Q-error still counts
			// towards the logged average.
			continue
		}
		rows = append(rows, s.Features)
		labels = append(labels, math.Log(math.Max(s.Actual, 1)))
	}
	if len(rows) == 0 {
		return nil
	}

	rounds := m.hyper.TreesPerUpdate
	if rounds > budget {
		rounds = budget
	}
	if err := m.shadow.BoostRounds(rows, labels, m.hyper.LearningRate, rounds, m.rng); err != nil {
		return fmt.Errorf("rl model: boost rounds: %w", err)
	}

	m.totalUpdates.Add(1)
	m.updatesSinceSwap++

	if m.updatesSinceSwap >= m.hyper.SwapEveryUpdates {
		m.active.Store(m.shadow)
		clone, err := cloneEnsemble(m.shadow)
		if err == nil {
			m.shadow = clone
		}
		m.updatesSinceSwap = 0
	}

	avgQError := sumQError / float64(len(samples))
	logging.Boosting(int(m.totalUpdates.Load()), len(samples), m.currentTreeCount(), avgQError)
	return nil
}

// currentTreeCount reports the tree count of whichever ensemble is most
// up to date: the shadow while training is in flight, otherwise active.
func (m *RLBoostingModel) currentTreeCount() int {
	if m.shadow != nil {
		return m.shadow.NumTrees()
	}
	if e := m.active.Load(); e != nil {
		return e.NumTrees()
	}
	return 0
}

// ResetModel discards every trained tree, returning the model to its
// just-constructed Ready(1 tree) state (spec §4.B ResetModel, testable
// property 8: "after ResetModel, num_trees == 1, total_updates == 0, and
// Predict returns 0").
func (m *RLBoostingModel) ResetModel() {
	m.trainMu.Lock()
	defer m.trainMu.Unlock()

	m.active.Store(dummyEnsemble(m.numFeatures, m.hyper))
	m.shadow = nil
	m.updatesSinceSwap = 0
	m.totalUpdates.Store(0)
}

func ensembleParams(h config.Hyperparameters) booster.EnsembleParams {
	return booster.EnsembleParams{
		MaxDepth:        h.MaxDepth,
		LearningRate:    h.LearningRate,
		MinChildWeight:  float64(h.MinChildWeight),
		L1:              h.L1,
		L2:              h.L2,
		Gamma:           h.Gamma,
		Subsample:       h.Subsample,
		ColsampleByTree: h.ColsampleByTree,
		Objective:       h.Objective,
	}
}

func cloneEnsemble(e *booster.Ensemble) (*booster.Ensemble, error) {
	data, err := e.Serialize()
	if err != nil {
		return nil, err
	}
	return booster.Deserialize(data)
}
