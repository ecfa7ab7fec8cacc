// Package booster implements a small, self-contained gradient-boosted
// regression tree ensemble. None of the retrieved example repositories
// import a trainable GBT library (grep across the pack for xgboost, gbt,
// gradient boost, gorgonia and lightgbm all came back empty — the closest
// hit, dmitryikh/leaves, is inference-only and cannot satisfy the online
// incremental-training requirement), so this package plays the role the
// original source's embedded XGBoost fork played, built in Go on top of
// math/sort/math/rand the way the teacher's statistics package builds its
// own histograms on top of sort instead of reaching for an external stats
// library.
package booster

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// Objective selects the loss function used to derive gradients/hessians.
type Objective string

const (
	// ObjectiveAbsoluteError is the default objective (spec §6,
	// reg:absoluteerror): robust to the heavy-tailed distribution of row
	// counts. Its gradient is the sign of the residual and its hessian is
	// fixed at 1, matching XGBoost's own approximation for this objective.
	ObjectiveAbsoluteError Objective = "reg:absoluteerror"
	// ObjectiveSquaredError is the classic least-squares objective.
	ObjectiveSquaredError Objective = "reg:squarederror"
)

// Ensemble is an additive sequence of regression trees plus a constant
// base score, following the standard gradient-boosting prediction rule
// prediction = base_score + sum(tree_i(x) for tree_i in trees).
type Ensemble struct {
	params     treeParams
	objective  Objective
	subsample  float64
	baseScore  float64
	trees      []*Tree
	iteration  int
	numFeatures int
}

// EnsembleParams mirrors the subset of config.Hyperparameters this package
// needs, kept local so booster has no dependency on pkg/rl/config (a
// reusable library should not depend on its one caller's config format).
type EnsembleParams struct {
	MaxDepth        int
	LearningRate    float64
	MinChildWeight  float64
	L1              float64
	L2              float64
	Gamma           float64
	Subsample       float64
	ColsampleByTree float64
	Objective       string
}

// NewEnsemble constructs an empty ensemble. numFeatures fixes the feature
// vector width this ensemble will ever accept, mirroring the original
// source's InitializeBooster, which trained a single dummy row through a
// fresh DMatrix purely to pin down the feature count before any real
// training occurred.
func NewEnsemble(numFeatures int, params EnsembleParams) *Ensemble {
	obj := Objective(params.Objective)
	if obj != ObjectiveAbsoluteError && obj != ObjectiveSquaredError {
		obj = ObjectiveAbsoluteError
	}
	return &Ensemble{
		params: treeParams{
			MaxDepth:        params.MaxDepth,
			MinChildWeight:  params.MinChildWeight,
			L1:              params.L1,
			L2:              params.L2,
			Gamma:           params.Gamma,
			ColsampleByTree: params.ColsampleByTree,
		},
		objective:   obj,
		subsample:   params.Subsample,
		numFeatures: numFeatures,
	}
}

// NumFeatures reports the fixed feature-vector width this ensemble accepts.
func (e *Ensemble) NumFeatures() int { return e.numFeatures }

// NumTrees reports how many trees have been added so far.
func (e *Ensemble) NumTrees() int { return len(e.trees) }

// Iteration reports the monotonically increasing update counter, matching
// the original source's iteration field that only ever grows.
func (e *Ensemble) Iteration() int { return e.iteration }

// BoostRounds grows numRounds new trees against the given rows/labels,
// fitting each successive tree to the gradient of the previous ensemble's
// residuals (standard gradient boosting). learningRate shrinks each tree's
// contribution before it is appended: it is multiplied into the tree's leaf
// values, so PredictRow needs no separate record of it.
func (e *Ensemble) BoostRounds(rows [][]float64, labels []float64, learningRate float64, numRounds int, rng *rand.Rand) error {
	if len(rows) != len(labels) {
		return fmt.Errorf("booster: rows/labels length mismatch: %d vs %d", len(rows), len(labels))
	}
	if len(rows) == 0 {
		return fmt.Errorf("booster: cannot boost rounds with zero rows")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if len(e.trees) == 0 {
		e.baseScore = mean(labels)
	}

	for round := 0; round < numRounds; round++ {
		sampleRows, sampleLabels := subsample(rows, labels, e.subsample, rng)
		preds := e.predictRows(sampleRows)

		grad := make([]float64, len(sampleRows))
		hess := make([]float64, len(sampleRows))
		for i := range sampleRows {
			g, h := e.gradHess(preds[i], sampleLabels[i])
			grad[i] = g
			hess[i] = h
		}

		tree := growTree(sampleRows, grad, hess, e.params, rng)
		scaled := scaleTree(tree, learningRate)
		e.trees = append(e.trees, scaled)
		e.iteration++
	}
	return nil
}

// scaleTree returns a copy of t with every leaf value multiplied by lr, so
// that prediction never needs to carry a separate per-tree learning-rate
// list.
func scaleTree(t *Tree, lr float64) *Tree {
	return &Tree{root: scaleNode(t.root, lr)}
}

func scaleNode(n *treeNode, lr float64) *treeNode {
	if n.isLeaf {
		return &treeNode{isLeaf: true, leafValue: n.leafValue * lr}
	}
	return &treeNode{
		featureIndex: n.featureIndex,
		threshold:    n.threshold,
		left:         scaleNode(n.left, lr),
		right:        scaleNode(n.right, lr),
	}
}

// gradHess returns the first and second derivatives of the configured loss
// at the given prediction/label pair.
func (e *Ensemble) gradHess(pred, label float64) (float64, float64) {
	residual := pred - label
	switch e.objective {
	case ObjectiveSquaredError:
		return residual, 1
	default: // ObjectiveAbsoluteError
		if residual > 0 {
			return 1, 1
		} else if residual < 0 {
			return -1, 1
		}
		return 0, 1
	}
}

// PredictRow returns the ensemble's raw (pre-exponentiation) prediction for
// a single feature vector.
func (e *Ensemble) PredictRow(row []float64) float64 {
	out := e.baseScore
	for _, t := range e.trees {
		out += t.predict(row)
	}
	return out
}

func (e *Ensemble) predictRows(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = e.PredictRow(r)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// subsample draws a random fraction of rows (spec §4.B/§6 "subsample")
// without replacement. A ratio outside (0,1) disables subsampling.
func subsample(rows [][]float64, labels []float64, ratio float64, rng *rand.Rand) ([][]float64, []float64) {
	if ratio <= 0 || ratio >= 1 {
		return rows, labels
	}
	keep := int(math.Ceil(float64(len(rows)) * ratio))
	if keep < 1 {
		keep = 1
	}
	perm := rng.Perm(len(rows))[:keep]
	outRows := make([][]float64, keep)
	outLabels := make([]float64, keep)
	for i, idx := range perm {
		outRows[i] = rows[idx]
		outLabels[i] = labels[idx]
	}
	return outRows, outLabels
}

// --- serialization -------------------------------------------------------

type serializedNode struct {
	IsLeaf       bool            `json:"leaf,omitempty"`
	LeafValue    float64         `json:"value,omitempty"`
	FeatureIndex int             `json:"f,omitempty"`
	Threshold    float64         `json:"t,omitempty"`
	Left         *serializedNode `json:"l,omitempty"`
	Right        *serializedNode `json:"r,omitempty"`
}

type serializedEnsemble struct {
	Params      treeParams       `json:"params"`
	Objective   Objective        `json:"objective"`
	Subsample   float64          `json:"subsample"`
	BaseScore   float64          `json:"base_score"`
	Iteration   int              `json:"iteration"`
	NumFeatures int              `json:"num_features"`
	Trees       []*serializedNode `json:"trees"`
}

func toSerializedNode(n *treeNode) *serializedNode {
	if n == nil {
		return nil
	}
	s := &serializedNode{IsLeaf: n.isLeaf, LeafValue: n.leafValue, FeatureIndex: n.featureIndex, Threshold: n.threshold}
	if !n.isLeaf {
		s.Left = toSerializedNode(n.left)
		s.Right = toSerializedNode(n.right)
	}
	return s
}

func fromSerializedNode(s *serializedNode) *treeNode {
	if s == nil {
		return nil
	}
	n := &treeNode{isLeaf: s.IsLeaf, leafValue: s.LeafValue, featureIndex: s.FeatureIndex, threshold: s.Threshold}
	if !s.IsLeaf {
		n.left = fromSerializedNode(s.Left)
		n.right = fromSerializedNode(s.Right)
	}
	return n
}

// Serialize encodes the ensemble as JSON so a host process can persist the
// active model across restarts (spec §4.B ResetModel/model lifecycle).
func (e *Ensemble) Serialize() ([]byte, error) {
	s := serializedEnsemble{
		Params:      e.params,
		Objective:   e.objective,
		Subsample:   e.subsample,
		BaseScore:   e.baseScore,
		Iteration:   e.iteration,
		NumFeatures: e.numFeatures,
	}
	for _, t := range e.trees {
		s.Trees = append(s.Trees, toSerializedNode(t.root))
	}
	return json.Marshal(s)
}

// Deserialize reconstructs an ensemble previously produced by Serialize.
func Deserialize(data []byte) (*Ensemble, error) {
	var s serializedEnsemble
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("booster: deserialize: %w", err)
	}
	e := &Ensemble{
		params:      s.Params,
		objective:   s.Objective,
		subsample:   s.Subsample,
		baseScore:   s.BaseScore,
		iteration:   s.Iteration,
		numFeatures: s.NumFeatures,
	}
	for _, t := range s.Trees {
		e.trees = append(e.trees, &Tree{root: fromSerializedNode(t)})
	}
	return e, nil
}
