package booster

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a CART regression tree, grown greedily by exact
// split search (spec §4.B names max_depth/min_child_weight/lambda/alpha/
// gamma as the supported regularizers; this is the same family of knobs
// XGBoost's exact tree grower exposes, which is what the original source
// configured through its DuckDB-embedded booster).
type treeNode struct {
	isLeaf       bool
	leafValue    float64
	featureIndex int
	threshold    float64
	left         *treeNode
	right        *treeNode
}

// Tree is a single regression tree in the ensemble.
type Tree struct {
	root *treeNode
}

// treeParams is the subset of Hyperparameters a single tree build needs,
// decoupled from the config package so this file stays a self-contained,
// reusable little tree-growing library (grounded on the teacher's
// statistics.BuildEquiWidthHistogram for the sort-then-bucket idiom, generalized
// here to exact per-value split search since tree depth is shallow).
type treeParams struct {
	MaxDepth        int
	MinChildWeight  float64
	L1              float64
	L2              float64
	Gamma           float64
	ColsampleByTree float64
}

// growTree builds one regression tree from the gradient/hessian pairs of
// every row in rows. rows[i] is the feature vector for sample i; grad[i]
// and hess[i] are its first and second order gradients with respect to the
// chosen loss.
func growTree(rows [][]float64, grad, hess []float64, params treeParams, rng *rand.Rand) *Tree {
	if len(rows) == 0 {
		return &Tree{root: &treeNode{isLeaf: true, leafValue: 0}}
	}
	numFeatures := len(rows[0])
	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	root := splitNode(rows, grad, hess, indices, numFeatures, 0, params, rng)
	return &Tree{root: root}
}

func leafValueFor(sumGrad, sumHess float64, params treeParams) float64 {
	// Standard XGBoost-style leaf weight with L2 shrinkage and an L1
	// soft-threshold on the gradient sum.
	g := sumGrad
	if g > params.L1 {
		g -= params.L1
	} else if g < -params.L1 {
		g += params.L1
	} else {
		g = 0
	}
	denom := sumHess + params.L2
	if denom <= 0 {
		return 0
	}
	return -g / denom
}

func splitNode(rows [][]float64, grad, hess []float64, indices []int, numFeatures, depth int, params treeParams, rng *rand.Rand) *treeNode {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += grad[idx]
		sumHess += hess[idx]
	}

	leaf := &treeNode{isLeaf: true, leafValue: leafValueFor(sumGrad, sumHess, params)}
	if depth >= params.MaxDepth || len(indices) < 2 || sumHess < params.MinChildWeight {
		return leaf
	}

	best := findBestSplit(rows, grad, hess, indices, numFeatures, sumGrad, sumHess, params, rng)
	if best == nil {
		return leaf
	}

	node := &treeNode{featureIndex: best.featureIndex, threshold: best.threshold}
	node.left = splitNode(rows, grad, hess, best.leftIndices, numFeatures, depth+1, params, rng)
	node.right = splitNode(rows, grad, hess, best.rightIndices, numFeatures, depth+1, params, rng)
	return node
}

type splitCandidate struct {
	featureIndex int
	threshold    float64
	gain         float64
	leftIndices  []int
	rightIndices []int
}

func findBestSplit(rows [][]float64, grad, hess []float64, indices []int, numFeatures int, parentGrad, parentHess float64, params treeParams, rng *rand.Rand) *splitCandidate {
	features := selectFeatures(numFeatures, params.ColsampleByTree, rng)
	parentScore := scoreOf(parentGrad, parentHess, params)

	var best *splitCandidate
	for _, f := range features {
		sorted := make([]int, len(indices))
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool { return rows[sorted[a]][f] < rows[sorted[b]][f] })

		leftGrad, leftHess := 0.0, 0.0
		for i := 0; i < len(sorted)-1; i++ {
			idx := sorted[i]
			leftGrad += grad[idx]
			leftHess += hess[idx]

			if rows[sorted[i]][f] == rows[sorted[i+1]][f] {
				continue // only split between distinct feature values
			}

			rightGrad := parentGrad - leftGrad
			rightHess := parentHess - leftHess
			if leftHess < params.MinChildWeight || rightHess < params.MinChildWeight {
				continue
			}

			gain := scoreOf(leftGrad, leftHess, params) + scoreOf(rightGrad, rightHess, params) - parentScore - params.Gamma
			if gain <= 0 {
				continue
			}
			if best == nil || gain > best.gain {
				threshold := (rows[sorted[i]][f] + rows[sorted[i+1]][f]) / 2
				best = &splitCandidate{
					featureIndex: f,
					threshold:    threshold,
					gain:         gain,
					leftIndices:  append([]int{}, sorted[:i+1]...),
					rightIndices: append([]int{}, sorted[i+1:]...),
				}
			}
		}
	}
	return best
}

func scoreOf(sumGrad, sumHess float64, params treeParams) float64 {
	g := sumGrad
	if g > params.L1 {
		g -= params.L1
	} else if g < -params.L1 {
		g += params.L1
	} else {
		g = 0
	}
	denom := sumHess + params.L2
	if denom <= 0 {
		return 0
	}
	return 0.5 * g * g / denom
}

// selectFeatures samples a subset of feature indices for this tree
// (colsample_bytree, spec §4.B/§6), always returning at least one feature.
func selectFeatures(numFeatures int, colsample float64, rng *rand.Rand) []int {
	if colsample <= 0 || colsample >= 1 {
		all := make([]int, numFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	keep := int(math.Ceil(float64(numFeatures) * colsample))
	if keep < 1 {
		keep = 1
	}
	perm := rng.Perm(numFeatures)
	selected := perm[:keep]
	sort.Ints(selected)
	return selected
}

// predict walks the tree for a single row and returns its leaf value.
func (t *Tree) predict(row []float64) float64 {
	node := t.root
	for !node.isLeaf {
		if node.featureIndex < len(row) && row[node.featureIndex] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.leafValue
}
