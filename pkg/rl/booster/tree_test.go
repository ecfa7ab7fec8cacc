package booster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrowTreeSingleLeafWhenNoGain(t *testing.T) {
	rows := [][]float64{{1, 2}, {1, 2}, {1, 2}}
	grad := []float64{0, 0, 0}
	hess := []float64{1, 1, 1}
	params := treeParams{MaxDepth: 4, MinChildWeight: 0, L2: 1}

	tree := growTree(rows, grad, hess, params, rand.New(rand.NewSource(1)))
	assert.True(t, tree.root.isLeaf)
}

func TestGrowTreeSplitsOnInformativeFeature(t *testing.T) {
	rows := [][]float64{{0}, {0}, {10}, {10}}
	grad := []float64{5, 5, -5, -5}
	hess := []float64{1, 1, 1, 1}
	params := treeParams{MaxDepth: 4, MinChildWeight: 0, L2: 0.1}

	tree := growTree(rows, grad, hess, params, rand.New(rand.NewSource(1)))
	assert.False(t, tree.root.isLeaf, "a clear gradient split should produce an internal node")

	lowPred := tree.predict([]float64{0})
	highPred := tree.predict([]float64{10})
	assert.NotEqual(t, lowPred, highPred)
}

func TestLeafValueForRegularization(t *testing.T) {
	params := treeParams{L1: 0, L2: 1}
	assert.InDelta(t, -5.0, leafValueFor(10, 1, params), 1e-9)

	paramsWithL1 := treeParams{L1: 3, L2: 1}
	assert.InDelta(t, -3.5, leafValueFor(10, 1, paramsWithL1), 1e-9)
}

func TestSelectFeaturesFullWhenColsampleDisabled(t *testing.T) {
	features := selectFeatures(5, 0, rand.New(rand.NewSource(1)))
	assert.Len(t, features, 5)
}

func TestSelectFeaturesSubsetWhenColsampleEnabled(t *testing.T) {
	features := selectFeatures(10, 0.3, rand.New(rand.NewSource(1)))
	assert.GreaterOrEqual(t, len(features), 1)
	assert.Less(t, len(features), 10)
}
