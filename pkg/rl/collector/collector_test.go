package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

func freshCollector() *FeatureCollector {
	return newCollector()
}

func TestAddAndGetScanFeatures(t *testing.T) {
	c := freshCollector()
	op := planop.NewLogicalGet("SEQ_SCAN", "orders", 100)

	_, ok := c.GetScanFeatures(op)
	assert.False(t, ok)

	c.AddScanFeatures(op, TableScanFeatures{TableName: "orders", BaseCardinality: 100})
	f, ok := c.GetScanFeatures(op)
	assert.True(t, ok)
	assert.Equal(t, "orders", f.TableName)
}

func TestScanFeaturesOverflowClears(t *testing.T) {
	c := freshCollector()
	for i := 0; i < MaxCachedOperators; i++ {
		op := planop.NewLogicalGet("SEQ_SCAN", "t", uint64(i))
		c.AddScanFeatures(op, TableScanFeatures{TableName: "t"})
	}
	assert.Len(t, c.scans, MaxCachedOperators)

	overflow := planop.NewLogicalGet("SEQ_SCAN", "overflow", 1)
	c.AddScanFeatures(overflow, TableScanFeatures{TableName: "overflow"})
	assert.Len(t, c.scans, 1, "adding past the cap should wholesale-clear before inserting")
}

func TestPredictCardinalityWithNoRegisteredPredictor(t *testing.T) {
	c := freshCollector()
	op := planop.NewLogicalGet("SEQ_SCAN", "orders", 100)
	_, ok := c.PredictCardinality(op, []float64{1, 2, 3})
	assert.False(t, ok)
}

func TestPredictCardinalityDelegatesToRegisteredPredictor(t *testing.T) {
	c := freshCollector()
	c.RegisterPredictor(func(op planop.LogicalOperator, features []float64) (float64, error) {
		return 42, nil
	})
	op := planop.NewLogicalGet("SEQ_SCAN", "orders", 100)
	pred, ok := c.PredictCardinality(op, nil)
	assert.True(t, ok)
	assert.Equal(t, 42.0, pred)
}

func TestPredictCardinalityDedupesByFeatureVectorContents(t *testing.T) {
	c := freshCollector()
	calls := 0
	c.RegisterPredictor(func(op planop.LogicalOperator, features []float64) (float64, error) {
		calls++
		return 99, nil
	})

	scan := planop.NewLogicalGet("SEQ_SCAN", "orders", 100)
	join := planop.NewLogicalComparisonJoin("COMPARISON_JOIN", scan, scan, planop.JoinInner, 100)
	vector := []float64{1, 2, 3}

	pred1, ok1 := c.PredictCardinality(scan, vector)
	pred2, ok2 := c.PredictCardinality(join, vector)

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, 99.0, pred1)
	assert.Equal(t, 99.0, pred2)
	assert.Equal(t, 1, calls, "two distinct operators with an identical feature vector should share one prediction")
}

func TestClearPredictionCacheLeavesFeatureMapsIntact(t *testing.T) {
	c := freshCollector()
	op := planop.NewLogicalGet("SEQ_SCAN", "orders", 100)
	c.AddScanFeatures(op, TableScanFeatures{TableName: "orders"})
	c.CachePrediction("sig", 10)

	c.ClearPredictionCache()

	_, predOK := c.PredictionFor("sig")
	assert.False(t, predOK)
	_, scanOK := c.GetScanFeatures(op)
	assert.True(t, scanOK)
}

func TestClearResetsEverything(t *testing.T) {
	c := freshCollector()
	op := planop.NewLogicalGet("SEQ_SCAN", "orders", 100)
	c.AddScanFeatures(op, TableScanFeatures{})
	c.CachePrediction("sig", 1)
	c.RecordRelationCardinality("{0}", 5)

	c.Clear()

	assert.Len(t, c.scans, 0)
	_, predOK := c.PredictionFor("sig")
	assert.False(t, predOK)
	_, relOK := c.RelationCardinality("{0}")
	assert.False(t, relOK)
}

func TestGetIsASingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
