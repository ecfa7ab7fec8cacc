package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ao2395/XGDuckDB/pkg/rl/collector"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

func TestExtractGetUsesNodeFieldsWithoutCollector(t *testing.T) {
	get := planop.NewLogicalGet("SEQ_SCAN", "orders", 1000)
	get.BaseCardinality = 1000
	get.FilterSelectivity = 0.5
	get.Filters = []planop.TableFilter{{Comparison: planop.ComparisonEqual}}

	f := Extract(get, nil)
	assert.Equal(t, planop.KindGet, f.Kind)
	assert.Equal(t, "orders", f.TableName)
	assert.Equal(t, uint64(1000), f.BaseCardinality)
	assert.Equal(t, 0.5, f.FilterSelectivity)
	assert.Len(t, f.FilterComparisons, 1)
}

func TestExtractGetPrefersCollectorCache(t *testing.T) {
	c := collector.Get()
	c.Clear()
	get := planop.NewLogicalGet("SEQ_SCAN", "orders", 1000)
	get.BaseCardinality = 1000

	c.AddScanFeatures(get, collector.TableScanFeatures{
		BaseCardinality:   5000,
		FilterSelectivity: 0.1,
	})

	f := Extract(get, c)
	assert.Equal(t, uint64(5000), f.BaseCardinality)
	assert.Equal(t, 0.1, f.FilterSelectivity)
}

func TestExtractJoinResolvesInvalidRelationCardinality(t *testing.T) {
	left := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	right := planop.NewLogicalGet("SEQ_SCAN", "b", 200)
	join := planop.NewLogicalComparisonJoin("COMPARISON_JOIN", left, right, planop.JoinInner, 150)
	join.LeftRelationCard = planop.InvalidCardinality
	join.RightRelationCard = planop.InvalidCardinality
	join.Numerator = 900

	f := Extract(join, nil)
	assert.Less(t, f.LeftRelationCard, planop.InvalidCardinality)
	assert.Less(t, f.RightRelationCard, planop.InvalidCardinality)
}

func TestExtractJoinConditionCounts(t *testing.T) {
	left := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	right := planop.NewLogicalGet("SEQ_SCAN", "b", 200)
	join := planop.NewLogicalComparisonJoin("COMPARISON_JOIN", left, right, planop.JoinInner, 150)
	join.Conditions = []planop.JoinCondition{
		{Comparison: planop.ComparisonEqual, Equality: true},
		{Comparison: planop.ComparisonLessThan, Equality: false},
	}

	f := Extract(join, nil)
	assert.Equal(t, 2, f.JoinConditionCount)
	assert.Equal(t, 1, f.JoinEqualityConditionCount)
	assert.InDelta(t, 0.5, f.JoinKeySameTypeRatio, 1e-9)
}

func TestExtractFilterConstantSummary(t *testing.T) {
	child := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	filter := planop.NewLogicalFilter("FILTER", child, 50)
	filter.Constants = []planop.FilterConstant{
		{IsNumeric: true, NumericValue: 42},
		{IsNumeric: false, StringLength: 8},
	}

	f := Extract(filter, nil)
	assert.Equal(t, 2, f.FilterConstantCount)
	assert.Greater(t, f.FilterConstantNumericLogMean, 0.0)
	assert.Equal(t, 8.0, f.FilterConstantStringLengthMean)
}

func TestExtractFilterChildCardinality(t *testing.T) {
	child := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	filter := planop.NewLogicalFilter("FILTER", child, 50)

	f := Extract(filter, nil)
	assert.Equal(t, uint64(100), f.ChildCardinality, "FILTER's child cardinality slot reflects the pre-filter input, not the filter's own post-predicate estimate")
}

func TestExtractJoinComparisonTypeIsTheLeadingCondition(t *testing.T) {
	left := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	right := planop.NewLogicalGet("SEQ_SCAN", "b", 200)
	join := planop.NewLogicalComparisonJoin("COMPARISON_JOIN", left, right, planop.JoinInner, 150)
	join.Conditions = []planop.JoinCondition{
		{Comparison: planop.ComparisonGreaterThan, Equality: false},
		{Comparison: planop.ComparisonEqual, Equality: true},
	}

	f := Extract(join, nil)
	assert.Equal(t, planop.ComparisonGreaterThan, f.JoinComparisonType)
}

func TestExtractPropagatesChildCardinalityWhenOwnIsMissing(t *testing.T) {
	left := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	right := planop.NewLogicalGet("SEQ_SCAN", "b", 300)
	join := planop.NewLogicalComparisonJoin("COMPARISON_JOIN", left, right, planop.JoinInner, 0)

	f := Extract(join, nil)
	assert.Equal(t, uint64(300), f.EstimatedCardinality, "a zero own-estimate should fall back to the largest child's estimate")
}

func TestExtractContextFieldsAlwaysPopulated(t *testing.T) {
	child := planop.NewLogicalGet("SEQ_SCAN", "a", 100)
	agg := planop.NewLogicalAggregate("AGGREGATE", child, 10)
	agg.SetBaseline(100)

	f := Extract(agg, nil)
	assert.True(t, f.HasBaseline)
	assert.Equal(t, uint64(100), f.BaselineCardinality)
	assert.Equal(t, 1, f.NumChildren)
}
