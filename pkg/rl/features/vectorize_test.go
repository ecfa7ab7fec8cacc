package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

func TestVectorSizeIsEightyAndStable(t *testing.T) {
	assert.Equal(t, 80, VectorSize)
}

func TestToVectorOpOneHotIsExclusive(t *testing.T) {
	f := OperatorFeatures{Kind: planop.KindJoin}
	v := ToVector(f)

	for i := 0; i < opOneHotWidth; i++ {
		if i == int(planop.KindJoin) {
			assert.Equal(t, 1.0, v[opOneHotOffset+i])
		} else {
			assert.Equal(t, 0.0, v[opOneHotOffset+i])
		}
	}
}

func TestToVectorGetBlockOnlyPopulatedForGetKind(t *testing.T) {
	f := OperatorFeatures{Kind: planop.KindJoin, BaseCardinality: 1000}
	v := ToVector(f)
	for i := getOffset; i < getOffset+getBlockWidth; i++ {
		assert.Equal(t, 0.0, v[i], "GET block must stay zero for a non-GET operator")
	}
}

func TestToVectorGetBlockPopulatesExpectedSlots(t *testing.T) {
	f := OperatorFeatures{
		Kind:                   planop.KindGet,
		TableName:               "orders",
		BaseCardinality:         1000,
		FilterSelectivity:       0.25,
		UsedDefaultSelectivity:  true,
		NumFilters:              2,
		ColumnDistinctCounts:    []uint64{10, 1000},
		FilterComparisons:       []planop.ComparisonKind{planop.ComparisonEqual, planop.ComparisonLessThan},
	}
	v := ToVector(f)

	assert.Equal(t, tableNameHash("orders"), v[getOffset+0])
	assert.Equal(t, safeLog(1000), v[getOffset+1])
	assert.Equal(t, 2.0, v[getOffset+2])
	assert.Equal(t, 0.25, v[getOffset+3])
	assert.Equal(t, 1.0, v[getOffset+4])
	assert.Equal(t, 2.0, v[getOffset+5])
	assert.Equal(t, 2.0, v[getOffset+6])

	// comparison presence one-hot: EQUAL and LESS_THAN are present, the
	// other four comparison kinds are absent.
	assert.Equal(t, 1.0, v[getOffset+15])
	assert.Equal(t, 1.0, v[getOffset+16])
	assert.Equal(t, 0.0, v[getOffset+17])
	assert.Equal(t, 0.0, v[getOffset+18])
	assert.Equal(t, 0.0, v[getOffset+19])
	assert.Equal(t, 0.0, v[getOffset+20])

	// reserved padding past the 21 real GET slots stays zero.
	assert.Equal(t, 0.0, v[getOffset+21])
	assert.Equal(t, 0.0, v[getOffset+22])
	assert.Equal(t, 0.0, v[getOffset+23])
}

func TestTableNameHashChangesWithTableName(t *testing.T) {
	orders := OperatorFeatures{Kind: planop.KindGet, TableName: "orders"}
	customers := OperatorFeatures{Kind: planop.KindGet, TableName: "customers"}

	vOrders := ToVector(orders)
	vCustomers := ToVector(customers)

	assert.NotEqual(t, vOrders[getOffset+0], vCustomers[getOffset+0])
	// deterministic: the same table name always hashes to the same slot.
	assert.Equal(t, vOrders[getOffset+0], ToVector(orders)[getOffset+0])
	assert.GreaterOrEqual(t, vOrders[getOffset+0], 0.0)
	assert.Less(t, vOrders[getOffset+0], 1.0)
}

func TestDistinctRatioStatsSummarizesColumnCardinality(t *testing.T) {
	// base cardinality 1000; one high-cardinality column (ratio 0.9), one
	// low-cardinality column (ratio 0.01).
	stats := distinctRatioStats([]uint64{900, 10}, 1000)

	assert.InDelta(t, (0.9+0.01)/2, stats[0], 1e-9, "mean ratio")
	assert.InDelta(t, 0.9, stats[1], 1e-9, "max ratio")
	assert.InDelta(t, 0.01, stats[2], 1e-9, "min ratio")
	assert.Equal(t, 1.0, stats[4], "one high-cardinality column (ratio > 0.5)")
	assert.Equal(t, 1.0, stats[5], "one low-cardinality column (ratio < 0.05)")
	assert.InDelta(t, safeLog(10), stats[6], 1e-9, "log of the smallest raw distinct count")
	assert.InDelta(t, safeLog(900), stats[7], 1e-9, "log of the largest raw distinct count")
}

func TestDistinctRatioStatsZeroWithoutBaseCardinality(t *testing.T) {
	stats := distinctRatioStats([]uint64{10, 20}, 0)
	assert.Equal(t, [8]float64{}, stats)
}

func TestToVectorJoinBlockSentinelCardinalityIsHandledUpstream(t *testing.T) {
	f := OperatorFeatures{
		Kind:             planop.KindJoin,
		JoinType:         planop.JoinInner,
		LeftRelationCard: planop.InvalidCardinality,
		Numerator:        400,
	}
	// Extract (not ToVector) is responsible for resolving the sentinel; a
	// caller that skips Extract and builds OperatorFeatures directly is
	// expected to have already resolved it, as this test verifies by
	// comparing against what resolveRelationCardinality would produce.
	resolved := resolveRelationCardinality(f.LeftRelationCard, f.Numerator)
	assert.Less(t, resolved, planop.InvalidCardinality)

	f.LeftRelationCard = resolved
	v := ToVector(f)
	assert.False(t, isNaNOrInf(v[joinOffset+0]))
}

func TestToVectorJoinBlockOneHotsAndDerivedFeatures(t *testing.T) {
	f := OperatorFeatures{
		Kind:               planop.KindJoin,
		JoinType:           planop.JoinLeft,
		JoinComparisonType: planop.ComparisonGreaterThan,
		LeftRelationCard:   100,
		RightRelationCard:  500,
		TDOM:                800,
		Numerator:           1000,
		Denominator:         10,
		ExtraRatio:          2,
		LeftDenominator:     4,
		RightDenominator:    8,
	}
	v := ToVector(f)

	// join-kind one-hot: only LEFT is set.
	for i, kind := range joinOneHotOrder {
		if kind == planop.JoinLeft {
			assert.Equal(t, 1.0, v[joinOffset+4+i])
		} else {
			assert.Equal(t, 0.0, v[joinOffset+4+i])
		}
	}

	// comparison one-hot: only GREATER_THAN is set.
	for i, kind := range comparisonOrder {
		if kind == planop.ComparisonGreaterThan {
			assert.Equal(t, 1.0, v[joinOffset+9+i])
		} else {
			assert.Equal(t, 0.0, v[joinOffset+9+i])
		}
	}

	assert.Equal(t, logClamp1(2), v[joinOffset+15], "extra ratio slot is log-scaled")
	assert.Equal(t, logClamp1(1000), v[joinOffset+16], "numerator slot is log-scaled")
	assert.Equal(t, logClamp1(10), v[joinOffset+17], "denominator slot is log-scaled")
	assert.Equal(t, logClamp1(4), v[joinOffset+19], "left denominator slot is log-scaled")
	assert.Equal(t, logClamp1(8), v[joinOffset+20], "right denominator slot is log-scaled")

	// TDOM ratio is raw (not log-scaled): 800 / avg(100,500) = 800/300.
	assert.InDelta(t, 800.0/300.0, v[joinOffset+22], 1e-9)

	// low-TDOM indicator: 800 is below the 1000 threshold.
	assert.Equal(t, 1.0, v[joinOffset+25])

	// expected output = numerator/denominator = 100, log-scaled.
	assert.Equal(t, logClamp1(100), v[joinOffset+26])
}

func TestLowTdomIndicatorThresholdIsOneThousand(t *testing.T) {
	atThreshold := OperatorFeatures{Kind: planop.KindJoin, JoinType: planop.JoinInner, TDOM: 1000}
	justBelow := OperatorFeatures{Kind: planop.KindJoin, JoinType: planop.JoinInner, TDOM: 999}

	vAt := ToVector(atThreshold)
	vBelow := ToVector(justBelow)

	assert.Equal(t, 0.0, vAt[joinOffset+25], "TDOM == 1000 is not below the threshold")
	assert.Equal(t, 1.0, vBelow[joinOffset+25], "TDOM == 999 is below the threshold")
}

func TestToVectorAggregateBlock(t *testing.T) {
	f := OperatorFeatures{
		Kind:                 planop.KindAggregate,
		EstimatedCardinality: 50,
		GroupByColumns:       3,
		AggregateFunctions:   2,
		GroupingSets:         2,
	}
	v := ToVector(f)
	assert.Equal(t, safeLog(50), v[aggregateOffset+0])
	assert.Equal(t, 3.0, v[aggregateOffset+1])
	assert.Equal(t, 2.0, v[aggregateOffset+2])
	assert.Equal(t, 2.0, v[aggregateOffset+3])
}

func TestToVectorFilterBlock(t *testing.T) {
	f := OperatorFeatures{
		Kind:                  planop.KindFilter,
		ChildCardinality:      2000,
		FilterExpressionKinds: []string{"a", "b"},
	}
	v := ToVector(f)
	assert.Equal(t, safeLog(2000), v[filterOffset+0])
	assert.Equal(t, 2.0, v[filterOffset+1])
}

func TestToVectorContextBlock(t *testing.T) {
	f := OperatorFeatures{
		Kind:                 planop.KindOther,
		EstimatedCardinality: 500,
		HasBaseline:          true,
		BaselineCardinality:  400,
		NumChildren:          2,
	}
	v := ToVector(f)
	assert.Equal(t, safeLog(400), v[contextOffset+0], "Context's only slot is log(engine baseline estimate)")
	for i := 1; i < contextWidth; i++ {
		assert.Equal(t, 0.0, v[contextOffset+i], "Context slots 1-12 are reserved zero padding")
	}
}

func TestToVectorContextBlockWithoutBaselineStaysZero(t *testing.T) {
	f := OperatorFeatures{Kind: planop.KindOther, EstimatedCardinality: 500, HasBaseline: false}
	v := ToVector(f)
	for i := 0; i < contextWidth; i++ {
		assert.Equal(t, 0.0, v[contextOffset+i])
	}
}

func isNaNOrInf(x float64) bool {
	return x != x || x > 1e300 || x < -1e300
}
