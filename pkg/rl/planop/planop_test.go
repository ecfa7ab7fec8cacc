package planop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalBaseBaselinePreservedOnce(t *testing.T) {
	get := NewLogicalGet("SEQ_SCAN", "orders", 1000)
	assert.False(t, get.HasBaseline())

	get.SetBaseline(get.EstimatedCardinality())
	assert.True(t, get.HasBaseline())
	assert.Equal(t, uint64(1000), get.Baseline())

	get.SetEstimatedCardinality(42)
	assert.Equal(t, uint64(1000), get.Baseline(), "overwriting the estimate must not change a baseline already set")
}

func TestLogicalComparisonJoinChildren(t *testing.T) {
	left := NewLogicalGet("SEQ_SCAN", "a", 10)
	right := NewLogicalGet("SEQ_SCAN", "b", 20)
	join := NewLogicalComparisonJoin("COMPARISON_JOIN", left, right, JoinInner, 200)

	children := join.Children()
	assert.Len(t, children, 2)
	assert.Same(t, left, children[0])
	assert.Same(t, right, children[1])
}

func TestPhysicalBaseRLStateRoundTrip(t *testing.T) {
	op := NewSimplePhysicalOperator("HASH_JOIN", nil, 100)
	assert.Nil(t, op.RLState())

	op.SetRLState("anything")
	assert.Equal(t, "anything", op.RLState())
}

func TestOperatorKindString(t *testing.T) {
	assert.Equal(t, "JOIN", KindJoin.String())
	assert.Equal(t, "OTHER", OperatorKind(999).String())
}

func TestJoinKindStringFallthroughKinds(t *testing.T) {
	assert.Equal(t, "MARK", JoinMark.String())
	assert.Equal(t, "OUTER", JoinOuter.String())
}

func TestComparisonKindStringNone(t *testing.T) {
	assert.Equal(t, "", ComparisonNone.String())
}

func TestInvalidCardinalitySentinel(t *testing.T) {
	assert.Equal(t, ^uint64(0), InvalidCardinality)
}
