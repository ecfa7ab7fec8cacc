package features

import (
	"github.com/ao2395/XGDuckDB/pkg/rl/collector"
	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

// Extract builds an OperatorFeatures for op, preferring whatever the
// collector recorded during optimization (HLL-derived distinct counts,
// TDOM, relation-set cardinalities) and falling back to the operator's own
// fields when the collector has nothing cached for it — the same
// dispatch-then-fallback shape as the teacher's statistics estimator
// (histogram first, column stats fallback).
func Extract(op planop.LogicalOperator, c *collector.FeatureCollector) OperatorFeatures {
	f := OperatorFeatures{
		Kind:                 op.Kind(),
		EstimatedCardinality: op.EstimatedCardinality(),
		HasBaseline:          op.HasBaseline(),
		BaselineCardinality:  op.Baseline(),
		NumChildren:          len(op.Children()),
	}

	if f.EstimatedCardinality == 0 {
		f.EstimatedCardinality = childCardinality(op)
	}

	switch node := op.(type) {
	case *planop.LogicalGet:
		extractGet(node, c, &f)
	case *planop.LogicalComparisonJoin:
		extractJoin(node, c, &f)
	case *planop.LogicalFilter:
		extractFilter(node, &f)
	case *planop.LogicalAggregate:
		extractAggregate(node, &f)
	}
	return f
}

// childCardinality implements spec §4.E step 2's "propagate child
// cardinality if missing": when an operator's own estimate is unset, take
// its largest child's estimate instead of leaving EstimatedCardinality at
// zero (which safeLog would otherwise render indistinguishable from a
// genuinely tiny estimate in the AGGREGATE block's input-cardinality slot).
func childCardinality(op planop.LogicalOperator) uint64 {
	var max uint64
	for _, child := range op.Children() {
		if c := child.EstimatedCardinality(); c > max {
			max = c
		}
	}
	return max
}

func extractGet(node *planop.LogicalGet, c *collector.FeatureCollector, f *OperatorFeatures) {
	f.TableName = node.TableName
	f.BaseCardinality = node.BaseCardinality
	f.FinalCardinality = node.FinalCardinality
	f.CardinalityAfterDefaultSelectivity = node.CardinalityAfterDefaultSelectivity
	f.FilterSelectivity = node.FilterSelectivity
	f.UsedDefaultSelectivity = node.UsedDefaultSelectivity
	f.NumFilters = len(node.Filters)

	distinctCounts := node.ColumnDistinctCounts
	if c != nil {
		if cached, ok := c.GetScanFeatures(node); ok {
			f.BaseCardinality = cached.BaseCardinality
			f.FilterSelectivity = cached.FilterSelectivity
			if len(cached.ColumnDistinctCounts) > 0 {
				distinctCounts = cached.ColumnDistinctCounts
			}
		}
	}
	for _, v := range distinctCounts {
		f.ColumnDistinctCounts = append(f.ColumnDistinctCounts, v)
	}
	for _, filt := range node.Filters {
		f.FilterComparisons = append(f.FilterComparisons, filt.Comparison)
	}
}

func extractJoin(node *planop.LogicalComparisonJoin, c *collector.FeatureCollector, f *OperatorFeatures) {
	f.JoinType = node.JoinType
	f.TDOM = node.TDOM
	f.TDOMFromHLL = node.TDOMFromHLL
	f.NumRelations = node.NumRelations
	f.LeftRelationCard = node.LeftRelationCard
	f.RightRelationCard = node.RightRelationCard
	f.LeftDenominator = node.LeftDenominator
	f.RightDenominator = node.RightDenominator
	f.ExtraRatio = node.ExtraRatio
	f.Numerator = node.Numerator
	f.Denominator = node.Denominator
	f.JoinConditions = node.Conditions
	if len(node.Conditions) > 0 {
		// spec §3's comparison_type_join is a single join-level comparison
		// kind, not a per-condition distribution; the leading condition is
		// the representative one, mirroring how a join's conditions are
		// built with the primary equality/inequality predicate first.
		f.JoinComparisonType = node.Conditions[0].Comparison
	}

	if c != nil {
		if cached, ok := c.GetJoinFeatures(node); ok {
			f.TDOM = cached.TDOM
			f.TDOMFromHLL = cached.TDOMFromHLL
			f.LeftRelationCard = cached.LeftCardinality
			f.RightRelationCard = cached.RightCardinality
			f.Numerator = cached.Numerator
			f.Denominator = cached.Denominator
		}
		if card, ok := c.RelationCardinality(node.RelationSet); ok {
			// a fully resolved join-order relation set replaces the
			// left-side estimate; the right side keeps its own value.
			f.LeftRelationCard = card
		}
	}

	f.LeftRelationCard = resolveRelationCardinality(f.LeftRelationCard, f.Numerator)
	f.RightRelationCard = resolveRelationCardinality(f.RightRelationCard, f.Numerator)

	f.JoinConditionCount = len(node.Conditions)
	for _, cond := range node.Conditions {
		if cond.Equality {
			f.JoinEqualityConditionCount++
		}
	}
	if f.JoinConditionCount > 0 {
		f.JoinKeySameTypeRatio = float64(f.JoinEqualityConditionCount) / float64(f.JoinConditionCount)
	}
	// JoinKeySimpleRefRatio and JoinKeySignatureHash are carried on
	// OperatorFeatures for parity with the original source's header, which
	// declares both but never assigns either outside their zero default;
	// JoinCondition has no column-reference-shape data to derive them from.
}

func extractFilter(node *planop.LogicalFilter, f *OperatorFeatures) {
	f.FilterExpressionKinds = node.ExpressionKinds
	f.FilterComparisonKinds = node.Comparisons
	f.FilterConstantCount = len(node.Constants)

	for _, child := range node.Children() {
		if card := child.EstimatedCardinality(); card > f.ChildCardinality {
			f.ChildCardinality = card
		}
	}

	numericSum, numericCount := 0.0, 0
	stringLenSum, stringCount := 0.0, 0
	for _, k := range node.Constants {
		if k.IsNumeric {
			numericSum += safeLog1p(abs(k.NumericValue))
			numericCount++
		} else {
			stringLenSum += float64(k.StringLength)
			stringCount++
		}
	}
	if numericCount > 0 {
		f.FilterConstantNumericLogMean = numericSum / float64(numericCount)
	}
	if stringCount > 0 {
		f.FilterConstantStringLengthMean = stringLenSum / float64(stringCount)
	}
}

func extractAggregate(node *planop.LogicalAggregate, f *OperatorFeatures) {
	f.GroupByColumns = node.GroupByColumns
	f.AggregateFunctions = node.AggregateFunctions
	f.GroupingSets = node.GroupingSets
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
