package features

import (
	"hash/fnv"
	"math"

	"github.com/ao2395/XGDuckDB/pkg/rl/planop"
)

// Block widths making up the fixed 80-slot vector (spec §3). Order and
// width are load-bearing: every already-trained booster.Ensemble assumes
// this exact layout, so these constants must never change independently of
// a full model reset.
const (
	opOneHotWidth    = 10
	getBlockWidth    = 24
	joinBlockWidth   = 27
	aggregateWidth   = 4
	filterWidth      = 2
	contextWidth     = 13

	opOneHotOffset  = 0
	getOffset       = opOneHotOffset + opOneHotWidth
	joinOffset      = getOffset + getBlockWidth
	aggregateOffset = joinOffset + joinBlockWidth
	filterOffset    = aggregateOffset + aggregateWidth
	contextOffset   = filterOffset + filterWidth

	// VectorSize is the total feature vector width. Fixed by spec §3;
	// resolves the corresponding Open Question in the design ledger in
	// favor of never resizing at runtime.
	VectorSize = contextOffset + contextWidth
)

var comparisonOrder = []planop.ComparisonKind{
	planop.ComparisonEqual,
	planop.ComparisonLessThan,
	planop.ComparisonGreaterThan,
	planop.ComparisonLessThanOrEqual,
	planop.ComparisonGreaterThanOrEqual,
	planop.ComparisonNotEqual,
}

var joinOneHotOrder = []planop.JoinKind{
	planop.JoinInner,
	planop.JoinLeft,
	planop.JoinRight,
	planop.JoinSemi,
	planop.JoinAnti,
}

// ToVector renders f into the fixed-width feature vector the booster
// trains on and predicts from.
func ToVector(f OperatorFeatures) [VectorSize]float64 {
	var v [VectorSize]float64

	writeOpOneHot(&v, f.Kind)
	writeGetBlock(&v, f)
	writeJoinBlock(&v, f)
	writeAggregateBlock(&v, f)
	writeFilterBlock(&v, f)
	writeContextBlock(&v, f)

	return v
}

// ToSlice is a convenience wrapper returning the vector as a []float64 for
// callers (the booster, training rows) that need a slice rather than a
// fixed-size array.
func ToSlice(f OperatorFeatures) []float64 {
	v := ToVector(f)
	return v[:]
}

func writeOpOneHot(v *[VectorSize]float64, kind planop.OperatorKind) {
	idx := int(kind)
	if idx >= 0 && idx < opOneHotWidth {
		v[opOneHotOffset+idx] = 1
	}
}

func writeGetBlock(v *[VectorSize]float64, f OperatorFeatures) {
	if f.Kind != planop.KindGet {
		return
	}
	b := v[getOffset : getOffset+getBlockWidth]

	b[0] = tableNameHash(f.TableName)
	b[1] = safeLog(float64(f.BaseCardinality))
	b[2] = float64(f.NumFilters)
	b[3] = f.FilterSelectivity
	b[4] = boolToFloat(f.UsedDefaultSelectivity)
	b[5] = float64(len(f.FilterComparisons))
	b[6] = float64(len(f.ColumnDistinctCounts))

	stats := distinctRatioStats(f.ColumnDistinctCounts, f.BaseCardinality)
	copy(b[7:15], stats[:])

	if len(f.FilterComparisons) > 0 {
		present := make(map[planop.ComparisonKind]bool, len(f.FilterComparisons))
		for _, k := range f.FilterComparisons {
			present[k] = true
		}
		for i, kind := range comparisonOrder {
			b[15+i] = boolToFloat(present[kind])
		}
	}
	// indices 21-23 are never written: the original source's FeaturesToVector
	// advances its cursor by only 21 slots on the table-scan path even
	// though the block is budgeted at 24, so these stay reserved padding.
}

// distinctRatioStats computes the 8-value per-column distinct-count summary
// (spec §3's GET block): mean/max/min of distinct_count/base_cardinality
// ratios, the mean log of the raw distinct counts, counts of high- (>0.5)
// and low- (<0.05) cardinality columns, and the log of the smallest and
// largest raw distinct counts.
func distinctRatioStats(counts []uint64, baseCardinality uint64) [8]float64 {
	var stats [8]float64
	if len(counts) == 0 || baseCardinality == 0 {
		return stats
	}

	sumRatio, maxRatio, minRatio := 0.0, 0.0, math.Inf(1)
	sumLog := 0.0
	numHigh, numLow := 0.0, 0.0
	minCount, maxCount := counts[0], counts[0]

	for _, c := range counts {
		ratio := float64(c) / float64(baseCardinality)
		sumRatio += ratio
		if ratio > maxRatio {
			maxRatio = ratio
		}
		if ratio < minRatio {
			minRatio = ratio
		}
		sumLog += safeLog(float64(c))
		if ratio > 0.5 {
			numHigh++
		}
		if ratio < 0.05 {
			numLow++
		}
		if c < minCount {
			minCount = c
		}
		if c > maxCount {
			maxCount = c
		}
	}

	n := float64(len(counts))
	stats[0] = sumRatio / n
	stats[1] = maxRatio
	stats[2] = minRatio
	stats[3] = sumLog / n
	stats[4] = numHigh
	stats[5] = numLow
	stats[6] = safeLog(float64(minCount))
	stats[7] = safeLog(float64(maxCount))
	return stats
}

// tableNameHash maps a table name to a deterministic value in [0, 1),
// mirroring the original source's std::hash<std::string>(table_name) %
// 10000 / 10000.0 with Go's fnv hash in place of C++'s hasher.
func tableNameHash(name string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return float64(h.Sum64()%10000) / 10000.0
}

func writeJoinBlock(v *[VectorSize]float64, f OperatorFeatures) {
	if f.Kind != planop.KindJoin {
		return
	}
	b := v[joinOffset : joinOffset+joinBlockWidth]

	left := float64(f.LeftRelationCard)
	right := float64(f.RightRelationCard)
	tdom := float64(f.TDOM)

	b[0] = safeLog(left)
	b[1] = safeLog(right)
	b[2] = safeLog(tdom)
	b[3] = boolToFloat(f.TDOMFromHLL)

	for i, kind := range joinOneHotOrder {
		if f.JoinType == kind {
			b[4+i] = 1
		}
	}
	for i, kind := range comparisonOrder {
		if f.JoinComparisonType == kind {
			b[9+i] = 1
		}
	}

	b[15] = logClamp1(f.ExtraRatio)
	b[16] = logClamp1(f.Numerator)
	b[17] = logClamp1(f.Denominator)
	b[18] = float64(f.NumRelations)
	b[19] = logClamp1(f.LeftDenominator)
	b[20] = logClamp1(f.RightDenominator)

	// Low-cardinality join detection derived features, mirroring the
	// original source's six derived join features.
	crossProduct := left * right
	denominator := f.Denominator
	if denominator <= 0 {
		denominator = 1
	}
	b[21] = logClamp1(crossProduct / denominator)

	tdomRatio := 0.0
	if left > 0 && right > 0 && tdom > 0 {
		tdomRatio = tdom / ((left + right) / 2)
	}
	b[22] = tdomRatio

	selectivityRatio := 1.0
	if f.Numerator > 0 {
		selectivityRatio = f.Denominator / f.Numerator
	}
	b[23] = logClamp1(selectivityRatio)

	sizeImbalance := 1.0
	if left > 0 && right > 0 {
		larger, smaller := left, right
		if smaller > larger {
			larger, smaller = smaller, larger
		}
		sizeImbalance = larger / smaller
	}
	b[24] = logClamp1(sizeImbalance)

	if f.TDOM > 0 && f.TDOM < 1000 {
		b[25] = 1
	}

	expectedOutput := 0.0
	if f.Numerator > 0 && f.Denominator > 0 {
		expectedOutput = f.Numerator / f.Denominator
	}
	b[26] = logClamp1(expectedOutput)
}

func writeAggregateBlock(v *[VectorSize]float64, f OperatorFeatures) {
	if f.Kind != planop.KindAggregate {
		return
	}
	b := v[aggregateOffset : aggregateOffset+aggregateWidth]
	b[0] = safeLog(float64(f.EstimatedCardinality))
	b[1] = float64(f.GroupByColumns)
	b[2] = float64(f.AggregateFunctions)
	b[3] = float64(f.GroupingSets)
}

func writeFilterBlock(v *[VectorSize]float64, f OperatorFeatures) {
	if f.Kind != planop.KindFilter {
		return
	}
	b := v[filterOffset : filterOffset+filterWidth]
	b[0] = safeLog(float64(f.ChildCardinality))
	b[1] = float64(len(f.FilterExpressionKinds))
}

func writeContextBlock(v *[VectorSize]float64, f OperatorFeatures) {
	b := v[contextOffset : contextOffset+contextWidth]
	b[0] = safeLog(float64(f.BaselineCardinality))
	// indices 1-12 are reserved zero padding (spec.md's Context block: "log
	// (engine baseline estimate) and reserved zero padding").
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
