// Package planop defines the minimal read-only contracts this module needs
// from a host query engine's logical and physical plan trees (spec §6,
// "Engine interfaces consumed"). A host engine adapts its own operator
// types to these interfaces; this module never constructs them except in
// tests. This mirrors the teacher's pkg/resource/domain package, which
// plays the same boundary-contract role between the optimizer and whatever
// storage engine is plugged in underneath it.
package planop

// OperatorKind tags a logical or physical operator for the one-hot block
// at the head of the feature vector (spec §3). Order matches the vector
// layout exactly — do not reorder without updating features.ToVector.
type OperatorKind int

const (
	KindGet OperatorKind = iota
	KindJoin
	KindFilter
	KindAggregate
	KindProjection
	KindTopN
	KindOrder
	KindLimit
	KindUnion
	KindOther
)

func (k OperatorKind) String() string {
	switch k {
	case KindGet:
		return "GET"
	case KindJoin:
		return "JOIN"
	case KindFilter:
		return "FILTER"
	case KindAggregate:
		return "AGGREGATE"
	case KindProjection:
		return "PROJECTION"
	case KindTopN:
		return "TOPN"
	case KindOrder:
		return "ORDER"
	case KindLimit:
		return "LIMIT"
	case KindUnion:
		return "UNION"
	default:
		return "OTHER"
	}
}

// JoinKind enumerates the join types spec §3 assigns a one-hot slot to,
// plus MARK/OUTER which spec.md §3 names as valid join kinds but which
// (like the original source) fall through the one-hot encoding with all
// five slots zero.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinSemi
	JoinAnti
	JoinMark
	JoinOuter
)

func (j JoinKind) String() string {
	switch j {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinSemi:
		return "SEMI"
	case JoinAnti:
		return "ANTI"
	case JoinMark:
		return "MARK"
	case JoinOuter:
		return "OUTER"
	default:
		return "UNKNOWN"
	}
}

// ComparisonKind enumerates the comparison operators shared by table
// filters and join conditions; both feature-vector blocks one-hot the same
// six values (spec §3).
type ComparisonKind int

const (
	ComparisonNone ComparisonKind = iota
	ComparisonEqual
	ComparisonLessThan
	ComparisonGreaterThan
	ComparisonLessThanOrEqual
	ComparisonGreaterThanOrEqual
	ComparisonNotEqual
)

func (c ComparisonKind) String() string {
	switch c {
	case ComparisonEqual:
		return "EQUAL"
	case ComparisonLessThan:
		return "LESSTHAN"
	case ComparisonGreaterThan:
		return "GREATERTHAN"
	case ComparisonLessThanOrEqual:
		return "LESSTHANOREQUALTO"
	case ComparisonGreaterThanOrEqual:
		return "GREATERTHANOREQUALTO"
	case ComparisonNotEqual:
		return "NOTEQUAL"
	default:
		return ""
	}
}

// InvalidCardinality is the sentinel a host engine uses to mark a relation
// cardinality as unavailable (spec §4.D, Scenario C). Mirrors the original
// source's use of std::numeric_limits<idx_t>::max().
const InvalidCardinality uint64 = ^uint64(0)
