package planop

// LogicalOperator is the read-only view this module needs of a node in the
// host engine's logical plan tree (spec §6). Baseline-cardinality
// bookkeeping (duckdb_estimated_cardinality in the original source) lives
// here because §4.E's invariant ("baseline preservation") must survive
// across repeated planning passes over the same tree.
type LogicalOperator interface {
	Kind() OperatorKind
	Name() string
	Children() []LogicalOperator

	EstimatedCardinality() uint64
	SetEstimatedCardinality(uint64)

	HasBaseline() bool
	Baseline() uint64
	SetBaseline(uint64)
}

// LogicalBase is embedded by every concrete logical node and implements the
// bookkeeping shared by all of them, so individual node types only need to
// carry their kind-specific fields — the same split the teacher draws
// between its domain.TableInfo (shared metadata) and per-feature-kind
// structs in the statistics package.
type LogicalBase struct {
	kind                  OperatorKind
	name                  string
	children              []LogicalOperator
	estimatedCardinality  uint64
	hasBaseline           bool
	baselineCardinality   uint64
}

// NewLogicalBase constructs the shared bookkeeping for a logical node.
func NewLogicalBase(kind OperatorKind, name string, children []LogicalOperator, estimate uint64) LogicalBase {
	return LogicalBase{kind: kind, name: name, children: children, estimatedCardinality: estimate}
}

func (b *LogicalBase) Kind() OperatorKind           { return b.kind }
func (b *LogicalBase) Name() string                 { return b.name }
func (b *LogicalBase) Children() []LogicalOperator  { return b.children }
func (b *LogicalBase) EstimatedCardinality() uint64 { return b.estimatedCardinality }
func (b *LogicalBase) SetEstimatedCardinality(c uint64) {
	b.estimatedCardinality = c
}
func (b *LogicalBase) HasBaseline() bool { return b.hasBaseline }
func (b *LogicalBase) Baseline() uint64  { return b.baselineCardinality }
func (b *LogicalBase) SetBaseline(c uint64) {
	b.baselineCardinality = c
	b.hasBaseline = true
}

// TableFilter is one predicate attached to a LogicalGet (a DuckDB "table
// filter" pushed into the scan).
type TableFilter struct {
	Kind       string // e.g. "CONSTANT_COMPARISON", "CONJUNCTION_AND"
	Comparison ComparisonKind
	ColumnID   int
}

// LogicalGet is a base table scan, optionally with pushed-down filters.
type LogicalGet struct {
	LogicalBase

	TableName              string
	BaseCardinality        uint64
	ColumnDistinctCounts   map[string]uint64 // column -> HLL distinct estimate
	Filters                []TableFilter
	FilterSelectivity      float64
	UsedDefaultSelectivity bool
	CardinalityAfterDefaultSelectivity uint64
	FinalCardinality       uint64
}

// NewLogicalGet constructs a scan node. estimate is the engine's current
// cardinality estimate for this node (becomes the baseline on first visit).
func NewLogicalGet(name, table string, estimate uint64) *LogicalGet {
	return &LogicalGet{
		LogicalBase:          NewLogicalBase(KindGet, name, nil, estimate),
		TableName:            table,
		ColumnDistinctCounts: make(map[string]uint64),
		FilterSelectivity:    1.0,
	}
}

// FilterConstant summarizes one literal compared against a column, used to
// build the filter-constant-summary slots (spec §3, OperatorFeatures.FILTER
// fields).
type FilterConstant struct {
	IsNumeric    bool
	NumericValue float64
	StringLength int
}

// LogicalFilter is a standalone residual filter over its single child.
type LogicalFilter struct {
	LogicalBase

	ExpressionKinds []string
	Comparisons     []ComparisonKind
	Constants       []FilterConstant
}

// NewLogicalFilter constructs a filter node over child.
func NewLogicalFilter(name string, child LogicalOperator, estimate uint64) *LogicalFilter {
	return &LogicalFilter{LogicalBase: NewLogicalBase(KindFilter, name, []LogicalOperator{child}, estimate)}
}

// JoinCondition is one equality/inequality predicate in a comparison join.
type JoinCondition struct {
	Comparison ComparisonKind
	Equality   bool
}

// LogicalComparisonJoin is a two-input join with one or more conditions.
type LogicalComparisonJoin struct {
	LogicalBase

	JoinType    JoinKind
	Conditions  []JoinCondition
	TDOM        uint64
	TDOMFromHLL bool

	RelationSet      string // canonical relation-set string, e.g. "{0,1,2}"
	NumRelations     int
	LeftRelationCard uint64
	RightRelationCard uint64
	LeftDenominator  float64
	RightDenominator float64

	ExtraRatio  float64
	Numerator   float64
	Denominator float64
}

// NewLogicalComparisonJoin constructs a join node over left and right.
func NewLogicalComparisonJoin(name string, left, right LogicalOperator, joinType JoinKind, estimate uint64) *LogicalComparisonJoin {
	return &LogicalComparisonJoin{
		LogicalBase:      NewLogicalBase(KindJoin, name, []LogicalOperator{left, right}, estimate),
		JoinType:         joinType,
		LeftDenominator:  1.0,
		RightDenominator: 1.0,
		Denominator:      1.0,
		ExtraRatio:       1.0,
	}
}

// LogicalAggregate is a GROUP BY / aggregate node over its single child.
type LogicalAggregate struct {
	LogicalBase

	GroupByColumns     int
	AggregateFunctions int
	GroupingSets       int
}

// NewLogicalAggregate constructs an aggregate node over child.
func NewLogicalAggregate(name string, child LogicalOperator, estimate uint64) *LogicalAggregate {
	return &LogicalAggregate{LogicalBase: NewLogicalBase(KindAggregate, name, []LogicalOperator{child}, estimate)}
}

// LogicalSimple covers operator kinds this module treats uniformly because
// the feature vector has no dedicated block for them (projection, top-N,
// order, limit, union) or genuinely does not recognize them (other).
type LogicalSimple struct {
	LogicalBase
}

// NewLogicalSimple constructs a kind-only node over the given children.
func NewLogicalSimple(kind OperatorKind, name string, children []LogicalOperator, estimate uint64) *LogicalSimple {
	return &LogicalSimple{LogicalBase: NewLogicalBase(kind, name, children, estimate)}
}
