package planop

// PhysicalOperator is the read-only view this module needs of a node in the
// host engine's physical plan tree (spec §6, component F). RLState is typed
// as interface{} rather than a concrete struct so that this package never
// has to import pkg/rl/physical — the physical package attaches a
// *physical.OperatorRLState value here, and the tracker/postquery packages
// type-assert it back out. Keeping planop free of physical/model/collector
// imports is what lets those packages depend on planop without a cycle.
type PhysicalOperator interface {
	Name() string
	Children() []PhysicalOperator
	EstimatedCardinality() uint64

	RLState() interface{}
	SetRLState(interface{})
}

// PhysicalBase is embedded by every concrete physical node a host engine (or
// this module's own tests) constructs.
type PhysicalBase struct {
	name                 string
	children             []PhysicalOperator
	estimatedCardinality uint64
	rlState              interface{}
}

// NewPhysicalBase constructs the shared bookkeeping for a physical node.
func NewPhysicalBase(name string, children []PhysicalOperator, estimate uint64) PhysicalBase {
	return PhysicalBase{name: name, children: children, estimatedCardinality: estimate}
}

func (b *PhysicalBase) Name() string                   { return b.name }
func (b *PhysicalBase) Children() []PhysicalOperator   { return b.children }
func (b *PhysicalBase) EstimatedCardinality() uint64   { return b.estimatedCardinality }
func (b *PhysicalBase) RLState() interface{}           { return b.rlState }
func (b *PhysicalBase) SetRLState(s interface{})       { b.rlState = s }

// SimplePhysicalOperator is the concrete node type this module's own tests
// (and any host engine without a richer physical-operator hierarchy) use to
// exercise the tracker and post-query collector.
type SimplePhysicalOperator struct {
	PhysicalBase
}

// NewSimplePhysicalOperator constructs a physical node over the given
// children.
func NewSimplePhysicalOperator(name string, children []PhysicalOperator, estimate uint64) *SimplePhysicalOperator {
	return &SimplePhysicalOperator{PhysicalBase: NewPhysicalBase(name, children, estimate)}
}
