package bspgraph

// Aggregator is implemented by type that provide concurrent-safe
// aggregation primitives (e.g counters, min/max, topN).
type Aggregator interface {
	// Type returns the type of this aggregator.
	Type() string
	// Set the value of the aggregator to the specified value
	Set(val interface{})
	// Get the current aggregator value.
	Get() interface{}
	// Aggregate updates the aggregator's value based on the provided value
	Aggregate(val interface{})
	// Delta returns the change in the aggregator's value since the last call to Delta or Set
	Delta() interface{}
}

// ComputeFunc is a function that a graph instance invokes on each vertex when
// executing a super-step. Implementations may read shared state prepared
// before the step but must only write state owned by v.
type ComputeFunc func(g *Graph, v *Vertex) error
