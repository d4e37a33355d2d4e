package aggregator

import (
	"math"
	"sync/atomic"
	"unsafe"

	"Rank_Engine/graphprocessing/bspgraph"
)

var _ bspgraph.Aggregator = (*Float64Accumulator)(nil)

// Float64Accumulator implements a concurrent-safe accumulator for float64
// values. Aggregate may be called from compute workers; Set and Delta are
// meant to be called between supersteps.
type Float64Accumulator struct {
	prevSum float64
	curSum  float64
}

// Type implements bspgraph.Aggregator.
func (a *Float64Accumulator) Type() string {
	return "Float64Accumulator"
}

// Get returns the current value of the accumulator.
func (a *Float64Accumulator) Get() interface{} {
	return loadFloat64(&a.curSum)
}

// Set the current value of the accumulator. The delta baseline is moved to
// the same value.
func (a *Float64Accumulator) Set(v interface{}) {
	v64 := v.(float64)
	storeFloat64(&a.curSum, v64)
	storeFloat64(&a.prevSum, v64)
}

// Aggregate adds a float64 value to the accumulator.
func (a *Float64Accumulator) Aggregate(v interface{}) {
	for v64 := v.(float64); ; {
		oldV := loadFloat64(&a.curSum)
		newV := oldV + v64
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&a.curSum)),
			math.Float64bits(oldV),
			math.Float64bits(newV),
		) {
			return
		}
	}
}

// Delta returns the change in the accumulator value since the last call to
// Delta or Set.
func (a *Float64Accumulator) Delta() interface{} {
	for {
		curSum := loadFloat64(&a.curSum)
		prevSum := loadFloat64(&a.prevSum)
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&a.prevSum)),
			math.Float64bits(prevSum),
			math.Float64bits(curSum),
		) {
			return curSum - prevSum
		}
	}
}

func loadFloat64(f *float64) float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(f))))
}

func storeFloat64(f *float64, v float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(f)), math.Float64bits(v))
}
