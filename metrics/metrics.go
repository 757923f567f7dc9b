package metrics

import (
	"time"
)

// Recorder receives the events worth exporting from a run. Implementations
// must be safe for concurrent use.
type Recorder interface {
	// OptimizerRun is called once per optimized block.
	OptimizerRun(lookups int, hits int, expected float64, elapsed time.Duration)
	// PlanCacheAccess is called for every plan cache lookup.
	PlanCacheAccess(hit bool)
	// BlockFinished is called when a simulated block reaches a useful output
	// difference. Cost is trials divided by the catalog scale.
	BlockFinished(block int, trials uint64, cost float64)
	// ChainFinished is called once when the chain stops.
	ChainFinished(blocks int, totalCost float64, collided bool)
}

type NopRecorder struct{}

func (NopRecorder) OptimizerRun(int, int, float64, time.Duration) {}
func (NopRecorder) PlanCacheAccess(bool)                          {}
func (NopRecorder) BlockFinished(int, uint64, float64)            {}
func (NopRecorder) ChainFinished(int, float64, bool)              {}

// Multi fans every event out to all of its recorders.
type Multi []Recorder

func (mm Multi) OptimizerRun(lookups int, hits int, expected float64, elapsed time.Duration) {
	for _, rr := range mm {
		rr.OptimizerRun(lookups, hits, expected, elapsed)
	}
}

func (mm Multi) PlanCacheAccess(hit bool) {
	for _, rr := range mm {
		rr.PlanCacheAccess(hit)
	}
}

func (mm Multi) BlockFinished(block int, trials uint64, cost float64) {
	for _, rr := range mm {
		rr.BlockFinished(block, trials, cost)
	}
}

func (mm Multi) ChainFinished(blocks int, totalCost float64, collided bool) {
	for _, rr := range mm {
		rr.ChainFinished(blocks, totalCost, collided)
	}
}

// OrNop returns rr, or a NopRecorder when rr is nil.
func OrNop(rr Recorder) Recorder {
	if rr == nil {
		return NopRecorder{}
	}
	return rr
}
