package chain

import (
	"math/rand"

	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/sha1step"
)

// State is the pair of chaining values entering the next block.
type State struct {
	IV1 diffset.DiffVector
	IV2 diffset.DiffVector
}

// NewState picks a random first chaining value and offsets the second one by
// input.
func NewState(input diffset.DiffVector, rr *rand.Rand) State {
	var st State
	for ii := range st.IV1 {
		st.IV1[ii] = rr.Uint32()
	}
	st.IV2 = st.IV1.Add(input)
	return st
}

// Input is the difference the next block has to cancel.
func (st State) Input() diffset.DiffVector {
	return st.IV2.Sub(st.IV1)
}

// Advance applies the feed-forward of one compressed block per path.
func (st State) Advance(path1 sha1step.State, path2 sha1step.State) State {
	return State{
		IV1: st.IV1.Add(sha1step.FeedForward(path1)),
		IV2: st.IV2.Add(sha1step.FeedForward(path2)),
	}
}
