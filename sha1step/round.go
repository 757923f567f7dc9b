package sha1step

import (
	"math/bits"

	"github.com/deso-protocol/sha1graph/diffset"
)

const (
	// FirstStep is the index of the first simulated SHA-1 step. Only the last
	// round, steps 64 to 79, is ever computed.
	FirstStep = 64
	NumSteps  = 16

	_K3 = 0xCA62C1D6
)

// State is the sliding window of the five most recent A values, oldest
// first. Working on A values alone avoids shuffling the B..E registers: the
// usual registers are B = A[i-1], C = ROL30(A[i-2]) and so on.
type State [5]uint32

// Message holds the expanded message words W[64..79].
type Message [NumSteps]uint32

func (st State) step(ww uint32) State {
	aa := bits.RotateLeft32(st[4], 5) +
		(st[3] ^ bits.RotateLeft32(st[2], 30) ^ bits.RotateLeft32(st[1], 30)) +
		bits.RotateLeft32(st[0], 30) + ww + _K3
	return State{st[1], st[2], st[3], st[4], aa}
}

// Run computes steps 64..79 from the window st.
func Run(st State, msg *Message) State {
	for ii := 0; ii < NumSteps; ii++ {
		st = st.step(msg[ii])
	}
	return st
}

// FeedForward returns the values the final window adds to the chaining value,
// in chaining-value order (H0..H4).
func FeedForward(st State) diffset.DiffVector {
	return diffset.DiffVector{
		st[4],
		st[3],
		bits.RotateLeft32(st[2], 30),
		bits.RotateLeft32(st[1], 30),
		bits.RotateLeft32(st[0], 30),
	}
}

// OutputDiff is the difference the two final windows add to the chaining
// values.
func OutputDiff(st1 State, st2 State) diffset.DiffVector {
	return FeedForward(st2).Sub(FeedForward(st1))
}
