package catalog

import (
	"github.com/deso-protocol/sha1graph/diffset"
)

// Flipping the sign of a message difference bit in the last steps changes the
// output difference by a fixed amount and frees the corresponding condition.
// These are the five independent flips; every subset of them is a valid
// alternative.
var primitiveAlternatives = [...]struct {
	Diff diffset.DiffVector
	Mask Mask
}{
	{Diff: diffset.DiffVector{1 << 6, 1 << 1, 0, 0, 0}, Mask: 1 << 8},   // z9
	{Diff: diffset.DiffVector{1 << 9, 1 << 4, 0, 0, 0}, Mask: 1 << 9},   // z10
	{Diff: diffset.DiffVector{1 << 13, 1 << 8, 0, 0, 0}, Mask: 1 << 10}, // z11
	{Diff: diffset.DiffVector{1 << 3, 0, 0, 0, 0}, Mask: 1 << 11},       // z12
	{Diff: diffset.DiffVector{1 << 5, 0, 0, 0, 0}, Mask: 1 << 12},       // z13
}

const NumAlternatives = 1 << len(primitiveAlternatives)

// AlternativeDifference is the combined effect of the sign flips selected by
// the bits of ID.
type AlternativeDifference struct {
	ID   int
	Diff diffset.DiffVector
	Mask Mask
}

// Alternatives enumerates all NumAlternatives combinations. Bit u of the id
// selects primitive flip u.
func Alternatives() [NumAlternatives]AlternativeDifference {
	var out [NumAlternatives]AlternativeDifference
	for id := 0; id < NumAlternatives; id++ {
		alt := AlternativeDifference{ID: id}
		for uu, prim := range primitiveAlternatives {
			if id&(1<<uu) != 0 {
				alt.Mask |= prim.Mask
				alt.Diff = alt.Diff.Add(prim.Diff)
			}
		}
		out[id] = alt
	}
	return out
}

// Candidate is the database key reached from input when the block takes
// alternative alt and ends on continuation cont.
func Candidate(input diffset.DiffVector, alt AlternativeDifference, cont Continuation) diffset.DiffVector {
	return input.Add(alt.Diff).Add(cont.Diff)
}
