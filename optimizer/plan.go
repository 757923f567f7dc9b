package optimizer

import (
	"fmt"
	"math"
	"strings"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/collections"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/pkg/errors"
)

// ErrInconsistent means a plan's expected cost does not match the cost
// recomputed from its useful edges. It indicates a bug, never bad input.
var ErrInconsistent = errors.New("plan cost is inconsistent with its useful edges")

// UsefulEdge is an output difference worth accepting in the current block,
// together with the cost of finishing the chain from where it leads.
type UsefulEdge struct {
	// Diff is the alternative difference plus the continuation difference.
	// It is what the simulator must observe; Input + Diff is the next
	// block's input difference.
	Diff        diffset.DiffVector
	Probability float64
	EdgeCost    float64
	Remaining   float64
}

// Plan is the cheapest way found to spend the next block.
type Plan struct {
	Input       diffset.DiffVector
	Combination int
	Group       int
	// Mask is the alternative's mask combined with the group's mask.
	Mask     catalog.Mask
	Expected float64
	Useful   []UsefulEdge
}

// ExpectedCost is (sum of p*c + 1) / (sum of p) over the useful edges, i.e.
// the expected trials spent in this block plus the expected remaining cost.
// It is +Inf for an empty list.
func ExpectedCost(useful []UsefulEdge) float64 {
	sum, wsum := 0.0, 0.0
	for _, edge := range useful {
		sum += edge.Probability
		// No fused multiply-add: this must match selectPrefix bit for bit.
		wsum += float64(edge.Probability * edge.Remaining)
	}
	if sum == 0 {
		return math.Inf(1)
	}
	return (wsum + 1) / sum
}

// Check recomputes the plan's cost from its useful edges.
func Check(plan *Plan) error {
	recomputed := ExpectedCost(plan.Useful)
	if recomputed != plan.Expected {
		return errors.Wrapf(ErrInconsistent, "Check: input %v expected %v recomputed %v",
			plan.Input, plan.Expected, recomputed)
	}
	return nil
}

// Next is the input difference of the following block if useful edge ii is
// hit.
func (plan *Plan) Next(ii int) diffset.DiffVector {
	return plan.Input.Add(plan.Useful[ii].Diff)
}

// Targets lists the useful output differences in plan order.
func (plan *Plan) Targets() []diffset.DiffVector {
	return collections.TransformSlice(plan.Useful, func(edge UsefulEdge) diffset.DiffVector {
		return edge.Diff
	})
}

func (plan *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan{input=%v combination=%d group=%d mask=%#04x expected=%f useful=[",
		plan.Input, plan.Combination, plan.Group, uint16(plan.Mask), plan.Expected)
	for ii, edge := range plan.Useful {
		if ii > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v:%f", edge.Diff, edge.Remaining)
	}
	sb.WriteString("]}")
	return sb.String()
}
