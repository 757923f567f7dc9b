package catalog

import (
	"fmt"
	"strings"
)

// NumFreeConditions is the number of message bits in the last round that a
// characteristic leaves free.
const NumFreeConditions = 13

// Mask holds one bit per free condition. The encoding is complemented: a set
// bit means the condition bit is 0, a clear bit means it is 1.
type Mask uint16

const MaskBits Mask = 1<<NumFreeConditions - 1

// Condition names a free message bit: bit Bit of the expanded message word at
// step Step (64..79).
type Condition struct {
	Name    string
	MaskBit uint
	Step    int
	Bit     uint
}

// FreeConditions lists the free conditions in the order they are reported and
// applied, from mask bit 12 down to mask bit 0.
var FreeConditions = [NumFreeConditions]Condition{
	{Name: "z13", MaskBit: 12, Step: 79, Bit: 4},
	{Name: "z12", MaskBit: 11, Step: 79, Bit: 2},
	{Name: "z11", MaskBit: 10, Step: 78, Bit: 7},
	{Name: "z10", MaskBit: 9, Step: 78, Bit: 3},
	{Name: "z9", MaskBit: 8, Step: 78, Bit: 0},
	{Name: "z1", MaskBit: 7, Step: 73, Bit: 2},
	{Name: "z7", MaskBit: 6, Step: 76, Bit: 3},
	{Name: "z2", MaskBit: 5, Step: 76, Bit: 1},
	{Name: "z3", MaskBit: 4, Step: 76, Bit: 0},
	{Name: "z8", MaskBit: 3, Step: 77, Bit: 8},
	{Name: "z6", MaskBit: 2, Step: 77, Bit: 2},
	{Name: "z4", MaskBit: 1, Step: 77, Bit: 1},
	{Name: "z5", MaskBit: 0, Step: 77, Bit: 0},
}

// Value returns the message bit the mask prescribes for cond.
func (mm Mask) Value(cond Condition) uint32 {
	return uint32(^mm>>cond.MaskBit) & 1
}

// Values returns the prescribed bits in FreeConditions order.
func (mm Mask) Values() [NumFreeConditions]uint32 {
	var out [NumFreeConditions]uint32
	for ii, cond := range FreeConditions {
		out[ii] = mm.Value(cond)
	}
	return out
}

// String renders the mask as "z13=1 z12=0 ..." in FreeConditions order.
func (mm Mask) String() string {
	parts := make([]string, 0, NumFreeConditions)
	for _, cond := range FreeConditions {
		parts = append(parts, fmt.Sprintf("%s=%d", cond.Name, mm.Value(cond)))
	}
	return strings.Join(parts, " ")
}
