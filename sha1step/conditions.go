package sha1step

import (
	"github.com/deso-protocol/sha1graph/catalog"
)

// MessageDifference is the XOR difference of W[64..79] on the second path.
var MessageDifference = Message{
	0b00000000000000000000000000000000,
	0b00000000000000000000000000000000,
	0b00000000000000000000000000000000,
	0b00000000000000000000000000000001,
	0b00000000000000000000000000100000,
	0b00000000000000000000000000000001,
	0b01000000000000000000000000000010,
	0b01000000000000000000000001000001,
	0b01000000000000000000000000100010,
	0b10000000000000000000000000000101,
	0b11000000000000000000000010000010,
	0b11000000000000000000000001000110,
	0b01000000000000000000000001001011,
	0b10000000000000000000000100000111,
	0b00000000000000000000000010001001,
	0b00000000000000000000000000010100,
}

// BitCondition requires W[Step][Bit] + W[SourceStep][SourceBit] = 1.
type BitCondition struct {
	Step       int
	Bit        uint
	SourceStep int
	SourceBit  uint
}

// MessageConditions are the fixed message bit relations of the characteristic.
// They are applied after the free conditions since 73[2] is free (z1).
var MessageConditions = [...]BitCondition{
	{Step: 68, Bit: 5, SourceStep: 67, SourceBit: 0},
	{Step: 72, Bit: 30, SourceStep: 67, SourceBit: 0},
	{Step: 71, Bit: 6, SourceStep: 70, SourceBit: 1},
	{Step: 72, Bit: 5, SourceStep: 71, SourceBit: 0},
	{Step: 76, Bit: 30, SourceStep: 71, SourceBit: 0},
	{Step: 74, Bit: 7, SourceStep: 73, SourceBit: 2},
	{Step: 75, Bit: 6, SourceStep: 74, SourceBit: 1},
	{Step: 76, Bit: 6, SourceStep: 75, SourceBit: 1},
}

func (msg *Message) setBit(step int, bit uint, val uint32) {
	word := &msg[step-FirstStep]
	*word = *word&^(1<<bit) | (val&1)<<bit
}

func (msg *Message) bit(step int, bit uint) uint32 {
	return msg[step-FirstStep] >> bit & 1
}

// ApplyConditions overwrites the constrained bits of msg: first the free
// conditions selected by mask, then the fixed message conditions.
func ApplyConditions(msg *Message, mask catalog.Mask) {
	for _, cond := range catalog.FreeConditions {
		msg.setBit(cond.Step, cond.Bit, mask.Value(cond))
	}
	for _, cond := range MessageConditions {
		msg.setBit(cond.Step, cond.Bit, ^msg.bit(cond.SourceStep, cond.SourceBit))
	}
}

// SecondPath returns the message processed by the second path.
func SecondPath(msg *Message) Message {
	var out Message
	for ii := range msg {
		out[ii] = msg[ii] ^ MessageDifference[ii]
	}
	return out
}
