package encoding

// Values stored by the plan cache are built from unsigned varints (7 bits per
// byte, least significant group first, msb set on every byte but the last)
// and fixed-width big-endian float64s.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

const (
	MaxVarintLen32 = 5
	MaxVarintLen64 = 10

	Float64Len = 8
)

var ErrVarintOverflow = errors.New("varint overflows a 64-bit integer")

func UintToBuf(xx uint64) []byte {
	scratchBytes := make([]byte, MaxVarintLen64)
	nn := PutUvarint(scratchBytes, xx)
	return scratchBytes[:nn]
}

// PutUvarint writes xx into buf and returns the number of bytes used. buf
// must have room for MaxVarintLen64 bytes.
func PutUvarint(buf []byte, xx uint64) int {
	ii := 0
	for ; xx >= 0x80; ii++ {
		buf[ii] = byte(xx) | 0x80
		xx >>= 7
	}
	buf[ii] = byte(xx)
	return ii + 1
}

// ReadUvarint reads one varint from rr. A truncated value returns
// io.ErrUnexpectedEOF; an empty reader returns io.EOF.
func ReadUvarint(rr io.ByteReader) (uint64, error) {
	var xx uint64
	var shift uint
	for ii := 0; ii < MaxVarintLen64; ii++ {
		bb, err := rr.ReadByte()
		if err != nil {
			if ii > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if bb < 0x80 {
			if ii == MaxVarintLen64-1 && bb > 1 {
				return 0, ErrVarintOverflow
			}
			return xx | uint64(bb)<<shift, nil
		}
		xx |= uint64(bb&0x7f) << shift
		shift += 7
	}
	return 0, ErrVarintOverflow
}

func Float64ToBuf(ff float64) []byte {
	buf := make([]byte, Float64Len)
	binary.BigEndian.PutUint64(buf, math.Float64bits(ff))
	return buf
}

func ReadFloat64(rr io.Reader) (float64, error) {
	var buf [Float64Len]byte
	if _, err := io.ReadFull(rr, buf[:]); err != nil {
		return 0, errors.Wrapf(err, "ReadFloat64:")
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

// EncodeUint32Array writes the length followed by every element as a varint.
func EncodeUint32Array(nums []uint32) []byte {
	data := UintToBuf(uint64(len(nums)))
	for _, vv := range nums {
		data = append(data, UintToBuf(uint64(vv))...)
	}
	return data
}

func DecodeUint32Array(rr *bytes.Reader) ([]uint32, error) {
	numsLen, err := ReadUvarint(rr)
	if err != nil {
		return nil, errors.Wrapf(err, "DecodeUint32Array: Problem reading length")
	}
	if numsLen > uint64(rr.Len()) {
		return nil, errors.Errorf("DecodeUint32Array: Length %d exceeds remaining %d bytes", numsLen, rr.Len())
	}
	nums, err := SafeMakeSliceWithLength[uint32](numsLen)
	if err != nil {
		return nil, errors.Wrapf(err, "DecodeUint32Array: Problem creating slice")
	}
	for ii := range nums {
		vv, err := ReadUvarint(rr)
		if err != nil {
			return nil, errors.Wrapf(err, "DecodeUint32Array: Problem reading number %d", ii)
		}
		if vv > math.MaxUint32 {
			return nil, errors.Errorf("DecodeUint32Array: Number %d overflows uint32", ii)
		}
		nums[ii] = uint32(vv)
	}
	return nums, nil
}

// SafeMakeSliceWithLength turns a panic in make, e.g. from a corrupted
// length prefix, into an error. The named error return is what lets the
// deferred recover set it.
func SafeMakeSliceWithLength[T any](length uint64) (_ []T, outputError error) {
	defer SafeMakeRecover(&outputError)
	return make([]T, length), outputError
}

// SafeMakeRecover must be deferred. It converts a panic into *outputError.
func SafeMakeRecover(outputError *error) {
	if err := recover(); err != nil {
		*outputError = errors.New(fmt.Sprintf("Error in make: %v", err))
	}
}
