package diffset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DiffWords is the number of 32-bit words in a chaining value.
const DiffWords = 5

// DiffVector is the word-wise modular difference between two parallel SHA-1
// chaining values. Vectors order lexicographically, word by word, as unsigned
// integers; that order is the sort key of the difference database.
type DiffVector [DiffWords]uint32

var ErrBadDiffString = errors.New("difference must be five 8-digit hex words separated by '/'")

func (dd DiffVector) Add(other DiffVector) DiffVector {
	var out DiffVector
	for ii := range dd {
		out[ii] = dd[ii] + other[ii]
	}
	return out
}

func (dd DiffVector) Sub(other DiffVector) DiffVector {
	var out DiffVector
	for ii := range dd {
		out[ii] = dd[ii] - other[ii]
	}
	return out
}

func (dd DiffVector) IsZero() bool {
	return dd == DiffVector{}
}

// Compare returns -1, 0 or 1 depending on whether dd sorts before, equal to or
// after other.
func (dd DiffVector) Compare(other DiffVector) int {
	for ii := range dd {
		if dd[ii] > other[ii] {
			return 1
		} else if dd[ii] < other[ii] {
			return -1
		}
	}
	return 0
}

// String renders the vector in the same form ParseDiffVector accepts.
func (dd DiffVector) String() string {
	return fmt.Sprintf("%08x/%08x/%08x/%08x/%08x", dd[0], dd[1], dd[2], dd[3], dd[4])
}

// Spaced renders the vector as five space separated words, the form used in
// block logs.
func (dd DiffVector) Spaced() string {
	return fmt.Sprintf("%08x %08x %08x %08x %08x", dd[0], dd[1], dd[2], dd[3], dd[4])
}

// ParseDiffVector parses five 8-digit hex words separated by '/', for example
// ffffda04/fffffed4/fffffffc/fffffff8/00000000.
func ParseDiffVector(str string) (DiffVector, error) {
	var dd DiffVector
	if len(str) != DiffWords*8+DiffWords-1 {
		return dd, errors.Wrapf(ErrBadDiffString, "ParseDiffVector: length %d", len(str))
	}
	parts := strings.Split(str, "/")
	if len(parts) != DiffWords {
		return dd, errors.Wrapf(ErrBadDiffString, "ParseDiffVector: %d words", len(parts))
	}
	for ii, part := range parts {
		if len(part) != 8 {
			return dd, errors.Wrapf(ErrBadDiffString, "ParseDiffVector: word %d is %q", ii, part)
		}
		val, err := strconv.ParseUint(part, 16, 32)
		if err != nil {
			return dd, errors.Wrapf(ErrBadDiffString, "ParseDiffVector: word %d: %v", ii, err)
		}
		dd[ii] = uint32(val)
	}
	return dd, nil
}
