package catalog

import (
	"encoding/binary"
	"math"

	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// MaxContinuations is the capacity of a group's continuation list.
const MaxContinuations = 38

var ErrInvalidCatalog = errors.New("invalid characteristic catalog")

// Continuation is one output difference a characteristic group can end on.
// Raw is the log2 cost as stored in catalog files; Probability is filled in by
// normalization.
type Continuation struct {
	Raw         float64
	Probability float64
	Diff        diffset.DiffVector
}

// EdgeCost is the expected number of normalized trials needed to hit this
// continuation on its own.
func (cc Continuation) EdgeCost() float64 {
	return 1 / cc.Probability
}

// Group is a differential path through the last round with fixed signs,
// together with the free conditions it requires.
type Group struct {
	Mask          Mask
	Continuations []Continuation
}

// Catalog is the immutable table of characteristic groups. Probabilities are
// relative to the most likely continuation across the whole catalog, whose
// raw log2 cost is Min.
type Catalog struct {
	Groups []Group
	Min    float64
}

// New validates groups and returns a normalized catalog. The groups are copied.
func New(groups []Group) (*Catalog, error) {
	cat := &Catalog{Groups: make([]Group, len(groups))}
	for ii, group := range groups {
		cat.Groups[ii] = Group{
			Mask:          group.Mask,
			Continuations: append([]Continuation(nil), group.Continuations...),
		}
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	cat.normalize()
	return cat, nil
}

func (cat *Catalog) validate() error {
	if len(cat.Groups) == 0 {
		return errors.Wrapf(ErrInvalidCatalog, "validate: no groups")
	}
	for ii, group := range cat.Groups {
		if group.Mask&^MaskBits != 0 {
			return errors.Wrapf(ErrInvalidCatalog, "validate: group %d mask %#x exceeds %d bits",
				ii, group.Mask, NumFreeConditions)
		}
		if len(group.Continuations) > MaxContinuations {
			return errors.Wrapf(ErrInvalidCatalog, "validate: group %d has %d continuations, max %d",
				ii, len(group.Continuations), MaxContinuations)
		}
		for jj, cont := range group.Continuations {
			if cont.Raw == 0 {
				return errors.Wrapf(ErrInvalidCatalog, "validate: group %d continuation %d has zero cost", ii, jj)
			}
			if math.IsNaN(cont.Raw) || math.IsInf(cont.Raw, 0) {
				return errors.Wrapf(ErrInvalidCatalog, "validate: group %d continuation %d has cost %v",
					ii, jj, cont.Raw)
			}
		}
	}
	return nil
}

func (cat *Catalog) normalize() {
	cat.Min = math.Inf(1)
	for _, group := range cat.Groups {
		for _, cont := range group.Continuations {
			if cont.Raw < cat.Min {
				cat.Min = cont.Raw
			}
		}
	}
	for ii := range cat.Groups {
		conts := cat.Groups[ii].Continuations
		for jj := range conts {
			conts[jj].Probability = 1 / math.Exp2(conts[jj].Raw-cat.Min)
		}
	}
}

// Scale converts trial counts into costs expressed in units of the cheapest
// continuation: cost = trials / Scale.
func (cat *Catalog) Scale() float64 {
	return math.Exp2(cat.Min)
}

func (cat *Catalog) NumContinuations() int {
	total := 0
	for _, group := range cat.Groups {
		total += len(group.Continuations)
	}
	return total
}

// Fingerprint identifies the catalog contents. Cached optimizer results are
// only valid for the catalog that produced them.
func (cat *Catalog) Fingerprint() [32]byte {
	hh := sha3.New256()
	var buf [8]byte
	for _, group := range cat.Groups {
		binary.LittleEndian.PutUint16(buf[:2], uint16(group.Mask))
		hh.Write(buf[:2])
		binary.LittleEndian.PutUint16(buf[:2], uint16(len(group.Continuations)))
		hh.Write(buf[:2])
		for _, cont := range group.Continuations {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(cont.Raw))
			hh.Write(buf[:])
			for _, word := range cont.Diff {
				binary.LittleEndian.PutUint32(buf[:4], word)
				hh.Write(buf[:4])
			}
		}
	}
	var out [32]byte
	copy(out[:], hh.Sum(nil))
	return out
}
