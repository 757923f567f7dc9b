package plancache

import (
	"bytes"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/encoding"
	"github.com/deso-protocol/sha1graph/optimizer"
	"github.com/pkg/errors"
)

// PlanEncodingVersion is the first byte of every stored plan.
const PlanEncodingVersion = byte(0)

func encodeDiff(dd diffset.DiffVector) []byte {
	return encoding.EncodeUint32Array(dd[:])
}

func decodeDiff(rr *bytes.Reader) (diffset.DiffVector, error) {
	var dd diffset.DiffVector
	words, err := encoding.DecodeUint32Array(rr)
	if err != nil {
		return dd, err
	}
	if len(words) != diffset.DiffWords {
		return dd, errors.Errorf("decodeDiff: Got %d words, expected %d", len(words), diffset.DiffWords)
	}
	copy(dd[:], words)
	return dd, nil
}

func EncodePlan(plan *optimizer.Plan) []byte {
	var data []byte
	data = append(data, PlanEncodingVersion)
	data = append(data, encodeDiff(plan.Input)...)
	data = append(data, encoding.UintToBuf(uint64(plan.Combination))...)
	data = append(data, encoding.UintToBuf(uint64(plan.Group))...)
	data = append(data, encoding.UintToBuf(uint64(plan.Mask))...)
	data = append(data, encoding.Float64ToBuf(plan.Expected)...)
	data = append(data, encoding.UintToBuf(uint64(len(plan.Useful)))...)
	for _, edge := range plan.Useful {
		data = append(data, encodeDiff(edge.Diff)...)
		data = append(data, encoding.Float64ToBuf(edge.Probability)...)
		data = append(data, encoding.Float64ToBuf(edge.EdgeCost)...)
		data = append(data, encoding.Float64ToBuf(edge.Remaining)...)
	}
	return data
}

func DecodePlan(data []byte) (*optimizer.Plan, error) {
	rr := bytes.NewReader(data)
	version, err := rr.ReadByte()
	if err != nil {
		return nil, errors.Wrapf(err, "DecodePlan: Problem reading version")
	}
	if version != PlanEncodingVersion {
		return nil, errors.Errorf("DecodePlan: Unknown version %d", version)
	}

	plan := &optimizer.Plan{}
	if plan.Input, err = decodeDiff(rr); err != nil {
		return nil, errors.Wrapf(err, "DecodePlan: Problem reading input")
	}
	combination, err := encoding.ReadUvarint(rr)
	if err != nil || combination >= catalog.NumAlternatives {
		return nil, errors.Errorf("DecodePlan: Bad combination %d: %v", combination, err)
	}
	plan.Combination = int(combination)
	group, err := encoding.ReadUvarint(rr)
	if err != nil {
		return nil, errors.Wrapf(err, "DecodePlan: Problem reading group")
	}
	plan.Group = int(group)
	mask, err := encoding.ReadUvarint(rr)
	if err != nil || mask > uint64(catalog.MaskBits) {
		return nil, errors.Errorf("DecodePlan: Bad mask %#x: %v", mask, err)
	}
	plan.Mask = catalog.Mask(mask)
	if plan.Expected, err = encoding.ReadFloat64(rr); err != nil {
		return nil, errors.Wrapf(err, "DecodePlan: Problem reading expected cost")
	}

	numUseful, err := encoding.ReadUvarint(rr)
	if err != nil {
		return nil, errors.Wrapf(err, "DecodePlan: Problem reading useful count")
	}
	if numUseful > catalog.MaxContinuations {
		return nil, errors.Errorf("DecodePlan: %d useful edges exceeds %d", numUseful, catalog.MaxContinuations)
	}
	if numUseful > 0 {
		plan.Useful, err = encoding.SafeMakeSliceWithLength[optimizer.UsefulEdge](numUseful)
		if err != nil {
			return nil, errors.Wrapf(err, "DecodePlan:")
		}
	}
	for ii := range plan.Useful {
		edge := &plan.Useful[ii]
		if edge.Diff, err = decodeDiff(rr); err != nil {
			return nil, errors.Wrapf(err, "DecodePlan: Problem reading edge %d", ii)
		}
		for _, field := range []*float64{&edge.Probability, &edge.EdgeCost, &edge.Remaining} {
			if *field, err = encoding.ReadFloat64(rr); err != nil {
				return nil, errors.Wrapf(err, "DecodePlan: Problem reading edge %d", ii)
			}
		}
	}
	if rr.Len() != 0 {
		return nil, errors.Errorf("DecodePlan: %d trailing bytes", rr.Len())
	}
	return plan, nil
}
