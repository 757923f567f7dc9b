package diffset

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/deso-protocol/sha1graph/collections"
	"github.com/pkg/errors"
)

var ErrDuplicateKey = errors.New("duplicate key in difference records")

// encodeRecords sorts a copy of recs and returns the flat on-disk encoding.
func encodeRecords(recs []Record) ([]byte, error) {
	sorted := collections.SortStable(recs, func(aa Record, bb Record) bool {
		return aa.Key.Compare(bb.Key) < 0
	})

	data := make([]byte, len(sorted)*RecordSize)
	for ii, rec := range sorted {
		if ii > 0 && sorted[ii-1].Key == rec.Key {
			return nil, errors.Wrapf(ErrDuplicateKey, "encodeRecords: %v", rec.Key)
		}
		base := ii * RecordSize
		for jj, word := range rec.Key {
			binary.LittleEndian.PutUint32(data[base+4*jj:], word)
		}
		binary.LittleEndian.PutUint64(data[base+DiffWords*4:], math.Float64bits(rec.Cost))
	}
	return data, nil
}

// WriteRecords writes recs to ww in database order.
func WriteRecords(ww io.Writer, recs []Record) error {
	data, err := encodeRecords(recs)
	if err != nil {
		return errors.Wrapf(err, "WriteRecords:")
	}
	if _, err := ww.Write(data); err != nil {
		return errors.Wrapf(err, "WriteRecords: Problem writing %d records", len(recs))
	}
	return nil
}

// WriteFile creates (or truncates) path and writes recs to it.
func WriteFile(path string, recs []Record) error {
	ff, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "WriteFile:")
	}
	bw := bufio.NewWriter(ff)
	if err := WriteRecords(bw, recs); err != nil {
		ff.Close()
		return errors.Wrapf(err, "WriteFile: %s", path)
	}
	if err := bw.Flush(); err != nil {
		ff.Close()
		return errors.Wrapf(err, "WriteFile: %s", path)
	}
	return ff.Close()
}

// ReadTextRecords parses one record per line in the form
//
//	ffffda04/fffffed4/fffffffc/fffffff8/00000000 71.25
//
// Blank lines and lines starting with '#' are skipped.
func ReadTextRecords(rr io.Reader) ([]Record, error) {
	var recs []Record
	scanner := bufio.NewScanner(rr)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("ReadTextRecords: line %d: expected 2 fields, got %d", lineNum, len(fields))
		}
		key, err := ParseDiffVector(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "ReadTextRecords: line %d", lineNum)
		}
		cost, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ReadTextRecords: line %d", lineNum)
		}
		recs = append(recs, Record{Key: key, Cost: cost})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "ReadTextRecords:")
	}
	return recs, nil
}
