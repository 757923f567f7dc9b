package pathtemplate

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/pkg/errors"
)

// The template is a differential path file for the path search tools. Its
// first state row starts with "00:" and is followed by the 32 bit conditions
// of A[0]; Emit replaces everything up to and including that row.
const (
	stateRowMarker = "00:"
	stateRowSkip   = 33

	header       = "80\n"
	columnHeader = "                  A[i]                                W[i]               Dw     Pu[i]       Pc[i]      N[i]  \n"
)

var ErrMarkerNotFound = errors.New("template has no \"00:\" state row")

// signedBits is indexed by 2*bit1 + bit2.
var signedBits = [4]byte{'0', 'n', 'u', '1'}

// SignedDiff renders the bitwise signed difference of two words, most
// significant bit first: '0'/'1' where the bits agree, 'u' where only the
// first word has a 1, 'n' where only the second does. Both words are rotated
// left by rot first.
func SignedDiff(w1 uint32, w2 uint32, rot int) string {
	w1 = bits.RotateLeft32(w1, rot)
	w2 = bits.RotateLeft32(w2, rot)
	var out [32]byte
	for ii := 31; ii >= 0; ii-- {
		out[31-ii] = signedBits[2*(w1>>uint(ii)&1)+(w2>>uint(ii)&1)]
	}
	return string(out[:])
}

// skipToStateRow consumes rr up to and including the marker. A '0' after
// "00" restarts the match from scratch.
func skipToStateRow(rr *bufio.Reader) error {
	state := 0
	for state != len(stateRowMarker) {
		cc, err := rr.ReadByte()
		if err == io.EOF {
			return ErrMarkerNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "skipToStateRow:")
		}
		switch {
		case cc == '0' && state < 2:
			state++
		case cc == ':' && state == 2:
			state++
		default:
			state = 0
		}
	}
	return nil
}

// Emit writes a path file for the next block to out: the template with its
// initial state rows replaced by the chaining values iv1 and iv2, followed by
// the free conditions selected by mask.
func Emit(out io.Writer, tmpl io.Reader, iv1 diffset.DiffVector, iv2 diffset.DiffVector, mask catalog.Mask) error {
	rr := bufio.NewReader(tmpl)
	if err := skipToStateRow(rr); err != nil {
		return errors.Wrapf(err, "Emit:")
	}
	// A short template simply has nothing left to copy.
	if _, err := rr.Discard(stateRowSkip); err != nil && err != io.EOF {
		return errors.Wrapf(err, "Emit: Problem skipping state row")
	}

	ww := bufio.NewWriter(out)
	ww.WriteString(header)
	ww.WriteString(columnHeader)
	// Rows -4..-2 hold A values, which are the chaining values rotated left
	// by 2.
	for _, row := range []struct {
		label string
		word  int
		rot   int
	}{
		{"-4", 4, 2},
		{"-3", 3, 2},
		{"-2", 2, 2},
		{"-1", 1, 0},
		{"00", 0, 0},
	} {
		fmt.Fprintf(ww, "\n%s: %s", row.label, SignedDiff(iv1[row.word], iv2[row.word], row.rot))
	}
	if _, err := rr.WriteTo(ww); err != nil {
		return errors.Wrapf(err, "Emit: Problem copying template")
	}
	for _, cond := range catalog.FreeConditions {
		fmt.Fprintf(ww, "%d[%d] = %d\n", cond.Step, cond.Bit, mask.Value(cond))
	}
	if err := ww.Flush(); err != nil {
		return errors.Wrapf(err, "Emit: Problem writing output")
	}
	return nil
}

// EmitFile renders the template at tmplPath into outPath.
func EmitFile(outPath string, tmplPath string, iv1 diffset.DiffVector, iv2 diffset.DiffVector, mask catalog.Mask) error {
	tmpl, err := os.Open(tmplPath)
	if err != nil {
		return errors.Wrapf(err, "EmitFile:")
	}
	defer tmpl.Close()
	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "EmitFile:")
	}
	if err := Emit(out, tmpl, iv1, iv2, mask); err != nil {
		out.Close()
		return errors.Wrapf(err, "EmitFile: %s", tmplPath)
	}
	return out.Close()
}
