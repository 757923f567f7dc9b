package catalog

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestAlternativesArePowerSetSums(t *testing.T) {
	require := require.New(t)

	alts := Alternatives()
	require.Equal(diffset.DiffVector{}, alts[0].Diff)
	require.Equal(Mask(0), alts[0].Mask)

	// Combination 0b00011 is primitive 0 plus primitive 1.
	require.Equal(diffset.DiffVector{1<<6 + 1<<9, 1<<1 + 1<<4, 0, 0, 0}, alts[0b00011].Diff)
	require.Equal(Mask(1<<8|1<<9), alts[0b00011].Mask)

	for id, alt := range alts {
		require.Equal(id, alt.ID)

		var diff diffset.DiffVector
		var mask Mask
		for uu := 0; uu < 5; uu++ {
			if id&(1<<uu) != 0 {
				diff = diff.Add(alts[1<<uu].Diff)
				mask |= alts[1<<uu].Mask
			}
		}
		require.Equal(diff, alt.Diff, "combination %05b", id)
		require.Equal(mask, alt.Mask, "combination %05b", id)
	}

	// The primitive flips free exactly z9..z13.
	require.Equal(Mask(0x1f00), alts[NumAlternatives-1].Mask)
}

func TestCandidateAddsModularly(t *testing.T) {
	alt := Alternatives()[1]
	cont := Continuation{Diff: diffset.DiffVector{0xffffffff, 0, 0, 0, 1}}
	input := diffset.DiffVector{1, 2, 3, 4, 5}
	require.Equal(t, diffset.DiffVector{1 << 6, 2 + 1<<1, 3, 4, 6}, Candidate(input, alt, cont))
}

func TestMaskValues(t *testing.T) {
	require := require.New(t)

	// An all-zero mask prescribes 1 for every condition.
	for _, val := range Mask(0).Values() {
		require.Equal(uint32(1), val)
	}
	for _, val := range MaskBits.Values() {
		require.Equal(uint32(0), val)
	}

	// Bit 8 is z9, the fifth condition in report order.
	vals := Mask(1 << 8).Values()
	require.Equal(uint32(0), vals[4])
	require.Equal("z9", FreeConditions[4].Name)
	require.Equal("z13=1 z12=1 z11=1 z10=1 z9=0 z1=1 z7=1 z2=1 z3=1 z8=1 z6=1 z4=1 z5=1",
		Mask(1<<8).String())

	// Every mask bit is used exactly once.
	seen := make(map[uint]bool)
	for _, cond := range FreeConditions {
		require.False(seen[cond.MaskBit])
		seen[cond.MaskBit] = true
		require.True(cond.Step >= 64 && cond.Step < 80)
	}
	require.Len(seen, NumFreeConditions)
}

func TestNormalization(t *testing.T) {
	require := require.New(t)

	cat, err := New([]Group{
		{Mask: 1, Continuations: []Continuation{
			{Raw: 60, Diff: diffset.DiffVector{1}},
			{Raw: 62, Diff: diffset.DiffVector{2}},
		}},
		{Mask: 2, Continuations: []Continuation{
			{Raw: 61, Diff: diffset.DiffVector{3}},
		}},
	})
	require.NoError(err)
	require.Equal(60.0, cat.Min)
	require.Equal(math.Exp2(60), cat.Scale())
	require.Equal(1.0, cat.Groups[0].Continuations[0].Probability)
	require.Equal(0.25, cat.Groups[0].Continuations[1].Probability)
	require.Equal(0.5, cat.Groups[1].Continuations[0].Probability)
	require.Equal(4.0, cat.Groups[0].Continuations[1].EdgeCost())
	require.Equal(3, cat.NumContinuations())
}

func TestCatalogValidation(t *testing.T) {
	require := require.New(t)

	_, err := New(nil)
	require.True(errors.Is(err, ErrInvalidCatalog))

	_, err = New([]Group{{Mask: 1 << 13}})
	require.True(errors.Is(err, ErrInvalidCatalog))

	tooMany := make([]Continuation, MaxContinuations+1)
	for ii := range tooMany {
		tooMany[ii].Raw = 1
	}
	_, err = New([]Group{{Continuations: tooMany}})
	require.True(errors.Is(err, ErrInvalidCatalog))

	_, err = New([]Group{{Continuations: []Continuation{{Raw: math.NaN()}}}})
	require.True(errors.Is(err, ErrInvalidCatalog))
}

func TestFingerprintTracksContents(t *testing.T) {
	require := require.New(t)

	groups := []Group{{Mask: 3, Continuations: []Continuation{{Raw: 60, Diff: diffset.DiffVector{1}}}}}
	aa, err := New(groups)
	require.NoError(err)
	bb, err := New(groups)
	require.NoError(err)
	require.Equal(aa.Fingerprint(), bb.Fingerprint())

	groups[0].Continuations[0].Diff[4] = 1
	cc, err := New(groups)
	require.NoError(err)
	require.NotEqual(aa.Fingerprint(), cc.Fingerprint())
}

func TestParseYAML(t *testing.T) {
	require := require.New(t)

	src := `
groups:
  - mask: 0x0100
    continuations:
      - cost: 61.5
        diff: 00000040/00000002/00000000/00000000/00000000
      - cost: 63
        diff: 00000000/00000000/00000000/00000000/00000001
  - mask: 3
    continuations:
      - cost: 62
        diff: ffffffff/00000000/00000000/00000000/00000000
      - cost: 0
        diff: 00000000/00000000/00000000/00000000/00000000
      - cost: 65
        diff: 00000001/00000000/00000000/00000000/00000000
`
	groups, err := ParseYAML(strings.NewReader(src))
	require.NoError(err)
	require.Len(groups, 2)
	require.Equal(Mask(0x100), groups[0].Mask)
	require.Equal(diffset.DiffVector{0x40, 2, 0, 0, 0}, groups[0].Continuations[0].Diff)
	require.Equal(61.5, groups[0].Continuations[0].Raw)
	// The zero-cost slot terminates the list.
	require.Len(groups[1].Continuations, 1)

	_, err = ParseYAML(strings.NewReader("groups:\n  - continuations:\n      - cost: 1\n        diff: nope\n"))
	require.Error(err)
}

func TestParseHeader(t *testing.T) {
	require := require.New(t)

	src := `
// generated
{ 0b0000000100000000, {
  {61.5, {0x00000040, 0x00000002, 0, 0, 0}},
  {63.25, {0, 0, 0, 0, 1U}}, /* trailing */
  {0}
} },
{ 3, { {62, {0xffffffff}}, } },
`
	groups, err := ParseHeader(strings.NewReader(src))
	require.NoError(err)
	require.Len(groups, 2)

	require.Equal(Mask(0x100), groups[0].Mask)
	require.Len(groups[0].Continuations, 2)
	require.Equal(61.5, groups[0].Continuations[0].Raw)
	require.Equal(diffset.DiffVector{0x40, 2, 0, 0, 0}, groups[0].Continuations[0].Diff)
	require.Equal(diffset.DiffVector{0, 0, 0, 0, 1}, groups[0].Continuations[1].Diff)

	require.Equal(Mask(3), groups[1].Mask)
	require.Equal(diffset.DiffVector{0xffffffff}, groups[1].Continuations[0].Diff)

	for _, bad := range []string{
		"{ 1, { {2, {1, 2, 3, 4, 5, 6}} } }",
		"{ 1, { {2, {1}} } ",
		"}",
		"{ 1, 2 }",
		"{ 1, { {2, {1}} } } /* open",
	} {
		_, err := ParseHeader(strings.NewReader(bad))
		require.Error(err, "input %q", bad)
	}
}

func TestLoadFileByExtension(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "groups.yaml")
	require.NoError(os.WriteFile(yamlPath, []byte(
		"groups:\n  - mask: 1\n    continuations:\n      - cost: 60\n        diff: 00000001/00000000/00000000/00000000/00000000\n"), 0644))
	cat, err := LoadFile(yamlPath)
	require.NoError(err)
	require.Len(cat.Groups, 1)
	require.Equal(1.0, cat.Groups[0].Continuations[0].Probability)

	headerPath := filepath.Join(dir, "diff_groups.h")
	require.NoError(os.WriteFile(headerPath, []byte("{1, {{60, {1}}}},\n"), 0644))
	cat2, err := LoadFile(headerPath)
	require.NoError(err)
	require.Equal(cat.Fingerprint(), cat2.Fingerprint())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(err)
}
