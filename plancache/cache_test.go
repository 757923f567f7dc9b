package plancache

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/optimizer"
	"github.com/deso-protocol/sha1graph/storage"
	"github.com/stretchr/testify/require"
)

func samplePlan(input diffset.DiffVector) *optimizer.Plan {
	return &optimizer.Plan{
		Input:       input,
		Combination: 19,
		Group:       1234,
		Mask:        0x1abc,
		Expected:    17.25,
		Useful: []optimizer.UsefulEdge{
			{Diff: diffset.DiffVector{1 << 6, 2, 0, 0, 0xffffffff}, Probability: 1, EdgeCost: 1, Remaining: 12.5},
			{Diff: diffset.DiffVector{0x80000000}, Probability: 0.125, EdgeCost: 8, Remaining: math.Inf(1)},
		},
	}
}

func TestPlanCodec(t *testing.T) {
	require := require.New(t)

	plan := samplePlan(diffset.DiffVector{1, 2, 3, 4, 5})
	data := EncodePlan(plan)
	got, err := DecodePlan(data)
	require.NoError(err)
	require.Equal(plan, got)

	empty := &optimizer.Plan{Input: diffset.DiffVector{9}, Expected: math.Inf(1)}
	got, err = DecodePlan(EncodePlan(empty))
	require.NoError(err)
	require.Equal(empty, got)

	// Truncations, trailing garbage and unknown versions are all rejected.
	for ii := 0; ii < len(data); ii++ {
		_, err = DecodePlan(data[:ii])
		require.Error(err, "truncated to %d bytes", ii)
	}
	_, err = DecodePlan(append(append([]byte(nil), data...), 0))
	require.Error(err)
	bad := append([]byte(nil), data...)
	bad[0] = 7
	_, err = DecodePlan(bad)
	require.Error(err)
}

func TestMemoryOnlyCache(t *testing.T) {
	require := require.New(t)

	cache, closeFn, err := Open("", 2, nil)
	require.NoError(err)
	defer closeFn()

	for ii := uint32(0); ii < 3; ii++ {
		require.NoError(cache.Put(samplePlan(diffset.DiffVector{ii})))
	}
	// The least recently used plan was evicted.
	_, ok, err := cache.Get(diffset.DiffVector{0})
	require.NoError(err)
	require.False(ok)
	plan, ok, err := cache.Get(diffset.DiffVector{2})
	require.NoError(err)
	require.True(ok)
	require.Equal(diffset.DiffVector{2}, plan.Input)

	stored, err := cache.NumStored()
	require.NoError(err)
	require.Zero(stored)
}

func TestPersistentCacheSurvivesReopen(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	cat, err := catalog.New([]catalog.Group{{Mask: 1, Continuations: []catalog.Continuation{
		{Raw: 60, Diff: diffset.DiffVector{1}},
	}}})
	require.NoError(err)
	namespace := Namespace(cat, [32]byte{1})

	cache, closeFn, err := Open(dir, 1, namespace)
	require.NoError(err)
	for ii := uint32(0); ii < 5; ii++ {
		require.NoError(cache.Put(samplePlan(diffset.DiffVector{ii, ii})))
	}
	stored, err := cache.NumStored()
	require.NoError(err)
	require.Equal(5, stored)
	// Evicted from memory but still in the store.
	plan, ok, err := cache.Get(diffset.DiffVector{0, 0})
	require.NoError(err)
	require.True(ok)
	require.Equal(samplePlan(diffset.DiffVector{0, 0}), plan)
	require.NoError(closeFn())

	cache, closeFn, err = Open(dir, 4, namespace)
	require.NoError(err)
	plan, ok, err = cache.Get(diffset.DiffVector{3, 3})
	require.NoError(err)
	require.True(ok)
	require.Equal(17.25, plan.Expected)
	require.NoError(closeFn())

	// Another database is another namespace.
	cache, closeFn, err = Open(dir, 4, Namespace(cat, [32]byte{2}))
	require.NoError(err)
	defer closeFn()
	_, ok, err = cache.Get(diffset.DiffVector{3, 3})
	require.NoError(err)
	require.False(ok)
}

func TestChangedDatabaseMissesAndPurges(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	cat, err := catalog.New([]catalog.Group{{Mask: 0, Continuations: []catalog.Continuation{
		{Raw: 60, Diff: diffset.DiffVector{1}},
	}}})
	require.NoError(err)
	before, err := diffset.FromRecords([]diffset.Record{
		{Key: diffset.DiffVector{}, Cost: 1},
		{Key: diffset.DiffVector{0xffffffff}, Cost: 3},
	})
	require.NoError(err)
	// Same keys and record count, one cost changed.
	after, err := diffset.FromRecords([]diffset.Record{
		{Key: diffset.DiffVector{}, Cost: 100},
		{Key: diffset.DiffVector{0xffffffff}, Cost: 3},
	})
	require.NoError(err)
	require.Equal(before.Len(), after.Len())

	cache, closeFn, err := Open(dir, 4, Namespace(cat, before.Fingerprint()))
	require.NoError(err)
	require.NoError(cache.Put(samplePlan(diffset.DiffVector{0xffffffff})))
	require.NoError(cache.Put(samplePlan(diffset.DiffVector{5})))
	require.NoError(closeFn())

	cache, closeFn, err = Open(dir, 4, Namespace(cat, after.Fingerprint()))
	require.NoError(err)
	_, ok, err := cache.Get(diffset.DiffVector{0xffffffff})
	require.NoError(err)
	require.False(ok)
	require.NoError(cache.Put(samplePlan(diffset.DiffVector{6})))
	require.NoError(closeFn())

	// Reopening under the old database finds its plans gone: the previous
	// open purged them, and the newer plan is purged now.
	cache, closeFn, err = Open(dir, 4, Namespace(cat, before.Fingerprint()))
	require.NoError(err)
	stored, err := cache.NumStored()
	require.NoError(err)
	require.Zero(stored)
	removed, err := cache.PurgeStale()
	require.NoError(err)
	require.Zero(removed)
	require.NoError(closeFn())
}

func TestResetRemovesStore(t *testing.T) {
	require := require.New(t)
	dir := filepath.Join(t.TempDir(), "plans")

	cache, closeFn, err := Open(dir, 4, []byte("ns"))
	require.NoError(err)
	require.NoError(cache.Put(samplePlan(diffset.DiffVector{7})))
	require.NoError(closeFn())

	require.NoError(Reset(dir))
	_, err = os.Stat(dir)
	require.True(os.IsNotExist(err))
	require.NoError(Reset(""))

	cache, closeFn, err = Open(dir, 4, []byte("ns"))
	require.NoError(err)
	defer closeFn()
	_, ok, err := cache.Get(diffset.DiffVector{7})
	require.NoError(err)
	require.False(ok)
}

func TestCacheSharesStore(t *testing.T) {
	require := require.New(t)

	db := storage.NewBadgerDatabase(storage.DefaultBadgerOptions(t.TempDir()), false)
	require.NoError(db.Setup())
	defer db.Close()

	cache, err := New(0, db, []byte("ns"))
	require.NoError(err)
	_, ok, err := cache.Get(diffset.DiffVector{7})
	require.NoError(err)
	require.False(ok)

	require.NoError(cache.Put(samplePlan(diffset.DiffVector{7})))
	other, err := New(0, db, []byte("ns"))
	require.NoError(err)
	plan, ok, err := other.Get(diffset.DiffVector{7})
	require.NoError(err)
	require.True(ok)
	require.Equal(19, plan.Combination)
}
