package storage

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// TestBadger_Default_Generic writes 100 items, removes 20, reads back 20 and
// iterates, with and without a write batch.
func TestBadger_Default_Generic(t *testing.T) {
	require := require.New(t)

	testConfig := &TestConfig{
		BatchSizeBytes:      10000,
		BatchSizeItems:      100,
		BatchItemsRemoved:   20,
		BatchItemsRetrieved: 20,
		BatchItemsIterated:  20,
	}
	dir, err := os.MkdirTemp("", "badgerdb-default-10mb")
	t.Logf("BadgerDB directory: %s\nIt should be automatically removed at the end of the test", dir)
	require.NoError(err)

	opts := DefaultBadgerOptions(dir)
	db := NewBadgerDatabase(opts, false)
	require.NoError(db.Setup())

	GenericTest(db, db.GetContext([]byte("plain/")), testConfig, t)
	require.NoError(db.Close())
	require.NoError(db.Erase())

	db = NewBadgerDatabase(opts, true)
	require.NoError(db.Setup())

	GenericTest(db, db.GetContext([]byte("batched/")), testConfig, t)
	require.NoError(db.Close())
	require.NoError(db.Erase())
	_, err = os.Stat(dir)
	require.True(os.IsNotExist(err))
}

func TestBadger_ContextsAreIsolated(t *testing.T) {
	require := require.New(t)

	db := NewBadgerDatabase(DefaultBadgerOptions(t.TempDir()), false)
	require.NoError(db.Setup())
	defer db.Close()

	root := db.GetContext([]byte{0x01})
	left := root.NestContext([]byte("left"))
	right := root.NestContext([]byte("right"))

	require.NoError(db.Update(left, func(tx Transaction, ctx Context) error {
		return tx.Set([]byte("k"), []byte("from-left"), ctx)
	}))
	require.NoError(db.View(right, func(tx Transaction, ctx Context) error {
		_, err := tx.Get([]byte("k"), ctx)
		require.True(errors.Is(err, ErrKeyNotFound))
		return nil
	}))
	require.NoError(db.View(left, func(tx Transaction, ctx Context) error {
		val, err := tx.Get([]byte("k"), ctx)
		require.NoError(err)
		require.Equal([]byte("from-left"), val)
		return nil
	}))

	// The parent sees the nested key under its own prefix.
	require.NoError(db.View(root, func(tx Transaction, ctx Context) error {
		it, err := tx.GetIterator(ctx)
		require.NoError(err)
		defer it.Close()
		require.True(it.Next())
		require.Equal([]byte("leftk"), it.Key())
		require.False(it.Next())
		return nil
	}))

	_, err := AssertContext[*BadgerContext](nil, BADGERDB)
	require.Error(err)
}
