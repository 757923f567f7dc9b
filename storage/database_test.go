package storage

import (
	"bytes"
	"crypto/rand"
	"math"
	"testing"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type TestConfig struct {
	// BatchSizeBytes is the size of the batch in bytes.
	BatchSizeBytes int
	// BatchSizeItems is the number of items in the batch.
	BatchSizeItems int
	// BatchItemsRemoved is the number of items removed from the batch as part of the experiment.
	BatchItemsRemoved int
	// BatchItemsRetrieved is the number of items retrieved from the batch as part of the experiment.
	BatchItemsRetrieved int
	// BatchItemsIterated is the number of items iterated over in the batch as part of the experiment.
	BatchItemsIterated int
}

type Key [32]byte

func NewKey(key []byte) Key {
	var k Key
	copy(k[:], key[:])
	return k
}

func (k Key) Bytes() []byte {
	copyKey := make([]byte, len(k[:]))
	copy(copyKey, k[:])
	return copyKey
}

type KeyValue struct {
	Key   Key
	Value []byte
}

// RandomBytes returns a []byte with random values.
func RandomBytes(numBytes int32) []byte {
	randomBytes := make([]byte, numBytes)
	_, err := rand.Read(randomBytes)
	if err != nil {
		glog.Errorf("Problem reading random bytes: %v", err)
	}
	return randomBytes
}

func GenericTest(db Database, ctx Context, config *TestConfig, t *testing.T) {
	require := require.New(t)

	// Generate data and store it in the DB
	kvMap := WriteToDb(db, ctx, config, t)

	// Choose keys to remove and keys to retrieve
	removedKeys := []Key{}
	retrievedKeys := []Key{}
	for key := range kvMap {
		if len(removedKeys) < config.BatchItemsRemoved {
			removedKeys = append(removedKeys, key)
		} else if len(retrievedKeys) < config.BatchItemsRetrieved {
			retrievedKeys = append(retrievedKeys, key)
		} else {
			break
		}
	}

	// Delete keys from DB and confirm they are deleted.
	DeleteFromDB(db, ctx, removedKeys, t)
	for _, val := range GetFromDb(db, ctx, removedKeys, t) {
		require.Nil(val)
	}

	// Retrieve keys from DB and confirm they match the original values.
	for ii, val := range GetFromDb(db, ctx, retrievedKeys, t) {
		require.Equal(kvMap[retrievedKeys[ii]], val)
	}

	// Iterate over a couple values from the DB and confirm they match the original values.
	kv := IterateWithLimit(db, ctx, config.BatchItemsIterated, t)
	require.Len(kv, config.BatchItemsIterated)
	for _, val := range kv {
		require.Equal(kvMap[val.Key], val.Value)
	}
	require.True(ValidateKeyValueOrder(kv))

	// Now iterate over all values and confirm only the survivors are left.
	kv = IterateWithLimit(db, ctx, math.MaxInt32, t)
	require.Len(kv, config.BatchSizeItems-config.BatchItemsRemoved)
	for _, val := range kv {
		require.Equal(kvMap[val.Key], val.Value)
	}
	require.True(ValidateKeyValueOrder(kv))
}

func ValidateKeyValueOrder(kv []*KeyValue) bool {
	for ii := 0; ii < len(kv)-1; ii++ {
		if bytes.Compare(kv[ii].Key.Bytes(), kv[ii+1].Key.Bytes()) > 0 {
			return false
		}
	}
	return true
}

func WriteToDb(db Database, ctx Context, config *TestConfig, t *testing.T) (_kv map[Key][]byte) {
	require := require.New(t)
	kvMap := make(map[Key][]byte)
	valueLength := int32(config.BatchSizeBytes / config.BatchSizeItems)

	for ii := 0; ii < config.BatchSizeItems; ii++ {
		kvMap[NewKey(RandomBytes(32))] = RandomBytes(valueLength)
	}

	require.NoError(db.Update(ctx, func(tx Transaction, ctx Context) error {
		for key, val := range kvMap {
			if err := tx.Set(key.Bytes(), val, ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	return kvMap
}

func DeleteFromDB(db Database, ctx Context, keys []Key, t *testing.T) {
	require := require.New(t)
	require.NoError(db.Update(ctx, func(tx Transaction, ctx Context) error {
		for _, key := range keys {
			if err := tx.Delete(key.Bytes(), ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

func GetFromDb(db Database, ctx Context, keys []Key, t *testing.T) [][]byte {
	require := require.New(t)
	var values [][]byte
	require.NoError(db.View(ctx, func(tx Transaction, ctx Context) error {
		for _, key := range keys {
			val, err := tx.Get(key.Bytes(), ctx)
			if errors.Is(err, ErrKeyNotFound) {
				val = nil
			} else if err != nil {
				return err
			}
			values = append(values, val)
		}
		return nil
	}))
	return values
}

func IterateWithLimit(db Database, ctx Context, limit int, t *testing.T) (_kv []*KeyValue) {
	require := require.New(t)
	kv := []*KeyValue{}
	require.NoError(db.View(ctx, func(tx Transaction, ctx Context) error {
		it, err := tx.GetIterator(ctx)
		require.NoError(err)
		defer it.Close()
		for it.Next() {
			k := it.Key()
			v, err := it.Value()
			require.NoError(err)
			require.Len(k, len(Key{}))
			kv = append(kv, &KeyValue{Key: NewKey(k), Value: v})
			if len(kv) >= limit {
				break
			}
		}
		return nil
	}))
	return kv
}
