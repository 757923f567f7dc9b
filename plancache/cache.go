package plancache

import (
	"bytes"

	"github.com/deso-protocol/sha1graph/catalog"
	"github.com/deso-protocol/sha1graph/collections"
	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/deso-protocol/sha1graph/optimizer"
	"github.com/deso-protocol/sha1graph/storage"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Prefixes of the persistent store.
var (
	// <prefixPlans, namespace, input difference> -> encoded plan
	prefixPlans = []byte{0}
)

const DefaultMemorySize = 1 << 16

// NamespaceSize is the length of a Namespace.
const NamespaceSize = 32

// Namespace identifies the inputs a plan depends on: the catalog contents and
// the database contents. Plans stored under another namespace are never
// returned.
func Namespace(cat *catalog.Catalog, dbFingerprint [32]byte) []byte {
	catFingerprint := cat.Fingerprint()
	namespace := make([]byte, 0, NamespaceSize)
	namespace = append(namespace, catFingerprint[:16]...)
	return append(namespace, dbFingerprint[:16]...)
}

func inputKey(input diffset.DiffVector) []byte {
	return encodeDiff(input)
}

// Cache keeps recently used plans in memory and, when a store is given, every
// plan in the store as well. It implements optimizer.PlanCache.
type Cache struct {
	mem *collections.LruCache[diffset.DiffVector, *optimizer.Plan]

	db        storage.Database
	ctx       storage.Context
	namespace []byte
}

// New creates a cache holding up to memSize plans in memory. db may be nil
// for a memory-only cache; otherwise it must already be set up.
func New(memSize int, db storage.Database, namespace []byte) (*Cache, error) {
	if memSize <= 0 {
		memSize = DefaultMemorySize
	}
	mem, err := collections.NewLruCache[diffset.DiffVector, *optimizer.Plan](memSize)
	if err != nil {
		return nil, errors.Wrapf(err, "plancache.New:")
	}
	cache := &Cache{mem: mem, db: db, namespace: append([]byte(nil), namespace...)}
	if db != nil {
		cache.ctx = db.GetContext(prefixPlans).NestContext(namespace)
	}
	return cache, nil
}

func (cache *Cache) Get(input diffset.DiffVector) (*optimizer.Plan, bool, error) {
	if plan, ok := cache.mem.Get(input); ok {
		return plan, true, nil
	}
	if cache.db == nil {
		return nil, false, nil
	}

	var data []byte
	err := cache.db.View(cache.ctx, func(txn storage.Transaction, ctx storage.Context) error {
		var innerErr error
		data, innerErr = txn.Get(inputKey(input), ctx)
		return innerErr
	})
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "Cache.Get: input %v", input)
	}
	plan, err := DecodePlan(data)
	if err != nil {
		return nil, false, errors.Wrapf(err, "Cache.Get: input %v", input)
	}
	if plan.Input != input {
		return nil, false, errors.Errorf("Cache.Get: Stored plan for %v has input %v", input, plan.Input)
	}
	cache.mem.Put(input, plan)
	return plan, true, nil
}

func (cache *Cache) Put(plan *optimizer.Plan) error {
	cache.mem.Put(plan.Input, plan)
	if cache.db == nil {
		return nil
	}
	err := cache.db.Update(cache.ctx, func(txn storage.Transaction, ctx storage.Context) error {
		return txn.Set(inputKey(plan.Input), EncodePlan(plan), ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "Cache.Put: input %v", plan.Input)
	}
	return nil
}

// NumStored counts the plans persisted under this cache's namespace.
func (cache *Cache) NumStored() (int, error) {
	if cache.db == nil {
		return 0, nil
	}
	count := 0
	err := cache.db.View(cache.ctx, func(txn storage.Transaction, ctx storage.Context) error {
		it, err := txn.GetIterator(ctx)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "Cache.NumStored:")
	}
	return count, nil
}

// PurgeStale deletes every stored plan that belongs to another namespace,
// i.e. to a catalog or database that has since changed. It returns the number
// of plans removed.
func (cache *Cache) PurgeStale() (int, error) {
	if cache.db == nil {
		return 0, nil
	}
	removed := 0
	err := cache.db.Update(cache.db.GetContext(prefixPlans), func(txn storage.Transaction, ctx storage.Context) error {
		it, err := txn.GetIterator(ctx)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			key := it.Key()
			if len(key) >= len(cache.namespace) && bytes.Equal(key[:len(cache.namespace)], cache.namespace) {
				continue
			}
			if err := txn.Delete(key, ctx); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "Cache.PurgeStale:")
	}
	return removed, nil
}

func newStore(dir string) *storage.BadgerDatabase {
	// Puts and purges go through a write batch; plans are never read back
	// inside the transaction that wrote them.
	return storage.NewBadgerDatabase(storage.DefaultBadgerOptions(dir), true)
}

// Open creates a cache backed by a badger store in dir, or a memory-only
// cache when dir is empty. Plans left by other catalogs or databases are
// purged. The returned close function releases the store.
func Open(dir string, memSize int, namespace []byte) (_cache *Cache, _close func() error, _err error) {
	if dir == "" {
		cache, err := New(memSize, nil, namespace)
		return cache, func() error { return nil }, err
	}

	db := newStore(dir)
	if err := db.Setup(); err != nil {
		return nil, nil, errors.Wrapf(err, "plancache.Open: %s", dir)
	}
	cache, err := New(memSize, db, namespace)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	removed, err := cache.PurgeStale()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if removed > 0 {
		glog.Infof("plancache.Open: Removed %d plans computed for another catalog or database from %s", removed, dir)
	}
	if stored, err := cache.NumStored(); err == nil {
		glog.V(1).Infof("plancache.Open: %d plans stored for this catalog and database in %s", stored, dir)
	}
	return cache, db.Close, nil
}

// Reset deletes the store in dir. It must not be open.
func Reset(dir string) error {
	if dir == "" {
		return nil
	}
	if err := newStore(dir).Erase(); err != nil {
		return errors.Wrapf(err, "plancache.Reset: %s", dir)
	}
	return nil
}
