package storage

import (
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

type BadgerDatabase struct {
	db            *badger.DB
	opts          badger.Options
	useWriteBatch bool
}

func NewBadgerDatabase(opts badger.Options, useWriteBatch bool) *BadgerDatabase {
	return &BadgerDatabase{
		db:            nil,
		opts:          opts,
		useWriteBatch: useWriteBatch,
	}
}

func (bdb *BadgerDatabase) Setup() error {
	db, err := badger.Open(bdb.opts)
	if err != nil {
		return errors.Wrapf(err, "Setup:")
	}
	bdb.db = db
	return nil
}

func (bdb *BadgerDatabase) Id() DatabaseId {
	return BADGERDB
}

func (bdb *BadgerDatabase) GetContext(id []byte) Context {
	return NewBadgerContext(id)
}

func (bdb *BadgerDatabase) Update(ctx Context, fn func(Transaction, Context) error) error {
	var wb *badger.WriteBatch
	if bdb.useWriteBatch {
		wb = bdb.db.NewWriteBatch()
		defer wb.Cancel()
	}

	err := bdb.db.Update(func(txn *badger.Txn) error {
		return fn(NewBadgerTransaction(txn, wb), ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "Update:")
	}

	if wb != nil {
		if err = wb.Flush(); err != nil {
			return errors.Wrapf(err, "Update: Problem flushing write batch")
		}
	}
	return nil
}

func (bdb *BadgerDatabase) View(ctx Context, fn func(Transaction, Context) error) error {
	return bdb.db.View(func(txn *badger.Txn) error {
		return fn(NewBadgerTransaction(txn, nil), ctx)
	})
}

func (bdb *BadgerDatabase) Close() error {
	return bdb.db.Close()
}

// Erase removes the database directory. In-memory databases have nothing to
// erase.
func (bdb *BadgerDatabase) Erase() error {
	if bdb.opts.InMemory || bdb.opts.Dir == "" {
		return nil
	}
	return os.RemoveAll(bdb.opts.Dir)
}

// ==========================
// BadgerTransaction
// ==========================

// BadgerTransaction writes through the write batch when one is set. Writes
// made that way are not visible to Get until the Update returns.
type BadgerTransaction struct {
	txn *badger.Txn
	wb  *badger.WriteBatch
}

func NewBadgerTransaction(txn *badger.Txn, wb *badger.WriteBatch) *BadgerTransaction {
	return &BadgerTransaction{
		txn: txn,
		wb:  wb,
	}
}

func (btx *BadgerTransaction) Set(key []byte, value []byte, ctx Context) error {
	prefixedKey, err := castBadgerContextAndGetPrefixedKey(key, ctx)
	if err != nil {
		return errors.Wrapf(err, "Set:")
	}

	if btx.wb != nil {
		return btx.wb.Set(prefixedKey, value)
	}
	return btx.txn.Set(prefixedKey, value)
}

func (btx *BadgerTransaction) Delete(key []byte, ctx Context) error {
	prefixedKey, err := castBadgerContextAndGetPrefixedKey(key, ctx)
	if err != nil {
		return errors.Wrapf(err, "Delete:")
	}

	if btx.wb != nil {
		return btx.wb.Delete(prefixedKey)
	}
	return btx.txn.Delete(prefixedKey)
}

func (btx *BadgerTransaction) Get(key []byte, ctx Context) ([]byte, error) {
	prefixedKey, err := castBadgerContextAndGetPrefixedKey(key, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "Get:")
	}

	item, err := btx.txn.Get(prefixedKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Get:")
	}
	return item.ValueCopy(nil)
}

func (btx *BadgerTransaction) GetIterator(ctx Context) (Iterator, error) {
	badgerCtx, err := AssertContext[*BadgerContext](ctx, BADGERDB)
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = badgerCtx.prefix
	it := btx.txn.NewIterator(opts)
	it.Seek(badgerCtx.prefix)
	return NewBadgerIterator(it, badgerCtx), nil
}

// ==========================
// BadgerIterator
// ==========================

type BadgerIterator struct {
	it          *badger.Iterator
	ctx         *BadgerContext
	initialized bool
}

func NewBadgerIterator(it *badger.Iterator, ctx *BadgerContext) *BadgerIterator {
	return &BadgerIterator{
		it:          it,
		ctx:         ctx,
		initialized: false,
	}
}

func (bit *BadgerIterator) Value() ([]byte, error) {
	return bit.it.Item().ValueCopy(nil)
}

func (bit *BadgerIterator) Key() []byte {
	return bit.it.Item().KeyCopy(nil)[len(bit.ctx.prefix):]
}

func (bit *BadgerIterator) Next() bool {
	if !bit.initialized {
		bit.initialized = true
	} else {
		bit.it.Next()
	}
	return bit.it.ValidForPrefix(bit.ctx.prefix)
}

func (bit *BadgerIterator) Close() {
	bit.it.Close()
}

// ==========================
// BadgerContext
// ==========================

type BadgerContext struct {
	prefix []byte
}

func NewBadgerContext(prefix []byte) *BadgerContext {
	return &BadgerContext{
		prefix: append([]byte(nil), prefix...),
	}
}

func (bc *BadgerContext) Id() DatabaseId {
	return BADGERDB
}

func (bc *BadgerContext) NestContext(prefixId []byte) Context {
	nested := make([]byte, 0, len(bc.prefix)+len(prefixId))
	nested = append(nested, bc.prefix...)
	return NewBadgerContext(append(nested, prefixId...))
}

func castBadgerContextAndGetPrefixedKey(key []byte, ctx Context) (_prefixedKey []byte, _err error) {
	badgerCtx, err := AssertContext[*BadgerContext](ctx, BADGERDB)
	if err != nil {
		return nil, err
	}

	prefixedKey := make([]byte, 0, len(badgerCtx.prefix)+len(key))
	prefixedKey = append(prefixedKey, badgerCtx.prefix...)
	return append(prefixedKey, key...), nil
}

// DefaultBadgerOptions keeps badger quiet; the plan cache is small and its
// logging adds nothing to the run log.
func DefaultBadgerOptions(dir string) badger.Options {
	return badger.DefaultOptions(dir).WithLogger(nil)
}
