package storage

import (
	"github.com/pkg/errors"
)

type DatabaseId byte

const (
	BADGERDB DatabaseId = 0
)

var ErrKeyNotFound = errors.New("key not found")

// Database is a key-value store reached through prefix Contexts. Every key a
// Transaction touches is relative to the Context it is given, so unrelated
// users of one store never see each other's keys.
//
//   - Update() - read-write access inside a callback
//   - View()   - read-only access inside a callback
//   - Setup(), Close(), Erase() - lifecycle
type Database interface {
	Setup() error
	GetContext(id []byte) Context
	Update(ctx Context, fn func(Transaction, Context) error) error
	View(ctx Context, fn func(Transaction, Context) error) error
	Close() error
	Erase() error
	Id() DatabaseId
}

// Transaction operates on keys relative to ctx. Get returns ErrKeyNotFound
// for absent keys.
type Transaction interface {
	Set(key []byte, value []byte, ctx Context) error
	Delete(key []byte, ctx Context) error
	Get(key []byte, ctx Context) ([]byte, error)
	GetIterator(ctx Context) (Iterator, error)
}

// Iterator walks the keys under a Context in ascending order. A fresh
// Iterator points before the first key, so the usual loop is
//
//	defer it.Close()
//	for it.Next() {
//		key := it.Key()
//		value, err := it.Value()
//		...
//	}
//
// Keys are returned without the Context prefix.
type Iterator interface {
	Value() ([]byte, error)
	Key() []byte
	Next() bool
	Close()
}

// Context is a key namespace inside a Database.
type Context interface {
	Id() DatabaseId
	NestContext(prefixId []byte) Context
}

func AssertContext[T Context](ctx Context, id DatabaseId) (T, error) {
	var zero T
	if ctx == nil {
		return zero, errors.New("AssertContext: nil context")
	}
	if ctx.Id() != id {
		return zero, errors.Errorf("AssertContext: context belongs to database %d, expected %d", ctx.Id(), id)
	}
	typed, ok := ctx.(T)
	if !ok {
		return zero, errors.Errorf("AssertContext: unexpected context type %T", ctx)
	}
	return typed, nil
}
