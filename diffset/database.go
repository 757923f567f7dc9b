package diffset

import (
	"encoding/binary"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// RecordSize is the on-disk size of one record: five little-endian uint32 key
// words followed by a little-endian float64 cost, packed with no padding.
const RecordSize = DiffWords*4 + 8

var (
	ErrOpen     = errors.New("cannot open difference database")
	ErrMap      = errors.New("cannot map difference database")
	ErrSize     = errors.New("difference database size is not a multiple of the record size")
	ErrUnsorted = errors.New("difference database is not strictly sorted")
)

// Record is a single (difference, remaining cost) entry.
type Record struct {
	Key  DiffVector
	Cost float64
}

// Database is an immutable table of records sorted by key. The backing bytes are
// either a read-only memory mapping of the database file or an in-memory buffer
// built by FromRecords. Nothing in this package mutates it after construction,
// so a Database can be shared freely between goroutines.
type Database struct {
	path       string
	data       []byte
	numRecords int
	unmap      func([]byte) error

	fingerprintOnce sync.Once
	fingerprint     [32]byte
}

type openOptions struct {
	validate bool
}

type Option func(*openOptions)

// WithValidation makes Open check that keys are strictly ascending. Without it
// a malformed file silently produces lookup misses.
func WithValidation(validate bool) Option {
	return func(opts *openOptions) {
		opts.validate = validate
	}
}

// Open maps the database file at path read-only.
func Open(path string, opts ...Option) (*Database, error) {
	options := &openOptions{}
	for _, opt := range opts {
		opt(options)
	}

	ff, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "Open: %v", err)
	}
	defer ff.Close()

	st, err := ff.Stat()
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "Open: stat %s: %v", path, err)
	}
	size := st.Size()
	if size%RecordSize != 0 {
		return nil, errors.Wrapf(ErrSize, "Open: %s has %d bytes", path, size)
	}

	db := &Database{
		path:       path,
		numRecords: int(size / RecordSize),
	}
	if size > 0 {
		data, unmap, err := mapFile(ff, size)
		if err != nil {
			return nil, errors.Wrapf(ErrMap, "Open: %s: %v", path, err)
		}
		db.data = data
		db.unmap = unmap
	}
	glog.V(1).Infof("diffset.Open: Mapped %d records from %s", db.numRecords, path)

	if options.validate {
		if err := db.Validate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// FromRecords builds an in-memory database from recs. The records are copied
// and sorted; duplicate keys are rejected.
func FromRecords(recs []Record) (*Database, error) {
	data, err := encodeRecords(recs)
	if err != nil {
		return nil, errors.Wrapf(err, "FromRecords:")
	}
	return &Database{
		data:       data,
		numRecords: len(recs),
	}, nil
}

func (db *Database) Path() string {
	return db.path
}

func (db *Database) Len() int {
	return db.numRecords
}

func (db *Database) keyAt(index int) DiffVector {
	var key DiffVector
	base := index * RecordSize
	for ii := range key {
		key[ii] = binary.LittleEndian.Uint32(db.data[base+4*ii:])
	}
	return key
}

func (db *Database) costAt(index int) float64 {
	base := index*RecordSize + DiffWords*4
	return math.Float64frombits(binary.LittleEndian.Uint64(db.data[base:]))
}

// Fingerprint is a SHA3-256 hash of the record bytes. Two databases with the
// same fingerprint answer every Lookup identically. It is computed on first
// use, in one pass over the file.
func (db *Database) Fingerprint() [32]byte {
	db.fingerprintOnce.Do(func() {
		db.fingerprint = sha3.Sum256(db.data)
	})
	return db.fingerprint
}

// Record returns the record at position index in key order.
func (db *Database) Record(index int) Record {
	return Record{Key: db.keyAt(index), Cost: db.costAt(index)}
}

// Lookup returns the remaining cost stored for key. A missing key is a normal
// outcome and is reported by ok == false.
func (db *Database) Lookup(key DiffVector) (_cost float64, _ok bool) {
	idx := sort.Search(db.numRecords, func(ii int) bool {
		return db.keyAt(ii).Compare(key) >= 0
	})
	if idx < db.numRecords && db.keyAt(idx) == key {
		return db.costAt(idx), true
	}
	return 0, false
}

// Validate checks that keys are strictly ascending, which also rules out
// duplicates.
func (db *Database) Validate() error {
	for ii := 1; ii < db.numRecords; ii++ {
		if db.keyAt(ii-1).Compare(db.keyAt(ii)) >= 0 {
			return errors.Wrapf(ErrUnsorted, "Validate: record %d (%v) does not sort after record %d (%v)",
				ii, db.keyAt(ii), ii-1, db.keyAt(ii-1))
		}
	}
	return nil
}

// RandomKey returns the key of a uniformly chosen record.
func (db *Database) RandomKey(rr *rand.Rand) (DiffVector, error) {
	if db.numRecords == 0 {
		return DiffVector{}, errors.New("RandomKey: database is empty")
	}
	return db.keyAt(rr.Intn(db.numRecords)), nil
}

// Close releases the mapping. The database must not be used afterwards.
func (db *Database) Close() error {
	if db.unmap == nil {
		return nil
	}
	data := db.data
	db.data = nil
	db.numRecords = 0
	unmap := db.unmap
	db.unmap = nil
	return unmap(data)
}
