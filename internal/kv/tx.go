package kv

import (
	"bytes"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kasei-go/diomede/internal/xerrors"
)

// Tx is a single read or write transaction scope, playing the role the
// teacher's storage.Transaction interface plays (pkg/store/storage.go),
// generalized from a closed Table enum to named sub-databases.
type Tx interface {
	// Get retrieves a value by key. Returns xerrors.ErrNotFound if absent.
	Get(subdb string, key []byte) ([]byte, error)
	// Put stores a key-value pair, overwriting any existing value.
	Put(subdb string, key, value []byte) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(subdb string, key []byte) error
	// Contains reports whether key is present.
	Contains(subdb string, key []byte) (bool, error)

	// IterateAll streams every (key, value) pair in a sub-database in
	// ascending key order, copying each into owned buffers (materializing
	// flavor). fn returning false stops iteration early.
	IterateAll(subdb string, fn func(key, value []byte) bool) error
	// IterateRange streams (key, value) pairs whose key lies in
	// [lower, upper) (or [lower, upper] when inclusive), materializing
	// flavor.
	IterateRange(subdb string, lower, upper []byte, inclusive bool, fn func(key, value []byte) bool) error
	// IterateAllUnescaping is the zero-copy counterpart to IterateAll: the
	// slices passed to fn are only valid for the duration of the callback.
	IterateAllUnescaping(subdb string, fn func(key, value []byte) bool) error

	// writable reports whether this scope permits mutation.
	writable() bool
}

type badgerTx struct {
	txn *badger.Txn
	rw  bool
}

func (t *badgerTx) writable() bool { return t.rw }

func (t *badgerTx) Get(subdb string, key []byte) ([]byte, error) {
	item, err := t.txn.Get(subdbKey(subdb, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, xerrors.ErrNotFound
		}
		return nil, &xerrors.StorageIOError{Op: "get", Err: err}
	}
	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, &xerrors.StorageIOError{Op: "get", Err: err}
	}
	return value, nil
}

func (t *badgerTx) Put(subdb string, key, value []byte) error {
	if !t.rw {
		return &xerrors.TransactionError{Err: errReadOnly}
	}
	if err := t.txn.Set(subdbKey(subdb, key), value); err != nil {
		if err == badger.ErrTxnTooBig {
			return xerrors.ErrMapFull
		}
		return &xerrors.StorageIOError{Op: "put", Err: err}
	}
	return nil
}

func (t *badgerTx) Delete(subdb string, key []byte) error {
	if !t.rw {
		return &xerrors.TransactionError{Err: errReadOnly}
	}
	if err := t.txn.Delete(subdbKey(subdb, key)); err != nil {
		return &xerrors.StorageIOError{Op: "delete", Err: err}
	}
	return nil
}

func (t *badgerTx) Contains(subdb string, key []byte) (bool, error) {
	_, err := t.txn.Get(subdbKey(subdb, key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, &xerrors.StorageIOError{Op: "get", Err: err}
	}
	return true, nil
}

func (t *badgerTx) IterateAll(subdb string, fn func(key, value []byte) bool) error {
	return t.iterate(subdb, nil, nil, false, true, fn)
}

func (t *badgerTx) IterateAllUnescaping(subdb string, fn func(key, value []byte) bool) error {
	return t.iterate(subdb, nil, nil, false, false, fn)
}

func (t *badgerTx) IterateRange(subdb string, lower, upper []byte, inclusive bool, fn func(key, value []byte) bool) error {
	return t.iterate(subdb, lower, upper, inclusive, true, fn)
}

func (t *badgerTx) iterate(subdb string, lower, upper []byte, inclusive, materialize bool, fn func(key, value []byte) bool) error {
	prefix := subdbPrefix(subdb)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var seek []byte
	if lower != nil {
		seek = append(append([]byte{}, prefix...), lower...)
	} else {
		seek = prefix
	}

	var upperPhysical []byte
	if upper != nil {
		upperPhysical = append(append([]byte{}, prefix...), upper...)
	}

	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		physKey := item.KeyCopy(nil)
		if upperPhysical != nil {
			cmp := bytes.Compare(physKey, upperPhysical)
			if inclusive {
				if cmp > 0 {
					break
				}
			} else if cmp >= 0 {
				break
			}
		}

		logicalKey := physKey[len(prefix):]

		var value []byte
		if materialize {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return &xerrors.StorageIOError{Op: "iterate", Err: err}
			}
			value = v
			if !fn(append([]byte{}, logicalKey...), value) {
				return nil
			}
		} else {
			var cbErr error
			err := item.Value(func(val []byte) error {
				if !fn(logicalKey, val) {
					cbErr = errStopIteration
				}
				return nil
			})
			if err != nil {
				return &xerrors.StorageIOError{Op: "iterate", Err: err}
			}
			if cbErr != nil {
				return nil
			}
		}
	}
	return nil
}
