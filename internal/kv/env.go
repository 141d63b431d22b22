package kv

import (
	"os"
	"sort"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kasei-go/diomede/internal/xerrors"
)

// Env is the KV environment facade: transactional open/create/drop of named
// sub-databases over a single BadgerDB instance, generalizing the teacher's
// storage.Storage/BadgerStorage pair (internal/storage/badger.go) from a
// fixed table enum to a dynamically registered set of sub-databases.
type Env struct {
	db  *badger.DB
	cfg Config

	mu     sync.RWMutex
	subdbs map[string]struct{}
}

// Open creates or opens an environment directory at path.
func Open(path string, cfg Config) (*Env, error) {
	mode := cfg.FileMode
	if mode == 0 {
		mode = DefaultConfig().FileMode
	}
	if err := os.MkdirAll(path, mode|0o100); err != nil {
		return nil, &xerrors.StorageOpenError{Path: path, Err: err}
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = !cfg.NoSync
	if cfg.MapSize > 0 {
		// Badger bounds each value-log file to [1 MiB, 2 GiB). MapSize spans
		// the whole environment, so it is clamped per-file.
		vls := cfg.MapSize
		if vls > maxValueLogFileSize {
			vls = maxValueLogFileSize
		}
		if vls < minValueLogFileSize {
			vls = minValueLogFileSize
		}
		opts.ValueLogFileSize = vls
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &xerrors.StorageOpenError{Path: path, Err: err}
	}

	env := &Env{db: db, cfg: cfg, subdbs: make(map[string]struct{})}
	if err := env.loadRegistry(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return env, nil
}

func (e *Env) loadRegistry() error {
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{registryTag}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte{registryTag}); it.ValidForPrefix([]byte{registryTag}); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) < 2 {
				continue
			}
			n := int(key[1])
			if len(key) < 2+n {
				continue
			}
			e.subdbs[string(key[2:2+n])] = struct{}{}
		}
		return nil
	})
}

// Close closes the environment.
func (e *Env) Close() error {
	return e.db.Close()
}

// Sync flushes writes to disk.
func (e *Env) Sync() error {
	return e.db.Sync()
}

// CreateSubDatabase registers name as an active sub-database. Idempotent.
func (e *Env) CreateSubDatabase(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.subdbs[name]; ok {
		return nil
	}
	if e.cfg.MaxSubDatabases > 0 && len(e.subdbs) >= e.cfg.MaxSubDatabases {
		return &xerrors.StorageOpenError{Path: name, Err: errTooManySubDatabases}
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(registryKey(name), nil)
	})
	if err != nil {
		return &xerrors.StorageIOError{Op: "create_sub_database", Err: err}
	}
	e.subdbs[name] = struct{}{}
	return nil
}

// DropSubDatabase removes a sub-database's registry entry and all of its
// key-value pairs.
func (e *Env) DropSubDatabase(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.subdbs[name]; !ok {
		return nil
	}
	if err := e.clearPrefix(subdbPrefix(name)); err != nil {
		return err
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(registryKey(name))
	})
	if err != nil {
		return &xerrors.StorageIOError{Op: "drop_sub_database", Err: err}
	}
	delete(e.subdbs, name)
	return nil
}

// Clear removes all entries of a sub-database but keeps its registration.
func (e *Env) Clear(name string) error {
	return e.clearPrefix(subdbPrefix(name))
}

func (e *Env) clearPrefix(prefix []byte) error {
	for {
		var keys [][]byte
		err := e.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix) && len(keys) < 10000; it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			return nil
		})
		if err != nil {
			return &xerrors.StorageIOError{Op: "clear", Err: err}
		}
		if len(keys) == 0 {
			return nil
		}
		err = e.db.Update(func(txn *badger.Txn) error {
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return &xerrors.StorageIOError{Op: "clear", Err: err}
		}
	}
}

// ListSubDatabases returns the active sub-database names.
func (e *Env) ListSubDatabases() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.subdbs))
	for name := range e.subdbs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasSubDatabase reports whether name is currently registered.
func (e *Env) HasSubDatabase(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.subdbs[name]
	return ok
}

// ReadTx runs fn in a read-only scope. Read scopes always "commit" (discard
// the snapshot) to release resources promptly, per spec section 4.2.
func (e *Env) ReadTx(fn func(Tx) error) error {
	return e.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, rw: false})
	})
}

// WriteTx runs fn in a write scope. A nil return auto-commits; any error
// auto-rolls-back (Badger discards the transaction on a non-nil return from
// the Update callback).
func (e *Env) WriteTx(fn func(Tx) error) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, rw: true})
	})
	if err == nil {
		return nil
	}
	if err == badger.ErrTxnTooBig {
		return xerrors.ErrMapFull
	}
	if err == xerrors.ErrMapFull || err == xerrors.ErrNotFound {
		return err
	}
	return &xerrors.TransactionError{Err: err}
}

// BulkInsertSorted appends pre-sorted key-value pairs into a sub-database
// using a write batch. The caller must present pairs in ascending key
// order; this primitive is used only when building a new permutation index
// from a full scan of the quad table (spec section 4.2/4.4).
func (e *Env) BulkInsertSorted(subdb string, pairs [][2][]byte) error {
	wb := e.db.NewWriteBatch()
	defer wb.Cancel()
	for _, kv := range pairs {
		if err := wb.Set(subdbKey(subdb, kv[0]), kv[1]); err != nil {
			if err == badger.ErrTxnTooBig {
				return xerrors.ErrMapFull
			}
			return &xerrors.StorageIOError{Op: "bulk_insert_sorted", Err: err}
		}
	}
	if err := wb.Flush(); err != nil {
		return &xerrors.StorageIOError{Op: "bulk_insert_sorted", Err: err}
	}
	return nil
}
