// Package meta manages the stats sub-database: version string, the
// *-Last-Modified timestamps, the monotone id counters, and the optional
// prefix table (spec section 4.6). Grounded on the teacher's single-purpose
// sub-database idiom (pkg/store/storage.go's TableID2Str) and on the
// dedicated meta-bucket pattern for small counters used by
// cayleygraph-cayley's kv backend (graph/kv/indexing.go's incMetaInt).
package meta

import (
	"time"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/xerrors"
)

const (
	SubDBStats  = "stats"
	SubDBPrefix = "prefixes"
)

// Stats keys, named exactly as spec section 4.6 requires.
const (
	KeyVersion                        = "Diomede-Version"
	KeyLastModified                   = "Last-Modified"
	KeyQuadsLastModified              = "Quads-Last-Modified"
	KeyIndexLastModified              = "Index-Last-Modified"
	KeyPrefixesLastModified           = "Prefixes-Last-Modified"
	KeyCharacteristicSetsLastModified = "CharacteristicSets-Last-Modified"
	KeyTypeSetsLastModified           = "TypeSets-Last-Modified"
	KeyNextTermID                     = "next_unassigned_term_id"
	KeyNextQuadID                     = "next_unassigned_quad_id"
	KeyFreeform                       = "meta"
)

// CurrentVersion is the version string stamped into new environments.
const CurrentVersion = "1.0"

// Ensure creates the stats sub-database (and counters, if new) the first
// time an environment is opened.
func Ensure(env *kv.Env) error {
	if err := env.CreateSubDatabase(SubDBStats); err != nil {
		return err
	}
	if err := env.CreateSubDatabase(SubDBPrefix); err != nil {
		return err
	}
	return env.WriteTx(func(tx kv.Tx) error {
		if ok, err := tx.Contains(SubDBStats, []byte(KeyNextTermID)); err != nil {
			return err
		} else if !ok {
			if err := tx.Put(SubDBStats, []byte(KeyNextTermID), codec.PutUint64(nil, 1)); err != nil {
				return err
			}
		}
		if ok, err := tx.Contains(SubDBStats, []byte(KeyNextQuadID)); err != nil {
			return err
		} else if !ok {
			if err := tx.Put(SubDBStats, []byte(KeyNextQuadID), codec.PutUint64(nil, 1)); err != nil {
				return err
			}
		}
		if ok, err := tx.Contains(SubDBStats, []byte(KeyVersion)); err != nil {
			return err
		} else if !ok {
			if err := tx.Put(SubDBStats, []byte(KeyVersion), []byte(CurrentVersion)); err != nil {
				return err
			}
		}
		return nil
	})
}

// NextTermID allocates and persists the next unassigned term id.
func NextTermID(tx kv.Tx) (uint64, error) {
	return nextCounter(tx, KeyNextTermID)
}

// NextQuadID allocates and persists the next unassigned quad id.
func NextQuadID(tx kv.Tx) (uint64, error) {
	return nextCounter(tx, KeyNextQuadID)
}

func nextCounter(tx kv.Tx, key string) (uint64, error) {
	raw, err := tx.Get(SubDBStats, []byte(key))
	if err != nil {
		return 0, err
	}
	id, err := codec.DecodeUint64(raw)
	if err != nil {
		return 0, err
	}
	if err := tx.Put(SubDBStats, []byte(key), codec.PutUint64(nil, id+1)); err != nil {
		return 0, err
	}
	return id, nil
}

// PeekNextTermID returns the next id that would be allocated, without
// mutating the counter.
func PeekNextTermID(tx kv.Tx) (uint64, error) {
	raw, err := tx.Get(SubDBStats, []byte(KeyNextTermID))
	if err != nil {
		return 0, err
	}
	return codec.DecodeUint64(raw)
}

// Touch stamps key (and Last-Modified) with now. Callers invoke this inside
// the same write transaction as the change it describes, so the stamp is
// atomic with the mutation (spec section 4.6). The exception is data written
// through kv.Env.BulkInsertSorted (a new permutation index, CS/TS rows):
// that batch is flushed first and stamped in a separate write transaction.
func Touch(tx kv.Tx, key string, now time.Time) error {
	ts := codec.FormatTimestamp(now)
	if err := tx.Put(SubDBStats, []byte(KeyLastModified), []byte(ts)); err != nil {
		return err
	}
	return tx.Put(SubDBStats, []byte(key), []byte(ts))
}

// GetTimestamp reads a *-Last-Modified value. Returns (zero, false, nil) if
// never set.
func GetTimestamp(tx kv.Tx, key string) (time.Time, bool, error) {
	raw, err := tx.Get(SubDBStats, []byte(key))
	if err != nil {
		if err == xerrors.ErrNotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	t, err := codec.ParseTimestamp(string(raw))
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// GetVersion returns the stored Diomede-Version string.
func GetVersion(tx kv.Tx) (string, error) {
	raw, err := tx.Get(SubDBStats, []byte(KeyVersion))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetFreeform stores an opaque free-form metadata blob.
func SetFreeform(tx kv.Tx, value []byte) error {
	return tx.Put(SubDBStats, []byte(KeyFreeform), value)
}

// GetFreeform reads back the free-form metadata blob.
func GetFreeform(tx kv.Tx) ([]byte, error) {
	return tx.Get(SubDBStats, []byte(KeyFreeform))
}
