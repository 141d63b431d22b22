package quadstore

import (
	"time"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
)

// AddGraph records a graph id as present, inside an existing write
// transaction. Safe to call more than once for the same id.
func AddGraph(tx kv.Tx, graphID uint64) error {
	return tx.Put(SubDBGraphs, codec.PutUint64(nil, graphID), []byte{})
}

// HasGraph reports whether a graph id is recorded.
func HasGraph(tx kv.Tx, graphID uint64) (bool, error) {
	return tx.Contains(SubDBGraphs, codec.PutUint64(nil, graphID))
}

// ListGraphIDs returns every graph id currently recorded.
func ListGraphIDs(tx kv.Tx) ([]uint64, error) {
	var ids []uint64
	err := tx.IterateAll(SubDBGraphs, func(k, _ []byte) bool {
		id, derr := codec.DecodeUint64(k)
		if derr != nil {
			return false
		}
		ids = append(ids, id)
		return true
	})
	return ids, err
}

// graphPrefixedPermutation returns an active permutation whose leading
// position is the graph (order[0] == 3), if one exists. Preferring such a
// permutation lets graph-scoped scans (drop, CS/TS build) avoid a full
// table scan.
func (s *Store) graphPrefixedPermutation() (Permutation, bool) {
	for _, p := range s.ActivePermutations() {
		if p.Order[0] == 3 {
			return p, true
		}
	}
	return Permutation{}, false
}

// QuadsInGraph returns every (qid, id-tuple) pair whose graph component
// equals graphID, preferring a graph-leading permutation when one is
// active. Rows come in that permutation's key order (quad-table order
// otherwise), not sorted by subject; the CS builder sorts them itself.
func (s *Store) QuadsInGraph(tx kv.Tx, graphID uint64) ([]QuadRow, error) {
	return s.quadsInGraph(tx, graphID)
}

// quadsInGraph returns every (qid, id-tuple) pair whose graph component
// equals graphID.
func (s *Store) quadsInGraph(tx kv.Tx, graphID uint64) ([]QuadRow, error) {
	var rows []QuadRow

	if p, ok := s.graphPrefixedPermutation(); ok {
		prefix := codec.PutUint64(nil, graphID)
		upper, overflow := incrementLastU64(prefix)
		if overflow {
			upper = nil
		}
		err := tx.IterateRange(p.Name, prefix, upper, false, func(k, v []byte) bool {
			row, ok := RowFromIndexEntry(k, v, p)
			if !ok {
				return false
			}
			rows = append(rows, row)
			return true
		})
		return rows, err
	}

	err := tx.IterateAll(SubDBQuads, func(qidKey, idTupleValue []byte) bool {
		qid, derr := codec.DecodeUint64(qidKey)
		if derr != nil {
			return false
		}
		ids, derr := codec.DecodeIDTuple(idTupleValue)
		if derr != nil {
			return false
		}
		if ids[3] == graphID {
			rows = append(rows, QuadRow{QuadID: qid, IDs: ids})
		}
		return true
	})
	return rows, err
}

// RowFromIndexEntry decodes one permutation-index entry back into a
// (qid, id-tuple) row. ok is false on a malformed entry.
func RowFromIndexEntry(key, value []byte, p Permutation) (QuadRow, bool) {
	permuted, err := codec.DecodeIDTuple(key)
	if err != nil {
		return QuadRow{}, false
	}
	qid, err := codec.DecodeUint64(value)
	if err != nil {
		return QuadRow{}, false
	}
	return QuadRow{QuadID: qid, IDs: codec.InversePermute(permuted, p.Order)}, true
}

// DropGraph removes every quad whose graph equals graphID from the quad
// table, every active permutation index, and the graph set itself (spec
// section 4.5).
func (s *Store) DropGraph(graphID uint64) error {
	rows, err := func() ([]QuadRow, error) {
		var rows []QuadRow
		err := s.Env.ReadTx(func(tx kv.Tx) error {
			r, err := s.quadsInGraph(tx, graphID)
			rows = r
			return err
		})
		return rows, err
	}()
	if err != nil {
		return err
	}

	perms := s.ActivePermutations()
	return s.Env.WriteTx(func(tx kv.Tx) error {
		for _, row := range rows {
			if err := tx.Delete(SubDBQuads, codec.PutUint64(nil, row.QuadID)); err != nil {
				return err
			}
			for _, p := range perms {
				key := codec.EncodeIDTuple(codec.Permute(row.IDs, p.Order))
				if err := tx.Delete(p.Name, key); err != nil {
					return err
				}
			}
		}
		if err := tx.Delete(SubDBGraphs, codec.PutUint64(nil, graphID)); err != nil {
			return err
		}
		return meta.Touch(tx, meta.KeyQuadsLastModified, time.Now())
	})
}

// incrementLastU64 increments the big-endian u64 stored in the last 8 bytes
// of prefix by one, reporting overflow (spec section 9's upper-bound
// overflow note).
func incrementLastU64(prefix []byte) ([]byte, bool) {
	out := append([]byte{}, prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			return out, false
		}
	}
	return out, true // wrapped all the way around: overflow
}
