package quadstore

import (
	"bytes"
	"sort"
	"time"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
)

// AddFullIndex builds and activates a new permutation index, per spec
// section 4.4: stream (qid, id-tuple) pairs from the quad table in a read
// scope, sort the permuted keys in memory, bulk-insert them with a write
// batch, then register the permutation and stamp Index-Last-Modified in a
// separate write scope. The build and the registration are not one atomic
// step.
func (s *Store) AddFullIndex(name string) error {
	p, err := ParsePermutationName(name)
	if err != nil {
		return err
	}
	if s.HasPermutation(name) {
		return nil
	}
	if err := s.createPermutationIndex(p); err != nil {
		return err
	}
	if err := s.Env.WriteTx(func(tx kv.Tx) error {
		if err := registerPermutation(tx, p); err != nil {
			return err
		}
		return meta.Touch(tx, meta.KeyIndexLastModified, time.Now())
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.active[name] = p
	s.order = append(s.order, name)
	s.mu.Unlock()
	return nil
}

// createPermutationIndex performs the scan-sort-bulk-insert build of a new
// permutation's sub-database, without touching the registry.
func (s *Store) createPermutationIndex(p Permutation) error {
	if err := s.Env.CreateSubDatabase(p.Name); err != nil {
		return err
	}

	var pairs [][2][]byte
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		return tx.IterateAll(SubDBQuads, func(qidKey, idTupleValue []byte) bool {
			qid, err := codec.DecodeUint64(qidKey)
			if err != nil {
				return false
			}
			ids, err := codec.DecodeIDTuple(idTupleValue)
			if err != nil {
				return false
			}
			permuted := codec.Permute(ids, p.Order)
			key := codec.EncodeIDTuple(permuted)
			pairs = append(pairs, [2][]byte{key, codec.PutUint64(nil, qid)})
			return true
		})
	})
	if err != nil {
		return err
	}

	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i][0], pairs[j][0]) < 0 })
	return s.Env.BulkInsertSorted(p.Name, pairs)
}

// DropFullIndex deactivates and removes a permutation index.
func (s *Store) DropFullIndex(name string) error {
	if !s.HasPermutation(name) {
		return nil
	}
	if err := s.Env.WriteTx(func(tx kv.Tx) error {
		return tx.Delete(SubDBFullIndexes, []byte(name))
	}); err != nil {
		return err
	}
	if err := s.Env.DropSubDatabase(name); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.active, name)
	newOrder := make([]string, 0, len(s.order))
	for _, n := range s.order {
		if n != name {
			newOrder = append(newOrder, n)
		}
	}
	s.order = newOrder
	s.mu.Unlock()
	return nil
}
