// Package quadstore implements the quad table, permutation indexes, and
// graph set (spec sections 4.4-4.5 and 4.7): the heart of the physical
// layout, generalizing the teacher's TripleStore (internal/store/store.go)
// from a fixed 9-index layout to spec.md's dynamically registered
// permutation set.
package quadstore

import (
	"sort"
	"sync"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/xerrors"
)

// Sub-database names, per spec sections 4.4-4.5.
const (
	SubDBQuads       = "quads"
	SubDBFullIndexes = "fullIndexes"
	SubDBGraphs      = "graphs"
)

// Store owns the quad table, the active permutation indexes, and the graph
// set over a single kv.Env.
type Store struct {
	Env *kv.Env

	mu     sync.RWMutex
	active map[string]Permutation
	order  []string // permutations found at Open in name order, then later additions in the order added; deterministic tie-break (spec 4.8)
}

// Open registers the quadstore's sub-databases and loads the active
// permutation set. A brand-new environment gets the default "gpso"
// permutation, per spec section 4.4.
func Open(env *kv.Env) (*Store, error) {
	if err := env.CreateSubDatabase(SubDBQuads); err != nil {
		return nil, err
	}
	if err := env.CreateSubDatabase(SubDBFullIndexes); err != nil {
		return nil, err
	}
	if err := env.CreateSubDatabase(SubDBGraphs); err != nil {
		return nil, err
	}

	s := &Store{Env: env, active: make(map[string]Permutation)}

	isNew := false
	err := env.ReadTx(func(tx kv.Tx) error {
		empty := true
		err := tx.IterateAllUnescaping(SubDBFullIndexes, func(k, v []byte) bool {
			empty = false
			return false
		})
		isNew = empty
		return err
	})
	if err != nil {
		return nil, err
	}

	if isNew {
		if err := s.createPermutationIndex(DefaultPermutation); err != nil {
			return nil, err
		}
		if err := env.WriteTx(func(tx kv.Tx) error {
			return registerPermutation(tx, DefaultPermutation)
		}); err != nil {
			return nil, err
		}
		s.active[DefaultPermutation.Name] = DefaultPermutation
		s.order = append(s.order, DefaultPermutation.Name)
		return s, nil
	}

	var names []string
	err = env.ReadTx(func(tx kv.Tx) error {
		return tx.IterateAll(SubDBFullIndexes, func(k, v []byte) bool {
			names = append(names, string(k))
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := ParsePermutationName(name)
		if err != nil {
			return nil, err
		}
		if err := env.CreateSubDatabase(name); err != nil {
			return nil, err
		}
		s.active[name] = p
		s.order = append(s.order, name)
	}
	return s, nil
}

func registerPermutation(tx kv.Tx, p Permutation) error {
	value := make([]byte, 0, 32)
	for _, o := range p.Order {
		value = codec.PutUint64(value, uint64(o))
	}
	return tx.Put(SubDBFullIndexes, []byte(p.Name), value)
}

// ActivePermutations returns the currently active permutations: those
// already registered when the store was opened, in name order, followed by
// any added since, in the order they were added (the order spec section
// 4.8's tie-break uses). The order of additions is not persisted across a
// reopen.
func (s *Store) ActivePermutations() []Permutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Permutation, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.active[name])
	}
	return out
}

// HasPermutation reports whether name is an active index.
func (s *Store) HasPermutation(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[name]
	return ok
}

// Permutation resolves an active permutation by name, failing with
// IndexError if it is not part of the active set (spec section 4.8's
// ordered-results rule).
func (s *Store) Permutation(name string) (Permutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.active[name]
	if !ok {
		return Permutation{}, xerrors.ErrIndexError
	}
	return p, nil
}
