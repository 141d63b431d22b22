// Package diomede composes the codec, kv, dict, quadstore, meta, planner,
// and charset packages into the embedded quadstore's public library API
// (spec section 6), the way the teacher's pkg/store.TripleStore composed
// storage.Storage with encoding.TermEncoder/TermDecoder.
package diomede

import (
	"os"

	"github.com/kasei-go/diomede/internal/charset"
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
	"github.com/kasei-go/diomede/internal/planner"
	"github.com/kasei-go/diomede/internal/quadstore"
	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// Store is the top-level handle for an open environment: a quad table,
// its active permutation indexes, the graph set, metadata, and the
// query planner, all layered over one kv.Env.
type Store struct {
	Env     *kv.Env
	Quads   *quadstore.Store
	Planner *planner.Planner
}

// Config controls the physical layout. Zero value uses kv.DefaultConfig.
type Config = kv.Config

// DefaultConfig returns the store's default physical configuration.
func DefaultConfig() Config { return kv.DefaultConfig() }

// CurrentVersion is the Diomede-Version string stamped into new stores.
const CurrentVersion = meta.CurrentVersion

// Open opens (creating if necessary) the environment at path and ensures
// every sub-database the core needs is registered.
func Open(path string, cfg Config) (*Store, error) {
	env, err := kv.Open(path, cfg)
	if err != nil {
		return nil, err
	}
	if err := meta.Ensure(env); err != nil {
		return nil, err
	}
	if err := dict.Ensure(env); err != nil {
		return nil, err
	}
	if err := charset.Ensure(env); err != nil {
		return nil, err
	}
	qs, err := quadstore.Open(env)
	if err != nil {
		return nil, err
	}
	return &Store{Env: env, Quads: qs, Planner: planner.New(qs)}, nil
}

// OpenExisting opens an environment that must already exist on disk.
func OpenExisting(path string, cfg Config) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &xerrors.StorageOpenError{Path: path, Err: err}
	}
	return Open(path, cfg)
}

// Close releases the underlying environment.
func (s *Store) Close() error { return s.Env.Close() }

// materializeChunk bounds how many rows are resolved to terms under one
// read transaction, keeping snapshot lifetimes short (spec section 5).
const materializeChunk = 1024

// resolveRows materializes rows to quads in bounded chunks, each under its
// own fresh read transaction.
func (s *Store) resolveRows(rows []quadstore.QuadRow) ([]rdf.Quad, error) {
	quads := make([]rdf.Quad, 0, len(rows))
	for start := 0; start < len(rows); start += materializeChunk {
		end := start + materializeChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		if err := s.Env.ReadTx(func(tx kv.Tx) error {
			for _, row := range chunk {
				q, err := s.Planner.ResolveRow(tx, row)
				if err != nil {
					return err
				}
				quads = append(quads, q)
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return quads, nil
}

// Load ingests quads under the given version tag (spec section 4.7).
func (s *Store) Load(version string, quads []rdf.Quad, progress quadstore.ProgressFunc) error {
	return s.Quads.Load(version, quads, progress)
}

// QuadsMatching returns every quad matching pattern. Matching rows are
// gathered eagerly under one short read transaction; term materialization
// is chunked under fresh read transactions (spec section 5).
func (s *Store) QuadsMatching(pattern rdf.QuadPattern) ([]rdf.Quad, error) {
	var rows []quadstore.QuadRow
	if err := s.Env.ReadTx(func(tx kv.Tx) error {
		r, err := s.Planner.Rows(tx, pattern)
		rows = r
		return err
	}); err != nil {
		return nil, err
	}
	return s.resolveRows(rows)
}

// QuadsUsing dumps every quad in the key order of a named permutation,
// failing with IndexError if it is not active (spec section 4.8's
// ordered-results rule).
func (s *Store) QuadsUsing(permutationName string) ([]rdf.Quad, error) {
	p, err := s.Quads.Permutation(permutationName)
	if err != nil {
		return nil, err
	}
	var rows []quadstore.QuadRow
	if err := s.Env.ReadTx(func(tx kv.Tx) error {
		return tx.IterateAll(p.Name, func(k, v []byte) bool {
			row, ok := quadstore.RowFromIndexEntry(k, v, p)
			if !ok {
				return false
			}
			rows = append(rows, row)
			return true
		})
	}); err != nil {
		return nil, err
	}
	return s.resolveRows(rows)
}

// QuadIDs returns the (s,p,o,g) id-tuple of every quad matching pattern.
func (s *Store) QuadIDs(pattern rdf.QuadPattern) ([][4]uint64, error) {
	var ids [][4]uint64
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		r, err := s.Planner.QuadIDs(tx, pattern)
		ids = r
		return err
	})
	return ids, err
}

// CountQuads counts matches of pattern without materializing them.
func (s *Store) CountQuads(pattern rdf.QuadPattern) (int64, error) {
	var n int64
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		c, err := s.Planner.CountQuads(tx, pattern)
		n = c
		return err
	})
	return n, err
}

// Bindings projects the variable positions of pattern for every match.
func (s *Store) Bindings(pattern rdf.QuadPattern) ([]map[string]rdf.Term, error) {
	var out []map[string]rdf.Term
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		b, err := s.Planner.Bindings(tx, pattern)
		out = b
		return err
	})
	return out, err
}

// Graphs returns every graph term currently recorded.
func (s *Store) Graphs() ([]rdf.Term, error) {
	var terms []rdf.Term
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		ids, err := quadstore.ListGraphIDs(tx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			t, err := dict.LookupTermNoCache(tx, id)
			if err != nil {
				return err
			}
			terms = append(terms, t)
		}
		return nil
	})
	return terms, err
}

// GraphTerms returns every distinct term appearing in the subject,
// predicate, or object position of any quad whose graph is g.
func (s *Store) GraphTerms(g rdf.Term) ([]rdf.Term, error) {
	pattern := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Bound(g),
	}
	quads, err := s.QuadsMatching(pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var terms []rdf.Term
	add := func(t rdf.Term) {
		key := t.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		terms = append(terms, t)
	}
	for _, q := range quads {
		add(q.Subject)
		add(q.Predicate)
		add(q.Object)
	}
	return terms, nil
}

// AddFullIndex builds and activates a permutation index.
func (s *Store) AddFullIndex(permutation string) error { return s.Quads.AddFullIndex(permutation) }

// DropFullIndex deactivates and removes a permutation index.
func (s *Store) DropFullIndex(permutation string) error { return s.Quads.DropFullIndex(permutation) }

// ComputeCharacteristicSets rebuilds the CS/TS index for every recorded
// graph.
func (s *Store) ComputeCharacteristicSets(withTypeSets bool) error {
	var graphIDs []uint64
	if err := s.Env.ReadTx(func(tx kv.Tx) error {
		ids, err := quadstore.ListGraphIDs(tx)
		graphIDs = ids
		return err
	}); err != nil {
		return err
	}
	if err := charset.ClearAll(s.Quads, withTypeSets); err != nil {
		return err
	}
	for _, g := range graphIDs {
		if err := charset.Compute(s.Quads, g, withTypeSets); err != nil {
			return err
		}
	}
	return nil
}

// DropCharacteristicSets removes the stored CS index.
func (s *Store) DropCharacteristicSets() error { return charset.DropCharacteristicSets(s.Quads) }

// DropTypeSets removes the stored Type Set index.
func (s *Store) DropTypeSets() error { return charset.DropTypeSets(s.Quads) }

// CharacteristicSets returns the stored CS entries for a graph, optionally
// with its type sets, along with whether they reflect the current quad
// table.
func (s *Store) CharacteristicSets(g rdf.Term, includeTypeSets bool) (charset.DataSet, error) {
	var ds charset.DataSet
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		id, err := dict.LookupID(tx, g)
		if err != nil {
			return err
		}
		d, err := charset.LoadDataSet(tx, id, includeTypeSets)
		ds = d
		return err
	})
	return ds, err
}

// StarCardinality estimates the number of solutions of a star-shaped BGP
// in graph g, using its stored Characteristic Sets.
func (s *Store) StarCardinality(g rdf.Term, pattern []charset.TriplePattern) (float64, error) {
	var estimate float64
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		id, err := dict.LookupID(tx, g)
		if err != nil {
			return err
		}
		est, err := charset.StarCardinality(tx, s.Quads, id, pattern)
		estimate = est
		return err
	})
	return estimate, err
}

// SetPrefix records a namespace prefix binding.
func (s *Store) SetPrefix(label, iri string) error {
	return s.Env.WriteTx(func(tx kv.Tx) error {
		return meta.SetPrefix(tx, label, iri)
	})
}

// ClearPrefixes removes every recorded prefix binding.
func (s *Store) ClearPrefixes() error {
	return meta.ClearPrefixes(s.Env)
}

// Prefixes returns every recorded prefix binding, label to namespace IRI.
func (s *Store) Prefixes() (map[string]string, error) {
	var out map[string]string
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		p, err := meta.ListPrefixes(tx)
		out = p
		return err
	})
	return out, err
}

// Verify runs the integrity scan described in spec section 4.8.
func (s *Store) Verify() (quadstore.VerifyReport, error) { return s.Quads.Verify() }

// EffectiveVersion derives a coarse version number from Last-Modified, or
// 0 if the store has never been written to.
func (s *Store) EffectiveVersion() (uint64, error) {
	var version uint64
	err := s.Env.ReadTx(func(tx kv.Tx) error {
		t, ok, err := meta.GetTimestamp(tx, meta.KeyLastModified)
		if err != nil {
			return err
		}
		if ok {
			version = uint64(t.UnixNano())
		}
		return nil
	})
	return version, err
}
