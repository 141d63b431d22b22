package planner

import (
	"bytes"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/quadstore"
	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// Quads returns every quad matching pattern, within an existing
// transaction. Bound terms that were never interned yield an empty result,
// not an error: the pattern simply cannot match anything in the store.
func (pl *Planner) Quads(tx kv.Tx, pattern rdf.QuadPattern) ([]rdf.Quad, error) {
	rows, err := pl.Rows(tx, pattern)
	if err != nil {
		return nil, err
	}
	quads := make([]rdf.Quad, 0, len(rows))
	for _, row := range rows {
		q, err := pl.ResolveRow(tx, row)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

// QuadIDs returns the (s,p,o,g) id-tuple of every quad matching pattern.
func (pl *Planner) QuadIDs(tx kv.Tx, pattern rdf.QuadPattern) ([][4]uint64, error) {
	rows, err := pl.Rows(tx, pattern)
	if err != nil {
		return nil, err
	}
	ids := make([][4]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.IDs)
	}
	return ids, nil
}

// CountQuads counts matches without materializing terms. An all-wildcard
// pattern short-circuits to a bare row count of the quad table; a pattern
// with no repeated variables whose best index covers every bound position
// short-circuits to a range count of that index (spec section 4.8's
// optimized count); everything else enumerates id-tuples and counts.
func (pl *Planner) CountQuads(tx kv.Tx, pattern rdf.QuadPattern) (int64, error) {
	bound := pattern.BoundPositions()
	if len(bound) == 0 && len(repeatedVarGroups(pattern)) == 0 {
		var n int64
		err := tx.IterateAllUnescaping(quadstore.SubDBQuads, func(_, _ []byte) bool {
			n++
			return true
		})
		return n, err
	}

	if len(repeatedVarGroups(pattern)) == 0 {
		p, matched := pl.BestIndex(pattern)
		if p.Name != "" && matched == len(bound) {
			ids, resolvable, err := pl.resolveBound(tx, pattern)
			if err != nil {
				return 0, err
			}
			if !resolvable {
				return 0, nil
			}
			prefix := prefixFor(p, ids, matched)
			var n int64
			err = tx.IterateRange(p.Name, prefix, nil, false, func(k, _ []byte) bool {
				if !bytes.HasPrefix(k, prefix) {
					return false
				}
				n++
				return true
			})
			return n, err
		}
	}

	rows, err := pl.Rows(tx, pattern)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Bindings projects the variable positions of pattern for every matching
// quad, keyed by variable name.
func (pl *Planner) Bindings(tx kv.Tx, pattern rdf.QuadPattern) ([]map[string]rdf.Term, error) {
	rows, err := pl.Rows(tx, pattern)
	if err != nil {
		return nil, err
	}
	var out []map[string]rdf.Term
	for _, row := range rows {
		q, err := pl.ResolveRow(tx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, bindingsOf(pattern, q))
	}
	return out, nil
}

func bindingsOf(pattern rdf.QuadPattern, q rdf.Quad) map[string]rdf.Term {
	terms := [4]rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph}
	binding := make(map[string]rdf.Term)
	for pos := rdf.PosSubject; pos <= rdf.PosGraph; pos++ {
		slot := pattern.Slot(pos)
		if slot.IsVariable() {
			binding[slot.Var] = terms[pos]
		}
	}
	return binding
}

// Rows resolves pattern's bound terms to ids, picks the best index,
// range-scans the prefix it can supply, and filters the remaining bound
// positions and repeated-variable equalities on the id-tuples directly
// (the dictionary bijection makes id equality coincide with term
// equality). The result needs no further matching, only materialization.
func (pl *Planner) Rows(tx kv.Tx, pattern rdf.QuadPattern) ([]quadstore.QuadRow, error) {
	ids, resolvable, err := pl.resolveBound(tx, pattern)
	if err != nil {
		return nil, err
	}
	if !resolvable {
		return nil, nil
	}

	bound := pattern.BoundPositions()
	groups := repeatedVarGroups(pattern)
	keep := func(tuple [4]uint64) bool {
		for _, pos := range bound {
			if tuple[pos] != ids[pos] {
				return false
			}
		}
		for _, group := range groups {
			first := tuple[group[0]]
			for _, pos := range group[1:] {
				if tuple[pos] != first {
					return false
				}
			}
		}
		return true
	}

	p, matched := pl.BestIndex(pattern)
	if p.Name == "" {
		return pl.fullScan(tx, keep)
	}

	prefix := prefixFor(p, ids, matched)
	var rows []quadstore.QuadRow
	err = tx.IterateRange(p.Name, prefix, nil, false, func(k, v []byte) bool {
		if !bytes.HasPrefix(k, prefix) {
			return false
		}
		permuted, derr := codec.DecodeIDTuple(k)
		if derr != nil {
			return false
		}
		qid, derr := codec.DecodeUint64(v)
		if derr != nil {
			return false
		}
		tuple := codec.InversePermute(permuted, p.Order)
		if keep(tuple) {
			rows = append(rows, quadstore.QuadRow{QuadID: qid, IDs: tuple})
		}
		return true
	})
	return rows, err
}

// prefixFor concatenates the first matched bound ids in permutation order
// into a scan prefix.
func prefixFor(p quadstore.Permutation, ids [4]uint64, matched int) []byte {
	prefix := make([]byte, 0, matched*codec.Uint64Size)
	for i := 0; i < matched; i++ {
		prefix = codec.PutUint64(prefix, ids[p.Order[i]])
	}
	return prefix
}

// repeatedVarGroups returns, for each variable name used in more than one
// position, the positions sharing it. Anonymous variables (empty name)
// impose no constraint.
func repeatedVarGroups(pattern rdf.QuadPattern) [][]rdf.Position {
	byName := make(map[string][]rdf.Position, 4)
	var order []string
	for pos := rdf.PosSubject; pos <= rdf.PosGraph; pos++ {
		slot := pattern.Slot(pos)
		if !slot.IsVariable() || slot.Var == "" {
			continue
		}
		if _, ok := byName[slot.Var]; !ok {
			order = append(order, slot.Var)
		}
		byName[slot.Var] = append(byName[slot.Var], pos)
	}
	var groups [][]rdf.Position
	for _, name := range order {
		if len(byName[name]) > 1 {
			groups = append(groups, byName[name])
		}
	}
	return groups
}

func (pl *Planner) fullScan(tx kv.Tx, keep func([4]uint64) bool) ([]quadstore.QuadRow, error) {
	var rows []quadstore.QuadRow
	err := tx.IterateAllUnescaping(quadstore.SubDBQuads, func(k, v []byte) bool {
		qid, derr := codec.DecodeUint64(k)
		if derr != nil {
			return false
		}
		ids, derr := codec.DecodeIDTuple(v)
		if derr != nil {
			return false
		}
		if keep(ids) {
			rows = append(rows, quadstore.QuadRow{QuadID: qid, IDs: ids})
		}
		return true
	})
	return rows, err
}

// resolveBound looks up the dictionary id of every bound term in pattern.
// resolvable is false if any bound term was never interned, meaning the
// pattern cannot match anything.
func (pl *Planner) resolveBound(tx kv.Tx, pattern rdf.QuadPattern) ([4]uint64, bool, error) {
	var ids [4]uint64
	for _, pos := range pattern.BoundPositions() {
		slot := pattern.Slot(pos)
		termID, err := dict.LookupID(tx, slot.Term)
		if err == xerrors.ErrNotFound {
			return ids, false, nil
		}
		if err != nil {
			return ids, false, err
		}
		ids[pos] = termID
	}
	return ids, true, nil
}

// ResolveRow materializes a row's four term ids through the planner's
// dictionary LRU.
func (pl *Planner) ResolveRow(tx kv.Tx, row quadstore.QuadRow) (rdf.Quad, error) {
	var terms [4]rdf.Term
	for i, id := range row.IDs {
		t, err := pl.Dict.LookupTerm(tx, id)
		if err != nil {
			return rdf.Quad{}, err
		}
		terms[i] = t
	}
	return rdf.NewQuad(terms[0], terms[1], terms[2], terms[3]), nil
}
