package charset

import (
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/planner"
	"github.com/kasei-go/diomede/internal/quadstore"
	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// LoadGraph reads every stored CS entry for a graph, in sequence order.
func LoadGraph(tx kv.Tx, graphID uint64) ([]CS, error) {
	lower := csKey(graphID, 0)
	upper := csKey(graphID+1, 0)
	var entries []CS
	err := tx.IterateRange(SubDBCharacteristicSets, lower, upper, false, func(k, v []byte) bool {
		g, seq, derr := decodeCSKey(k)
		if derr != nil {
			return false
		}
		count, preds, derr := decodeCSValue(v)
		if derr != nil {
			return false
		}
		entries = append(entries, CS{GraphID: g, Sequence: seq, Count: count, Predicates: preds})
		return true
	})
	return entries, err
}

// LoadTypeSets reads every stored type-set combination for a graph, in
// (cs-sequence, combo-sequence) order.
func LoadTypeSets(tx kv.Tx, graphID uint64) ([]TypeCombo, error) {
	lower := typeSetKey(graphID, 0, 0)
	upper := typeSetKey(graphID+1, 0, 0)
	var combos []TypeCombo
	err := tx.IterateRange(SubDBTypeSets, lower, upper, false, func(k, v []byte) bool {
		g, csSeq, comboSeq, derr := decodeTypeSetKey(k)
		if derr != nil {
			return false
		}
		count, typeIDs, derr := decodeTypeSetValue(v)
		if derr != nil {
			return false
		}
		combos = append(combos, TypeCombo{GraphID: g, CSSeq: csSeq, ComboSeq: comboSeq, Count: count, TypeIDs: typeIDs})
		return true
	})
	return combos, err
}

// DataSet bundles a graph's stored Characteristic Sets, optionally its
// type sets, and whether they reflect the current quad table.
type DataSet struct {
	GraphID  uint64
	Entries  []CS
	TypeSets []TypeCombo
	Accurate bool
}

// LoadDataSet assembles the CharacteristicDataSet for a graph (spec
// section 6's characteristic_sets operation).
func LoadDataSet(tx kv.Tx, graphID uint64, includeTypeSets bool) (DataSet, error) {
	entries, err := LoadGraph(tx, graphID)
	if err != nil {
		return DataSet{}, err
	}
	ds := DataSet{GraphID: graphID, Entries: entries}
	if includeTypeSets {
		combos, err := LoadTypeSets(tx, graphID)
		if err != nil {
			return DataSet{}, err
		}
		ds.TypeSets = combos
	}
	accurate, err := AccuracyFlag(tx)
	if err != nil {
		return DataSet{}, err
	}
	ds.Accurate = accurate
	return ds, nil
}

// Aggregate unions every CS entry whose predicate set covers predIDs into
// a single summary (spec section 4.9's aggregated CS): counts summed,
// predicate set intersected across the matching entries, per-predicate
// stats unioned. ok is false if no entry matches.
func Aggregate(entries []CS, predIDs []uint64) (CS, bool) {
	var merged CS
	matched := 0
	inAll := make(map[uint64]int)
	for _, cs := range entries {
		if !cs.supersetOf(predIDs) {
			continue
		}
		matched++
		merged.Count += cs.Count
		for _, p := range cs.Predicates {
			inAll[p.PredID]++
		}
	}
	if matched == 0 {
		return CS{}, false
	}
	for _, cs := range entries {
		if !cs.supersetOf(predIDs) {
			continue
		}
		for _, p := range cs.Predicates {
			if inAll[p.PredID] != matched {
				continue
			}
			found := false
			for i := range merged.Predicates {
				m := &merged.Predicates[i]
				if m.PredID != p.PredID {
					continue
				}
				found = true
				m.Sum += p.Sum
				if p.Min < m.Min {
					m.Min = p.Min
				}
				if p.Max > m.Max {
					m.Max = p.Max
				}
			}
			if !found {
				merged.Predicates = append(merged.Predicates, p)
			}
		}
	}
	return merged, true
}

func (cs CS) predicateStats() map[uint64]PredicateStats {
	m := make(map[uint64]PredicateStats, len(cs.Predicates))
	for _, p := range cs.Predicates {
		m[p.PredID] = p
	}
	return m
}

func (cs CS) supersetOf(predIDs []uint64) bool {
	have := cs.predicateStats()
	for _, id := range predIDs {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// TriplePattern is one (predicate, object) slot of a star-shaped basic
// graph pattern over a single subject variable, as used by
// StarCardinality (spec section 4.9). A nil Predicate or Object means that
// slot is a variable.
type TriplePattern struct {
	Predicate rdf.Term
	Object    rdf.Term
}

// StarCardinality estimates the number of solutions of a basic graph
// pattern confined to a single subject variable, in graph graphID, using
// the graph's stored Characteristic Sets (spec section 4.9): the sum over
// matching sets of distinct·m·o.
func StarCardinality(tx kv.Tx, store *quadstore.Store, graphID uint64, pattern []TriplePattern) (float64, error) {
	entries, err := LoadGraph(tx, graphID)
	if err != nil {
		return 0, err
	}

	type resolved struct {
		predID      uint64
		predBound   bool
		predMissing bool
		object      rdf.Term
		objBound    bool
	}
	resolvedPatterns := make([]resolved, len(pattern))
	var boundPreds []uint64
	for i, t := range pattern {
		r := resolved{objBound: t.Object != nil, object: t.Object}
		if t.Predicate != nil {
			r.predBound = true
			id, err := dict.LookupID(tx, t.Predicate)
			if err == xerrors.ErrNotFound {
				r.predMissing = true
			} else if err != nil {
				return 0, err
			} else {
				r.predID = id
				boundPreds = append(boundPreds, id)
			}
		}
		resolvedPatterns[i] = r
	}
	for _, r := range resolvedPatterns {
		if r.predMissing {
			// A bound predicate never interned cannot match anything.
			return 0, nil
		}
	}

	pl := planner.New(store)
	graphTerm, err := pl.Dict.LookupTerm(tx, graphID)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, cs := range entries {
		if !cs.supersetOf(boundPreds) {
			continue
		}
		distinct := float64(cs.Count)
		if distinct == 0 {
			continue
		}

		predStats := cs.predicateStats()
		var totalSum uint64
		for _, p := range cs.Predicates {
			totalSum += p.Sum
		}

		m := 1.0
		for _, r := range resolvedPatterns {
			if r.predBound {
				m *= float64(predStats[r.predID].Sum) / distinct
			} else {
				m *= float64(totalSum) / distinct
			}
		}

		o := 1.0
		for _, r := range resolvedPatterns {
			if r.predBound && r.objBound {
				predTerm, err := pl.Dict.LookupTerm(tx, r.predID)
				if err != nil {
					return 0, err
				}
				sel, err := selectivity(tx, pl, graphTerm, predTerm, r.object)
				if err != nil {
					return 0, err
				}
				if sel < o {
					o = sel
				}
			}
		}

		total += distinct * m * o
	}
	return total, nil
}

// selectivity computes count(?, pred, obj, g) / count(?, pred, ?, g).
func selectivity(tx kv.Tx, pl *planner.Planner, graph, pred, obj rdf.Term) (float64, error) {
	withObj := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Bound(pred),
		Object:    rdf.Bound(obj),
		Graph:     rdf.Bound(graph),
	}
	withoutObj := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Bound(pred),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Bound(graph),
	}
	numerator, err := pl.CountQuads(tx, withObj)
	if err != nil {
		return 0, err
	}
	denominator, err := pl.CountQuads(tx, withoutObj)
	if err != nil {
		return 0, err
	}
	if denominator == 0 {
		return 0, nil
	}
	return float64(numerator) / float64(denominator), nil
}
