package charset

import (
	"sort"
	"time"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
	"github.com/kasei-go/diomede/internal/quadstore"
)

type accumulator struct {
	count   uint64
	byPred  map[uint64]*PredicateStats
	order   []uint64 // first-seen predicate order, for deterministic output
	typeIDs map[string][]uint64
	typeCnt map[string]uint64
	typeOrd []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		byPred:  make(map[uint64]*PredicateStats),
		typeIDs: make(map[string][]uint64),
		typeCnt: make(map[string]uint64),
	}
}

func (a *accumulator) observe(predID uint64, multiplicity uint64) {
	p, ok := a.byPred[predID]
	if !ok {
		p = &PredicateStats{PredID: predID, Min: multiplicity, Max: multiplicity}
		a.byPred[predID] = p
		a.order = append(a.order, predID)
	}
	p.Sum += multiplicity
	if multiplicity < p.Min {
		p.Min = multiplicity
	}
	if multiplicity > p.Max {
		p.Max = multiplicity
	}
}

func (a *accumulator) predicates() []PredicateStats {
	out := make([]PredicateStats, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.byPred[id])
	}
	return out
}

func (a *accumulator) observeTypeCombo(typeIDs []uint64) {
	sorted := append([]uint64(nil), typeIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	key := encodeIDs(sorted)
	if _, ok := a.typeCnt[key]; !ok {
		a.typeIDs[key] = sorted
		a.typeOrd = append(a.typeOrd, key)
	}
	a.typeCnt[key]++
}

func encodeIDs(ids []uint64) string {
	buf := make([]byte, 0, len(ids)*codec.Uint64Size)
	for _, id := range ids {
		buf = codec.PutUint64(buf, id)
	}
	return string(buf)
}

// ClearAll wipes the CS and (if withTypeSets) TS sub-databases. Callers
// recomputing across every graph call this once before looping Compute
// over each graph, so that one graph's entries don't wipe another's
// (spec section 3: "wholesale recomputed by command; each recomputation
// clears prior contents of the sub-database" describes the whole-store
// operation, not a per-graph one — compute_characteristic_sets takes no
// graph argument).
func ClearAll(store *quadstore.Store, withTypeSets bool) error {
	if err := store.Env.Clear(SubDBCharacteristicSets); err != nil {
		return err
	}
	if withTypeSets {
		return store.Env.Clear(SubDBTypeSets)
	}
	return nil
}

// Compute builds the Characteristic Set (and, if withTypeSets, the Type
// Set) index for a single graph, per spec section 4.9: stream the graph's
// triples grouped by subject, accumulate per-subject predicate
// multiplicities, then bucket subjects by their exact predicate set. The
// caller is responsible for clearing prior contents once up front (see
// ClearAll) when recomputing across multiple graphs.
func Compute(store *quadstore.Store, graphID uint64, withTypeSets bool) error {
	var rows []quadstore.QuadRow
	if err := store.Env.ReadTx(func(tx kv.Tx) error {
		r, err := store.QuadsInGraph(tx, graphID)
		rows = r
		return err
	}); err != nil {
		return err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].IDs[0] < rows[j].IDs[0] })

	var typeID uint64
	var haveTypeID bool
	if withTypeSets {
		if err := store.Env.ReadTx(func(tx kv.Tx) error {
			id, ok, err := rdfTypeID(tx)
			typeID, haveTypeID = id, ok
			return err
		}); err != nil {
			return err
		}
	}

	bySet := make(map[string]*accumulator)
	var setOrder []string

	flush := func(subjectPreds map[uint64]uint64, subjectTypeIDs []uint64) {
		ids := make([]uint64, 0, len(subjectPreds))
		for id := range subjectPreds {
			ids = append(ids, id)
		}
		key := predicateSetKey(ids)
		acc, ok := bySet[key]
		if !ok {
			acc = newAccumulator()
			bySet[key] = acc
			setOrder = append(setOrder, key)
		}
		acc.count++
		for predID, multiplicity := range subjectPreds {
			acc.observe(predID, multiplicity)
		}
		if withTypeSets && haveTypeID && len(subjectTypeIDs) > 0 {
			acc.observeTypeCombo(subjectTypeIDs)
		}
	}

	var curSubject uint64
	haveSubject := false
	curPreds := make(map[uint64]uint64)
	var curTypes []uint64

	for _, row := range rows {
		s, p, o := row.IDs[0], row.IDs[1], row.IDs[2]
		if haveSubject && s != curSubject {
			flush(curPreds, curTypes)
			curPreds = make(map[uint64]uint64)
			curTypes = nil
		}
		curSubject = s
		haveSubject = true
		curPreds[p]++
		if withTypeSets && haveTypeID && p == typeID {
			curTypes = append(curTypes, o)
		}
	}
	if haveSubject {
		flush(curPreds, curTypes)
	}

	var csEntries []CS
	var csPairs [][2][]byte
	var tsPairs [][2][]byte

	for seq, key := range setOrder {
		acc := bySet[key]
		cs := CS{GraphID: graphID, Sequence: uint64(seq), Count: acc.count, Predicates: acc.predicates()}
		csEntries = append(csEntries, cs)
		csPairs = append(csPairs, [2][]byte{csKey(graphID, uint64(seq)), encodeCSValue(cs)})

		if withTypeSets {
			for comboSeq, comboKey := range acc.typeOrd {
				value := encodeTypeSetValue(acc.typeCnt[comboKey], acc.typeIDs[comboKey])
				tsPairs = append(tsPairs, [2][]byte{typeSetKey(graphID, uint64(seq), uint64(comboSeq)), value})
			}
		}
	}

	if err := store.Env.BulkInsertSorted(SubDBCharacteristicSets, sortPairs(csPairs)); err != nil {
		return err
	}
	if withTypeSets {
		if err := store.Env.BulkInsertSorted(SubDBTypeSets, sortPairs(tsPairs)); err != nil {
			return err
		}
	}

	return store.Env.WriteTx(func(tx kv.Tx) error {
		now := time.Now()
		if err := meta.Touch(tx, meta.KeyCharacteristicSetsLastModified, now); err != nil {
			return err
		}
		if withTypeSets {
			return meta.Touch(tx, meta.KeyTypeSetsLastModified, now)
		}
		return nil
	})
}

func sortPairs(pairs [][2][]byte) [][2][]byte {
	sort.Slice(pairs, func(i, j int) bool {
		return string(pairs[i][0]) < string(pairs[j][0])
	})
	return pairs
}

// DropCharacteristicSets removes the stored CS index for every graph.
func DropCharacteristicSets(store *quadstore.Store) error {
	return store.Env.Clear(SubDBCharacteristicSets)
}

// DropTypeSets removes the stored Type Set index for every graph.
func DropTypeSets(store *quadstore.Store) error {
	return store.Env.Clear(SubDBTypeSets)
}
