// Package charset computes and queries the Characteristic Set / Type Set
// statistics index (spec section 4.9): per-graph subject grouping by
// predicate set, used for join-cardinality estimation. Grounded on the
// teacher's stats package layout (internal/store/stats.go), generalized
// from fixed predicate histograms to full characteristic sets.
package charset

import (
	"sort"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// Sub-database names, per spec section 4.9.
const (
	SubDBCharacteristicSets = "characteristicSets"
	SubDBTypeSets           = "typeSets"
)

// Ensure registers the CS/TS sub-databases.
func Ensure(env *kv.Env) error {
	if err := env.CreateSubDatabase(SubDBCharacteristicSets); err != nil {
		return err
	}
	return env.CreateSubDatabase(SubDBTypeSets)
}

// PredicateStats is one predicate's multiplicity statistics within a
// Characteristic Set.
type PredicateStats struct {
	PredID uint64
	Sum    uint64
	Min    uint64
	Max    uint64
}

// CS is a single Characteristic Set: the subjects in a graph sharing
// exactly the same predicate set, with per-predicate multiplicity stats.
type CS struct {
	GraphID    uint64
	Sequence   uint64
	Count      uint64
	Predicates []PredicateStats
}

// TypeCombo is one observed rdf:type value combination within a CS, and
// how many of the CS's subjects had it.
type TypeCombo struct {
	GraphID  uint64
	CSSeq    uint64
	ComboSeq uint64
	Count    uint64
	TypeIDs  []uint64
}

func csKey(graphID, sequence uint64) []byte {
	buf := codec.PutUint64(nil, graphID)
	return codec.PutUint64(buf, sequence)
}

func decodeCSKey(b []byte) (graphID, sequence uint64, err error) {
	if len(b) < 2*codec.Uint64Size {
		return 0, 0, xerrors.NewCodecError("malformed characteristic-set key")
	}
	graphID, err = codec.DecodeUint64(b[:codec.Uint64Size])
	if err != nil {
		return 0, 0, err
	}
	sequence, err = codec.DecodeUint64(b[codec.Uint64Size:])
	return graphID, sequence, err
}

func encodeCSValue(cs CS) []byte {
	buf := codec.PutUint64(nil, cs.Count)
	for _, p := range cs.Predicates {
		buf = codec.PutUint64(buf, p.PredID)
		buf = codec.PutUint64(buf, p.Sum)
		buf = codec.PutUint64(buf, p.Min)
		buf = codec.PutUint64(buf, p.Max)
	}
	return buf
}

func decodeCSValue(b []byte) (count uint64, preds []PredicateStats, err error) {
	count, err = codec.DecodeUint64(b)
	if err != nil {
		return 0, nil, err
	}
	rest := b[codec.Uint64Size:]
	if len(rest)%(4*codec.Uint64Size) != 0 {
		return 0, nil, xerrors.NewCodecError("malformed characteristic-set value")
	}
	n := len(rest) / (4 * codec.Uint64Size)
	preds = make([]PredicateStats, 0, n)
	for i := 0; i < n; i++ {
		off := i * 4 * codec.Uint64Size
		predID, _ := codec.DecodeUint64(rest[off:])
		sum, _ := codec.DecodeUint64(rest[off+codec.Uint64Size:])
		min, _ := codec.DecodeUint64(rest[off+2*codec.Uint64Size:])
		max, _ := codec.DecodeUint64(rest[off+3*codec.Uint64Size:])
		preds = append(preds, PredicateStats{PredID: predID, Sum: sum, Min: min, Max: max})
	}
	return count, preds, nil
}

func typeSetKey(graphID, csSeq, comboSeq uint64) []byte {
	buf := codec.PutUint64(nil, graphID)
	buf = codec.PutUint64(buf, csSeq)
	return codec.PutUint64(buf, comboSeq)
}

func decodeTypeSetKey(b []byte) (graphID, csSeq, comboSeq uint64, err error) {
	if len(b) < 3*codec.Uint64Size {
		return 0, 0, 0, xerrors.NewCodecError("malformed type-set key")
	}
	graphID, _ = codec.DecodeUint64(b)
	csSeq, _ = codec.DecodeUint64(b[codec.Uint64Size:])
	comboSeq, _ = codec.DecodeUint64(b[2*codec.Uint64Size:])
	return graphID, csSeq, comboSeq, nil
}

func encodeTypeSetValue(count uint64, typeIDs []uint64) []byte {
	buf := codec.PutUint64(nil, count)
	for _, id := range typeIDs {
		buf = codec.PutUint64(buf, id)
	}
	return buf
}

func decodeTypeSetValue(b []byte) (count uint64, typeIDs []uint64, err error) {
	count, err = codec.DecodeUint64(b)
	if err != nil {
		return 0, nil, err
	}
	rest := b[codec.Uint64Size:]
	if len(rest)%codec.Uint64Size != 0 {
		return 0, nil, xerrors.NewCodecError("malformed type-set value")
	}
	for off := 0; off < len(rest); off += codec.Uint64Size {
		id, _ := codec.DecodeUint64(rest[off:])
		typeIDs = append(typeIDs, id)
	}
	return count, typeIDs, nil
}

// predicateSetKey canonicalizes a set of predicate ids into a stable map
// key, so subjects sharing a predicate set land in the same CS regardless
// of the order predicates were observed in.
func predicateSetKey(ids []uint64) string {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	key := make([]byte, 0, len(sorted)*codec.Uint64Size)
	for _, id := range sorted {
		key = codec.PutUint64(key, id)
	}
	return string(key)
}

// AccuracyFlag reports whether the stored CS for a graph reflects the
// current quad table (spec section 4.9: CS is accurate iff
// CharacteristicSets-Last-Modified >= Quads-Last-Modified).
func AccuracyFlag(tx kv.Tx) (bool, error) {
	csTime, csOK, err := meta.GetTimestamp(tx, meta.KeyCharacteristicSetsLastModified)
	if err != nil {
		return false, err
	}
	if !csOK {
		return false, nil
	}
	quadsTime, quadsOK, err := meta.GetTimestamp(tx, meta.KeyQuadsLastModified)
	if err != nil {
		return false, err
	}
	if !quadsOK {
		return true, nil
	}
	return !csTime.Before(quadsTime), nil
}

// rdfTypeID resolves the dictionary id of rdf:type, if it has ever been
// interned. ok is false if no quad has ever used rdf:type as a predicate.
func rdfTypeID(tx kv.Tx) (uint64, bool, error) {
	id, err := dict.LookupID(tx, rdf.NewIRI(rdf.RDFType))
	if err == xerrors.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
