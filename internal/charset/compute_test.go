package charset

import (
	"fmt"
	"testing"

	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
	"github.com/kasei-go/diomede/internal/quadstore"
	"github.com/kasei-go/diomede/pkg/rdf"
)

func openTestStore(t *testing.T) *quadstore.Store {
	t.Helper()
	env, err := kv.Open(t.TempDir(), kv.DefaultConfig())
	if err != nil {
		t.Fatalf("open env: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	if err := meta.Ensure(env); err != nil {
		t.Fatalf("meta.Ensure: %v", err)
	}
	if err := dict.Ensure(env); err != nil {
		t.Fatalf("dict.Ensure: %v", err)
	}
	if err := Ensure(env); err != nil {
		t.Fatalf("charset.Ensure: %v", err)
	}
	store, err := quadstore.Open(env)
	if err != nil {
		t.Fatalf("quadstore.Open: %v", err)
	}
	return store
}

// S6: Characteristic Set cardinality estimation.
func TestStarCardinality(t *testing.T) {
	store := openTestStore(t)

	graph := rdf.NewIRI("tag:g")
	typ := rdf.NewIRI("ex:type")
	name := rdf.NewIRI("ex:name")
	version := rdf.NewIRI("ex:version")

	var quads []rdf.Quad
	subject := func(label string) rdf.IRI { return rdf.NewIRI("ex:" + label) }

	// 10 subjects with only ex:type.
	for i := 0; i < 10; i++ {
		s := subject(fmt.Sprintf("type-only-%d", i))
		quads = append(quads, rdf.NewQuad(s, typ, rdf.NewStringLiteral("T"), graph))
	}
	// 5 subjects with {type, name}.
	for i := 0; i < 5; i++ {
		s := subject(fmt.Sprintf("type-name-%d", i))
		quads = append(quads,
			rdf.NewQuad(s, typ, rdf.NewStringLiteral("T"), graph),
			rdf.NewQuad(s, name, rdf.NewStringLiteral("N"), graph),
		)
	}
	// 5 subjects with {type, version}.
	for i := 0; i < 5; i++ {
		s := subject(fmt.Sprintf("type-version-%d", i))
		quads = append(quads,
			rdf.NewQuad(s, typ, rdf.NewStringLiteral("T"), graph),
			rdf.NewQuad(s, version, rdf.NewStringLiteral("V"), graph),
		)
	}
	// 5 subjects with {type, name, version}.
	for i := 0; i < 5; i++ {
		s := subject(fmt.Sprintf("type-name-version-%d", i))
		quads = append(quads,
			rdf.NewQuad(s, typ, rdf.NewStringLiteral("T"), graph),
			rdf.NewQuad(s, name, rdf.NewStringLiteral("N"), graph),
			rdf.NewQuad(s, version, rdf.NewStringLiteral("V"), graph),
		)
	}

	if err := store.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	var graphID uint64
	if err := store.Env.ReadTx(func(tx kv.Tx) error {
		id, err := dict.LookupID(tx, graph)
		graphID = id
		return err
	}); err != nil {
		t.Fatalf("lookup graph: %v", err)
	}

	if err := Compute(store, graphID, false); err != nil {
		t.Fatalf("compute: %v", err)
	}

	estimate := func(pattern []TriplePattern) float64 {
		t.Helper()
		var est float64
		err := store.Env.ReadTx(func(tx kv.Tx) error {
			e, err := StarCardinality(tx, store, graphID, pattern)
			est = e
			return err
		})
		if err != nil {
			t.Fatalf("star cardinality: %v", err)
		}
		return est
	}

	cases := []struct {
		name     string
		pattern  []TriplePattern
		expected float64
	}{
		{"all-variable", []TriplePattern{{}}, 45},
		{"type-bound", []TriplePattern{{Predicate: typ}}, 25},
		{"name-bound", []TriplePattern{{Predicate: name}}, 10},
		{"type-and-name", []TriplePattern{{Predicate: typ}, {Predicate: name}}, 10},
		{"type-name-version", []TriplePattern{{Predicate: typ}, {Predicate: name}, {Predicate: version}}, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := estimate(c.pattern)
			if got != c.expected {
				t.Errorf("expected %v, got %v", c.expected, got)
			}
		})
	}
}

// Recomputing across multiple graphs (one ClearAll, then Compute per graph)
// must not let a later graph's Compute wipe an earlier graph's
// already-written entries.
func TestComputeAcrossMultipleGraphsDoesNotClobber(t *testing.T) {
	store := openTestStore(t)

	g1 := rdf.NewIRI("tag:g1")
	g2 := rdf.NewIRI("tag:g2")
	quads := []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("ex:s1"), rdf.NewIRI("ex:p"), rdf.NewStringLiteral("o"), g1),
		rdf.NewQuad(rdf.NewIRI("ex:s2"), rdf.NewIRI("ex:p"), rdf.NewStringLiteral("o"), g2),
	}
	if err := store.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	var g1ID, g2ID uint64
	if err := store.Env.ReadTx(func(tx kv.Tx) error {
		var err error
		g1ID, err = dict.LookupID(tx, g1)
		if err != nil {
			return err
		}
		g2ID, err = dict.LookupID(tx, g2)
		return err
	}); err != nil {
		t.Fatalf("lookup graphs: %v", err)
	}

	if err := ClearAll(store, false); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if err := Compute(store, g1ID, false); err != nil {
		t.Fatalf("compute g1: %v", err)
	}
	if err := Compute(store, g2ID, false); err != nil {
		t.Fatalf("compute g2: %v", err)
	}

	var g1Entries, g2Entries []CS
	if err := store.Env.ReadTx(func(tx kv.Tx) error {
		var err error
		g1Entries, err = LoadGraph(tx, g1ID)
		if err != nil {
			return err
		}
		g2Entries, err = LoadGraph(tx, g2ID)
		return err
	}); err != nil {
		t.Fatalf("load graphs: %v", err)
	}

	if len(g1Entries) == 0 {
		t.Error("expected g1's characteristic sets to survive computing g2's")
	}
	if len(g2Entries) == 0 {
		t.Error("expected g2's characteristic sets to be present")
	}
}
