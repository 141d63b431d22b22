package planner

import (
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
	store, err := quadstore.Open(env)
	if err != nil {
		t.Fatalf("quadstore.Open: %v", err)
	}
	return store
}

func boundGraphPattern(g rdf.Term) rdf.QuadPattern {
	return rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Bound(g),
	}
}

func TestBestIndexPrefersLongestBoundPrefix(t *testing.T) {
	store := openTestStore(t)
	if err := store.AddFullIndex("spog"); err != nil {
		t.Fatalf("add spog: %v", err)
	}
	pl := New(store)

	subjectBound := rdf.QuadPattern{
		Subject:   rdf.Bound(rdf.NewIRI("ex:s")),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Variable("g"),
	}
	best, score := pl.BestIndex(subjectBound)
	if best.Name != "spog" || score != 1 {
		t.Errorf("expected spog with score 1 for a subject-bound pattern, got %s score %d", best.Name, score)
	}

	graphBound := boundGraphPattern(rdf.NewIRI("ex:g"))
	best, score = pl.BestIndex(graphBound)
	if best.Name != "gpso" || score != 1 {
		t.Errorf("expected gpso with score 1 for a graph-bound pattern, got %s score %d", best.Name, score)
	}

	graphAndPred := graphBound
	graphAndPred.Predicate = rdf.Bound(rdf.NewIRI("ex:p"))
	best, score = pl.BestIndex(graphAndPred)
	if best.Name != "gpso" || score != 2 {
		t.Errorf("expected gpso with score 2 for a graph+predicate pattern, got %s score %d", best.Name, score)
	}
}

func TestBestIndexTieBreaksByInsertionOrder(t *testing.T) {
	store := openTestStore(t)
	if err := store.AddFullIndex("gosp"); err != nil {
		t.Fatalf("add gosp: %v", err)
	}
	pl := New(store)

	// Both gpso (default, registered first) and gosp score 1.
	best, _ := pl.BestIndex(boundGraphPattern(rdf.NewIRI("ex:g")))
	if best.Name != "gpso" {
		t.Errorf("expected the first-registered permutation to win the tie, got %s", best.Name)
	}
}

func TestAvailableOrdersStripsBoundPrefix(t *testing.T) {
	store := openTestStore(t)
	if err := store.AddFullIndex("gosp"); err != nil {
		t.Fatalf("add gosp: %v", err)
	}
	pl := New(store)

	orders := pl.AvailableOrders(boundGraphPattern(rdf.NewIRI("ex:g")))
	if len(orders) != 2 || orders[0] != "pso" || orders[1] != "osp" {
		t.Errorf("expected orders [pso osp], got %v", orders)
	}
}

func TestCountQuadsAgreesWithEnumeration(t *testing.T) {
	store := openTestStore(t)
	g := rdf.NewIRI("ex:g")
	p1 := rdf.NewIRI("ex:p1")
	quads := []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("ex:s1"), p1, rdf.NewStringLiteral("a"), g),
		rdf.NewQuad(rdf.NewIRI("ex:s1"), p1, rdf.NewStringLiteral("b"), g),
		rdf.NewQuad(rdf.NewIRI("ex:s2"), rdf.NewIRI("ex:p2"), rdf.NewStringLiteral("c"), g),
	}
	if err := store.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	pl := New(store)

	patterns := []rdf.QuadPattern{
		boundGraphPattern(g),
		{
			Subject:   rdf.Variable("s"),
			Predicate: rdf.Bound(p1),
			Object:    rdf.Variable("o"),
			Graph:     rdf.Bound(g),
		},
		{
			Subject:   rdf.Bound(rdf.NewIRI("ex:s1")),
			Predicate: rdf.Variable("p"),
			Object:    rdf.Variable("o"),
			Graph:     rdf.Variable("g"),
		},
	}
	for _, pattern := range patterns {
		if err := store.Env.ReadTx(func(tx kv.Tx) error {
			count, err := pl.CountQuads(tx, pattern)
			if err != nil {
				return err
			}
			found, err := pl.Quads(tx, pattern)
			if err != nil {
				return err
			}
			if count != int64(len(found)) {
				t.Errorf("count %d disagrees with %d enumerated quads", count, len(found))
			}
			return nil
		}); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
}

func TestCountQuadsNeverInternedTermIsZero(t *testing.T) {
	store := openTestStore(t)
	if err := store.Load("", []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("ex:s"), rdf.NewIRI("ex:p"), rdf.NewStringLiteral("o"), rdf.NewIRI("ex:g")),
	}, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	pl := New(store)
	if err := store.Env.ReadTx(func(tx kv.Tx) error {
		count, err := pl.CountQuads(tx, boundGraphPattern(rdf.NewIRI("ex:never-seen")))
		if err != nil {
			return err
		}
		if count != 0 {
			t.Errorf("expected 0 matches for a never-interned graph, got %d", count)
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func TestQuadIDsReturnsIDTuples(t *testing.T) {
	store := openTestStore(t)
	g := rdf.NewIRI("ex:g")
	if err := store.Load("", []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("ex:s"), rdf.NewIRI("ex:p"), rdf.NewStringLiteral("o"), g),
	}, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	pl := New(store)
	if err := store.Env.ReadTx(func(tx kv.Tx) error {
		tuples, err := pl.QuadIDs(tx, boundGraphPattern(g))
		if err != nil {
			return err
		}
		if len(tuples) != 1 {
			t.Fatalf("expected 1 tuple, got %d", len(tuples))
		}
		gid, err := dict.LookupID(tx, g)
		if err != nil {
			return err
		}
		if tuples[0][3] != gid {
			t.Errorf("expected the tuple's graph slot to be %d, got %d", gid, tuples[0][3])
		}
		for _, id := range tuples[0] {
			if id == 0 {
				t.Error("id 0 is the unbound sentinel and must never appear in a stored tuple")
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
}
