package diomede

import (
	"testing"

	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/pkg/rdf"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func wildcard() rdf.QuadPattern {
	return rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Variable("g"),
	}
}

// S1: simple load/query.
func TestLoadAndQuerySimple(t *testing.T) {
	s := openTestStore(t)

	subj := rdf.NewIRI("iri:s")
	graph := rdf.NewIRI("tag:graph")
	quads := []rdf.Quad{
		rdf.NewQuad(subj, rdf.NewIRI("iri:p1"), rdf.NewStringLiteral("o"), graph),
		rdf.NewQuad(subj, rdf.NewIRI("iri:p2"), rdf.NewIntegerLiteral("7"), graph),
	}
	if err := s.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	count, err := s.CountQuads(wildcard())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	got, err := s.QuadsMatching(wildcard())
	if err != nil {
		t.Fatalf("quads: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 quads, got %d", len(got))
	}
	for _, q := range got {
		if !q.Subject.Equal(subj) {
			t.Errorf("expected subject %v, got %v", subj, q.Subject)
		}
	}
}

// S2: duplicate load is idempotent.
func TestLoadDuplicateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	q := rdf.NewQuad(rdf.NewIRI("iri:s"), rdf.NewIRI("iri:p"), rdf.NewStringLiteral("o"), rdf.NewIRI("tag:g"))

	if err := s.Load("", []rdf.Quad{q, q}, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	count, err := s.CountQuads(wildcard())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1 after intra-batch dup, got %d", count)
	}

	if err := s.Load("", []rdf.Quad{q}, nil); err != nil {
		t.Fatalf("reload: %v", err)
	}
	count, err = s.CountQuads(wildcard())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count still 1 after reload, got %d", count)
	}
}

// S3: repeated-variable filter.
func TestRepeatedVariableFilter(t *testing.T) {
	s := openTestStore(t)
	subj := rdf.NewIRI("iri:s")
	graph := rdf.NewIRI("tag:graph")
	quads := []rdf.Quad{
		rdf.NewQuad(subj, rdf.NewIRI("p1"), rdf.NewStringLiteral("o"), graph),
		rdf.NewQuad(subj, rdf.NewIRI("p2"), rdf.NewIntegerLiteral("7"), graph),
		rdf.NewQuad(subj, rdf.NewIRI("p3"), subj, graph),
		rdf.NewQuad(subj, graph, subj, graph),
	}
	if err := s.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	allInGraph := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Bound(graph),
	}
	if n, err := s.CountQuads(allInGraph); err != nil || n != 4 {
		t.Fatalf("expected 4, got %d (err %v)", n, err)
	}

	subjEqObj := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("s"),
		Graph:     rdf.Bound(graph),
	}
	if n, err := s.CountQuads(subjEqObj); err != nil || n != 2 {
		t.Fatalf("expected 2, got %d (err %v)", n, err)
	}

	predEqSubjEqObj := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("s"),
		Object:    rdf.Variable("s"),
		Graph:     rdf.Bound(graph),
	}
	if n, err := s.CountQuads(predEqSubjEqObj); err != nil || n != 0 {
		t.Fatalf("expected 0, got %d (err %v)", n, err)
	}

	predEqGraph := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("s"),
		Graph:     rdf.Variable("p"),
	}
	if n, err := s.CountQuads(predEqGraph); err != nil || n != 1 {
		t.Fatalf("expected 1, got %d (err %v)", n, err)
	}
}

// Graph drop removes only the targeted graph's quads and leaves others
// untouched (spec section 8, "graph drop locality").
func TestGraphDropIsLocal(t *testing.T) {
	s := openTestStore(t)
	g1 := rdf.NewIRI("tag:g1")
	g2 := rdf.NewIRI("tag:g2")
	quads := []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("s1"), rdf.NewIRI("p"), rdf.NewStringLiteral("o"), g1),
		rdf.NewQuad(rdf.NewIRI("s2"), rdf.NewIRI("p"), rdf.NewStringLiteral("o"), g2),
	}
	if err := s.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	var g1ID uint64
	if err := s.Env.ReadTx(func(tx kv.Tx) error {
		id, err := dict.LookupID(tx, g1)
		g1ID = id
		return err
	}); err != nil {
		t.Fatalf("lookup g1: %v", err)
	}
	if err := s.Quads.DropGraph(g1ID); err != nil {
		t.Fatalf("drop graph: %v", err)
	}

	remaining, err := s.QuadsMatching(wildcard())
	if err != nil {
		t.Fatalf("quads: %v", err)
	}
	if len(remaining) != 1 || !remaining[0].Graph.Equal(g2) {
		t.Fatalf("expected only g2's quad to remain, got %v", remaining)
	}

	graphs, err := s.Graphs()
	if err != nil {
		t.Fatalf("graphs: %v", err)
	}
	for _, g := range graphs {
		if g.Equal(g1) {
			t.Fatalf("g1 should no longer be listed in graphs(), got %v", graphs)
		}
	}
}

// S7: verify succeeds after ingestion, across several active permutations.
func TestVerifyAfterIngestion(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddFullIndex("spog"); err != nil {
		t.Fatalf("add index: %v", err)
	}
	if err := s.AddFullIndex("posg"); err != nil {
		t.Fatalf("add index: %v", err)
	}

	quads := []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("s1"), rdf.NewIRI("p1"), rdf.NewStringLiteral("o1"), rdf.NewIRI("g")),
		rdf.NewQuad(rdf.NewIRI("s2"), rdf.NewIRI("p2"), rdf.NewIntegerLiteral("2"), rdf.NewIRI("g")),
	}
	if err := s.Load("", quads, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	report, err := s.Verify()
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.QuadCount != 2 {
		t.Fatalf("expected 2 quads in report, got %d", report.QuadCount)
	}
	for name, rows := range report.PermutationRows {
		if rows != 2 {
			t.Errorf("permutation %s: expected 2 rows, got %d", name, rows)
		}
	}
}

func TestAddAndDropFullIndex(t *testing.T) {
	s := openTestStore(t)
	if err := s.Load("", []rdf.Quad{
		rdf.NewQuad(rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewStringLiteral("o"), rdf.NewIRI("g")),
	}, nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := s.AddFullIndex("spog"); err != nil {
		t.Fatalf("add spog: %v", err)
	}
	if !s.Quads.HasPermutation("spog") {
		t.Fatal("expected spog to be active")
	}
	if err := s.DropFullIndex("spog"); err != nil {
		t.Fatalf("drop spog: %v", err)
	}
	if s.Quads.HasPermutation("spog") {
		t.Fatal("expected spog to be inactive after drop")
	}
	if _, err := s.QuadsUsing("spog"); err == nil {
		t.Fatal("expected error dumping a dropped permutation")
	}
}
