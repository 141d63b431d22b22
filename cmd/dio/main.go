// Command dio is a developer CLI for reproducible testing against a
// diomede store (spec section 6), grounded on the teacher's os.Args-switch
// CLI shape (cmd/trigo/main.go).
package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	diomede "github.com/kasei-go/diomede"
	"github.com/kasei-go/diomede/internal/charset"
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/nq"
	"github.com/kasei-go/diomede/internal/quadstore"
	"github.com/kasei-go/diomede/pkg/rdf"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	dbPath := os.Args[1]
	command := os.Args[2]
	args := os.Args[3:]

	store, err := diomede.Open(dbPath, diomede.DefaultConfig())
	if err != nil {
		log.Fatalf("open %s: %v", dbPath, err)
	}
	defer store.Close()

	if err := dispatch(store, command, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: dio <db-path> <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  create")
	fmt.Println("  load <nquads-file>")
	fmt.Println("  stats")
	fmt.Println("  terms")
	fmt.Println("  hashes")
	fmt.Println("  quads")
	fmt.Println("  triples <graph-iri>")
	fmt.Println("  graphs")
	fmt.Println("  graphterms <graph-iri>")
	fmt.Println("  indexes")
	fmt.Println("  <spog-permutation>")
	fmt.Println("  addindex <name>")
	fmt.Println("  dropindex <name>")
	fmt.Println("  bestIndex <pos>+")
	fmt.Println("  verify")
	fmt.Println("  prefix [clear | <label> <iri>]")
	fmt.Println("  cs [<graph-iri>]")
	fmt.Println("  ts [<graph-iri>]")
	fmt.Println("  pred-card <graph-iri> <pred-iri>")
}

func dispatch(store *diomede.Store, command string, args []string) error {
	switch command {
	case "create":
		return cmdCreate(store)
	case "load":
		return requireArg(args, "load <nquads-file>", func(path string) error {
			return cmdLoad(store, path)
		})
	case "stats":
		return cmdStats(store)
	case "terms":
		return cmdTerms(store)
	case "hashes":
		return cmdHashes(store)
	case "quads":
		return cmdQuads(store)
	case "triples":
		return requireArg(args, "triples <graph-iri>", func(graph string) error {
			return cmdTriples(store, graph)
		})
	case "graphs":
		return cmdGraphs(store)
	case "graphterms":
		return requireArg(args, "graphterms <graph-iri>", func(graph string) error {
			return cmdGraphTerms(store, graph)
		})
	case "indexes":
		return cmdIndexes(store)
	case "addindex":
		return requireArg(args, "addindex <name>", func(name string) error {
			return cmdAddIndex(store, name)
		})
	case "dropindex":
		return requireArg(args, "dropindex <name>", func(name string) error {
			return cmdDropIndex(store, name)
		})
	case "bestIndex":
		return cmdBestIndex(store, args)
	case "verify":
		return cmdVerify(store)
	case "prefix":
		return cmdPrefix(store, args)
	case "cs":
		return cmdCharacteristicSets(store, args, false)
	case "ts":
		return cmdCharacteristicSets(store, args, true)
	case "pred-card":
		return cmdPredCard(store, args)
	default:
		if _, err := quadstore.ParsePermutationName(command); err == nil {
			return cmdDumpPermutation(store, command)
		}
		return fmt.Errorf("unknown command: %s", command)
	}
}

func requireArg(args []string, usage string, fn func(string) error) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s", usage)
	}
	return fn(args[0])
}

func cmdCreate(store *diomede.Store) error {
	fmt.Println("store ready")
	return nil
}

func cmdLoad(store *diomede.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	quads, err := nq.NewParser(string(data)).Parse()
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := store.Load(diomede.CurrentVersion, quads, quadstore.DefaultProgressLogger()); err != nil {
		return err
	}
	fmt.Printf("loaded %d quads from %s\n", len(quads), path)
	return nil
}

func cmdStats(store *diomede.Store) error {
	version, err := store.EffectiveVersion()
	if err != nil {
		return err
	}
	count, err := store.CountQuads(wildcardPattern())
	if err != nil {
		return err
	}
	fmt.Printf("effective-version: %d\n", version)
	fmt.Printf("quads: %s\n", humanize.Comma(count))
	fmt.Printf("permutations: %s\n", strings.Join(indexNames(store), ","))
	return nil
}

func cmdTerms(store *diomede.Store) error {
	quads, err := store.QuadsMatching(wildcardPattern())
	if err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for _, q := range quads {
		for _, t := range []rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
			key := t.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			fmt.Println(t)
		}
	}
	return nil
}

func cmdHashes(store *diomede.Store) error {
	return store.Env.ReadTx(func(tx kv.Tx) error {
		return tx.IterateAllUnescaping(dict.SubDBTermToID, func(k, v []byte) bool {
			fmt.Printf("%x\n", k)
			return true
		})
	})
}

func cmdQuads(store *diomede.Store) error {
	quads, err := store.QuadsMatching(wildcardPattern())
	if err != nil {
		return err
	}
	for _, q := range quads {
		fmt.Println(q)
	}
	return nil
}

func cmdTriples(store *diomede.Store, graphIRI string) error {
	pattern := rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Bound(rdf.NewIRI(graphIRI)),
	}
	quads, err := store.QuadsMatching(pattern)
	if err != nil {
		return err
	}
	for _, q := range quads {
		fmt.Printf("%s %s %s .\n", q.Subject, q.Predicate, q.Object)
	}
	return nil
}

func cmdGraphs(store *diomede.Store) error {
	graphs, err := store.Graphs()
	if err != nil {
		return err
	}
	for _, g := range graphs {
		fmt.Println(g)
	}
	return nil
}

func cmdGraphTerms(store *diomede.Store, graphIRI string) error {
	terms, err := store.GraphTerms(rdf.NewIRI(graphIRI))
	if err != nil {
		return err
	}
	for _, t := range terms {
		fmt.Println(t)
	}
	return nil
}

func cmdIndexes(store *diomede.Store) error {
	for _, name := range indexNames(store) {
		fmt.Println(name)
	}
	return nil
}

func indexNames(store *diomede.Store) []string {
	var names []string
	for _, p := range store.Quads.ActivePermutations() {
		names = append(names, p.Name)
	}
	return names
}

func cmdAddIndex(store *diomede.Store, name string) error {
	switch name {
	case "cs":
		return store.ComputeCharacteristicSets(false)
	case "ts":
		return store.ComputeCharacteristicSets(true)
	default:
		return store.AddFullIndex(name)
	}
}

func cmdDropIndex(store *diomede.Store, name string) error {
	switch name {
	case "cs":
		return store.DropCharacteristicSets()
	case "ts":
		return store.DropTypeSets()
	default:
		return store.DropFullIndex(name)
	}
}

func cmdBestIndex(store *diomede.Store, positions []string) error {
	if len(positions) == 0 {
		return fmt.Errorf("usage: bestIndex <pos>+ (pos in s,p,o,g)")
	}
	pattern := wildcardPattern()
	for _, pos := range positions {
		switch pos {
		case "s":
			pattern.Subject = rdf.Bound(rdf.NewIRI("urn:x-dio:probe"))
		case "p":
			pattern.Predicate = rdf.Bound(rdf.NewIRI("urn:x-dio:probe"))
		case "o":
			pattern.Object = rdf.Bound(rdf.NewIRI("urn:x-dio:probe"))
		case "g":
			pattern.Graph = rdf.Bound(rdf.NewIRI("urn:x-dio:probe"))
		default:
			return fmt.Errorf("invalid position %q, want one of s,p,o,g", pos)
		}
	}
	best, score := store.Planner.BestIndex(pattern)
	fmt.Printf("%s (score=%d)\n", best.Name, score)
	return nil
}

func cmdVerify(store *diomede.Store) error {
	report, err := store.Verify()
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d quads across %d permutations\n", report.QuadCount, len(report.PermutationRows))
	return nil
}

func cmdPrefix(store *diomede.Store, args []string) error {
	if len(args) == 0 {
		prefixes, err := store.Prefixes()
		if err != nil {
			return err
		}
		labels := make([]string, 0, len(prefixes))
		for label := range prefixes {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Printf("%s: %s\n", label, prefixes[label])
		}
		return nil
	}
	if args[0] == "clear" {
		return store.ClearPrefixes()
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: prefix [clear | <label> <iri>]")
	}
	return store.SetPrefix(args[0], args[1])
}

func cmdCharacteristicSets(store *diomede.Store, args []string, typeSets bool) error {
	if len(args) == 0 {
		return store.ComputeCharacteristicSets(typeSets)
	}
	ds, err := store.CharacteristicSets(rdf.NewIRI(args[0]), typeSets)
	if err != nil {
		return err
	}
	if !ds.Accurate {
		fmt.Println("(stale: quads modified since last recomputation)")
	}
	for _, cs := range ds.Entries {
		fmt.Printf("cs#%d count=%d predicates=%d\n", cs.Sequence, cs.Count, len(cs.Predicates))
	}
	for _, combo := range ds.TypeSets {
		fmt.Printf("ts cs#%d combo#%d count=%d types=%d\n", combo.CSSeq, combo.ComboSeq, combo.Count, len(combo.TypeIDs))
	}
	return nil
}

func cmdPredCard(store *diomede.Store, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: pred-card <graph-iri> <pred-iri>")
	}
	graph := rdf.NewIRI(args[0])
	pattern := []charset.TriplePattern{{Predicate: rdf.NewIRI(args[1])}}
	estimate, err := store.StarCardinality(graph, pattern)
	if err != nil {
		return err
	}
	fmt.Printf("%.2f\n", estimate)
	return nil
}

func cmdDumpPermutation(store *diomede.Store, name string) error {
	quads, err := store.QuadsUsing(name)
	if err != nil {
		return err
	}
	for _, q := range quads {
		fmt.Println(q)
	}
	return nil
}

func wildcardPattern() rdf.QuadPattern {
	return rdf.QuadPattern{
		Subject:   rdf.Variable("s"),
		Predicate: rdf.Variable("p"),
		Object:    rdf.Variable("o"),
		Graph:     rdf.Variable("g"),
	}
}
