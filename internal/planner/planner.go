// Package planner implements best-index selection and pattern-matched scans
// over a quadstore.Store (spec section 4.8), generalizing the teacher's
// fixed nine-index query planner (internal/store/query.go) to the store's
// dynamically registered permutation set.
package planner

import (
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/quadstore"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// Planner resolves quad patterns against a store, using a dictionary to
// translate between terms and the ids the store indexes on.
type Planner struct {
	Store *quadstore.Store
	Dict  *dict.Dictionary
}

// New constructs a planner over the given store, with its own dictionary
// accessor (and so its own id->term LRU).
func New(store *quadstore.Store) *Planner {
	return &Planner{Store: store, Dict: dict.New()}
}

// boundSet collects the pattern's bound positions as ints (0=s,1=p,2=o,3=g),
// the same numbering quadstore.Permutation.Order uses, so the two line up
// without translation.
func boundSet(pattern rdf.QuadPattern) map[int]bool {
	set := make(map[int]bool, 4)
	for _, pos := range pattern.BoundPositions() {
		set[int(pos)] = true
	}
	return set
}

// score counts how many leading entries of order are bound positions, i.e.
// how long a contiguous key prefix this permutation can supply for the
// pattern.
func score(order [4]int, bound map[int]bool) int {
	n := 0
	for _, pos := range order {
		if !bound[pos] {
			break
		}
		n++
	}
	return n
}

// BestIndex picks the active permutation offering the longest bound-prefix
// match for pattern, breaking ties by the order of ActivePermutations (spec
// section 4.8). It returns the zero Permutation and score -1 if no
// permutation is active, which is the case once every permutation has been
// dropped; Rows then falls back to scanning the quad table.
func (pl *Planner) BestIndex(pattern rdf.QuadPattern) (quadstore.Permutation, int) {
	bound := boundSet(pattern)
	best := quadstore.Permutation{}
	bestScore := -1
	for _, p := range pl.Store.ActivePermutations() {
		s := score(p.Order, bound)
		if s > bestScore {
			bestScore = s
			best = p
		}
	}
	return best, bestScore
}

// AvailableOrders reports the natural result orderings available for
// pattern: each permutation whose score equals the maximum, stripped of
// the bound-covered prefix (spec section 4.8). Entries follow the order of
// ActivePermutations.
func (pl *Planner) AvailableOrders(pattern rdf.QuadPattern) []string {
	bound := boundSet(pattern)
	perms := pl.Store.ActivePermutations()
	best := -1
	for _, p := range perms {
		if s := score(p.Order, bound); s > best {
			best = s
		}
	}
	var orders []string
	for _, p := range perms {
		if score(p.Order, bound) == best {
			orders = append(orders, p.Name[best:])
		}
	}
	return orders
}
