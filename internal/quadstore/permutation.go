package quadstore

import (
	"github.com/kasei-go/diomede/internal/xerrors"
)

// Permutation names a bijection on {s,p,o,g} used as a secondary index key
// order (spec section 3). Order[i] gives the source position (0=s, 1=p,
// 2=o, 3=g) that lands at destination position i.
type Permutation struct {
	Name  string
	Order [4]int
}

var posIndex = map[byte]int{'s': 0, 'p': 1, 'o': 2, 'g': 3}
var posLetter = [4]byte{'s', 'p', 'o', 'g'}

// ParsePermutationName turns a 4-character name like "gpso" into an Order.
func ParsePermutationName(name string) (Permutation, error) {
	if len(name) != 4 {
		return Permutation{}, xerrors.NewCodecError("permutation name must be 4 characters")
	}
	var order [4]int
	var seen [4]bool
	for i := 0; i < 4; i++ {
		idx, ok := posIndex[name[i]]
		if !ok {
			return Permutation{}, xerrors.NewCodecError("permutation name must use s,p,o,g")
		}
		if seen[idx] {
			return Permutation{}, xerrors.NewCodecError("permutation name repeats a position")
		}
		seen[idx] = true
		order[i] = idx
	}
	return Permutation{Name: name, Order: order}, nil
}

// MustPermutation parses a permutation name, panicking on malformed input.
// Used only for compile-time-known constants.
func MustPermutation(name string) Permutation {
	p, err := ParsePermutationName(name)
	if err != nil {
		panic(err)
	}
	return p
}

// AllPermutationNames returns all 24 permutations of "spog".
func AllPermutationNames() []string {
	letters := []byte("spog")
	var names []string
	var permute func(prefix []byte, remaining []byte)
	permute = func(prefix []byte, remaining []byte) {
		if len(remaining) == 0 {
			names = append(names, string(prefix))
			return
		}
		for i := range remaining {
			next := append(append([]byte{}, prefix...), remaining[i])
			rest := make([]byte, 0, len(remaining)-1)
			rest = append(rest, remaining[:i]...)
			rest = append(rest, remaining[i+1:]...)
			permute(next, rest)
		}
	}
	permute(nil, letters)
	return names
}

// DefaultPermutation is the graph-first permutation every new store is
// created with (spec section 4.4).
var DefaultPermutation = MustPermutation("gpso")
