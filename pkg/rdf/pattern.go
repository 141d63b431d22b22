package rdf

// Position names the four quad slots in the canonical s,p,o,g order.
type Position int

const (
	PosSubject Position = iota
	PosPredicate
	PosObject
	PosGraph
)

// PositionName matches the permutation-naming alphabet used throughout the
// store ("s","p","o","g").
var PositionName = [4]byte{'s', 'p', 'o', 'g'}

// PatternSlot is one position of a QuadPattern: either a bound term or a
// named variable. A nil Term with a non-empty Var means "variable"; a
// non-nil Term means "bound". Exactly one of the two is meaningful.
type PatternSlot struct {
	Term Term
	Var  string
}

// Bound constructs a bound pattern slot.
func Bound(t Term) PatternSlot { return PatternSlot{Term: t} }

// Variable constructs a variable pattern slot.
func Variable(name string) PatternSlot { return PatternSlot{Var: name} }

// IsVariable reports whether the slot is unbound.
func (s PatternSlot) IsVariable() bool { return s.Term == nil }

// QuadPattern is a tuple of four slots, one per position.
type QuadPattern struct {
	Subject   PatternSlot
	Predicate PatternSlot
	Object    PatternSlot
	Graph     PatternSlot
}

// Slot returns the pattern's slot at the given position.
func (p QuadPattern) Slot(pos Position) PatternSlot {
	switch pos {
	case PosSubject:
		return p.Subject
	case PosPredicate:
		return p.Predicate
	case PosObject:
		return p.Object
	default:
		return p.Graph
	}
}

// BoundPositions returns the set of positions that carry a bound term.
func (p QuadPattern) BoundPositions() []Position {
	var bound []Position
	for pos := PosSubject; pos <= PosGraph; pos++ {
		if !p.Slot(pos).IsVariable() {
			bound = append(bound, pos)
		}
	}
	return bound
}

// Matches reports whether q satisfies the pattern: every bound position
// equals the quad's term at that position, and every variable name used
// more than once is bound to the same term across all its occurrences.
func (p QuadPattern) Matches(q Quad) bool {
	terms := [4]Term{q.Subject, q.Predicate, q.Object, q.Graph}
	varBinding := make(map[string]Term, 4)
	for pos := PosSubject; pos <= PosGraph; pos++ {
		slot := p.Slot(pos)
		if !slot.IsVariable() {
			if !slot.Term.Equal(terms[pos]) {
				return false
			}
			continue
		}
		if bound, seen := varBinding[slot.Var]; seen {
			if !bound.Equal(terms[pos]) {
				return false
			}
		} else {
			varBinding[slot.Var] = terms[pos]
		}
	}
	return true
}
