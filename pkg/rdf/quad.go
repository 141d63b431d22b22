package rdf

import "fmt"

// Quad is an ordered (subject, predicate, object, graph) tuple.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(s, p, o, g Term) Quad {
	return Quad{Subject: s, Predicate: p, Object: o, Graph: g}
}

func (q Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Equal reports structural equality of all four positions.
func (q Quad) Equal(o Quad) bool {
	return q.Subject.Equal(o.Subject) &&
		q.Predicate.Equal(o.Predicate) &&
		q.Object.Equal(o.Object) &&
		q.Graph.Equal(o.Graph)
}
