// Package nq implements a minimal N-Quads line parser, feeding the
// ingestion pipeline (spec section 1: out of scope beyond this
// interface). Grounded on the teacher's internal/nquads parser, adapted
// from N-Triples-with-optional-graph and pkg/rdf's NamedNode/Literal
// constructors to pkg/rdf's six-kind Term set with a mandatory graph
// position (the data model has no default-graph sentinel).
package nq

import (
	"fmt"
	"strings"

	"github.com/kasei-go/diomede/pkg/rdf"
)

// Parser reads whitespace-separated N-Quads statements: four terms
// followed by a '.'. Comments beginning with '#' run to end of line.
type Parser struct {
	input  string
	pos    int
	length int
}

// NewParser constructs a parser over input.
func NewParser(input string) *Parser {
	return &Parser{input: input, length: len(input)}
}

// Parse reads every statement in the document.
func (p *Parser) Parse() ([]rdf.Quad, error) {
	var quads []rdf.Quad
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}
		q, err := p.parseQuad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func (p *Parser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *Parser) parseQuad() (rdf.Quad, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("nq: subject: %w", err)
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("nq: predicate: %w", err)
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("nq: object: %w", err)
	}
	p.skipWhitespaceAndComments()

	graph, err := p.parseTerm()
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("nq: graph: %w", err)
	}
	p.skipWhitespaceAndComments()

	if p.pos >= p.length || p.input[p.pos] != '.' {
		return rdf.Quad{}, fmt.Errorf("nq: expected '.' at position %d", p.pos)
	}
	p.pos++

	return rdf.NewQuad(subject, predicate, object, graph), nil
}

func (p *Parser) parseTerm() (rdf.Term, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch p.input[p.pos] {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewIRI(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
}

func (p *Parser) parseIRI() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<'")
	}
	p.pos++
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unclosed IRI")
	}
	iri := p.input[start:p.pos]
	p.pos++
	return iri, nil
}

func (p *Parser) parseBlankNode() (rdf.Term, error) {
	if p.pos >= p.length || p.input[p.pos] != '_' {
		return nil, fmt.Errorf("expected '_'")
	}
	p.pos++
	if p.pos >= p.length || p.input[p.pos] != ':' {
		return nil, fmt.Errorf("expected ':' after '_'")
	}
	p.pos++
	start := p.pos
	for p.pos < p.length && !isTermBoundary(p.input[p.pos]) {
		p.pos++
	}
	return rdf.NewBlank(p.input[start:p.pos]), nil
}

func (p *Parser) parseLiteral() (rdf.Term, error) {
	if p.pos >= p.length || p.input[p.pos] != '"' {
		return nil, fmt.Errorf("expected '\"'")
	}
	p.pos++
	var value strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		ch := p.input[p.pos]
		if ch == '\\' {
			p.pos++
			if p.pos >= p.length {
				return nil, fmt.Errorf("unexpected end of input in escape sequence")
			}
			switch p.input[p.pos] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			case '"':
				value.WriteByte('"')
			case '\\':
				value.WriteByte('\\')
			default:
				value.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		value.WriteByte(ch)
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unclosed string literal")
	}
	p.pos++

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && !isTermBoundary(p.input[p.pos]) {
			p.pos++
		}
		return rdf.NewLangLiteral(value.String(), p.input[start:p.pos]), nil
	}
	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		datatype, err := p.parseIRI()
		if err != nil {
			return nil, fmt.Errorf("datatype: %w", err)
		}
		if datatype == rdf.XSDInteger {
			return rdf.NewIntegerLiteral(value.String()), nil
		}
		return rdf.NewDatatypeLiteral(value.String(), datatype), nil
	}
	return rdf.NewStringLiteral(value.String()), nil
}

func isTermBoundary(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '<'
}
