package nq

import (
	"testing"

	"github.com/kasei-go/diomede/pkg/rdf"
)

func TestParseQuads(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{
			name:     "simple quad",
			input:    "<http://example.org/s> <http://example.org/p> <http://example.org/o> <http://example.org/g> .\n",
			expected: 1,
		},
		{
			name: "multiple quads with literals",
			input: `<http://example.org/s1> <http://example.org/p1> "literal1" <http://example.org/g> .
<http://example.org/s2> <http://example.org/p2> "42"^^<http://www.w3.org/2001/XMLSchema#integer> <http://example.org/g> .
<http://example.org/s3> <http://example.org/p3> "hello"@en <http://example.org/g> .
`,
			expected: 3,
		},
		{
			name:     "blank nodes",
			input:    "_:b1 <http://example.org/p> \"value\" _:graph .\n",
			expected: 1,
		},
		{
			name:     "missing graph is an error",
			input:    "<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n",
			wantErr:  true,
			expected: 0,
		},
		{
			name:     "comment-only input",
			input:    "# nothing here\n",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quads, err := NewParser(tt.input).Parse()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(quads) != tt.expected {
				t.Fatalf("got %d quads, want %d", len(quads), tt.expected)
			}
		})
	}
}

func TestParseTermKinds(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/p> "42"^^<http://www.w3.org/2001/XMLSchema#integer> <http://example.org/g> .
`
	quads, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("got %d quads, want 1", len(quads))
	}
	obj := quads[0].Object
	lit, ok := obj.(rdf.IntegerLiteral)
	if !ok {
		t.Fatalf("object is %T, want rdf.IntegerLiteral", obj)
	}
	if lit.Value != "42" {
		t.Fatalf("literal value = %q, want %q", lit.Value, "42")
	}
}
