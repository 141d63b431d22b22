package codec

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
)

// Term tag bytes, per the physical layout in spec section 4.1.
const (
	tagIRI             = 'I'
	tagBlank           = 'B'
	tagLangLiteral     = 'L'
	tagStringLiteral   = 'S'
	tagIntegerLiteral  = 'i'
	tagDatatypeLiteral = 'D'
	tagIRIUUID         = 'U'
	tagBlankUUID       = 'u'
)

const quoteByte = '"' // 0x22, separates the tag-prefix from the lexical value

const uuidURNPrefix = "urn:uuid:"

// TermFields holds the already-decomposed kind and components of a term,
// independent of pkg/rdf.
type TermFields struct {
	Kind     byte // one of the tag constants above, before UUID compression
	Lang     string
	Datatype string
	Value    string
}

// EncodeIRI encodes an IRI value, taking the compressed urn:uuid: form when
// the IRI is exactly a UUID URN.
func EncodeIRI(value string) []byte {
	if rest, ok := strings.CutPrefix(value, uuidURNPrefix); ok {
		if id, err := uuid.Parse(rest); err == nil {
			out := make([]byte, 0, 17)
			out = append(out, tagIRIUUID)
			raw, _ := id.MarshalBinary()
			return append(out, raw...)
		}
	}
	return encodeTagged(tagIRI, value)
}

// EncodeBlank encodes a blank-node label, taking the compressed UUID form
// when the label itself parses as a UUID.
func EncodeBlank(id string) []byte {
	if parsed, err := uuid.Parse(id); err == nil {
		out := make([]byte, 0, 17)
		out = append(out, tagBlankUUID)
		raw, _ := parsed.MarshalBinary()
		return append(out, raw...)
	}
	return encodeTagged(tagBlank, id)
}

// EncodeLangLiteral encodes a language-tagged string literal.
func EncodeLangLiteral(value, lang string) []byte {
	return encodeTaggedWithPrefix(tagLangLiteral, lang, value)
}

// EncodeStringLiteral encodes a plain string literal.
func EncodeStringLiteral(value string) []byte {
	return encodeTagged(tagStringLiteral, value)
}

// EncodeIntegerLiteral encodes an xsd:integer literal by its lexical form.
func EncodeIntegerLiteral(lexical string) []byte {
	return encodeTagged(tagIntegerLiteral, lexical)
}

// EncodeDatatypeLiteral encodes a literal with an explicit datatype IRI.
func EncodeDatatypeLiteral(value, datatype string) []byte {
	return encodeTaggedWithPrefix(tagDatatypeLiteral, datatype, value)
}

func encodeTagged(tag byte, value string) []byte {
	out := make([]byte, 0, 2+len(value))
	out = append(out, tag, quoteByte)
	return append(out, value...)
}

func encodeTaggedWithPrefix(tag byte, prefix, value string) []byte {
	out := make([]byte, 0, 2+len(prefix)+len(value))
	out = append(out, tag)
	out = append(out, prefix...)
	out = append(out, quoteByte)
	return append(out, value...)
}

// DecodedTerm is the generic result of decoding an encoded term's bytes,
// before reconstitution into an rdf.Term.
type DecodedTerm struct {
	Tag      byte
	Prefix   string // language tag or datatype IRI, when applicable
	Value    string
	IsUUID   bool
	UUIDText string // canonical (lowercase, hyphenated) UUID text, when IsUUID
}

// DecodeTermBytes splits an encoded term's bytes back into its components.
// It recognizes the UUID short forms and otherwise splits on the first
// U+0022 byte, per spec section 4.1.
func DecodeTermBytes(b []byte) (DecodedTerm, error) {
	if len(b) == 0 {
		return DecodedTerm{}, errShortBuffer("term", 1, 0)
	}
	tag := b[0]
	if tag == tagIRIUUID || tag == tagBlankUUID {
		if len(b) != 17 {
			return DecodedTerm{}, errShortBuffer("uuid-term", 17, len(b))
		}
		var id uuid.UUID
		if err := id.UnmarshalBinary(b[1:]); err != nil {
			return DecodedTerm{}, errShortBuffer("uuid-term", 17, len(b))
		}
		return DecodedTerm{Tag: tag, IsUUID: true, UUIDText: id.String()}, nil
	}

	rest := b[1:]
	idx := bytes.IndexByte(rest, quoteByte)
	if idx < 0 {
		return DecodedTerm{}, errShortBuffer("term (missing quote separator)", 1, len(b))
	}
	return DecodedTerm{
		Tag:    tag,
		Prefix: string(rest[:idx]),
		Value:  string(rest[idx+1:]),
	}, nil
}

// ReconstituteIRI turns a decoded term back into its IRI string form.
func (d DecodedTerm) ReconstituteIRI() string {
	if d.IsUUID {
		return uuidURNPrefix + d.UUIDText
	}
	return d.Value
}

// ReconstituteBlank turns a decoded term back into its blank-node label.
func (d DecodedTerm) ReconstituteBlank() string {
	if d.IsUUID {
		return d.UUIDText
	}
	return d.Value
}
