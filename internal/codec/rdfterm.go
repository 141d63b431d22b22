package codec

import (
	"fmt"

	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// EncodeTerm produces the stable byte encoding of t described in spec
// section 4.1; its SHA-256 is the term dictionary's key.
func EncodeTerm(t rdf.Term) ([]byte, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return EncodeIRI(v.Value), nil
	case rdf.Blank:
		return EncodeBlank(v.ID), nil
	case rdf.LangLiteral:
		return EncodeLangLiteral(v.Value, v.Lang), nil
	case rdf.StringLiteral:
		return EncodeStringLiteral(v.Value), nil
	case rdf.IntegerLiteral:
		return EncodeIntegerLiteral(v.Value), nil
	case rdf.DatatypeLiteral:
		return EncodeDatatypeLiteral(v.Value, v.Datatype), nil
	default:
		return nil, xerrors.NewCodecError(fmt.Sprintf("unknown term kind %T", t))
	}
}

// DecodeTerm reconstitutes an rdf.Term from its encoded byte form.
func DecodeTerm(b []byte) (rdf.Term, error) {
	d, err := DecodeTermBytes(b)
	if err != nil {
		return nil, err
	}
	switch d.Tag {
	case tagIRI, tagIRIUUID:
		return rdf.NewIRI(d.ReconstituteIRI()), nil
	case tagBlank, tagBlankUUID:
		return rdf.NewBlank(d.ReconstituteBlank()), nil
	case tagLangLiteral:
		return rdf.NewLangLiteral(d.Value, d.Prefix), nil
	case tagStringLiteral:
		return rdf.NewStringLiteral(d.Value), nil
	case tagIntegerLiteral:
		return rdf.NewIntegerLiteral(d.Value), nil
	case tagDatatypeLiteral:
		return rdf.NewDatatypeLiteral(d.Value, d.Prefix), nil
	default:
		return nil, xerrors.NewCodecError(fmt.Sprintf("unknown tag byte %q", d.Tag))
	}
}
