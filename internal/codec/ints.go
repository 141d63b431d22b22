// Package codec implements the binary layout shared by every on-disk
// sub-database: big-endian fixed-width integers, quad id-tuples, and the
// term encoding whose SHA-256 is the dictionary key.
package codec

import "encoding/binary"

// Uint64Size is the width, in bytes, of a single packed integer.
const Uint64Size = 8

// IDTupleSize is the width, in bytes, of a packed (s,p,o,g) id-tuple.
const IDTupleSize = 4 * Uint64Size

// PutUint64 appends the big-endian encoding of v to dst.
func PutUint64(dst []byte, v uint64) []byte {
	var buf [Uint64Size]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// DecodeUint64 reads a big-endian uint64 from the front of b.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) < Uint64Size {
		return 0, errShortBuffer("uint64", Uint64Size, len(b))
	}
	return binary.BigEndian.Uint64(b[:Uint64Size]), nil
}

// EncodeIDTuple packs four term/quad ids into 32 big-endian bytes.
func EncodeIDTuple(ids [4]uint64) []byte {
	buf := make([]byte, 0, IDTupleSize)
	for _, id := range ids {
		buf = PutUint64(buf, id)
	}
	return buf
}

// DecodeIDTuple unpacks 32 bytes into four ids.
func DecodeIDTuple(b []byte) ([4]uint64, error) {
	var ids [4]uint64
	if len(b) < IDTupleSize {
		return ids, errShortBuffer("id-tuple", IDTupleSize, len(b))
	}
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(b[i*Uint64Size : (i+1)*Uint64Size])
	}
	return ids, nil
}

// Permute reorders ids according to order, where order[i] gives the source
// position that should land at destination position i.
func Permute(ids [4]uint64, order [4]int) [4]uint64 {
	var out [4]uint64
	for i, src := range order {
		out[i] = ids[src]
	}
	return out
}

// InversePermute undoes Permute: given a tuple already reordered by order,
// reconstructs the original s,p,o,g ordering.
func InversePermute(permuted [4]uint64, order [4]int) [4]uint64 {
	var out [4]uint64
	for i, src := range order {
		out[src] = permuted[i]
	}
	return out
}
