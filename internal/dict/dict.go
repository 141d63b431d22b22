// Package dict implements the term dictionary (spec section 4.3): a
// two-way mapping between RDF terms and integer term ids, keyed by the
// SHA-256 of the term's stable byte encoding.
package dict

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// Sub-database names, per spec section 4.3.
const (
	SubDBTermToID = "term_to_id"
	SubDBIDToTerm = "id_to_term"
)

// DefaultCacheSize is the default capacity of the id->term LRU.
const DefaultCacheSize = 4096

// Ensure registers the dictionary's two sub-databases.
func Ensure(env *kv.Env) error {
	if err := env.CreateSubDatabase(SubDBTermToID); err != nil {
		return err
	}
	return env.CreateSubDatabase(SubDBIDToTerm)
}

// HashKey is the 32-byte SHA-256 digest of a term's encoded form.
type HashKey [sha256.Size]byte

// Hash computes the dictionary key for an already-encoded term.
func Hash(encoded []byte) HashKey {
	return sha256.Sum256(encoded)
}

// Dictionary holds a process-local id->term LRU for id->term lookups. The
// cache is owned by whichever component constructs it (typically one per
// query), not a process-wide singleton, per spec section 5.
type Dictionary struct {
	cache *lru.Cache[uint64, rdf.Term]
}

// New constructs a dictionary accessor with the default cache capacity.
func New() *Dictionary {
	c, _ := lru.New[uint64, rdf.Term](DefaultCacheSize)
	return &Dictionary{cache: c}
}

// Intern assigns (or returns the existing) term id for t within tx. Term
// ids are monotone and, once assigned, immutable (spec section 3).
func Intern(tx kv.Tx, t rdf.Term) (uint64, error) {
	id, _, err := InternDetect(tx, t)
	return id, err
}

// InternDetect is Intern, additionally reporting whether the term was newly
// allocated by this call (used by ingestion to decide whether a quad needs
// a uniqueness check, spec section 4.7).
func InternDetect(tx kv.Tx, t rdf.Term) (uint64, bool, error) {
	encoded, err := codec.EncodeTerm(t)
	if err != nil {
		return 0, false, err
	}
	key := Hash(encoded)

	if raw, err := tx.Get(SubDBTermToID, key[:]); err == nil {
		id, err := codec.DecodeUint64(raw)
		return id, false, err
	} else if err != xerrors.ErrNotFound {
		return 0, false, err
	}

	id, err := meta.NextTermID(tx)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Put(SubDBTermToID, key[:], codec.PutUint64(nil, id)); err != nil {
		return 0, false, err
	}
	if err := tx.Put(SubDBIDToTerm, codec.PutUint64(nil, id), encoded); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// LookupID returns the id previously interned for t, if any.
func LookupID(tx kv.Tx, t rdf.Term) (uint64, error) {
	encoded, err := codec.EncodeTerm(t)
	if err != nil {
		return 0, err
	}
	key := Hash(encoded)
	raw, err := tx.Get(SubDBTermToID, key[:])
	if err != nil {
		return 0, err
	}
	return codec.DecodeUint64(raw)
}

// LookupTerm resolves an id back to its term, consulting the dictionary's
// LRU first.
func (d *Dictionary) LookupTerm(tx kv.Tx, id uint64) (rdf.Term, error) {
	if d.cache != nil {
		if t, ok := d.cache.Get(id); ok {
			return t, nil
		}
	}
	raw, err := tx.Get(SubDBIDToTerm, codec.PutUint64(nil, id))
	if err != nil {
		return nil, err
	}
	t, err := codec.DecodeTerm(raw)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache.Add(id, t)
	}
	return t, nil
}

// LookupTermNoCache resolves an id without a dictionary instance, for
// one-off lookups (e.g. the CLI).
func LookupTermNoCache(tx kv.Tx, id uint64) (rdf.Term, error) {
	raw, err := tx.Get(SubDBIDToTerm, codec.PutUint64(nil, id))
	if err != nil {
		return nil, err
	}
	return codec.DecodeTerm(raw)
}
