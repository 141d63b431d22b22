package meta

import (
	"time"

	"github.com/kasei-go/diomede/internal/kv"
)

// SetPrefix records a prefix-label -> namespace-IRI mapping, stamping
// Prefixes-Last-Modified in the same transaction (spec section 4.6).
func SetPrefix(tx kv.Tx, label, iri string) error {
	if err := tx.Put(SubDBPrefix, []byte(label), []byte(iri)); err != nil {
		return err
	}
	return Touch(tx, KeyPrefixesLastModified, time.Now())
}

// GetPrefix looks up a namespace IRI by label.
func GetPrefix(tx kv.Tx, label string) (string, error) {
	v, err := tx.Get(SubDBPrefix, []byte(label))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// DeletePrefix removes a single label.
func DeletePrefix(tx kv.Tx, label string) error {
	return tx.Delete(SubDBPrefix, []byte(label))
}

// ListPrefixes returns every label -> namespace-IRI mapping.
func ListPrefixes(tx kv.Tx) (map[string]string, error) {
	out := make(map[string]string)
	err := tx.IterateAll(SubDBPrefix, func(k, v []byte) bool {
		out[string(k)] = string(v)
		return true
	})
	return out, err
}

// ClearPrefixes removes every mapping and stamps Prefixes-Last-Modified in
// the same write transaction.
func ClearPrefixes(env *kv.Env) error {
	return env.WriteTx(func(tx kv.Tx) error {
		all, err := ListPrefixes(tx)
		if err != nil {
			return err
		}
		for label := range all {
			if err := DeletePrefix(tx, label); err != nil {
				return err
			}
		}
		return Touch(tx, KeyPrefixesLastModified, time.Now())
	})
}
