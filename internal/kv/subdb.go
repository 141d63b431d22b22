package kv

// Sub-databases are realized as byte-prefixed keyspaces within Badger's
// single logical keyspace, generalizing the teacher's fixed Table enum
// (pkg/store/storage.go) to an open, dynamically registered set of names.
//
// Key layout:
//
//	registryTag, len(name), name                 -> empty (registry entry)
//	dataTag, len(name), name, userKey...          -> value
//
// Length-prefixing the name (rather than a separator byte) guarantees two
// distinct names never produce overlapping prefixes.
const (
	registryTag byte = 0x01
	dataTag     byte = 0x02
)

func registryKey(name string) []byte {
	return buildPrefix(registryTag, name)
}

// subdbPrefix returns the byte prefix for every key belonging to the named
// sub-database.
func subdbPrefix(name string) []byte {
	return buildPrefix(dataTag, name)
}

func buildPrefix(tag byte, name string) []byte {
	buf := make([]byte, 0, 2+len(name))
	buf = append(buf, tag, byte(len(name)))
	buf = append(buf, name...)
	return buf
}

// subdbKey builds the full physical key for a logical (sub-database, key)
// pair.
func subdbKey(name string, key []byte) []byte {
	prefix := subdbPrefix(name)
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}
