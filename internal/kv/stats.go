package kv

// Count returns the number of entries in a sub-database.
func (e *Env) Count(subdb string) (int64, error) {
	var n int64
	err := e.ReadTx(func(tx Tx) error {
		return tx.IterateAllUnescaping(subdb, func(_, _ []byte) bool {
			n++
			return true
		})
	})
	return n, err
}

// ByteSize returns the approximate total size, in bytes, of keys and values
// stored in a sub-database.
func (e *Env) ByteSize(subdb string) (int64, error) {
	var size int64
	err := e.ReadTx(func(tx Tx) error {
		return tx.IterateAllUnescaping(subdb, func(k, v []byte) bool {
			size += int64(len(k) + len(v))
			return true
		})
	})
	return size, err
}
