package kv

import "errors"

var (
	errReadOnly            = errors.New("diomede: kv: write attempted on a read-only scope")
	errStopIteration       = errors.New("diomede: kv: iteration stopped by callback")
	errTooManySubDatabases = errors.New("diomede: kv: max_sub_databases exceeded")
)
