package quadstore

// QuadRow is a materialized (qid, id-tuple) pair from the quad table.
type QuadRow struct {
	QuadID uint64
	IDs    [4]uint64
}
