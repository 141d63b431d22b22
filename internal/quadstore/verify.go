package quadstore

import (
	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/xerrors"
)

// VerifyReport summarizes the result of a consistency scan (spec section
// 4.8's verify operation).
type VerifyReport struct {
	QuadCount       int64
	PermutationRows map[string]int64
}

// Verify checks that every active permutation index agrees with the quad
// table: same row count, and every permuted key decodes back to a tuple
// actually present under its recorded quad id. It returns the first
// inconsistency found: xerrors.ErrUniqueConstraint (two quad ids with the
// same id-tuple), xerrors.ErrCount (row count mismatch),
// xerrors.ErrIndexError (a permutation entry with no matching quad row), or
// a codec error for a malformed permutation entry.
func (s *Store) Verify() (VerifyReport, error) {
	var report VerifyReport
	report.PermutationRows = make(map[string]int64)

	quads := make(map[uint64][4]uint64)
	seenTuples := make(map[[4]uint64]struct{})
	outerErr := s.Env.ReadTx(func(tx kv.Tx) error {
		var scanErr error
		iterErr := tx.IterateAllUnescaping(SubDBQuads, func(k, v []byte) bool {
			qid, derr := codec.DecodeUint64(k)
			if derr != nil {
				return false
			}
			ids, derr := codec.DecodeIDTuple(v)
			if derr != nil {
				return false
			}
			if _, dup := seenTuples[ids]; dup {
				scanErr = xerrors.ErrUniqueConstraint
				return false
			}
			seenTuples[ids] = struct{}{}
			quads[qid] = ids
			return true
		})
		if iterErr != nil {
			return iterErr
		}
		if scanErr != nil {
			return scanErr
		}
		report.QuadCount = int64(len(quads))

		for _, p := range s.ActivePermutations() {
			var rows int64
			var rowErr error
			verr := tx.IterateAllUnescaping(p.Name, func(k, v []byte) bool {
				rows++
				permuted, derr := codec.DecodeIDTuple(k)
				if derr != nil {
					rowErr = xerrors.NewCodecError("malformed permutation key")
					return false
				}
				qid, derr := codec.DecodeUint64(v)
				if derr != nil {
					rowErr = xerrors.NewCodecError("malformed permutation value")
					return false
				}
				ids, ok := quads[qid]
				if !ok {
					rowErr = xerrors.ErrIndexError
					return false
				}
				want := codec.Permute(ids, p.Order)
				if want != permuted {
					rowErr = xerrors.ErrIndexError
					return false
				}
				return true
			})
			if verr != nil {
				return verr
			}
			if rowErr != nil {
				return rowErr
			}
			report.PermutationRows[p.Name] = rows
			if rows != report.QuadCount {
				return xerrors.ErrCount
			}
		}
		return nil
	})
	return report, outerErr
}
