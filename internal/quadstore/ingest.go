package quadstore

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kasei-go/diomede/internal/codec"
	"github.com/kasei-go/diomede/internal/dict"
	"github.com/kasei-go/diomede/internal/kv"
	"github.com/kasei-go/diomede/internal/meta"
	"github.com/kasei-go/diomede/internal/xerrors"
	"github.com/kasei-go/diomede/pkg/rdf"
)

// ProgressFunc is invoked periodically during Load with the number of
// quads processed so far and the current ingestion rate in quads/second.
type ProgressFunc func(count int, rate float64)

// DefaultProgressLogger returns a ProgressFunc that logs human-readable
// progress via the standard logger, for callers (such as cmd/dio) that want
// ingestion visibility without writing their own callback.
func DefaultProgressLogger() ProgressFunc {
	return func(count int, rate float64) {
		log.Printf("diomede: loaded %s quads (%s/s)", humanize.Comma(int64(count)), humanize.Comma(int64(rate)))
	}
}

// progressEvery controls how often Load invokes its progress callback.
const progressEvery = 1000

type pendingQuad struct {
	ids        [4]uint64
	needsCheck bool
}

// Load ingests a batch of quads in a single write transaction: intern
// terms, deduplicate, assign quad ids, and fan out to every active
// permutation index (spec section 4.7). A non-empty version overwrites the
// stored Diomede-Version; an empty one leaves it unchanged.
func (s *Store) Load(version string, quads []rdf.Quad, progress ProgressFunc) error {
	start := time.Now()
	processed := 0

	return s.Env.WriteTx(func(tx kv.Tx) error {
		if version != "" {
			if err := tx.Put(meta.SubDBStats, []byte(meta.KeyVersion), []byte(version)); err != nil {
				return err
			}
		}

		pendingGraphs := make(map[uint64]struct{})
		var pending []pendingQuad

		for _, q := range quads {
			ids, anyNew, ok, err := s.internQuad(tx, q)
			if err != nil {
				return err
			}
			if !ok {
				// Codec failure: drop the offending quad silently, per
				// spec section 7's documented (if debatable) policy.
				log.Printf("diomede: dropping quad with unencodable term: %v", q)
				continue
			}
			pendingGraphs[ids[3]] = struct{}{}
			pending = append(pending, pendingQuad{ids: ids, needsCheck: !anyNew})

			processed++
			if progress != nil && processed%progressEvery == 0 {
				elapsed := time.Since(start).Seconds()
				rate := float64(processed)
				if elapsed > 0 {
					rate = float64(processed) / elapsed
				}
				progress(processed, rate)
			}
		}

		// Deduplicate the pending list by id-tuple (handles duplicates
		// within the same batch) and drop anything already present in the
		// quad table (handles duplicates against prior loads).
		seen := make(map[[4]uint64]struct{}, len(pending))
		var toInsert [][4]uint64
		for _, p := range pending {
			if _, dup := seen[p.ids]; dup {
				continue
			}
			if p.needsCheck {
				exists, err := s.quadExists(tx, p.ids)
				if err != nil {
					return err
				}
				if exists {
					seen[p.ids] = struct{}{}
					continue
				}
			}
			seen[p.ids] = struct{}{}
			toInsert = append(toInsert, p.ids)
		}

		for g := range pendingGraphs {
			if err := AddGraph(tx, g); err != nil {
				return err
			}
		}

		perms := s.ActivePermutations()
		for _, ids := range toInsert {
			qid, err := meta.NextQuadID(tx)
			if err != nil {
				return err
			}
			if err := tx.Put(SubDBQuads, codec.PutUint64(nil, qid), codec.EncodeIDTuple(ids)); err != nil {
				return err
			}
			for _, p := range perms {
				key := codec.EncodeIDTuple(codec.Permute(ids, p.Order))
				if err := tx.Put(p.Name, key, codec.PutUint64(nil, qid)); err != nil {
					return err
				}
			}
		}

		if len(toInsert) > 0 || len(pendingGraphs) > 0 {
			if err := meta.Touch(tx, meta.KeyQuadsLastModified, time.Now()); err != nil {
				return err
			}
		}

		if progress != nil {
			elapsed := time.Since(start).Seconds()
			rate := float64(processed)
			if elapsed > 0 {
				rate = float64(processed) / elapsed
			}
			progress(processed, rate)
		}
		return nil
	})
}

// internQuad interns all four terms of q. ok is false (with a nil error) on
// a codec failure, signaling the caller to drop the quad rather than abort
// the batch.
func (s *Store) internQuad(tx kv.Tx, q rdf.Quad) (ids [4]uint64, anyNew bool, ok bool, err error) {
	terms := [4]rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph}
	for i, t := range terms {
		id, isNew, ierr := dict.InternDetect(tx, t)
		if ierr != nil {
			if isCodecError(ierr) {
				return ids, false, false, nil
			}
			return ids, false, false, ierr
		}
		ids[i] = id
		anyNew = anyNew || isNew
	}
	return ids, anyNew, true, nil
}

func isCodecError(err error) bool {
	_, ok := err.(*xerrors.CodecError)
	return ok
}

// quadExists reports whether an exact id-tuple is already present, using
// any active permutation as a point lookup (spec section 4.8's
// quad_exists: the full tuple is bound, so every active permutation scores
// the same and any one of them serves).
func (s *Store) quadExists(tx kv.Tx, ids [4]uint64) (bool, error) {
	perms := s.ActivePermutations()
	if len(perms) == 0 {
		found := false
		err := tx.IterateAllUnescaping(SubDBQuads, func(_, v []byte) bool {
			decoded, derr := codec.DecodeIDTuple(v)
			if derr != nil {
				return false
			}
			if decoded == ids {
				found = true
				return false
			}
			return true
		})
		return found, err
	}
	p := perms[0]
	key := codec.EncodeIDTuple(codec.Permute(ids, p.Order))
	return tx.Contains(p.Name, key)
}
