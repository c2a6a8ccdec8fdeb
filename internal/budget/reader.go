// Package budget implements bounded, budget-attributed I/O over an
// artifact's input bytes (spec.md §4.1).
//
// ARCHITECTURE:
//   - Source abstracts over an in-memory buffer (analyze_bytes) and a
//     file (analyze_path) behind one interface, so the rest of the
//     pipeline never branches on which kind of input it got.
//   - A bounded prefix cache is populated on first access so repeated
//     header/heuristic/entropy reads over the same leading bytes do not
//     re-hit the underlying source or re-count against the byte budget.
//   - Every read is attributed to a stage name purely for diagnostics; the
//     budget itself has no per-stage sub-limits (spec.md gives stages a
//     documentation-level "share", not an enforced sub-budget).
package budget

import (
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

// DefaultPrefixCacheSize is the default prefix cache size (spec.md §4.1).
const DefaultPrefixCacheSize = 32 * 1024

// Source is the minimal byte-source contract a Reader needs.
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
}

// BytesSource wraps an in-memory buffer as a Source.
type BytesSource struct {
	Data []byte
}

func (b BytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.Data)) {
		return 0, io.EOF
	}
	n := copy(p, b.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b BytesSource) Size() int64 { return int64(len(b.Data)) }

// FileSource wraps an os.File-like io.ReaderAt as a Source with a known size.
type FileSource struct {
	R    io.ReaderAt
	Len  int64
}

func (f FileSource) ReadAt(p []byte, off int64) (int, error) {
	return f.R.ReadAt(p, off)
}

func (f FileSource) Size() int64 { return f.Len }

// Reader is the single bounded-IO handle shared by all stages for one
// artifact run.
type Reader struct {
	src             Source
	b               *types.Budget
	start           time.Time
	maxTimeMS       int64
	prefixCache     []byte
	prefixCacheSize int
	prefixLoaded    bool
}

// New creates a Reader over src with the given byte/time/depth budget.
// prefixCacheSize <= 0 uses DefaultPrefixCacheSize.
func New(src Source, limitBytes int64, maxRecursionDepth int, maxTimeMS int64, prefixCacheSize int) *Reader {
	if prefixCacheSize <= 0 {
		prefixCacheSize = DefaultPrefixCacheSize
	}
	return &Reader{
		src:       src,
		maxTimeMS: maxTimeMS,
		start:     time.Now(),
		b: &types.Budget{
			LimitBytes:        limitBytes,
			MaxRecursionDepth: maxRecursionDepth,
		},
		prefixCacheSize: prefixCacheSize,
	}
}

// Budget returns the live budget value (read-only snapshot semantics: the
// caller should not mutate the returned pointer's fields directly).
func (r *Reader) Budget() *types.Budget { return r.b }

// ElapsedMS returns milliseconds since the reader was created.
func (r *Reader) ElapsedMS() int64 {
	return time.Since(r.start).Milliseconds()
}

// TimeExceeded reports whether the wall-clock deadline has passed.
// maxTimeMS <= 0 means "no deadline".
func (r *Reader) TimeExceeded() bool {
	if r.maxTimeMS <= 0 {
		return false
	}
	return r.ElapsedMS() >= r.maxTimeMS
}

// Size returns the total size of the underlying source, independent of the
// byte budget.
func (r *Reader) Size() int64 { return r.src.Size() }

// Read returns up to length bytes at offset, clipped to the remaining byte
// budget. A read that runs past EOF returns a short buffer tagged with a
// ShortRead diagnostic (non-fatal); a read clipped by the byte budget sets
// hit_byte_limit and returns a BudgetExceeded diagnostic (fatal — callers
// must stop issuing further reads once this is returned).
func (r *Reader) Read(stage string, offset, length int64) ([]byte, *tregoerr.TriageError) {
	if length <= 0 {
		return nil, nil
	}
	remaining := r.b.Remaining()
	if remaining <= 0 {
		r.b.HitByteLimit = true
		return nil, tregoerr.New(tregoerr.BudgetExceeded, stage, "byte budget exhausted at offset %d", offset)
	}
	want := length
	if want > remaining {
		want = remaining
	}

	buf := make([]byte, want)
	n, err := r.src.ReadAt(buf, offset)
	buf = buf[:n]
	r.b.BytesRead += int64(n)
	r.b.TimeMS = r.ElapsedMS()

	clippedByBudget := want < length
	if clippedByBudget {
		r.b.HitByteLimit = true
	}

	if err != nil && err != io.EOF {
		return buf, tregoerr.Wrap(tregoerr.Other, stage, err)
	}
	if n < int(length) && !clippedByBudget {
		return buf, tregoerr.New(tregoerr.ShortRead, stage, "requested %d bytes at offset %d, got %d", length, offset, n)
	}
	if clippedByBudget {
		return buf, tregoerr.New(tregoerr.BudgetExceeded, stage, "byte budget clipped read at offset %d", offset)
	}
	return buf, nil
}

// Prefix returns the first n bytes of the source via the bounded prefix
// cache, populating the cache on first call. Subsequent calls for n no
// larger than the cached size are served from memory with no further
// budget consumption beyond the initial population.
func (r *Reader) Prefix(stage string, n int) ([]byte, *tregoerr.TriageError) {
	if n > r.prefixCacheSize {
		n = r.prefixCacheSize
	}
	if !r.prefixLoaded {
		buf, tErr := r.Read(stage, 0, int64(r.prefixCacheSize))
		r.prefixCache = buf
		r.prefixLoaded = true
		if tErr != nil && tErr.Kind == tregoerr.BudgetExceeded {
			// Budget was exhausted before the cache could be fully
			// populated; keep whatever was read and surface the error.
			if n > len(r.prefixCache) {
				n = len(r.prefixCache)
			}
			return r.prefixCache[:n], tErr
		}
	}
	if n > len(r.prefixCache) {
		n = len(r.prefixCache)
	}
	return r.prefixCache[:n], nil
}

// Fingerprint returns a fast, non-cryptographic fingerprint of the cached
// prefix, used by stages (e.g. recursion child ID derivation) that need a
// stable key without paying for SHA-256 on every child.
func (r *Reader) Fingerprint() uint64 {
	if !r.prefixLoaded {
		return 0
	}
	return xxhash.Sum64(r.prefixCache)
}

// EnterRecursion increments the recursion depth for a child budget derived
// from this one; returns false if the max depth would be exceeded.
func (r *Reader) EnterRecursion() bool {
	if !r.b.CanRecurse() {
		return false
	}
	r.b.RecursionDepth++
	return true
}

// ChildLimit returns min(remaining, childCap) per spec.md §4.9 ("each child
// inherits a reduced budget").
func (r *Reader) ChildLimit(childCap int64) int64 {
	rem := r.b.Remaining()
	if childCap < rem {
		return childCap
	}
	return rem
}
