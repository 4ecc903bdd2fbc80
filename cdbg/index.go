package cdbg

import (
	"sort"
	"sync"
	"sync/atomic"

	farm "github.com/dgryski/go-farm"

	"github.com/efedo/bifrost/kmer"
)

// Occurrence is an entry in the MinimizerIndex: one k-mer position within
// one unitig, in the orientation it was originally observed.
type Occurrence struct {
	UnitigID    int64
	Position    int
	Orientation Orientation
}

type bucket struct {
	mu  sync.RWMutex
	occ map[kmer.MWord][]Occurrence
}

// indexTable is a fixed-size array of buckets; MinimizerIndex swaps this
// pointer wholesale on Resize, so readers already holding a reference
// keep operating on the pre-resize table until they look it up again.
type indexTable struct {
	buckets []*bucket
	mask    uint64
}

func newIndexTable(n int) *indexTable {
	n = int(nextPow2(uint64(n)))
	t := &indexTable{buckets: make([]*bucket, n), mask: uint64(n - 1)}
	for i := range t.buckets {
		t.buckets[i] = &bucket{occ: make(map[kmer.MWord][]Occurrence)}
	}
	return t
}

func nextPow2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}

func (t *indexTable) bucketFor(m kmer.MWord) (*bucket, int) {
	idx := int(farm.Hash64(m.Bytes()) & t.mask)
	return t.buckets[idx], idx
}

// MinimizerIndex maps MinimizerWord -> list of (unitig, position,
// orientation) occurrences, sharded into buckets each guarded by its own
// RWMutex. Resize swaps an atomic table pointer; writers in flight
// against the old table complete against it, new operations see the new
// table once the swap is visible.
type MinimizerIndex struct {
	tbl atomic.Pointer[indexTable]
}

// NewMinimizerIndex builds an index with at least minBuckets shards
// (rounded up to a power of two).
func NewMinimizerIndex(minBuckets int) *MinimizerIndex {
	idx := &MinimizerIndex{}
	idx.tbl.Store(newIndexTable(minBuckets))
	return idx
}

// Insert appends an occurrence under minimizer m. Duplicate inserts are
// permitted; a later Remove/prune pass can collapse them.
func (idx *MinimizerIndex) Insert(m kmer.MWord, o Occurrence) {
	t := idx.tbl.Load()
	b, _ := t.bucketFor(m)
	b.mu.Lock()
	b.occ[m] = append(b.occ[m], o)
	b.mu.Unlock()
}

// Lookup returns a snapshot copy of the occurrences under m.
func (idx *MinimizerIndex) Lookup(m kmer.MWord) []Occurrence {
	t := idx.tbl.Load()
	b, _ := t.bucketFor(m)
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.occ[m]
	out := make([]Occurrence, len(src))
	copy(out, src)
	return out
}

// Remove deletes every occurrence under m matching pred, returning the
// number removed.
func (idx *MinimizerIndex) Remove(m kmer.MWord, pred func(Occurrence) bool) int {
	t := idx.tbl.Load()
	b, _ := t.bucketFor(m)
	b.mu.Lock()
	defer b.mu.Unlock()
	return removeLocked(b, m, pred)
}

func removeLocked(b *bucket, m kmer.MWord, pred func(Occurrence) bool) int {
	src := b.occ[m]
	kept := src[:0]
	removed := 0
	for _, o := range src {
		if pred(o) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		delete(b.occ, m)
	} else {
		b.occ[m] = kept
	}
	return removed
}

// Rekey moves every occurrence under mOld matching pred to mNew,
// acquiring both buckets (if distinct) in ascending bucket-index order
// to avoid deadlock against concurrent split/join elsewhere.
func (idx *MinimizerIndex) Rekey(mOld, mNew kmer.MWord, pred func(Occurrence) bool) int {
	t := idx.tbl.Load()
	bOld, iOld := t.bucketFor(mOld)
	bNew, iNew := t.bucketFor(mNew)

	if iOld == iNew {
		bOld.mu.Lock()
		defer bOld.mu.Unlock()
		return rekeyLocked(bOld, bOld, mOld, mNew, pred)
	}
	first, second := bOld, bNew
	if iNew < iOld {
		first, second = bNew, bOld
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()
	return rekeyLocked(bOld, bNew, mOld, mNew, pred)
}

func rekeyLocked(bOld, bNew *bucket, mOld, mNew kmer.MWord, pred func(Occurrence) bool) int {
	src := bOld.occ[mOld]
	kept := src[:0]
	moved := 0
	for _, o := range src {
		if pred(o) {
			bNew.occ[mNew] = append(bNew.occ[mNew], o)
			moved++
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		delete(bOld.occ, mOld)
	} else {
		bOld.occ[mOld] = kept
	}
	return moved
}

// Resize migrates the index into a new table with newBucketCount
// shards. Every bucket of the old table is locked, in ascending order,
// before the new table is built and swapped in, so no writer can make
// progress against the old table mid-migration; readers that already
// loaded the old table pointer continue to see consistent (pre-migration)
// contents until they reload.
func (idx *MinimizerIndex) Resize(newBucketCount int) {
	old := idx.tbl.Load()
	for _, b := range old.buckets {
		b.mu.Lock()
	}
	defer func() {
		for _, b := range old.buckets {
			b.mu.Unlock()
		}
	}()

	next := newIndexTable(newBucketCount)
	for _, b := range old.buckets {
		for m, occs := range b.occ {
			nb, _ := next.bucketFor(m)
			nb.occ[m] = append(nb.occ[m], occs...)
		}
	}
	idx.tbl.Store(next)
}

// WithBucketsLocked acquires write locks on every bucket touched by ms,
// in ascending bucket-index order (deduplicated), runs fn, then releases
// them in reverse order. This is the primitive join/split use to make a
// multi-minimizer structural edit appear atomic to other writers.
func (idx *MinimizerIndex) WithBucketsLocked(ms []kmer.MWord, fn func()) {
	t := idx.tbl.Load()
	seen := make(map[int]*bucket)
	for _, m := range ms {
		b, i := t.bucketFor(m)
		seen[i] = b
	}
	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, i := range indices {
		seen[i].mu.Lock()
	}
	defer func() {
		for j := len(indices) - 1; j >= 0; j-- {
			seen[indices[j]].mu.Unlock()
		}
	}()
	fn()
}
