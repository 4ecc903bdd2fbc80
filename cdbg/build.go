package cdbg

import (
	"sync"
	"sync/atomic"

	farm "github.com/dgryski/go-farm"

	"github.com/efedo/bifrost/bloom"
	"github.com/efedo/bifrost/kmer"
)

// ReadSource is the minimal contract cdbg.Build needs from a chunked
// input producer: pull the next chunk of up to n already ACGT-segmented
// reads, or report that the source is drained. reads.Feeder implements
// this.
type ReadSource interface {
	NextChunk(n int) ([]string, bool)
}

// introLockShards is the size of the fixed array of mutexes used to
// serialize "who introduces k-mer x" during Phase B, keyed by x's
// minimizer hash. This is deliberately a separate lock domain from the
// MinimizerIndex's own per-bucket RWMutexes (held only transiently during
// index reads/writes), so a worker can call Find/Join while holding its
// introduction lock without risking self-deadlock.
const introLockShards = 4096

type introLocks struct {
	mus [introLockShards]sync.Mutex
}

func (l *introLocks) lockFor(m kmer.MWord) *sync.Mutex {
	idx := farm.Hash64(m.Bytes()) % introLockShards
	return &l.mus[idx]
}

// BuildParams mirrors the C++ build's (nkmers, nkmers2, bf, bf2, ref,
// threads, chunk_size) parameter tuple.
type BuildParams struct {
	NKmers       uint64
	NKmers2      uint64
	BitsPerKmer1 float64
	BitsPerKmer2 float64
	Ref          bool
	Threads      int
	ChunkSize    int
}

// Build runs the two-phase construction algorithm (§4.5.1) over src:
// Phase A populates a cascading Bloom filter over every k-mer of every
// read (skipped if cascade is non-nil and preloaded, matching "skip if a
// persisted BBF is loaded"); Phase B slides over every read again,
// introducing and extending unitigs for every k-mer the cascade accepts.
// It returns the Cascade used, so callers can persist it with -f.
func Build[U any](g *CompactedDBG[U], src ReadSource, params BuildParams, preloaded *bloom.Cascade) *bloom.Cascade {
	cascade := preloaded
	var replay []string
	if cascade == nil {
		cascade = bloom.NewCascade(params.NKmers, params.BitsPerKmer1, params.NKmers2, params.BitsPerKmer2, g.k, params.Ref)
		var mu sync.Mutex
		runPhase(params.Threads, func() {
			runChunked(src, params.ChunkSize, func(reads []string) {
				phaseA(reads, cascade, g.k)
				mu.Lock()
				replay = append(replay, reads...)
				mu.Unlock()
			})
		})
	}

	locks := &introLocks{}
	member := func(w kmer.Word) bool { return cascade.Member(w.Rep().Bytes()) }

	var next atomic.Int64
	runPhase(params.Threads, func() {
		runChunked(src, params.ChunkSize, func(reads []string) {
			phaseB(g, reads, member, locks)
		})
		n := max(params.ChunkSize, 1)
		for {
			start := int(next.Add(int64(n))) - n
			if start >= len(replay) {
				return
			}
			phaseB(g, replay[start:min(start+n, len(replay))], member, locks)
		}
	})

	return cascade
}

// runPhase runs fn concurrently across threads goroutines (clamped to at
// least 1) and waits for all of them to finish pulling from the shared
// source to exhaustion.
func runPhase(threads int, fn func()) {
	if threads < 1 {
		threads = 1
	}
	var wg sync.WaitGroup
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

// runChunked pulls fixed-size chunks from src until drained, invoking fn
// per chunk. Multiple goroutines may call this concurrently against the
// same src; each chunk is claimed by exactly one.
func runChunked(src ReadSource, chunkSize int, fn func([]string)) {
	for {
		chunk, ok := src.NextChunk(chunkSize)
		if !ok {
			return
		}
		if len(chunk) > 0 {
			fn(chunk)
		}
	}
}

func phaseA(reads []string, cascade *bloom.Cascade, k int) {
	for _, s := range reads {
		for i := 0; i+k <= len(s); i++ {
			w, err := kmer.FromString(s[i : i+k])
			if err != nil {
				continue
			}
			cascade.Observe(w.Rep().Bytes())
		}
	}
}

func phaseB[U any](g *CompactedDBG[U], reads []string, member MemberFunc, locks *introLocks) {
	k := g.k
	for _, s := range reads {
		for i := 0; i+k <= len(s); i++ {
			w, err := kmer.FromString(s[i : i+k])
			if err != nil {
				continue
			}
			if !member(w) {
				continue
			}
			if um := g.Find(w); !um.IsEmpty {
				continue
			}
			g.addKmer(w, member, locks)
		}
	}
}

// addKmer is the Phase B critical section: re-check under the
// minimizer-bucket introduction lock, then extend w into a maximal
// non-branching unitig, joining onto any existing unitig the extension
// runs into at either end.
func (g *CompactedDBG[U]) addKmer(seed kmer.Word, member MemberFunc, locks *introLocks) UnitigMap {
	lk := locks.lockFor(seed.Minimizer())
	lk.Lock()
	defer lk.Unlock()

	if um := g.Find(seed); !um.IsEmpty {
		return um
	}
	return g.extendAndInsert(seed, member)
}

func (g *CompactedDBG[U]) extendAndInsert(seed kmer.Word, member MemberFunc) UnitigMap {
	leftExt, leftJoin := g.extend(seed, member, false)
	rightExt, rightJoin := g.extend(seed, member, true)

	bases := string(leftExt) + seed.String() + string(rightExt)
	var payload U
	u, err := newUnitig[U](g.k, bases, payload)
	if err != nil {
		return UnitigMap{IsEmpty: true}
	}
	id := g.addUnitig(u)

	if leftJoin != nil {
		if merged, err := g.Join(leftJoin.ID, id); err == nil {
			id = merged
		}
	}
	if rightJoin != nil {
		if merged, err := g.Join(id, rightJoin.ID); err == nil {
			id = merged
		}
	}
	return g.Find(seed)
}

// memberDegree counts, among the four possible bases, how many extend w
// (rightward if toRight, leftward otherwise) to another cascade member.
// This is the out-degree (toRight) or in-degree (!toRight) of w in the
// implicit de Bruijn graph defined by cascade membership alone —
// independent of what has been indexed so far.
func memberDegree(w kmer.Word, member MemberFunc, toRight bool) int {
	n := 0
	for _, b := range []byte{'A', 'C', 'G', 'T'} {
		var cand kmer.Word
		if toRight {
			cand = w.ForwardBase(b)
		} else {
			cand = w.BackwardBase(b)
		}
		if cand.Rep().Equal(w.Rep()) {
			continue
		}
		if member(cand) {
			n++
		}
	}
	return n
}

// maxExtendSteps bounds the walk in extend so that a tandem repeat (every
// k-mer on the path simple, but the path returns to an earlier canonical
// k-mer without any base ever branching) terminates instead of spinning
// forever. True non-branching cycles collapse the dBG onto themselves;
// this package does not special-case them (see Non-goals), it simply
// refuses to loop indefinitely while building one.
const maxExtendSteps = 1 << 20

// extend walks outward from seed (rightward if toRight, leftward
// otherwise) one base at a time. At each step it requires both
// out-degree(cur) == 1 (in the extension direction) and in-degree(next)
// == 1 (the reverse direction) — the simple-path condition that also
// governs whether join() may later be used at that junction: a junction
// where the neighboring k-mer itself branches is not absorbed into this
// unitig, left instead as an implicit graph connection between two
// separate unitigs.
//
// It returns the extension bases in left-to-right reading order, and, if
// the walk stopped because the next candidate is already indexed as part
// of another unitig, that candidate's UnitigMap (a join target).
func (g *CompactedDBG[U]) extend(seed kmer.Word, member MemberFunc, toRight bool) ([]byte, *UnitigMap) {
	cur := seed
	var ext []byte
	for step := 0; step < maxExtendSteps; step++ {
		var candidates []byte
		var next kmer.Word
		for _, b := range []byte{'A', 'C', 'G', 'T'} {
			var cand kmer.Word
			if toRight {
				cand = cur.ForwardBase(b)
			} else {
				cand = cur.BackwardBase(b)
			}
			if cand.Rep().Equal(cur.Rep()) {
				continue
			}
			if member(cand) {
				candidates = append(candidates, b)
				next = cand
			}
		}
		if len(candidates) != 1 {
			return ext, nil
		}
		if memberDegree(next, member, !toRight) != 1 {
			return ext, nil
		}
		if um := g.Find(next); !um.IsEmpty {
			return ext, &um
		}
		if toRight {
			ext = append(ext, candidates[0])
		} else {
			ext = append([]byte{candidates[0]}, ext...)
		}
		cur = next
		// A palindromic k-mer is its own twin: every step past it
		// retraces the walk so far on the opposite strand.
		if cur.Equal(cur.Twin()) {
			return ext, nil
		}
	}
	return ext, nil
}
