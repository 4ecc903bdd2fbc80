package cdbg

import (
	"github.com/efedo/bifrost/kmer"
)

// MemberFunc reports whether a canonical k-mer has passed the cascading
// filter (or, in reference mode, been observed at all) and is therefore a
// candidate for graph construction.
type MemberFunc func(kmer.Word) bool

// JoinDataFunc combines the payloads of two unitigs being merged by
// Join into the payload of the resulting unitig.
type JoinDataFunc[U any] func(tailMap, headMap UnitigMap, g *CompactedDBG[U]) U

// SplitDataFunc assigns a payload to each surviving range produced by
// Split.
type SplitDataFunc[U any] func(u UnitigMap, ranges []Range, g *CompactedDBG[U]) []U

// CompactedDBG is the full graph: an arena of Unitigs, a MinimizerIndex
// locating them by k-mer, and the fixed (k, g) the process was
// configured with. U is the user payload type carried by every unitig;
// the zero-value instantiation CompactedDBG[struct{}] with no-op hooks
// is what the CLI uses.
type CompactedDBG[U any] struct {
	k, g int

	arena *arena[U]
	index *MinimizerIndex

	joinData  JoinDataFunc[U]
	splitData SplitDataFunc[U]
}

// New builds an empty graph for the process-wide (k, g) set via
// kmer.SetK/SetG. joinData/splitData may be nil, in which case the zero
// value of U is used (a no-op for U = struct{}).
func New[U any](joinData JoinDataFunc[U], splitData SplitDataFunc[U]) *CompactedDBG[U] {
	if joinData == nil {
		joinData = func(UnitigMap, UnitigMap, *CompactedDBG[U]) U { var z U; return z }
	}
	if splitData == nil {
		splitData = func(_ UnitigMap, ranges []Range, _ *CompactedDBG[U]) []U {
			out := make([]U, len(ranges))
			return out
		}
	}
	return &CompactedDBG[U]{
		k:         kmer.K(),
		g:         kmer.G(),
		arena:     newArena[U](),
		index:     NewMinimizerIndex(1024),
		joinData:  joinData,
		splitData: splitData,
	}
}

// K returns the graph's fixed k-mer length.
func (g *CompactedDBG[U]) K() int { return g.k }

// G returns the graph's fixed minimizer length.
func (g *CompactedDBG[U]) G() int { return g.g }

// UnitigCount returns the number of live (non-retired) unitigs.
func (g *CompactedDBG[U]) UnitigCount() int { return g.arena.liveCount() }

// Unitig returns the live unitig named by id, or ok=false if retired or
// out of range.
func (g *CompactedDBG[U]) Unitig(id int64) (Unitig[U], bool) {
	s := g.arena.get(id)
	if s == nil {
		return Unitig[U]{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return Unitig[U]{}, false
	}
	return s.unitig, true
}

// Each calls fn once per live unitig id.
func (g *CompactedDBG[U]) Each(fn func(id int64, u Unitig[U])) {
	g.arena.each(fn)
}

// Find locates x within the graph: computes x's minimizer, looks up
// candidate occurrences, and returns the first whose stored k-mer
// canonically matches x. Worst case linear in the occurrences sharing
// that minimizer; expected O(1) under uniform minimizer hashing.
func (g *CompactedDBG[U]) Find(x kmer.Word) UnitigMap {
	m := x.Minimizer()
	rep := x.Rep()
	for _, occ := range g.index.Lookup(m) {
		s := g.arena.get(occ.UnitigID)
		if s == nil {
			continue
		}
		s.mu.Lock()
		if s.retired {
			s.mu.Unlock()
			continue
		}
		u := s.unitig
		s.mu.Unlock()

		candidate, err := u.Kmer(occ.Position)
		if err != nil {
			continue
		}
		if candidate.Equal(rep) {
			return UnitigMap{ID: occ.UnitigID, Offset: occ.Position, Length: g.k, Orientation: Forward, IsEmpty: false}
		}
		if candidate.Twin().Equal(rep) {
			return UnitigMap{ID: occ.UnitigID, Offset: occ.Position, Length: g.k, Orientation: Reverse, IsEmpty: false}
		}
	}
	return UnitigMap{IsEmpty: true}
}

// indexUnitig inserts one MinimizerIndex occurrence per k-mer position of
// u (the unitig just stored at id), recording the minimizers used on the
// slot so retirement can remove them again.
func (g *CompactedDBG[U]) indexUnitig(id int64, u Unitig[U]) {
	n := u.Seq.Len() - g.k + 1
	minimizers := make([]kmer.MWord, 0, n)
	for pos := 0; pos < n; pos++ {
		km, err := u.Kmer(pos)
		if err != nil {
			continue
		}
		m := km.Minimizer()
		orient := Forward
		if !km.Equal(km.Rep()) {
			orient = Reverse
		}
		g.index.Insert(m, Occurrence{UnitigID: id, Position: pos, Orientation: orient})
		minimizers = append(minimizers, m)
	}
	if s := g.arena.get(id); s != nil {
		s.mu.Lock()
		s.minimizers = minimizers
		s.mu.Unlock()
	}
}

// retireUnitig removes every minimizer-index entry recorded for id and
// marks its slot retired. Callers must already hold whatever external
// synchronization is needed to make the retirement visible before a
// replacement unitig is indexed (see Join/Split).
func (g *CompactedDBG[U]) retireUnitig(id int64) {
	s := g.arena.get(id)
	if s == nil {
		return
	}
	s.mu.Lock()
	ms := s.minimizers
	s.retired = true
	s.mu.Unlock()

	for _, m := range ms {
		g.index.Remove(m, func(o Occurrence) bool { return o.UnitigID == id })
	}
}

// addUnitig stores a freshly built unitig (not yet indexed) and indexes
// it, returning its stable id.
func (g *CompactedDBG[U]) addUnitig(u Unitig[U]) int64 {
	id := g.arena.append(u, nil)
	g.indexUnitig(id, u)
	return id
}
