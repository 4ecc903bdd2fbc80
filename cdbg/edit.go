package cdbg

import (
	"github.com/efedo/bifrost/kmer"
	"github.com/efedo/bifrost/seq"
)

func revcompString(s string) string {
	comp := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'a': 'T', 'c': 'G', 'g': 'C', 't': 'A'}
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		buf[i] = comp[s[len(s)-1-i]]
	}
	return string(buf)
}

// Join merges the unitigs named by tailID and headID. Precondition: one
// orientation of tail's sequence and one orientation of head's sequence
// overlap by exactly k-1 symbols (tail's suffix == head's prefix); and,
// per §4.5.3, neither endpoint has any other neighbor — callers (the
// build algorithm, primarily) are responsible for having established
// that before calling Join, since Join itself only checks the overlap.
// On success it retires both inputs and returns the id of the new,
// merged unitig.
func (g *CompactedDBG[U]) Join(tailID, headID int64) (int64, error) {
	first, second := tailID, headID
	if second < first {
		first, second = second, first
	}
	sFirst := g.arena.get(first)
	sSecond := g.arena.get(second)
	if sFirst == nil || sSecond == nil {
		return 0, ErrUnitigRetired
	}
	sFirst.mu.Lock()
	defer sFirst.mu.Unlock()
	sSecond.mu.Lock()
	defer sSecond.mu.Unlock()

	sTail := sFirst
	sHead := sSecond
	if tailID != first {
		sTail, sHead = sSecond, sFirst
	}
	if sTail.retired || sHead.retired {
		return 0, ErrUnitigRetired
	}

	tailSeq := sTail.unitig.Seq.String()
	headSeq := sHead.unitig.Seq.String()
	k := g.k

	type combo struct {
		a, b     string
		tailFlip bool
		headFlip bool
	}
	combos := []combo{
		{tailSeq, headSeq, false, false},
		{tailSeq, revcompString(headSeq), false, true},
		{revcompString(tailSeq), headSeq, true, false},
		{revcompString(tailSeq), revcompString(headSeq), true, true},
	}

	var merged string
	var tailFlip, headFlip bool
	found := false
	for _, c := range combos {
		if len(c.a) < k-1 || len(c.b) < k-1 {
			continue
		}
		if c.a[len(c.a)-(k-1):] == c.b[:k-1] {
			merged = c.a + c.b[k-1:]
			tailFlip, headFlip = c.tailFlip, c.headFlip
			found = true
			break
		}
	}
	if !found {
		return 0, ErrNotJoinable
	}

	tailCov := sTail.unitig.Coverage
	headCov := sHead.unitig.Coverage
	if tailFlip {
		tailCov = reverseCoverage(tailCov)
	}
	if headFlip {
		headCov = reverseCoverage(headCov)
	}
	// The overlap between tail and head is k-1 bases, one short of a full
	// k-mer window, so no k-mer position is shared between tailCov and
	// headCov: the merged coverage vector is a plain concatenation of the
	// two, not a k-1-wide overlap-and-sum.
	mergedCov := make([]uint32, len(tailCov)+len(headCov))
	copy(mergedCov, tailCov)
	copy(mergedCov[len(tailCov):], headCov)

	tailOrient := Forward
	if tailFlip {
		tailOrient = Reverse
	}
	headOrient := Forward
	if headFlip {
		headOrient = Reverse
	}
	tailMap := UnitigMap{ID: tailID, Offset: 0, Length: sTail.unitig.Len(), Orientation: tailOrient}
	headMap := UnitigMap{ID: headID, Offset: 0, Length: sHead.unitig.Len(), Orientation: headOrient}

	s, err := seq.New(merged)
	if err != nil {
		return 0, err
	}
	headKmer, err := s.Kmer(0)
	if err == nil && !headKmer.Equal(headKmer.Rep()) {
		s = s.Rev()
		reverseUint32(mergedCov)
	}

	payload := g.joinData(tailMap, headMap, g)
	newUnitig := Unitig[U]{Seq: s, Coverage: mergedCov, Payload: payload}

	sTail.retired = true
	sHead.retired = true
	tailMinimizers := sTail.minimizers
	headMinimizers := sHead.minimizers

	newID := g.arena.append(newUnitig, nil)

	all := append(append([]kmer.MWord{}, tailMinimizers...), headMinimizers...)
	g.index.WithBucketsLocked(all, func() {
		for _, m := range tailMinimizers {
			b, _ := g.index.tbl.Load().bucketFor(m)
			removeLocked(b, m, func(o Occurrence) bool { return o.UnitigID == tailID })
		}
		for _, m := range headMinimizers {
			b, _ := g.index.tbl.Load().bucketFor(m)
			removeLocked(b, m, func(o Occurrence) bool { return o.UnitigID == headID })
		}
	})
	g.indexUnitig(newID, newUnitig)
	return newID, nil
}

func reverseCoverage(c []uint32) []uint32 {
	out := make([]uint32, len(c))
	for i, v := range c {
		out[len(c)-1-i] = v
	}
	return out
}

func reverseUint32(s []uint32) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Split replaces unitig u with one new unitig per range in ranges (the
// complement of branch-introducing k-mer positions), preserving coverage
// per surviving range and reassigning payloads via splitData. If ranges
// is empty, u is simply retired. Ranges are given as half-open k-mer
// position intervals [Start, End) over u's sequence; the corresponding
// base range is [Start, End+k-1).
func (g *CompactedDBG[U]) Split(u int64, ranges []Range) ([]int64, error) {
	s := g.arena.get(u)
	if s == nil {
		return nil, ErrUnitigRetired
	}
	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		return nil, ErrUnitigRetired
	}
	old := s.unitig
	oldMinimizers := s.minimizers
	s.retired = true
	s.mu.Unlock()

	k := g.k
	g.index.WithBucketsLocked(oldMinimizers, func() {
		for _, m := range oldMinimizers {
			b, _ := g.index.tbl.Load().bucketFor(m)
			removeLocked(b, m, func(o Occurrence) bool { return o.UnitigID == u })
		}
	})

	if len(ranges) == 0 {
		return nil, nil
	}

	um := UnitigMap{ID: u, Offset: 0, Length: old.Len(), Orientation: Forward}
	payloads := g.splitData(um, ranges, g)
	if len(payloads) != len(ranges) {
		extra := make([]U, len(ranges))
		copy(extra, payloads)
		payloads = extra
	}

	ids := make([]int64, len(ranges))
	for i, r := range ranges {
		baseStart := r.Start
		baseEnd := r.End + k - 1
		bases, err := old.Seq.Substring(baseStart, baseEnd-baseStart)
		if err != nil {
			return nil, err
		}
		cov := append([]uint32{}, old.Coverage[r.Start:r.End]...)

		sub, err := seq.New(bases)
		if err != nil {
			return nil, err
		}
		headKmer, err := sub.Kmer(0)
		if err == nil && !headKmer.Equal(headKmer.Rep()) {
			sub = sub.Rev()
			reverseUint32(cov)
		}
		nu := Unitig[U]{Seq: sub, Coverage: cov, Payload: payloads[i]}
		ids[i] = g.addUnitig(nu)
	}
	return ids, nil
}
