package cdbg

import "github.com/efedo/bifrost/kmer"

// tipLengthThreshold is the length below which a unitig is a candidate
// for clipping or isolated-removal: strictly fewer than 2k-1 bases
// (fewer than k k-mers beyond the k-1 overlap). Scenario 5 in the
// testable-properties set exercises the strict "<" boundary directly: a
// unitig of exactly length 2k-1 is NOT removed.
func tipLengthThreshold(k int) int { return 2*k - 1 }

// neighborCount reports how many of the four candidate bases extending
// u's head (or tail, if atHead is false) resolve to some k-mer already
// present elsewhere in the graph.
func (g *CompactedDBG[U]) neighborCount(u Unitig[U], atHead bool) int {
	var seed kmer.Word
	var err error
	if atHead {
		seed, err = u.HeadKmer(g.k)
	} else {
		seed, err = u.TailKmer(g.k)
	}
	if err != nil {
		return 0
	}
	count := 0
	for _, b := range []byte{'A', 'C', 'G', 'T'} {
		var cand kmer.Word
		if atHead {
			cand = seed.BackwardBase(b)
		} else {
			cand = seed.ForwardBase(b)
		}
		if cand.Rep().Equal(seed.Rep()) {
			continue
		}
		if um := g.Find(cand); !um.IsEmpty {
			count++
		}
	}
	return count
}

// isTip reports whether u (length < 2k-1, exactly one neighbor total
// across both endpoints) qualifies for clipping. A short unitig with no
// neighbors at all is isolated, not a tip; DeleteIsolated handles it.
func (g *CompactedDBG[U]) isTip(u Unitig[U]) bool {
	if u.Len() >= tipLengthThreshold(g.k) {
		return false
	}
	total := g.neighborCount(u, true) + g.neighborCount(u, false)
	return total == 1
}

// isIsolated reports whether u (length < 2k-1, no neighbors on either
// side) qualifies for removal.
func (g *CompactedDBG[U]) isIsolated(u Unitig[U]) bool {
	if u.Len() >= tipLengthThreshold(g.k) {
		return false
	}
	return g.neighborCount(u, true) == 0 && g.neighborCount(u, false) == 0
}

// ClipTips repeatedly removes tips until none remain, since removing one
// tip can expose its former neighbor as a new tip. It returns the total
// number of unitigs removed.
func (g *CompactedDBG[U]) ClipTips() int {
	removed := 0
	for {
		var toRemove []int64
		g.arena.each(func(id int64, u Unitig[U]) {
			if g.isTip(u) {
				toRemove = append(toRemove, id)
			}
		})
		if len(toRemove) == 0 {
			return removed
		}
		for _, id := range toRemove {
			g.retireUnitig(id)
			removed++
		}
	}
}

// DeleteIsolated removes every unitig with no neighbors on either side
// and length below the tip threshold. A single pass suffices: removing
// an isolated unitig cannot create a new one (it had no neighbors to
// begin with). It returns the number of unitigs removed.
func (g *CompactedDBG[U]) DeleteIsolated() int {
	removed := 0
	var toRemove []int64
	g.arena.each(func(id int64, u Unitig[U]) {
		if g.isIsolated(u) {
			toRemove = append(toRemove, id)
		}
	})
	for _, id := range toRemove {
		g.retireUnitig(id)
		removed++
	}
	return removed
}

// Simplify applies the two simplification passes in the fixed order
// required by §4.5.4: clip tips, then delete isolated unitigs.
func Simplify[U any](g *CompactedDBG[U], clipTips, deleteIsolated bool) {
	if clipTips {
		g.ClipTips()
	}
	if deleteIsolated {
		g.DeleteIsolated()
	}
}
