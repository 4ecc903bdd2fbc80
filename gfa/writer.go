// Package gfa writes a CompactedDBG out as a GFA 1.0 assembly graph: one
// header line, one S line per unitig, and one L line per overlap
// discovered between unitig ends.
package gfa

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/efedo/bifrost/cdbg"
	"github.com/efedo/bifrost/kmer"
)

// link is one discovered overlap between two unitig ends, already
// canonicalized so (from,to) pairs that describe the same physical edge
// compare equal regardless of which endpoint was walked first.
type link struct {
	fromID, toID int64
	fromOr, toOr cdbg.Orientation
}

// Write renders g as GFA 1.0 text to w: a VN:Z:1.0 header, one S line per
// live unitig (S\t<id>\t<seq>\tLN:i:<len>), and one L line per distinct
// overlap (L\t<id1>\t<orient1>\t<id2>\t<orient2>\t<k-1>M).
func Write[U any](w io.Writer, g *cdbg.CompactedDBG[U]) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprint(bw, "H\tVN:Z:1.0\n"); err != nil {
		return errors.Wrap(err, "gfa: header")
	}

	g.Each(func(id int64, u cdbg.Unitig[U]) {
		fmt.Fprintf(bw, "S\t%d\t%s\tLN:i:%d\n", id, u.Seq.String(), u.Len())
	})

	seen := make(map[link]bool)
	var order []link
	g.Each(func(id int64, u cdbg.Unitig[U]) {
		for _, l := range discoverLinks(g, id, u) {
			if !seen[l] {
				seen[l] = true
				order = append(order, l)
			}
		}
	})
	for _, l := range order {
		fmt.Fprintf(bw, "L\t%d\t%s\t%d\t%s\t%dM\n", l.fromID, l.fromOr, l.toID, l.toOr, g.K()-1)
	}

	return errors.Wrap(bw.Flush(), "gfa: flush")
}

// canonicalLink orders a discovered (from,to) pair into a single
// representation so the same physical overlap, found once from each
// side, is written only once.
func canonicalLink(fromID int64, fromOr cdbg.Orientation, toID int64, toOr cdbg.Orientation) link {
	if fromID < toID || (fromID == toID && fromOr <= toOr) {
		return link{fromID, toID, fromOr, toOr}
	}
	return link{toID, fromID, flip(toOr), flip(fromOr)}
}

// flip returns the opposite strand orientation.
func flip(o cdbg.Orientation) cdbg.Orientation {
	if o == cdbg.Forward {
		return cdbg.Reverse
	}
	return cdbg.Forward
}

// discoverLinks finds every overlap anchored at either end of unitig id
// by extending its head and tail k-mers one base in all four directions
// and asking the graph whether the resulting k-1-overlapping k-mer is
// the head or tail k-mer of some (possibly the same) unitig. No edge
// list is stored in the graph itself; this re-derives it from the final
// unitig set, the same way the build's own extend() judges adjacency.
func discoverLinks[U any](g *cdbg.CompactedDBG[U], id int64, u cdbg.Unitig[U]) []link {
	k := g.K()
	var out []link

	tail, err := u.TailKmer(k)
	if err == nil {
		out = append(out, linksFromEnd(g, id, tail, cdbg.Forward, true)...)
	}
	head, err := u.HeadKmer(k)
	if err == nil {
		out = append(out, linksFromEnd(g, id, head, cdbg.Reverse, false)...)
	}
	return out
}

// linksFromEnd extends anchor (the unitig's head or tail k-mer) one base
// outward (rightward if toRight) and reports any neighbor it lands on.
// selfOr is the orientation this unitig's end contributes to the link.
func linksFromEnd[U any](g *cdbg.CompactedDBG[U], id int64, anchor kmer.Word, selfOr cdbg.Orientation, toRight bool) []link {
	k := g.K()
	var out []link
	for _, b := range []byte{'A', 'C', 'G', 'T'} {
		var cand kmer.Word
		if toRight {
			cand = anchor.ForwardBase(b)
		} else {
			cand = anchor.BackwardBase(b)
		}
		if cand.Rep().Equal(anchor.Rep()) {
			continue
		}
		um := g.Find(cand)
		if um.IsEmpty {
			continue
		}
		nbr, ok := g.Unitig(um.ID)
		if !ok {
			continue
		}
		tailPos := nbr.Len() - k
		// fwd: walking out of this end, cand continues onto the neighbor's
		// stored strand (rather than onto its twin).
		fwd := ((um.Orientation == cdbg.Forward) == cand.Equal(cand.Rep())) == toRight
		var neighborOr cdbg.Orientation
		switch {
		case fwd && um.Offset == 0:
			neighborOr = cdbg.Forward
		case !fwd && um.Offset == tailPos:
			neighborOr = cdbg.Reverse
		default:
			// The overlap lands strictly inside the neighbor: that
			// junction is an internal branch point, not a unitig-to-
			// unitig edge, so it has no GFA representation.
			continue
		}
		out = append(out, canonicalLink(id, selfOr, um.ID, neighborOr))
	}
	return out
}
