package cdbg

import (
	"github.com/pkg/errors"

	"github.com/efedo/bifrost/kmer"
	"github.com/efedo/bifrost/seq"
)

// Unitig is a maximal compacted sequence of overlapping k-mers, its
// per-k-mer abundance vector, and a user-supplied payload U.
//
// Invariants: Seq.Len() >= k; no k-mer strictly interior to Seq has more
// than one graph neighbor on either side; Seq is stored in whichever
// orientation makes its head k-mer canonical; len(Coverage) ==
// Seq.Len()-k+1.
type Unitig[U any] struct {
	Seq      seq.Sequence
	Coverage []uint32
	Payload  U
}

// newUnitig builds a Unitig from an ACGT string, canonicalizing it so the
// head k-mer is its own Rep(), and initializing every k-mer's coverage to
// 1 (a freshly introduced unitig has been observed once at every
// position by construction).
func newUnitig[U any](k int, bases string, payload U) (Unitig[U], error) {
	if len(bases) < k {
		return Unitig[U]{}, errors.Errorf("cdbg: unitig sequence length %d is shorter than k=%d", len(bases), k)
	}
	s, err := seq.New(bases)
	if err != nil {
		return Unitig[U]{}, errors.Wrap(err, "cdbg: newUnitig")
	}
	headKmer, err := s.Kmer(0)
	if err != nil {
		return Unitig[U]{}, errors.Wrap(err, "cdbg: newUnitig head k-mer")
	}
	if !headKmer.Equal(headKmer.Rep()) {
		// headKmer is not canonical: store the reverse-complement instead.
		s = s.Rev()
	}
	n := s.Len() - k + 1
	cov := make([]uint32, n)
	for i := range cov {
		cov[i] = 1
	}
	return Unitig[U]{Seq: s, Coverage: cov, Payload: payload}, nil
}

// Len returns the unitig's sequence length in bases.
func (u Unitig[U]) Len() int { return u.Seq.Len() }

// Kmer extracts the k-mer at unitig position pos (0 <= pos <= Len()-k)
// as stored on the unitig's strand; it is not canonicalized.
func (u Unitig[U]) Kmer(pos int) (kmer.Word, error) {
	return u.Seq.Kmer(pos)
}

// HeadKmer returns the k-mer at unitig position 0.
func (u Unitig[U]) HeadKmer(k int) (kmer.Word, error) {
	return u.Seq.Kmer(0)
}

// TailKmer returns the k-mer at the unitig's last valid position.
func (u Unitig[U]) TailKmer(k int) (kmer.Word, error) {
	return u.Seq.Kmer(u.Seq.Len() - k)
}

// bumpCoverage increments the coverage counter at position pos.
func (u *Unitig[U]) bumpCoverage(pos int) {
	if pos >= 0 && pos < len(u.Coverage) {
		u.Coverage[pos]++
	}
}
