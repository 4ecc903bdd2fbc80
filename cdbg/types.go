// Package cdbg implements the compacted de Bruijn graph itself: the
// minimizer-indexed unitig store, the parallel build algorithm, the
// structural edits (split/join) that keep it compacted, and the two
// simplification passes (tip clipping, isolated-unitig removal).
package cdbg

import "github.com/pkg/errors"

// Orientation records which strand of a canonical k-mer or unitig a
// caller is reading.
type Orientation int8

const (
	Forward Orientation = iota
	Reverse
)

func (o Orientation) String() string {
	if o == Reverse {
		return "-"
	}
	return "+"
}

// UnitigMap is a transient locator naming a k-mer or range within a
// unitig in a particular reading direction. It must not outlive the next
// structural mutation it overlaps.
type UnitigMap struct {
	ID          int64
	Offset      int
	Length      int
	Orientation Orientation
	IsEmpty     bool
}

// Range is an ordered, disjoint position range [Start, End) over a
// unitig's k-mer positions, the unit split() operates on.
type Range struct {
	Start, End int
}

// ErrNotJoinable is returned by Join when no orientation of the two
// unitigs overlaps by exactly k-1 bases. Join does not check the
// endpoints for other neighbors.
var ErrNotJoinable = errors.New("cdbg: unitigs do not satisfy the join precondition")

// ErrUnitigRetired is returned when an operation is attempted against a
// unitig id that has already been retired by a prior split/join.
var ErrUnitigRetired = errors.New("cdbg: unitig has been retired")
