package cdbg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newGraphWithUnitigs(t *testing.T, seqs ...string) (*CompactedDBG[struct{}], []int64) {
	t.Helper()
	g := New[struct{}](nil, nil)
	ids := make([]int64, len(seqs))
	for i, s := range seqs {
		u, err := newUnitig[struct{}](g.k, s, struct{}{})
		require.NoError(t, err)
		ids[i] = g.addUnitig(u)
	}
	return g, ids
}

func TestJoinMergesOverlappingUnitigs(t *testing.T) {
	setK(t, 4, 2)
	// "ACTGA" (tail) and "TGATC" (head) overlap by k-1=3: tail's suffix
	// "TGA" equals head's prefix "TGA", merging to "ACTGATC".
	g, ids := newGraphWithUnitigs(t, "ACTGA", "TGATC")

	merged, err := g.Join(ids[0], ids[1])
	require.NoError(t, err)

	u, ok := g.Unitig(merged)
	require.True(t, ok)
	require.Equal(t, canonicalOf("ACTGATC"), canonicalOf(u.Seq.String()))

	_, ok = g.Unitig(ids[0])
	require.False(t, ok, "tail must be retired")
	_, ok = g.Unitig(ids[1])
	require.False(t, ok, "head must be retired")
}

func TestJoinFailsWithoutOverlap(t *testing.T) {
	setK(t, 4, 2)
	g, ids := newGraphWithUnitigs(t, "ACTGA", "CCCCA")

	_, err := g.Join(ids[0], ids[1])
	require.ErrorIs(t, err, ErrNotJoinable)
}

func TestJoinRejectsRetiredUnitig(t *testing.T) {
	setK(t, 4, 2)
	g, ids := newGraphWithUnitigs(t, "ACTGA", "TGATC")
	_, err := g.Join(ids[0], ids[1])
	require.NoError(t, err)

	_, err = g.Join(ids[0], ids[1])
	require.ErrorIs(t, err, ErrUnitigRetired)
}

func TestSplitProducesOneUnitigPerRange(t *testing.T) {
	setK(t, 4, 2)
	g, ids := newGraphWithUnitigs(t, "ACTGATCGGCA")
	u, ok := g.Unitig(ids[0])
	require.True(t, ok)

	n := u.Len() - g.k + 1
	ranges := []Range{{Start: 0, End: 3}, {Start: 4, End: n}}
	newIDs, err := g.Split(ids[0], ranges)
	require.NoError(t, err)
	require.Len(t, newIDs, 2)

	_, ok = g.Unitig(ids[0])
	require.False(t, ok, "original must be retired")

	for i, id := range newIDs {
		nu, ok := g.Unitig(id)
		require.True(t, ok)
		require.Equal(t, ranges[i].End-ranges[i].Start, nu.Len()-g.k+1)
	}
}

func TestSplitWithNoRangesRemovesUnitig(t *testing.T) {
	setK(t, 4, 2)
	g, ids := newGraphWithUnitigs(t, "ACTGATCGGCA")
	newIDs, err := g.Split(ids[0], nil)
	require.NoError(t, err)
	require.Nil(t, newIDs)

	_, ok := g.Unitig(ids[0])
	require.False(t, ok)
	require.Equal(t, 0, g.UnitigCount())
}
