package cdbg

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efedo/bifrost/kmer"
)

// sliceSource is a minimal ReadSource over an in-memory slice, guarded by
// a mutex so multiple worker goroutines can pull from it concurrently.
type sliceSource struct {
	mu    sync.Mutex
	reads []string
}

func (s *sliceSource) NextChunk(n int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reads) == 0 {
		return nil, false
	}
	if n > len(s.reads) {
		n = len(s.reads)
	}
	chunk := s.reads[:n]
	s.reads = s.reads[n:]
	return chunk, true
}

func setK(t *testing.T, k, g int) {
	t.Helper()
	require.NoError(t, kmer.SetK(k))
	require.NoError(t, kmer.SetG(g))
}

func buildGraph(t *testing.T, reads []string, ref bool, threads int) (*CompactedDBG[struct{}], []string) {
	t.Helper()
	g := New[struct{}](nil, nil)
	src := &sliceSource{reads: append([]string{}, reads...)}
	params := BuildParams{
		NKmers:       1000,
		NKmers2:      1000,
		BitsPerKmer1: 12,
		BitsPerKmer2: 12,
		Ref:          ref,
		Threads:      threads,
		ChunkSize:    1,
	}
	Build(g, src, params, nil)

	var strs []string
	g.Each(func(_ int64, u Unitig[struct{}]) {
		strs = append(strs, u.Seq.String())
	})
	sort.Strings(strs)
	return g, strs
}

// canonicalOf returns the lexicographically smaller of s and its
// reverse-complement, for comparing a built unitig against an expected
// sequence regardless of which strand it landed on.
func canonicalOf(s string) string {
	rc := revcompString(s)
	if rc < s {
		return rc
	}
	return s
}

// Scenario 1 analog: a single, non-repetitive linear sequence in
// reference mode produces exactly one unitig spanning the whole input.
func TestBuildSingleLinearPath(t *testing.T) {
	setK(t, 4, 2)
	const seq = "ACTGAACGGCA"
	_, unitigs := buildGraph(t, []string{seq}, true, 1)
	require.Len(t, unitigs, 1)
	require.Equal(t, canonicalOf(seq), canonicalOf(unitigs[0]))
}

// Scenario 2 analog: two reads sharing a common 4-mer prefix but
// diverging on the next base produce three unitigs: the shared core and
// one single-k-mer tip per branch.
func TestBuildTwoWayBranch(t *testing.T) {
	setK(t, 4, 2)
	_, unitigs := buildGraph(t, []string{"ACTGA", "ACTGC"}, true, 1)

	var canon []string
	for _, u := range unitigs {
		canon = append(canon, canonicalOf(u))
	}
	sort.Strings(canon)
	expected := []string{canonicalOf("ACTG"), canonicalOf("CTGA"), canonicalOf("CTGC")}
	sort.Strings(expected)
	require.Equal(t, expected, canon)
}

// Scenario 3 analog: three reads, each shifted one base from the last,
// incrementally join into a single unitig spanning their union.
func TestBuildIncrementalJoin(t *testing.T) {
	setK(t, 4, 2)
	const full = "ACTGATC"
	reads := []string{full[0:5], full[1:6], full[2:7]}
	_, unitigs := buildGraph(t, reads, true, 1)
	require.Len(t, unitigs, 1)
	require.Equal(t, canonicalOf(full), canonicalOf(unitigs[0]))
}

// Scenario 4: clipping tips from the two-way-branch graph leaves only the
// shared core.
func TestSimplifyClipTips(t *testing.T) {
	setK(t, 4, 2)
	g, _ := buildGraph(t, []string{"ACTGA", "ACTGC"}, true, 1)
	require.Equal(t, 3, g.UnitigCount())

	removed := g.ClipTips()
	require.Equal(t, 2, removed)
	require.Equal(t, 1, g.UnitigCount())

	var remaining string
	g.Each(func(_ int64, u Unitig[struct{}]) { remaining = u.Seq.String() })
	require.Equal(t, canonicalOf("ACTG"), canonicalOf(remaining))
}

// Scenario 5: a unitig of exactly length 2k-1 (7, at k=4) survives
// isolated-removal; one shorter than that does not.
func TestSimplifyDeleteIsolatedBoundary(t *testing.T) {
	setK(t, 4, 2)

	gSurvives, _ := buildGraph(t, []string{"ACTGATC"}, true, 1)
	require.Equal(t, 1, gSurvives.UnitigCount())
	removed := gSurvives.DeleteIsolated()
	require.Equal(t, 0, removed)
	require.Equal(t, 1, gSurvives.UnitigCount())

	gRemoved, _ := buildGraph(t, []string{"ACTGAT"}, true, 1)
	require.Equal(t, 1, gRemoved.UnitigCount())
	removed = gRemoved.DeleteIsolated()
	require.Equal(t, 1, removed)
	require.Equal(t, 0, gRemoved.UnitigCount())
}

// Scenario 6: in non-reference mode, a k-mer observed only once across
// the whole input never reaches the graph, while one observed twice
// does.
func TestBuildFilterCascadeDropsSingletons(t *testing.T) {
	setK(t, 4, 2)
	reads := []string{"ACTGA", "ACTGA", "CCCCA"}
	g, unitigs := buildGraph(t, reads, false, 1)
	require.Len(t, unitigs, 1)
	require.Equal(t, canonicalOf("ACTGA"), canonicalOf(unitigs[0]))

	once, err := kmer.FromString("CCCC")
	require.NoError(t, err)
	require.True(t, g.Find(once).IsEmpty)

	twice, err := kmer.FromString("ACTG")
	require.NoError(t, err)
	require.False(t, g.Find(twice).IsEmpty)
}

// Building the same input at different thread counts must yield the same
// canonical unitig set.
func TestBuildDeterministicAcrossThreadCounts(t *testing.T) {
	setK(t, 4, 2)
	reads := []string{"ACTGA", "ACTGC", "ACTGATC"[0:5], "ACTGATC"[1:6], "ACTGATC"[2:7]}

	var last []string
	for _, threads := range []int{1, 4, 16} {
		_, unitigs := buildGraph(t, reads, true, threads)
		var canon []string
		for _, u := range unitigs {
			canon = append(canon, canonicalOf(u))
		}
		sort.Strings(canon)
		if last != nil {
			require.Equal(t, last, canon, "thread count %d produced a different unitig set", threads)
		}
		last = canon
	}
}
