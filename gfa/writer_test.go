package gfa

import (
	"bufio"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efedo/bifrost/cdbg"
	"github.com/efedo/bifrost/kmer"
)

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
	out := s.reads[:n]
	s.reads = s.reads[n:]
	return out, true
}

func buildGraph(t *testing.T, reads []string, ref bool) *cdbg.CompactedDBG[struct{}] {
	t.Helper()
	require.NoError(t, kmer.SetK(4))
	require.NoError(t, kmer.SetG(2))
	g := cdbg.New[struct{}](nil, nil)
	src := &sliceSource{reads: append([]string(nil), reads...)}
	cdbg.Build(g, src, cdbg.BuildParams{
		NKmers: 1000, NKmers2: 1000,
		BitsPerKmer1: 12, BitsPerKmer2: 12,
		Ref: ref, Threads: 1, ChunkSize: 1,
	}, nil)
	return g
}

func linesOfKind(out, prefix string) []string {
	var got []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), prefix) {
			got = append(got, sc.Text())
		}
	}
	return got
}

func TestWriteHeaderAndSegments(t *testing.T) {
	g := buildGraph(t, []string{"ACTGAACGGCA"}, true)

	var buf strings.Builder
	require.NoError(t, Write(&buf, g))
	out := buf.String()

	require.True(t, strings.HasPrefix(out, "H\tVN:Z:1.0\n"))
	require.Len(t, linesOfKind(out, "S\t"), 1)
}

func TestWriteNoLinksForDisjointUnitigs(t *testing.T) {
	g := buildGraph(t, []string{"ACTGA", "CCCCA"}, true)

	var buf strings.Builder
	require.NoError(t, Write(&buf, g))
	out := buf.String()

	require.Len(t, linesOfKind(out, "S\t"), 2)
	require.Empty(t, linesOfKind(out, "L\t"))
}

func TestWriteLinkBetweenBranchingUnitigs(t *testing.T) {
	// Two reads sharing a 4-base prefix that branches at the 5th base
	// produce three unitigs at k=4: a shared stem and two one-base tips,
	// each linked to the stem but not to each other.
	g := buildGraph(t, []string{"ACTGA", "ACTGC"}, true)

	var buf strings.Builder
	require.NoError(t, Write(&buf, g))
	out := buf.String()

	require.Len(t, linesOfKind(out, "S\t"), 3)
	links := linesOfKind(out, "L\t")
	require.Len(t, links, 2)
	for _, l := range links {
		fields := strings.Split(l, "\t")
		require.Equal(t, "3M", fields[5])
	}
}

func TestWriteLinksAreDeduplicated(t *testing.T) {
	g := buildGraph(t, []string{"ACTGA", "ACTGC"}, true)

	var buf strings.Builder
	require.NoError(t, Write(&buf, g))
	links := linesOfKind(buf.String(), "L\t")

	seen := make(map[string]bool)
	for _, l := range links {
		require.False(t, seen[l], "duplicate link line: %s", l)
		seen[l] = true
	}
}
