package reads

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0644))
	return p
}

func drain(f *Feeder, chunk int) []string {
	var all []string
	for {
		got, ok := f.NextChunk(chunk)
		if !ok {
			return all
		}
		all = append(all, got...)
	}
}

func TestFeederScansFastaFile(t *testing.T) {
	p := writeTemp(t, "reads.fasta", ">r1\nACTGNNATCG\n>r2\nGGGG\n")
	f, err := NewFeeder(context.Background(), []string{p})
	require.NoError(t, err)

	got := drain(f, 1)
	sort.Strings(got)
	require.Equal(t, []string{"ACTG", "ATCG", "GGGG"}, got)
	require.Equal(t, 3, f.Len())
}

func TestFeederScansFastqFile(t *testing.T) {
	p := writeTemp(t, "reads.fastq", "@r1\nACTG\n+\nIIII\n@r2\nGGGG\n+\nJJJJ\n")
	f, err := NewFeeder(context.Background(), []string{p})
	require.NoError(t, err)

	got := drain(f, 2)
	sort.Strings(got)
	require.Equal(t, []string{"ACTG", "GGGG"}, got)
}

func TestFeederScansMultipleFiles(t *testing.T) {
	p1 := writeTemp(t, "a.fasta", ">a\nACGT\n")
	p2 := writeTemp(t, "b.fastq", "@b\nTTTT\n+\nIIII\n")
	f, err := NewFeeder(context.Background(), []string{p1, p2})
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())
}

func TestFeederNextChunkConcurrentCallersPartitionRange(t *testing.T) {
	var contents string
	for i := 0; i < 50; i++ {
		contents += ">r\nACGT\n"
	}
	p := writeTemp(t, "many.fasta", contents)
	f, err := NewFeeder(context.Background(), []string{p})
	require.NoError(t, err)
	require.Equal(t, 50, f.Len())

	results := make(chan []string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			var mine []string
			for {
				got, ok := f.NextChunk(3)
				if !ok {
					break
				}
				mine = append(mine, got...)
			}
			results <- mine
		}()
	}
	total := 0
	for i := 0; i < 8; i++ {
		total += len(<-results)
	}
	require.Equal(t, 50, total)

	_, ok := f.NextChunk(1)
	require.False(t, ok)
}

func TestFeederNonexistentFile(t *testing.T) {
	_, err := NewFeeder(context.Background(), []string{"/nonexistent/path/reads.fasta"})
	require.Error(t, err)
}
