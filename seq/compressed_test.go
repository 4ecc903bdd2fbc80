package seq

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efedo/bifrost/kmer"
)

func randomDNA(r *rand.Rand, n int) string {
	letters := "ACGT"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = letters[r.Intn(4)]
	}
	return string(buf)
}

func reverseComplementString(s string) string {
	comp := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A'}
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		buf[i] = comp[s[len(s)-1-i]]
	}
	return string(buf)
}

// Mirrors original_source/tests/CompressedSequenceTest.cpp.
func TestRoundTripAndRev(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := randomDNA(r, 1<<10)

	c1, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, s, c1.String())

	c2 := c1.Rev()
	assert.Equal(t, reverseComplementString(s), c2.String())
	assert.Equal(t, c1, c2.Rev())
}

func TestSetSequence(t *testing.T) {
	c3, err := New("TTTTTTTT")
	require.NoError(t, err)

	require.NoError(t, c3.SetSequence("CCCG", 4, 4, false))
	assert.Equal(t, "TTTTCCCG", c3.String())

	require.NoError(t, c3.SetSequence("CCCG", 4, 4, true))
	assert.Equal(t, "TTTTCGGG", c3.String())
}

func TestKmerExtraction(t *testing.T) {
	require.NoError(t, kmer.SetK(4))
	c3, err := New("TTTTCGGG")
	require.NoError(t, err)

	km, err := c3.Kmer(4)
	require.NoError(t, err)
	assert.Equal(t, "CGGG", km.String())
}

func TestSubstringOutOfRange(t *testing.T) {
	c, err := New("ACGT")
	require.NoError(t, err)
	_, err = c.Substring(2, 10)
	assert.Error(t, err)
}
