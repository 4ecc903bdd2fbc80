package kmer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimizerIsSmallestCanonicalWindow(t *testing.T) {
	require.NoError(t, SetK(10))
	require.NoError(t, SetG(4))

	w, err := FromString("ACGTACGTAC")
	require.NoError(t, err)

	got := w.Minimizer()

	// Brute-force the same answer directly over the ASCII string.
	s := w.String()
	var want MWord
	set := false
	for i := 0; i+gLen <= len(s); i++ {
		sub := s[i : i+gLen]
		mw, err := MFromString(sub)
		require.NoError(t, err)
		rep := mw.Rep()
		if !set || rep.Less(want) {
			want = rep
			set = true
		}
	}
	assert.Equal(t, want.String(), got.String())
}

func TestMinimizerLengthLessThanK(t *testing.T) {
	require.NoError(t, SetK(8))
	assert.Error(t, SetG(8))
	assert.Error(t, SetG(9))
	assert.NoError(t, SetG(5))
}

func TestMWordTwinInvolution(t *testing.T) {
	require.NoError(t, SetK(12))
	require.NoError(t, SetG(6))
	s := "GATTACA"[:gLen]
	if len(s) < gLen {
		s = strings.Repeat("A", gLen)
	}
	m, err := MFromString(s)
	require.NoError(t, err)
	assert.Equal(t, m, m.Twin().Twin())
}
