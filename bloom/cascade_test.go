package bloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Mirrors spec scenario 6 ("filter cascade"): a k-mer seen once must not
// register as a member, one seen twice must.
func TestCascadeSeenOnceVsTwice(t *testing.T) {
	c := NewCascade(1000, 14, 1000, 14, 21, false)

	seenOnce := []byte("kmer-seen-once-key")
	seenTwice := []byte("kmer-seen-twice-key")

	c.Observe(seenOnce)
	c.Observe(seenTwice)
	c.Observe(seenTwice)

	assert.False(t, c.Member(seenOnce), "a k-mer observed once must not pass the cascade")
	assert.True(t, c.Member(seenTwice), "a k-mer observed twice must pass the cascade")
}

func TestCascadeReferenceModeBypassesSecondStage(t *testing.T) {
	c := NewCascade(1000, 14, 1000, 14, 21, true)
	assert.Nil(t, c.Second())

	key := []byte("single-pass-in-ref-mode")
	c.Observe(key)
	assert.True(t, c.Member(key), "reference mode should admit a k-mer after a single observation")
}

func TestCascadeAbsentKeyIsNotAMember(t *testing.T) {
	c := NewCascade(1000, 14, 1000, 14, 21, false)
	assert.False(t, c.Member([]byte("never-observed")))
}
