package bloom

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKeys(n int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	out := make([][]byte, n)
	for i := range out {
		buf := make([]byte, 16)
		r.Read(buf)
		out[i] = buf
	}
	return out
}

func TestInsertThenContains(t *testing.T) {
	f := New(10000, 14, 31)
	keys := randomKeys(2000, 1)
	for _, k := range keys {
		f.Insert(k)
	}
	for _, k := range keys {
		assert.True(t, f.Contains(k), "inserted key must be reported present")
	}
}

func TestInsertReturnsNewOnlyOnce(t *testing.T) {
	f := New(1000, 14, 31)
	key := []byte("a-single-test-key")
	assert.True(t, f.Insert(key), "first insert of a key should be new")

	// Re-inserting the same key: every probed bit is already set, so
	// Insert reports the key as not new.
	assert.False(t, f.Insert(key), "second insert of the same key should not be new")
}

func TestFalseNegativeFreeAfterInsert(t *testing.T) {
	f := New(5000, 16, 21)
	keys := randomKeys(500, 2)
	absent := randomKeys(500, 3)

	for _, k := range keys {
		f.Insert(k)
	}
	for _, k := range keys {
		require.True(t, f.Contains(k))
	}
	// absent keys may collide (false positives are allowed), but we
	// expect the overwhelming majority to be reported absent at this
	// load factor.
	falsePositives := 0
	for _, k := range absent {
		if f.Contains(k) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, len(absent)/2, "false positive rate should be well under 50%% at this load factor")
}

func TestConcurrentInsert(t *testing.T) {
	f := New(20000, 14, 25)
	keys := randomKeys(4000, 4)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; i < len(keys); i += 8 {
				f.Insert(keys[i])
			}
		}(w)
	}
	wg.Wait()

	for _, k := range keys {
		assert.True(t, f.Contains(k))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := New(1000, 14, 27)
	keys := randomKeys(200, 5)
	for _, k := range keys {
		f.Insert(k)
	}

	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))

	loaded, err := Load(&buf, 27)
	require.NoError(t, err)
	assert.Equal(t, f.NumBlocks(), loaded.NumBlocks())
	assert.Equal(t, f.Probes(), loaded.Probes())
	for _, k := range keys {
		assert.True(t, loaded.Contains(k))
	}
}

func TestLoadRejectsWrongK(t *testing.T) {
	f := New(100, 14, 11)
	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))

	_, err := Load(&buf, 31)
	assert.ErrorIs(t, err, ErrInvalidFilterFormat)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader(make([]byte, 28)), 31)
	assert.ErrorIs(t, err, ErrInvalidFilterFormat)
}

func TestNumBlocksIsPowerOfTwo(t *testing.T) {
	for _, n := range []uint64{1, 3, 100, 12345, 999999} {
		f := New(n, 14, 31)
		b := f.NumBlocks()
		assert.Equal(t, b&(b-1), 0, "NumBlocks() must be a power of two, got %d for n=%d", b, n)
	}
}
