// Package kmer implements the fixed-size, 2-bit-packed DNA word used
// throughout the graph: Word (a k-mer) and MWord (a minimizer, a shorter
// word of the same encoding). Both types share a single process-wide
// length, set once via SetK/SetG before any graph construction starts —
// matching the C++ original's Kmer::set_k(k) static configuration.
package kmer

import (
	"fmt"

	"blainsmith.com/go/seahash"
	"github.com/pkg/errors"

	"github.com/efedo/bifrost/internal/dnabits"
)

// MaxKmerSize is the compile-time upper bound on k (and g). Both must be
// strictly less than this value.
const MaxKmerSize = 128

const bitsPerBase = 2
const basesPerLimb = 64 / bitsPerBase // 32

// maxLimbs is the number of uint64 limbs needed to hold MaxKmerSize bases.
const maxLimbs = (MaxKmerSize*bitsPerBase + 63) / 64

// ErrInvalidSymbol is returned by FromString when a character outside
// {A,C,G,T,a,c,g,t} is encountered.
var ErrInvalidSymbol = errors.New("invalid symbol: kmer strings must be over {A,C,G,T}")

var kLen int

// SetK fixes the k-mer length for the remainder of the process. It must be
// called exactly once, before any Word is constructed, and before any
// worker goroutines start (mirrors the C++ Kmer::set_k contract).
func SetK(k int) error {
	if k <= 0 || k >= MaxKmerSize {
		return errors.Errorf("kmer: k=%d must satisfy 0 < k < %d", k, MaxKmerSize)
	}
	kLen = k
	return nil
}

// K returns the process-wide k-mer length set by SetK.
func K() int { return kLen }

// Word is a packed k-mer: k symbols from {A,C,G,T}, 2 bits each, stored
// limb[0]-first-is-least-significant (limb[0] holds the rightmost 32
// bases of the k-mer, the highest-index active limb holds the leftmost
// bases, zero-padded in its unused high bits).
type Word struct {
	limbs [maxLimbs]uint64
}

func usedLimbs(length int) int {
	return (length*bitsPerBase + 63) / 64
}

// topLimbBits returns the number of meaningful bits in the most
// significant active limb for a word of the given symbol length.
func topLimbBits(length int) uint {
	n := usedLimbs(length)
	used := uint(n-1) * 64
	return uint(length)*bitsPerBase - used
}

// FromString builds a Word from an exactly-k-length ACGT string (any case).
func FromString(s string) (Word, error) {
	var w Word
	if len(s) != kLen {
		return w, errors.Errorf("kmer: FromString requires length %d, got %d", kLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := dnabits.ToCode[s[i]]
		if c == dnabits.InvalidCode {
			return Word{}, errors.Wrapf(ErrInvalidSymbol, "character %q at position %d", s[i], i)
		}
		w.setCodeAt(i, c)
	}
	return w, nil
}

// codeAt returns the 2-bit code of the symbol at string-position i (0 =
// first/leftmost symbol).
func (w Word) codeAt(i int) uint8 {
	pos := kLen - 1 - i
	limb := pos / basesPerLimb
	off := uint(pos%basesPerLimb) * bitsPerBase
	return uint8((w.limbs[limb] >> off) & 3)
}

func (w *Word) setCodeAt(i int, c uint8) {
	pos := kLen - 1 - i
	limb := pos / basesPerLimb
	off := uint(pos%basesPerLimb) * bitsPerBase
	w.limbs[limb] = (w.limbs[limb] &^ (uint64(3) << off)) | (uint64(c) << off)
}

// String reconstructs the k-mer's ASCII representation.
func (w Word) String() string {
	buf := make([]byte, kLen)
	for i := 0; i < kLen; i++ {
		buf[i] = dnabits.ACGT[w.codeAt(i)]
	}
	return string(buf)
}

// twinShiftRight right-shifts the n active limbs of a little-endian-limb
// bignum by bits (0 <= bits < 64), carrying bits down from limb i+1 into
// limb i. Same carry shape as BackwardBase's fixed 2-bit shift, generalized
// to an arbitrary shift amount.
func twinShiftRight(limbs *[maxLimbs]uint64, n int, bits uint) {
	for i := 0; i < n; i++ {
		limbs[i] >>= bits
		if i+1 < n {
			limbs[i] |= limbs[i+1] << (64 - bits)
		}
	}
}

// Twin returns the reverse-complement of w. Twin(Twin(x)) == x.
//
// This runs one dnabits.ReverseComplementWord64 per limb rather than a
// per-symbol loop, so it costs O(k/32) word operations instead of O(k).
// Per-limb reverse-complementing a full 32-base limb and swapping limb
// order alone only gives the right answer when k is a multiple of 32;
// otherwise the top limb's unused high bits end up reverse-complemented
// into the wrong end of the result, so the whole multi-limb value is then
// shifted right by the padding width to realign it.
func (w Word) Twin() Word {
	n := usedLimbs(kLen)
	var out Word
	for i := 0; i < n; i++ {
		out.limbs[n-1-i] = dnabits.ReverseComplementWord64(w.limbs[i])
	}
	if pad := uint(n*basesPerLimb-kLen) * bitsPerBase; pad > 0 {
		twinShiftRight(&out.limbs, n, pad)
	}
	return out
}

// Rep returns the canonical form: the lexicographically smaller of w and
// w.Twin().
func (w Word) Rep() Word {
	t := w.Twin()
	if t.Less(w) {
		return t
	}
	return w
}

// ForwardBase drops the first symbol and appends b, keeping length k.
func (w Word) ForwardBase(b byte) Word {
	c := dnabits.ToCode[b]
	if c == dnabits.InvalidCode {
		panic(ErrInvalidSymbol)
	}
	n := usedLimbs(kLen)
	out := w
	carry := uint64(0)
	for i := 0; i < n; i++ {
		newCarry := out.limbs[i] >> 62
		out.limbs[i] = (out.limbs[i] << 2) | carry
		carry = newCarry
	}
	out.limbs[0] |= uint64(c)
	top := topLimbBits(kLen)
	if top < 64 {
		out.limbs[n-1] &= (uint64(1) << top) - 1
	}
	return out
}

// BackwardBase prepends b and drops the last symbol, keeping length k.
func (w Word) BackwardBase(b byte) Word {
	c := dnabits.ToCode[b]
	if c == dnabits.InvalidCode {
		panic(ErrInvalidSymbol)
	}
	n := usedLimbs(kLen)
	out := w
	carry := uint64(0)
	for i := n - 1; i >= 0; i-- {
		newCarry := out.limbs[i] & 3
		out.limbs[i] = (out.limbs[i] >> 2) | (carry << 62)
		carry = newCarry
	}
	top := topLimbBits(kLen)
	out.limbs[n-1] |= uint64(c) << (top - 2)
	return out
}

// Less reports whether w sorts before o in lexicographic symbol order,
// equivalently unsigned integer order of the packed limbs compared from
// the most significant active limb down.
func (w Word) Less(o Word) bool {
	n := usedLimbs(kLen)
	for i := n - 1; i >= 0; i-- {
		if w.limbs[i] != o.limbs[i] {
			return w.limbs[i] < o.limbs[i]
		}
	}
	return false
}

// Equal reports whether w and o encode the same symbols.
func (w Word) Equal(o Word) bool {
	n := usedLimbs(kLen)
	for i := 0; i < n; i++ {
		if w.limbs[i] != o.limbs[i] {
			return false
		}
	}
	return true
}

// Bytes returns the packed little-endian byte representation of the
// active limbs, used for hashing and persistence.
func (w Word) Bytes() []byte {
	n := usedLimbs(kLen)
	buf := make([]byte, n*8)
	for i := 0; i < n; i++ {
		v := w.limbs[i]
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(v >> (8 * uint(j)))
		}
	}
	return buf
}

// Hash is a strong non-cryptographic 64-bit hash over the packed content
// of w. It does not by itself satisfy Hash(x) == Hash(Twin(x)); callers
// that need canonical hashing should call HashCanonical, or hash Rep().
func (w Word) Hash() uint64 {
	return seahash.Sum64(w.Bytes())
}

// HashCanonical hashes the canonical form of w, so HashCanonical(x) ==
// HashCanonical(Twin(x)) always.
func (w Word) HashCanonical() uint64 {
	return w.Rep().Hash()
}

// GoString supports %#v in error messages and test failures.
func (w Word) GoString() string {
	return fmt.Sprintf("kmer.Word(%q)", w.String())
}
