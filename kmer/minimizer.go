package kmer

import (
	"github.com/pkg/errors"

	"github.com/efedo/bifrost/internal/dnabits"
)

var gLen int

// SetG fixes the minimizer length for the remainder of the process. Must
// be called after SetK, with g < k.
func SetG(g int) error {
	if g <= 0 || g >= MaxKmerSize {
		return errors.Errorf("kmer: g=%d must satisfy 0 < g < %d", g, MaxKmerSize)
	}
	if kLen > 0 && g >= kLen {
		return errors.Errorf("kmer: g=%d must be strictly less than k=%d", g, kLen)
	}
	gLen = g
	return nil
}

// G returns the process-wide minimizer length set by SetG.
func G() int { return gLen }

// MWord is a packed minimizer: g symbols from {A,C,G,T}, same 2-bit
// encoding and limb layout as Word but over the shorter length g.
type MWord struct {
	limbs [maxLimbs]uint64
}

// MFromString builds an MWord from an exactly-g-length ACGT string.
func MFromString(s string) (MWord, error) {
	var w MWord
	if len(s) != gLen {
		return w, errors.Errorf("kmer: MFromString requires length %d, got %d", gLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := dnabits.ToCode[s[i]]
		if c == dnabits.InvalidCode {
			return MWord{}, errors.Wrapf(ErrInvalidSymbol, "character %q at position %d", s[i], i)
		}
		w.setCodeAt(i, c)
	}
	return w, nil
}

func (w MWord) codeAt(i int) uint8 {
	pos := gLen - 1 - i
	limb := pos / basesPerLimb
	off := uint(pos%basesPerLimb) * bitsPerBase
	return uint8((w.limbs[limb] >> off) & 3)
}

func (w *MWord) setCodeAt(i int, c uint8) {
	pos := gLen - 1 - i
	limb := pos / basesPerLimb
	off := uint(pos%basesPerLimb) * bitsPerBase
	w.limbs[limb] = (w.limbs[limb] &^ (uint64(3) << off)) | (uint64(c) << off)
}

// String reconstructs the minimizer's ASCII representation.
func (w MWord) String() string {
	buf := make([]byte, gLen)
	for i := 0; i < gLen; i++ {
		buf[i] = dnabits.ACGT[w.codeAt(i)]
	}
	return string(buf)
}

// Twin returns the reverse-complement of w, by the same per-limb
// dnabits.ReverseComplementWord64 plus realigning shift as Word.Twin.
func (w MWord) Twin() MWord {
	n := usedLimbs(gLen)
	var out MWord
	for i := 0; i < n; i++ {
		out.limbs[n-1-i] = dnabits.ReverseComplementWord64(w.limbs[i])
	}
	if pad := uint(n*basesPerLimb-gLen) * bitsPerBase; pad > 0 {
		twinShiftRight(&out.limbs, n, pad)
	}
	return out
}

// Rep returns the canonical (lexicographically smaller) form of w.
func (w MWord) Rep() MWord {
	t := w.Twin()
	if t.Less(w) {
		return t
	}
	return w
}

// Less reports lexicographic order, equivalent to unsigned comparison of
// the packed limbs from the most significant active limb down.
func (w MWord) Less(o MWord) bool {
	n := usedLimbs(gLen)
	for i := n - 1; i >= 0; i-- {
		if w.limbs[i] != o.limbs[i] {
			return w.limbs[i] < o.limbs[i]
		}
	}
	return false
}

// Equal reports whether w and o encode the same symbols.
func (w MWord) Equal(o MWord) bool {
	n := usedLimbs(gLen)
	for i := 0; i < n; i++ {
		if w.limbs[i] != o.limbs[i] {
			return false
		}
	}
	return true
}

// Bytes returns the packed little-endian byte representation of the
// active limbs.
func (w MWord) Bytes() []byte {
	n := usedLimbs(gLen)
	buf := make([]byte, n*8)
	for i := 0; i < n; i++ {
		v := w.limbs[i]
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(v >> (8 * uint(j)))
		}
	}
	return buf
}

// Minimizer returns the minimizer of w: the lexicographically smallest
// canonical g-mer among w's k-g+1 overlapping g-length windows, ties
// broken by earliest position.
func (w Word) Minimizer() MWord {
	best := w.windowMinimizer(0)
	nWindows := kLen - gLen + 1
	for i := 1; i < nWindows; i++ {
		cand := w.windowMinimizer(i)
		if cand.Less(best) {
			best = cand
		}
	}
	return best
}

// windowMinimizer extracts the canonical g-mer starting at string-position
// offset within w.
func (w Word) windowMinimizer(offset int) MWord {
	var m MWord
	for i := 0; i < gLen; i++ {
		m.setCodeAt(i, w.codeAt(offset+i))
	}
	return m.Rep()
}
