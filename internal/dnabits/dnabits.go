// Package dnabits holds the small set of byte-level lookup tables shared by
// kmer and seq: ASCII<->2-bit code translation and the reverse-complement
// bit-tricks used to flip a packed machine word of base codes.
//
// This replaces the teacher's biosimd package, which specializes in .bam
// 4-bit-nibble encodings and amd64 SIMD dispatch; neither applies to the
// 2-bit DNA-only encoding used here. The technique is the same one
// biosimd/revcomp_generic.go and fusion/kmer.go use: a byte table for
// classification/complement, and a mechanical bit-reversal for packed words.
package dnabits

// InvalidCode marks an ASCII byte that isn't A/C/G/T in either case.
const InvalidCode = uint8(0xff)

// ACGT maps the 2-bit code (0..3) back to its upper-case ASCII letter.
var ACGT = [4]byte{'A', 'C', 'G', 'T'}

// ToCode maps an ASCII base to its 2-bit code (A=0,C=1,G=2,T=3), or
// InvalidCode for anything else.
var ToCode [256]uint8

// ToComplementCode maps an ASCII base directly to the 2-bit code of its
// Watson-Crick complement (A<->T, C<->G).
var ToComplementCode [256]uint8

// complementOfCode maps a 2-bit code to the 2-bit code of its complement.
// For the A=0,C=1,G=2,T=3 assignment this is simply XOR 3.
func complementOfCode(c uint8) uint8 { return c ^ 3 }

func init() {
	for i := range ToCode {
		ToCode[i] = InvalidCode
		ToComplementCode[i] = InvalidCode
	}
	set := func(upper, lower byte, code uint8) {
		ToCode[upper] = code
		ToCode[lower] = code
		ToComplementCode[upper] = complementOfCode(code)
		ToComplementCode[lower] = complementOfCode(code)
	}
	set('A', 'a', 0)
	set('C', 'c', 1)
	set('G', 'g', 2)
	set('T', 't', 3)
}

// revByteTable2 reverses the order of the four 2-bit fields packed into a
// byte, i.e. field 0 (low bits) swaps with field 3 (high bits), and field 1
// swaps with field 2. Combined with byte-order reversal across a word, this
// reverses the order of all 2-bit fields in the word.
var revByteTable2 [256]byte

func init() {
	for b := 0; b < 256; b++ {
		v := byte(b)
		r := ((v & 0x03) << 6) | ((v & 0x0c) << 2) | ((v & 0x30) >> 2) | ((v & 0xc0) >> 6)
		revByteTable2[b] = r
	}
}

// ReverseBytePairs reverses the order of the 2-bit fields within a single
// byte (4 bases/byte).
func ReverseBytePairs(b byte) byte { return revByteTable2[b] }

// ReverseComplementWord64 reverses the order of the 32 2-bit base codes
// packed into w (lowest-order pair is base 0) and complements every code
// (XOR 3 per pair, equivalently XOR the whole word with the all-ones mask).
// Each byte's 2-bit fields are reversed through a lookup table and the
// byte is placed at the mirrored byte position, then the word is
// complemented: a fixed eight lookups per packed k-mer word.
func ReverseComplementWord64(w uint64) uint64 {
	// Reverse the 2-bit fields within each byte.
	var out uint64
	for i := 0; i < 8; i++ {
		b := byte(w >> (8 * uint(i)))
		out |= uint64(revByteTable2[b]) << (8 * uint(7-i))
	}
	// Complement every base code: code^3 for all 32 codes is the same as
	// flipping every bit of the word.
	return ^out
}

// ReverseComplementASCII writes the reverse-complement of src into dst.
// len(dst) must equal len(src). Non-ACGT bytes map to 'N'.
func ReverseComplementASCII(dst, src []byte) {
	if len(dst) != len(src) {
		panic("dnabits: ReverseComplementASCII requires len(dst) == len(src)")
	}
	n := len(src)
	for i := 0; i < n; i++ {
		c := ToComplementCode[src[n-1-i]]
		if c == InvalidCode {
			dst[i] = 'N'
			continue
		}
		dst[i] = ACGT[c]
	}
}
