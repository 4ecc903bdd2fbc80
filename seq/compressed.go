// Package seq implements CompressedSequence, a variable-length 2-bit
// packed DNA sequence supporting substring extraction, reverse-complement,
// in-place overwrite of a subrange, and k-mer extraction.
package seq

import (
	"github.com/pkg/errors"

	"github.com/efedo/bifrost/internal/dnabits"
	"github.com/efedo/bifrost/kmer"
)

const bitsPerBase = 2
const basesPerByte = 8 / bitsPerBase // 4

// Sequence is a packed, variable-length DNA sequence. The zero value is
// the empty sequence.
type Sequence struct {
	data []byte // basesPerByte bases per byte, first base in the high bits
	n    int    // number of bases
}

// New builds a Sequence from an ACGT string (any case).
func New(s string) (Sequence, error) {
	var out Sequence
	out.data = make([]byte, (len(s)+basesPerByte-1)/basesPerByte)
	out.n = len(s)
	for i := 0; i < len(s); i++ {
		c := dnabits.ToCode[s[i]]
		if c == dnabits.InvalidCode {
			return Sequence{}, errors.Errorf("seq: invalid symbol %q at position %d", s[i], i)
		}
		out.setCodeAt(i, c)
	}
	return out, nil
}

func (s Sequence) codeAt(i int) uint8 {
	byteIdx := i / basesPerByte
	shift := uint(6 - 2*(i%basesPerByte))
	return (s.data[byteIdx] >> shift) & 3
}

func (s *Sequence) setCodeAt(i int, c uint8) {
	byteIdx := i / basesPerByte
	shift := uint(6 - 2*(i%basesPerByte))
	s.data[byteIdx] = (s.data[byteIdx] &^ (3 << shift)) | (c << shift)
}

// Len returns the number of bases in s.
func (s Sequence) Len() int { return s.n }

// String reconstructs the full ASCII sequence.
func (s Sequence) String() string {
	buf := make([]byte, s.n)
	for i := 0; i < s.n; i++ {
		buf[i] = dnabits.ACGT[s.codeAt(i)]
	}
	return string(buf)
}

// Substring returns the ASCII bases in [start, start+length).
func (s Sequence) Substring(start, length int) (string, error) {
	if start < 0 || length < 0 || start+length > s.n {
		return "", errors.Errorf("seq: substring [%d,%d) out of range for length %d", start, start+length, s.n)
	}
	buf := make([]byte, length)
	for i := 0; i < length; i++ {
		buf[i] = dnabits.ACGT[s.codeAt(start+i)]
	}
	return string(buf), nil
}

// Rev returns the reverse-complement of s.
func (s Sequence) Rev() Sequence {
	out := Sequence{data: make([]byte, len(s.data)), n: s.n}
	for i := 0; i < s.n; i++ {
		out.setCodeAt(s.n-1-i, s.codeAt(i)^3)
	}
	return out
}

// SetSequence overwrites [offset, offset+length) of s with m (an ACGT
// string of exactly `length` bases). If rc is true, the reverse-complement
// of m is written instead.
func (s *Sequence) SetSequence(m string, offset, length int, rc bool) error {
	if len(m) != length {
		return errors.Errorf("seq: SetSequence requires len(m)=%d to equal length=%d", len(m), length)
	}
	if offset < 0 || offset+length > s.n {
		return errors.Errorf("seq: SetSequence range [%d,%d) out of bounds for length %d", offset, offset+length, s.n)
	}
	src := m
	if rc {
		buf := make([]byte, length)
		dnabits.ReverseComplementASCII(buf, []byte(m))
		src = string(buf)
	}
	for i := 0; i < length; i++ {
		c := dnabits.ToCode[src[i]]
		if c == dnabits.InvalidCode {
			return errors.Errorf("seq: invalid symbol %q at position %d", src[i], i)
		}
		s.setCodeAt(offset+i, c)
	}
	return nil
}

// Kmer extracts the kmer.Word starting at position pos (length
// kmer.K()).
func (s Sequence) Kmer(pos int) (kmer.Word, error) {
	k := kmer.K()
	sub, err := s.Substring(pos, k)
	if err != nil {
		return kmer.Word{}, errors.Wrap(err, "seq: Kmer")
	}
	return kmer.FromString(sub)
}

// Equal reports whether s and o encode identical sequences.
func (s Sequence) Equal(o Sequence) bool {
	if s.n != o.n {
		return false
	}
	for i := 0; i < s.n; i++ {
		if s.codeAt(i) != o.codeAt(i) {
			return false
		}
	}
	return true
}
