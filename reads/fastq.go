package reads

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// ErrMalformedFastq is returned by FastqScanner when a record doesn't
// follow the @id / seq / +unk / qual four-line structure.
var ErrMalformedFastq = errors.New("reads: malformed FASTQ record")

// FastqScanner yields the sequence line of each FASTQ record. The ID
// and "+" lines are checked only for their '@' and '+' prefixes, and the
// quality line is read without any check; all three are discarded:
// ReadFeeder only needs sequence content.
type FastqScanner struct {
	b   *bufio.Scanner
	err error
}

// NewFastqScanner wraps r as a stream of FASTQ records.
func NewFastqScanner(r io.Reader) *FastqScanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &FastqScanner{b: b}
}

func (s *FastqScanner) scanLine() ([]byte, bool) {
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = io.EOF
		}
		return nil, false
	}
	return s.b.Bytes(), true
}

// Scan returns the next record's sequence, or ok=false once the stream is
// exhausted or malformed (check Err to distinguish clean EOF from an
// error).
func (s *FastqScanner) Scan() (string, bool) {
	if s.err != nil {
		return "", false
	}
	id, ok := s.scanLine()
	if !ok {
		return "", false
	}
	if len(id) == 0 || id[0] != '@' {
		s.err = ErrMalformedFastq
		return "", false
	}
	seqLine, ok := s.scanLine()
	if !ok {
		return "", false
	}
	seq := string(seqLine)

	plus, ok := s.scanLine()
	if !ok {
		return "", false
	}
	if len(plus) == 0 || plus[0] != '+' {
		s.err = ErrMalformedFastq
		return "", false
	}
	if _, ok := s.scanLine(); !ok {
		return "", false
	}
	return seq, true
}

// Err reports any scanning error (nil on clean EOF).
func (s *FastqScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
