// Package reads implements the chunked sequence-file producer
// (ReadFeeder): FASTA/FASTQ scanning with transparent decompression, and
// a concurrent-safe chunk puller over the resulting ACGT-segmented reads.
package reads

import (
	"bufio"
	"io"
)

const maxLineBytes = 256 * 1024 * 1024

// FastaScanner yields the sequence (header line discarded) of each FASTA
// record in turn. Multi-line records are joined into one string.
type FastaScanner struct {
	b   *bufio.Scanner
	err error
}

// NewFastaScanner wraps r as a stream of FASTA records.
func NewFastaScanner(r io.Reader) *FastaScanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &FastaScanner{b: b}
}

// Scan returns the next record's sequence, or ok=false once the stream is
// exhausted (check Err to distinguish clean EOF from a read error).
func (s *FastaScanner) Scan() (string, bool) {
	if s.err != nil {
		return "", false
	}
	var buf []byte
	for s.b.Scan() {
		line := s.b.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if len(buf) > 0 {
				return string(buf), true
			}
			continue
		}
		buf = append(buf, line...)
	}
	s.err = s.b.Err()
	if len(buf) > 0 {
		return string(buf), true
	}
	return "", false
}

// Err reports any scanning error (nil on clean EOF).
func (s *FastaScanner) Err() error { return s.err }
