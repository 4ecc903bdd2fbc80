package reads

import (
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	pkgerrors "github.com/pkg/errors"

	"github.com/klauspost/compress/gzip"
)

// sequenceScanner is satisfied by FastaScanner and FastqScanner.
type sequenceScanner interface {
	Scan() (string, bool)
	Err() error
}

// isACGT reports whether b is one of the four bases, either case.
func isACGT(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		return true
	}
	return false
}

// splitACGT breaks s into its maximal runs of ACGT bases (upper-cased),
// dropping ambiguity codes and anything else in between. This is what
// lets cdbg.Build assume every string it sees from a ReadSource is pure
// ACGT.
func splitACGT(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		if isACGT(s[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, strings.ToUpper(s[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, strings.ToUpper(s[start:]))
	}
	return out
}

// isFastq guesses the record format from the file extension (after
// stripping any compression suffix fileio.DetermineType recognizes).
func isFastq(path string) bool {
	base := path
	if fileio.DetermineType(path) == fileio.Gzip {
		base = strings.TrimSuffix(base, ".gz")
	}
	switch {
	case strings.HasSuffix(base, ".fastq"), strings.HasSuffix(base, ".fq"):
		return true
	default:
		return false
	}
}

// Feeder is the chunked sequence-file producer described as ReadFeeder:
// a single-producer scan of every input path (transparently
// gzip-decompressed, FASTA or FASTQ autodetected by extension) into one
// flat slice of ACGT-segmented reads, then a lock-free multi-consumer
// pull over that slice via an atomic cursor. It implements
// cdbg.ReadSource.
type Feeder struct {
	segments []string
	cursor   atomic.Int64
}

// NewFeeder scans every path in order and returns a Feeder ready for
// concurrent NextChunk calls. Scanning itself is sequential and
// single-threaded, matching §9's "single producer at the file layer."
// Close errors from every scanned path are aggregated with a single
// errors.Once, the same pattern bio-fusion uses to make sure a failure
// closing file N doesn't mask a failure closing file N-1.
func NewFeeder(ctx context.Context, paths []string) (*Feeder, error) {
	f := &Feeder{}
	var closeErr errors.Once
	for _, p := range paths {
		if err := f.scanPath(ctx, p, &closeErr); err != nil {
			return nil, pkgerrors.Wrapf(err, "reads: scanning %s", p)
		}
	}
	if err := closeErr.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "reads: closing input")
	}
	log.Printf("reads: loaded %d segments from %d file(s)", len(f.segments), len(paths))
	return f, nil
}

func (f *Feeder) scanPath(ctx context.Context, path string, closeErr *errors.Once) error {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil {
			closeErr.Set(errors.E(cerr, "close", path))
		}
	}()

	var r io.Reader = in.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gr, err := gzip.NewReader(r)
		if err != nil {
			return pkgerrors.Wrap(err, "gzip")
		}
		defer gr.Close()
		r = gr
	}

	var sc sequenceScanner
	if isFastq(path) {
		sc = NewFastqScanner(r)
	} else {
		sc = NewFastaScanner(r)
	}
	for {
		rawSeq, ok := sc.Scan()
		if !ok {
			break
		}
		f.segments = append(f.segments, splitACGT(rawSeq)...)
	}
	return sc.Err()
}

// NextChunk implements cdbg.ReadSource: it claims up to n segments from
// the shared slice via a single atomic add, so concurrent callers never
// contend on a lock and never claim overlapping ranges.
func (f *Feeder) NextChunk(n int) ([]string, bool) {
	if n <= 0 {
		n = 1
	}
	start := f.cursor.Add(int64(n)) - int64(n)
	if start >= int64(len(f.segments)) {
		return nil, false
	}
	end := start + int64(n)
	if end > int64(len(f.segments)) {
		end = int64(len(f.segments))
	}
	return f.segments[start:end], true
}

// Len returns the total number of ACGT segments produced by scanning.
func (f *Feeder) Len() int { return len(f.segments) }
