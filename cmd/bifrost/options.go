package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/efedo/bifrost/kmer"
)

// ProgramOptions mirrors the original build's option set field for
// field: every flag the CLI accepts and every input file it will scan.
type ProgramOptions struct {
	Threads         int
	K, G            int
	NKmers, NKmers2 uint64
	Bf, Bf2         float64
	ReadChunkSize   int
	Ref             bool
	ClipTips        bool
	DeleteIsolated  bool
	Verbose         bool

	PrefixFilenameGFA string
	OutFilenameBBF    string
	InFilenameBBF     string

	Files []string
}

// defaultOptions matches the original's ProgramOptions() constructor.
func defaultOptions() ProgramOptions {
	return ProgramOptions{
		Threads:       1,
		K:             31,
		G:             23,
		Bf:            14,
		Bf2:           14,
		ReadChunkSize: 10000,
	}
}

// validate runs every check the original check_ProgramOptions performs,
// in the same order, printing one line to stderr per failure and
// returning false if any failed. It probes the GFA output path
// (PrefixFilenameGFA + ".gfa") for writability but leaves
// opt.PrefixFilenameGFA unchanged, and, when Ref is set, zeroes the
// second-filter parameters the CLI no longer needs.
func (opt *ProgramOptions) validate() bool {
	ok := true
	fail := func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
		ok = false
	}

	maxThreads := runtime.NumCPU()
	if opt.Threads <= 0 {
		fail("Number of threads cannot be less than or equal to 0")
	} else if opt.Threads > maxThreads {
		fail("Number of threads cannot be greater than %d", maxThreads)
	}

	if opt.ReadChunkSize <= 0 {
		fail("Chunk size of reads to share among threads cannot be less than or equal to 0")
	}

	if opt.K <= 0 {
		fail("Length k of k-mers cannot be less than or equal to 0")
	} else if opt.K >= kmer.MaxKmerSize {
		fail("Length k of k-mers cannot exceed or be equal to %d", kmer.MaxKmerSize)
	}

	if opt.G <= 0 {
		fail("Length g of minimizers cannot be less than or equal to 0")
	} else if opt.G >= kmer.MaxKmerSize {
		fail("Length g of minimizers cannot exceed or be equal to %d", kmer.MaxKmerSize)
	} else if opt.K > 0 && opt.K < kmer.MaxKmerSize && opt.G >= opt.K {
		fail("Length g of minimizers cannot be greater than or equal to k")
	}

	if opt.NKmers <= 0 {
		fail("The estimated number of unique k-mers cannot be less than or equal to 0")
	}
	if !opt.Ref && opt.NKmers2 <= 0 {
		fail("The estimated number of non unique k-mers cannot be less than or equal to 0")
	}
	if !opt.Ref && opt.NKmers2 > opt.NKmers {
		fail("The estimated number of non unique k-mers cannot be greater than the estimated number of unique k-mers")
	}

	if opt.Bf <= 0 {
		fail("Number of Bloom filter bits per unique k-mer cannot be less than or equal to 0")
	}
	if !opt.Ref && opt.Bf2 <= 0 {
		fail("Number of Bloom filter bits per non unique k-mer cannot be less than or equal to 0")
	}

	if opt.Ref {
		opt.Bf2 = 0
		opt.NKmers2 = 0
	}

	if opt.OutFilenameBBF != "" {
		fp, err := os.Create(opt.OutFilenameBBF)
		if err != nil {
			fail("Could not open file for writing output Blocked Bloom filter: %s", opt.OutFilenameBBF)
		} else {
			fp.Close()
		}
	}

	if opt.InFilenameBBF != "" {
		fp, err := os.Open(opt.InFilenameBBF)
		if err != nil {
			fail("Could not read file input Blocked Bloom filter: %s", opt.InFilenameBBF)
		} else {
			fp.Close()
		}
	}

	if opt.PrefixFilenameGFA == "" {
		fail("Missing output prefix (-o)")
	} else {
		gfaPath := opt.PrefixFilenameGFA + ".gfa"
		fp, err := os.Create(gfaPath)
		if err != nil {
			fail("Could not open file for writing output graph in GFA format: %s", gfaPath)
		} else {
			fp.Close()
		}
	}

	if len(opt.Files) == 0 {
		fail("Missing FASTA/FASTQ input files")
	} else {
		for _, path := range opt.Files {
			if _, err := os.Stat(path); err != nil {
				fail("File not found, %s", path)
			}
		}
	}

	return ok
}

// gfaPath returns the final GFA output path, the same path validate
// probes for writability.
func (opt *ProgramOptions) gfaPath() string { return opt.PrefixFilenameGFA + ".gfa" }
