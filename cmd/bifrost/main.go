// Command bifrost builds a compacted de Bruijn graph from FASTA/FASTQ
// input and writes it out as a GFA 1.0 assembly graph.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/efedo/bifrost/bloom"
	"github.com/efedo/bifrost/cdbg"
	"github.com/efedo/bifrost/gfa"
	"github.com/efedo/bifrost/kmer"
	"github.com/efedo/bifrost/reads"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: bifrost [options] <FASTA/FASTQ files...>

Builds a compacted de Bruijn graph and writes it as GFA.

Options:`)
	flag.PrintDefaults()
}

func parseFlags(args []string) ProgramOptions {
	opt := defaultOptions()

	fs := flag.NewFlagSet("bifrost", flag.ExitOnError)
	fs.Usage = usage
	fs.IntVar(&opt.Threads, "t", opt.Threads, "Number of threads")
	fs.IntVar(&opt.K, "k", opt.K, "Length of k-mers")
	fs.IntVar(&opt.G, "g", opt.G, "Length of minimizers")
	fs.Uint64Var(&opt.NKmers, "n", opt.NKmers, "Estimated number of distinct k-mers")
	fs.Uint64Var(&opt.NKmers2, "N", opt.NKmers2, "Estimated number of distinct k-mers occurring at least twice (ignored with --ref)")
	fs.Float64Var(&opt.Bf, "b", opt.Bf, "Number of Bloom filter bits per k-mer in BBF1")
	fs.Float64Var(&opt.Bf2, "B", opt.Bf2, "Number of Bloom filter bits per k-mer in BBF2")
	fs.IntVar(&opt.ReadChunkSize, "s", opt.ReadChunkSize, "Read chunksize to split between threads")
	fs.StringVar(&opt.PrefixFilenameGFA, "o", "", "Prefix for output GFA file (writes <prefix>.gfa)")
	fs.StringVar(&opt.OutFilenameBBF, "f", "", "Output file for the persisted Bloom filter cascade")
	fs.StringVar(&opt.InFilenameBBF, "l", "", "Input file with a persisted Bloom filter cascade (skips the filter-building phase)")
	fs.BoolVar(&opt.Ref, "ref", false, "Input is a reference: disable the second-stage filter")
	fs.BoolVar(&opt.ClipTips, "c", false, "Clip tips after building the graph")
	fs.BoolVar(&opt.DeleteIsolated, "r", false, "Remove isolated unitigs after building the graph")
	fs.BoolVar(&opt.Verbose, "v", false, "Print progress information")
	fs.Parse(args)

	opt.Files = fs.Args()
	return opt
}

func loadCascade(ctx context.Context, opt ProgramOptions) (*bloom.Cascade, error) {
	f, err := file.Open(ctx, opt.InFilenameBBF)
	if err != nil {
		return nil, err
	}
	var closeErr errors.Once
	defer func() { closeErr.Set(f.Close(ctx)) }()

	r := f.Reader(ctx)
	bbf1, err := bloom.Load(r, opt.K)
	if err != nil {
		return nil, err
	}
	var bbf2 *bloom.Filter
	if !opt.Ref {
		bbf2, err = bloom.Load(r, opt.K)
		if err != nil {
			return nil, err
		}
	}
	if err := closeErr.Err(); err != nil {
		return nil, err
	}
	return bloom.FromFilters(bbf1, bbf2), nil
}

func saveCascade(ctx context.Context, opt ProgramOptions, cascade *bloom.Cascade) error {
	f, err := file.Create(ctx, opt.OutFilenameBBF)
	if err != nil {
		return err
	}

	w := f.Writer(ctx)
	if err := cascade.First().Save(w); err != nil {
		f.Close(ctx)
		return err
	}
	if !opt.Ref {
		if err := cascade.Second().Save(w); err != nil {
			f.Close(ctx)
			return err
		}
	}
	return f.Close(ctx)
}

func run(ctx context.Context, opt ProgramOptions) error {
	if err := kmer.SetK(opt.K); err != nil {
		return err
	}
	if err := kmer.SetG(opt.G); err != nil {
		return err
	}

	var preloaded *bloom.Cascade
	if opt.InFilenameBBF != "" {
		c, err := loadCascade(ctx, opt)
		if err != nil {
			return err
		}
		preloaded = c
		if opt.Verbose {
			log.Printf("loaded persisted Bloom filter cascade from %s", opt.InFilenameBBF)
		}
	}

	feeder, err := reads.NewFeeder(ctx, opt.Files)
	if err != nil {
		return err
	}
	if opt.Verbose {
		log.Printf("scanned %d read segments from %d file(s)", feeder.Len(), len(opt.Files))
	}

	g := cdbg.New[struct{}](nil, nil)
	cascade := cdbg.Build(g, feeder, cdbg.BuildParams{
		NKmers:       opt.NKmers,
		NKmers2:      opt.NKmers2,
		BitsPerKmer1: opt.Bf,
		BitsPerKmer2: opt.Bf2,
		Ref:          opt.Ref,
		Threads:      opt.Threads,
		ChunkSize:    opt.ReadChunkSize,
	}, preloaded)
	if opt.Verbose {
		log.Printf("built %d unitigs", g.UnitigCount())
	}

	if opt.OutFilenameBBF != "" {
		if err := saveCascade(ctx, opt, cascade); err != nil {
			return err
		}
		if opt.Verbose {
			log.Printf("persisted Bloom filter cascade to %s", opt.OutFilenameBBF)
		}
	}

	cdbg.Simplify(g, opt.ClipTips, opt.DeleteIsolated)
	if opt.Verbose {
		log.Printf("%d unitigs remain after simplification", g.UnitigCount())
	}

	out, err := file.Create(ctx, opt.gfaPath())
	if err != nil {
		return err
	}
	if err := gfa.Write(out.Writer(ctx), g); err != nil {
		out.Close(ctx)
		return err
	}
	if err := out.Close(ctx); err != nil {
		return err
	}
	if opt.Verbose {
		log.Printf("wrote %s", opt.gfaPath())
	}
	return nil
}

func main() {
	cleanup := grail.Init()
	defer cleanup()

	opt := parseFlags(os.Args[1:])
	if !opt.validate() {
		os.Exit(1)
	}

	ctx := vcontext.Background()
	if err := run(ctx, opt); err != nil {
		log.Fatalf("bifrost: %v", err)
	}
}
