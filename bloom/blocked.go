// Package bloom implements the BlockedBloomFilter (a cache-line-aligned,
// concurrent, double-hashed Bloom filter) and the CascadingFilter built
// from two of them, used to isolate k-mers seen at least twice from
// sequencing errors before they reach graph construction.
package bloom

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	"sync/atomic"
	"unsafe"

	farm "github.com/dgryski/go-farm"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	bitsPerBlock  = 512 // one cache line: 512 bits == 64 bytes
	wordsPerBlock = bitsPerBlock / 64
)

// hashKey1/hashKey2 are fixed 32-byte highwayhash keys used to derive the
// two independent probe-position hashes (Kirsch-Mitzenmacher double
// hashing: g_i(x) = h1(x) + i*h2(x) mod bitsPerBlock).
var (
	hashKey1 = [32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}
	hashKey2 = [32]byte{32, 31, 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 18, 17,
		16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
)

// magic identifies a serialized BlockedBloomFilter file.
var magic = [8]byte{'B', 'F', 'G', 'B', 'B', 'F', '1', 0}

// ErrInvalidFilterFormat is returned by Load when the magic or recorded
// parameters don't match what was expected.
var ErrInvalidFilterFormat = errors.New("bloom: invalid filter format")

// block is one cache-line-sized array of atomically-addressable words.
type block struct {
	words [wordsPerBlock]uint64
}

// Filter is a cache-line-blocked Bloom filter with concurrent lock-free
// insert and query.
type Filter struct {
	blocks []block
	mask   uint64 // len(blocks)-1, a power of two
	h      int    // probes per insert/query
	k      int    // the k-mer length this filter was sized for (metadata only)
}

// New builds a Filter sized for n distinct elements at bitsPerElem bits
// per element (B blocks rounded up to a power of two, h = round(ln2 *
// bitsPerElem) probes).
func New(n uint64, bitsPerElem float64, k int) *Filter {
	if n == 0 {
		n = 1
	}
	totalBits := math.Ceil(float64(n) * bitsPerElem)
	nBlocks := uint64(math.Ceil(totalBits / bitsPerBlock))
	if nBlocks == 0 {
		nBlocks = 1
	}
	nBlocks = nextPow2(nBlocks)
	h := int(math.Round(math.Ln2 * bitsPerElem))
	if h < 1 {
		h = 1
	}
	return &Filter{
		blocks: newBlocks(nBlocks),
		mask:   nBlocks - 1,
		h:      h,
		k:      k,
	}
}

// newBlocks backs the block array with huge-page-mapped memory when the
// platform allows it, falling back transparently to a plain make: a
// build scans every k-mer of every read through this table, so TLB
// locality matters at the sizes -n/-N ask for, the same rationale as
// fusion/kmer_index.go's shard allocator.
func newBlocks(nBlocks uint64) []block {
	buf := newHugePageBytes(int(nBlocks) * int(unsafe.Sizeof(block{})))
	return unsafe.Slice((*block)(unsafe.Pointer(&buf[0])), nBlocks)
}

func nextPow2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << uint(64-bits.LeadingZeros64(v-1))
}

// NumBlocks returns the number of cache-line blocks in the filter.
func (f *Filter) NumBlocks() int { return len(f.blocks) }

// Probes returns the number of bit probes performed per block.
func (f *Filter) Probes() int { return f.h }

func (f *Filter) blockIndex(key []byte) uint64 {
	return farm.Hash64(key) & f.mask
}

func (f *Filter) probeHashes(key []byte) (uint64, uint64) {
	h1 := highwayhash.Sum64(key, hashKey1[:])
	h2 := highwayhash.Sum64(key, hashKey2[:])
	if h2 == 0 {
		h2 = 1 // avoid degenerating to a single probed bit
	}
	return h1, h2
}

// Insert adds key to the filter. It returns true if the element was
// definitely new: at least one of its probed bits was zero before this
// call. A false return means every probed bit was already set, which may
// be a false positive from unrelated keys.
func (f *Filter) Insert(key []byte) bool {
	blk := &f.blocks[f.blockIndex(key)]
	h1, h2 := f.probeHashes(key)

	anyWasZero := false
	for i := 0; i < f.h; i++ {
		bit := (h1 + uint64(i)*h2) % bitsPerBlock
		wordIdx := bit / 64
		mask := uint64(1) << (bit % 64)
		addr := &blk.words[wordIdx]

		if atomic.LoadUint64(addr)&mask == 0 {
			anyWasZero = true
		}
		for {
			cur := atomic.LoadUint64(addr)
			if cur&mask != 0 {
				break
			}
			if atomic.CompareAndSwapUint64(addr, cur, cur|mask) {
				break
			}
		}
	}
	return anyWasZero
}

// Contains reports whether key is possibly present (true) or definitely
// absent (false). It performs no synchronization; query is safe to run
// concurrently with Insert, and may observe a pre- or post-insert state
// for any single key.
func (f *Filter) Contains(key []byte) bool {
	blk := &f.blocks[f.blockIndex(key)]
	h1, h2 := f.probeHashes(key)
	for i := 0; i < f.h; i++ {
		bit := (h1 + uint64(i)*h2) % bitsPerBlock
		wordIdx := bit / 64
		mask := uint64(1) << (bit % 64)
		if atomic.LoadUint64(&blk.words[wordIdx])&mask == 0 {
			return false
		}
	}
	return true
}

// rawBytes returns a fresh copy of the packed block storage as a byte
// slice, in little-endian word order (used for serialization).
func (f *Filter) rawBytes() []byte {
	buf := make([]byte, len(f.blocks)*wordsPerBlock*8)
	off := 0
	for i := range f.blocks {
		for _, w := range f.blocks[i].words {
			binary.LittleEndian.PutUint64(buf[off:], w)
			off += 8
		}
	}
	return buf
}

// Save serializes the filter as: magic(8) | k(4) | B(8) | h(4) |
// bits_per_block(4) | blocks, all integers little-endian.
func (f *Filter) Save(w io.Writer) error {
	hdr := make([]byte, 8+4+8+4+4)
	copy(hdr[0:8], magic[:])
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(f.k))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(len(f.blocks)))
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(f.h))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(bitsPerBlock))
	if _, err := w.Write(hdr); err != nil {
		return errors.Wrap(err, "bloom: writing header")
	}
	if _, err := w.Write(f.rawBytes()); err != nil {
		return errors.Wrap(err, "bloom: writing blocks")
	}
	return nil
}

// Load deserializes a filter previously written by Save, validating the
// magic tag and declared k. It returns ErrInvalidFilterFormat on
// mismatch.
func Load(r io.Reader, expectK int) (*Filter, error) {
	hdr := make([]byte, 8+4+8+4+4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, errors.Wrap(err, "bloom: reading header")
	}
	if string(hdr[0:8]) != string(magic[:]) {
		return nil, errors.Wrap(ErrInvalidFilterFormat, "bad magic")
	}
	k := int(binary.LittleEndian.Uint32(hdr[8:12]))
	nBlocks := binary.LittleEndian.Uint64(hdr[12:20])
	h := int(binary.LittleEndian.Uint32(hdr[20:24]))
	bpb := binary.LittleEndian.Uint32(hdr[24:28])
	if bpb != bitsPerBlock {
		return nil, errors.Wrapf(ErrInvalidFilterFormat, "bits_per_block=%d, want %d", bpb, bitsPerBlock)
	}
	if expectK != 0 && k != expectK {
		return nil, errors.Wrapf(ErrInvalidFilterFormat, "k=%d, want %d", k, expectK)
	}
	if nBlocks == 0 || nBlocks&(nBlocks-1) != 0 {
		return nil, errors.Wrapf(ErrInvalidFilterFormat, "block count %d is not a power of two", nBlocks)
	}
	f := &Filter{
		blocks: make([]block, nBlocks),
		mask:   nBlocks - 1,
		h:      h,
		k:      k,
	}
	raw := make([]byte, nBlocks*wordsPerBlock*8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "bloom: reading blocks")
	}
	off := 0
	for i := range f.blocks {
		for j := range f.blocks[i].words {
			f.blocks[i].words[j] = binary.LittleEndian.Uint64(raw[off:])
			off += 8
		}
	}
	return f, nil
}

// newHugePageBytes best-effort allocates nBytes via
// mmap + MADV_HUGEPAGE, matching the cache-line/TLB locality rationale of
// fusion/kmer_index.go's shard allocator. Falls back to a plain make on
// any failure: correctness never depends on this succeeding.
func newHugePageBytes(nBytes int) []byte {
	if nBytes <= 0 {
		return nil
	}
	const hugePageSize = 2 << 20
	data, err := unix.Mmap(-1, 0, nBytes+hugePageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return make([]byte, nBytes)
	}
	_ = unix.Madvise(data, unix.MADV_HUGEPAGE)
	return data[:nBytes]
}
