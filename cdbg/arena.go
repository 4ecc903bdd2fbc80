package cdbg

import (
	"sync"

	"github.com/efedo/bifrost/kmer"
)

// slot holds one live or retired unitig plus the bookkeeping needed to
// remove its minimizer-index entries on retirement.
type slot[U any] struct {
	mu         sync.Mutex
	retired    bool
	unitig     Unitig[U]
	minimizers []kmer.MWord // one entry per indexed position, duplicates allowed
}

// arena is the CompactedDBG's append-only unitig store: ids are
// monotonically increasing and never reused within a build, matching
// §9's "arena + stable ids" design note.
type arena[U any] struct {
	mu     sync.RWMutex
	slots  []*slot[U]
	nextID int64
}

func newArena[U any]() *arena[U] {
	return &arena[U]{}
}

// append adds a new live unitig and returns its stable id.
func (a *arena[U]) append(u Unitig[U], minimizers []kmer.MWord) int64 {
	s := &slot[U]{unitig: u, minimizers: minimizers}
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.slots = append(a.slots, s)
	a.mu.Unlock()
	return id
}

// get returns the slot for id, or nil if out of range. The arena only
// grows, so reading a.slots under RLock is safe even while append runs
// concurrently elsewhere.
func (a *arena[U]) get(id int64) *slot[U] {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id < 0 || int(id) >= len(a.slots) {
		return nil
	}
	return a.slots[id]
}

// liveCount returns the number of non-retired unitigs, for tests and
// reporting.
func (a *arena[U]) liveCount() int {
	a.mu.RLock()
	ids := make([]*slot[U], len(a.slots))
	copy(ids, a.slots)
	a.mu.RUnlock()

	n := 0
	for _, s := range ids {
		s.mu.Lock()
		if !s.retired {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// each calls fn for every live unitig id. fn must not mutate the arena.
func (a *arena[U]) each(fn func(id int64, u Unitig[U])) {
	a.mu.RLock()
	ids := make([]*slot[U], len(a.slots))
	copy(ids, a.slots)
	a.mu.RUnlock()

	for id, s := range ids {
		s.mu.Lock()
		if !s.retired {
			u := s.unitig
			s.mu.Unlock()
			fn(int64(id), u)
			continue
		}
		s.mu.Unlock()
	}
}
