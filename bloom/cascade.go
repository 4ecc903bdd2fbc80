package bloom

// Cascade is a two-stage cascading Bloom filter: BBF1 catches k-mers on
// their first occurrence, BBF2 catches (and retains) k-mers seen at
// least twice. Membership in BBF2 after all reads are ingested is the
// overapproximation of "occurs at least twice" used to seed graph
// construction. In reference mode BBF2 is disabled entirely and every
// k-mer accepted by BBF1 is treated as a member.
type Cascade struct {
	bbf1    *Filter
	bbf2    *Filter
	refMode bool
}

// NewCascade builds a Cascade sized for nkmers distinct k-mers at bf
// bits/element in the first stage, and nkmers2 at bf2 bits/element in
// the second. If ref is true, the second stage is skipped and Member
// reports a key as present after a single Observe of it.
func NewCascade(nkmers uint64, bf float64, nkmers2 uint64, bf2 float64, k int, ref bool) *Cascade {
	c := &Cascade{refMode: ref}
	c.bbf1 = New(nkmers, bf, k)
	if !ref {
		c.bbf2 = New(nkmers2, bf2, k)
	}
	return c
}

// Observe feeds a canonical k-mer's packed byte key through the cascade.
// It is safe for concurrent use.
func (c *Cascade) Observe(key []byte) {
	if c.bbf1.Insert(key) {
		return // first sighting: stop here, do not touch BBF2
	}
	if !c.refMode {
		c.bbf2.Insert(key)
	}
}

// Member reports whether key should be treated as a k-mer of interest
// for graph construction: present in BBF2 (or, in reference mode,
// in BBF1).
func (c *Cascade) Member(key []byte) bool {
	if c.refMode {
		return c.bbf1.Contains(key)
	}
	return c.bbf2.Contains(key)
}

// FromFilters reassembles a Cascade from filters already loaded by
// Load, for the "-l load persisted BBF" path that skips the filter-
// building phase entirely. bbf2 is nil in reference mode.
func FromFilters(bbf1, bbf2 *Filter) *Cascade {
	return &Cascade{bbf1: bbf1, bbf2: bbf2, refMode: bbf2 == nil}
}

// RefMode reports whether this cascade was built in reference mode.
func (c *Cascade) RefMode() bool { return c.refMode }

// First returns the underlying first-stage filter, for persistence or
// inspection.
func (c *Cascade) First() *Filter { return c.bbf1 }

// Second returns the underlying second-stage filter, or nil in
// reference mode.
func (c *Cascade) Second() *Filter { return c.bbf2 }
