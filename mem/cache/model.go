// Package cache models a set-associative cache that counts hits, misses and
// evictions for a stream of addresses.
package cache

import (
	"github.com/sarchlab/cachesim/instrumentation/hooking"
	"github.com/sarchlab/cachesim/mem/cache/addressing"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// AccessResult is the outcome of one cache access.
type AccessResult int

const (
	// Hit means the block was resident.
	Hit AccessResult = iota
	// MissFill means the block was placed into an empty line.
	MissFill
	// MissEvict means the block replaced a resident block.
	MissEvict
)

func (r AccessResult) String() string {
	switch r {
	case Hit:
		return "hit"
	case MissFill:
		return "miss"
	case MissEvict:
		return "miss eviction"
	default:
		return "unknown"
	}
}

// IsMiss returns true if the access missed.
func (r AccessResult) IsMiss() bool {
	return r != Hit
}

// Stats holds the counters of a model.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Accesses returns the number of accesses counted.
func (s Stats) Accesses() uint64 {
	return s.Hits + s.Misses
}

// A Model is a set-associative cache with a recency-stamp replacement policy.
// By default it evicts the most recently used line of a full set.
//
// A Model is not safe for concurrent use.
type Model struct {
	hooking.HookableBase

	name         string
	policy       string
	decoder      addressing.Decoder
	tags         tagging.TagArray
	victimFinder tagging.VictimFinder

	clock uint64
	stats Stats
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// Policy returns the name of the replacement policy.
func (m *Model) Policy() string {
	return m.policy
}

// NumSets returns the number of sets.
func (m *Model) NumSets() int {
	return m.tags.NumSets()
}

// NumWays returns the number of lines per set.
func (m *Model) NumWays() int {
	return m.tags.NumWays()
}

// BlockSize returns the block size in bytes.
func (m *Model) BlockSize() uint64 {
	return 1 << m.decoder.Log2BlockSize
}

// Decoder returns the address decoder of the model.
func (m *Model) Decoder() addressing.Decoder {
	return m.decoder
}

// Stats returns the counters accumulated so far.
func (m *Model) Stats() Stats {
	return m.stats
}

// Access looks up addr, installs its block on a miss, and returns the
// outcome.
func (m *Model) Access(addr uint64) AccessResult {
	loc := m.decoder.Decode(addr)
	setID := int(loc.SetIndex)

	if block, found := m.tags.Lookup(setID, loc.Tag); found {
		m.stats.Hits++
		m.tags.Visit(block, m.tick())
		m.traceAccess(addr, loc, block.WayID, Hit, 0)

		return Hit
	}

	m.stats.Misses++

	victim := m.victimFinder.FindVictim(m.tags, setID)
	result := MissFill
	evictedTag := uint64(0)

	if victim.IsValid {
		m.stats.Evictions++
		result = MissEvict
		evictedTag = victim.Tag
	}

	victim.Tag = loc.Tag
	victim.IsValid = true
	victim.Recency = m.tick()
	m.tags.Update(victim)

	m.traceAccess(addr, loc, victim.WayID, result, evictedTag)

	return result
}

// Reset empties every line, clears the counters, and restarts the clock.
func (m *Model) Reset() {
	m.tags.Reset()
	m.stats = Stats{}
	m.clock = 1
}

func (m *Model) tick() uint64 {
	stamp := m.clock
	m.clock++

	return stamp
}
