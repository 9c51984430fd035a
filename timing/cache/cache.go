// Package cache provides a fetch cache in front of the instruction port,
// built on Akita cache directory components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/ucsim/emu"
)

// Config holds fetch cache parameters.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity is the number of ways.
	Associativity int
	// BlockSize in bytes.
	BlockSize int
	// HitStall is the extra stall per hit beyond the fetch cycle itself.
	HitStall uint64
	// MissStall is the extra stall per miss, covering the line fill.
	MissStall uint64
}

// DefaultConfig returns a fetch cache sized for a small embedded core:
// 1 KiB, 2-way, 16-byte lines, single-cycle hits.
func DefaultConfig() Config {
	return Config{
		Size:          1024,
		Associativity: 2,
		BlockSize:     16,
		HitStall:      0,
		MissStall:     4,
	}
}

// Statistics holds fetch cache counters.
type Statistics struct {
	Fetches uint64
	Hits    uint64
	Misses  uint64
	Fills   uint64
}

// HitRate returns the fraction of fetches served without a fill.
func (s Statistics) HitRate() float64 {
	if s.Fetches == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Fetches)
}

// FetchCache caches instruction lines read from backing memory. It is
// read-only: lines are filled on miss and never written back, so there
// is no dirty state to manage. It satisfies the instruction port
// interface, reporting fill time as fetch stall cycles.
type FetchCache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	lines     [][]byte
	backing   *emu.Memory
	stats     Statistics
}

// NewFetchCache creates a fetch cache over the given backing memory.
func NewFetchCache(config Config, backing *emu.Memory) *FetchCache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	lines := make([][]byte, totalBlocks)
	for i := range lines {
		lines[i] = make([]byte, config.BlockSize)
	}

	return &FetchCache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		lines:   lines,
		backing: backing,
	}
}

// Config returns the cache parameters.
func (c *FetchCache) Config() Config {
	return c.config
}

// Stats returns the fetch counters.
func (c *FetchCache) Stats() Statistics {
	return c.stats
}

// Reset invalidates every line and clears the counters.
func (c *FetchCache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func (c *FetchCache) lineIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// Fetch returns the instruction halfword at the given halfword address
// and the stall cycles the access cost.
func (c *FetchCache) Fetch(hwAddr uint32) (uint16, uint64) {
	c.stats.Fetches++

	addr := uint64(hwAddr) << 1
	lineAddr := addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)

	block := c.directory.Lookup(0, lineAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return c.halfword(block, addr), c.config.HitStall
	}

	c.stats.Misses++
	block = c.fill(lineAddr)
	return c.halfword(block, addr), c.config.MissStall
}

// fill loads a line from backing memory into a victim way. Lines are
// never dirty, so the victim is dropped without writeback.
func (c *FetchCache) fill(lineAddr uint64) *akitacache.Block {
	c.stats.Fills++

	victim := c.directory.FindVictim(lineAddr)
	line := c.lines[c.lineIndex(victim)]
	for i := range line {
		line[i] = c.backing.Read8(uint32(lineAddr) + uint32(i))
	}

	victim.Tag = lineAddr
	victim.IsValid = true
	c.directory.Visit(victim)
	return victim
}

func (c *FetchCache) halfword(block *akitacache.Block, addr uint64) uint16 {
	line := c.lines[c.lineIndex(block)]
	offset := addr % uint64(c.config.BlockSize)
	return uint16(line[offset]) | uint16(line[offset+1])<<8
}
