package emu

import "fmt"

const (
	pageShift = 12
	pageSize  = 1 << pageShift
)

// Memory is the byte-addressable backing store behind the instruction and
// data ports. It stands in for the external memory subsystem and is
// allocated sparsely in pages.
type Memory struct {
	pages map[uint32][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32][]byte)}
}

func (m *Memory) page(addr uint32, alloc bool) []byte {
	num := addr >> pageShift
	p, ok := m.pages[num]
	if !ok && alloc {
		p = make([]byte, pageSize)
		m.pages[num] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(pageSize-1)]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	m.page(addr, true)[addr&(pageSize-1)] = value
}

// Read16 reads a little-endian halfword. No alignment correction is
// applied: a halfword spanning a page boundary is read byte by byte.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// Transaction is a data-port request: a word-aligned address with either
// a read flag or a per-byte write mask and data pre-rotated into the
// addressed byte lanes.
type Transaction struct {
	// Addr is the word-aligned byte address.
	Addr uint32

	// WData is the write data, already rotated into the byte lanes
	// selected by Mask.
	WData uint32

	// Mask has one bit per byte lane (bit 0 = bits 7:0).
	Mask uint8

	// Read requests a word read instead of a write.
	Read bool
}

// BuildStore constructs the data-port transaction for a 1-, 2-, or 4-byte
// store: the address is word-aligned, the mask covers the addressed
// lanes, and the value is pre-rotated into position. A multi-byte store
// whose low address bits push it across the word boundary is not
// corrected; the lanes simply wrap within the word, which is the
// documented unhandled case.
func BuildStore(addr, value uint32, size uint32) Transaction {
	lane := addr & 3
	var mask uint8
	switch size {
	case 1:
		mask = 1 << lane
	case 2:
		mask = 3 << lane
	default:
		mask = 0xF
	}
	return Transaction{
		Addr:  addr &^ 3,
		WData: value << (8 * lane),
		Mask:  mask,
	}
}

// Apply commits a write transaction, storing only the masked byte lanes.
func (m *Memory) Apply(tx Transaction) {
	for i := uint32(0); i < 4; i++ {
		if tx.Mask&(1<<i) != 0 {
			m.Write8(tx.Addr+i, uint8(tx.WData>>(8*i)))
		}
	}
}

// DataPort is the core-facing side of the data memory handshake. At most
// one transaction is outstanding at a time.
type DataPort interface {
	// Issue starts a transaction. Issuing while a read is outstanding
	// is an implementation invariant violation.
	Issue(tx Transaction)

	// Poll checks for the acknowledge. For reads, the word is returned
	// on the acknowledging call.
	Poll() (rdata uint32, ack bool)

	// Busy reports whether a transaction is outstanding.
	Busy() bool
}

// MemoryPort implements DataPort directly over a Memory with a fixed
// acknowledge latency for reads. Writes are committed at issue time
// (registered outputs, no stall), which trivially preserves the
// one-outstanding invariant.
type MemoryPort struct {
	mem     *Memory
	latency int

	pending bool
	wait    int
	tx      Transaction
}

// NewMemoryPort creates a data port with the given read acknowledge
// latency in cycles (minimum 1).
func NewMemoryPort(mem *Memory, latency int) *MemoryPort {
	if latency < 1 {
		latency = 1
	}
	return &MemoryPort{mem: mem, latency: latency}
}

// Issue starts a transaction.
func (p *MemoryPort) Issue(tx Transaction) {
	if p.pending {
		panic(fmt.Sprintf("data port: transaction issued at 0x%X while one is outstanding", tx.Addr))
	}
	if tx.Read {
		p.pending = true
		p.wait = p.latency
		p.tx = tx
		return
	}
	p.mem.Apply(tx)
}

// Poll checks for the read acknowledge.
func (p *MemoryPort) Poll() (uint32, bool) {
	if !p.pending {
		return 0, false
	}
	p.wait--
	if p.wait > 0 {
		return 0, false
	}
	p.pending = false
	return p.mem.Read32(p.tx.Addr &^ 3), true
}

// Busy reports whether a read is outstanding.
func (p *MemoryPort) Busy() bool {
	return p.pending
}

// InstPort is the halfword-addressed instruction fetch port. Fetch
// returns the instruction word and the number of extra stall cycles the
// fetch costs beyond the pipeline's own cycle (0 for a flat memory).
type InstPort interface {
	Fetch(hwAddr uint32) (word uint16, stall uint64)
}

// MemoryInstPort fetches instructions directly from backing memory with
// no added latency.
type MemoryInstPort struct {
	mem *Memory
}

// NewMemoryInstPort creates an instruction port over the given memory.
func NewMemoryInstPort(mem *Memory) *MemoryInstPort {
	return &MemoryInstPort{mem: mem}
}

// Fetch reads the halfword at the given halfword address.
func (p *MemoryInstPort) Fetch(hwAddr uint32) (uint16, uint64) {
	return p.mem.Read16(hwAddr << 1), 0
}
