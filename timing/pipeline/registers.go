package pipeline

import (
	"fmt"

	"github.com/sarchlab/ucsim/insts"
)

// stageReg is one pipeline stage register: a fetched halfword and, once
// decoded, its instruction. An invalid register is a bubble.
type stageReg struct {
	valid bool
	pc    uint32 // halfword units
	word  uint16
	inst  *insts.Instruction
}

func (r *stageReg) bubble() {
	r.valid = false
	r.inst = nil
}

// pendingLoad tracks the one outstanding data-port read.
type pendingLoad struct {
	active bool
	rd     uint8
	lane   uint32
	size   uint32
	signed bool
}

// Statistics accumulates pipeline counters over a run.
type Statistics struct {
	// Cycles is the total clock cycles ticked.
	Cycles uint64

	// Instructions is the number of instructions retired, counting each
	// trapped 32-bit instruction once.
	Instructions uint64

	// Stalls counts cycles lost to fetch and data-port waits.
	Stalls uint64

	// Bubbles counts cycles where the execute stage held no instruction.
	Bubbles uint64

	// Flushes counts pipeline redirects: taken branches, jumps, traps,
	// and mode returns.
	Flushes uint64

	// Traps counts entries into the emulation path.
	Traps uint64

	// MicrocodeCycles counts cycles spent inside the emulation path.
	MicrocodeCycles uint64
}

// CPI returns cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// String formats the counters as a one-line report.
func (s Statistics) String() string {
	return fmt.Sprintf(
		"cycles=%d instructions=%d cpi=%.2f stalls=%d bubbles=%d flushes=%d traps=%d ucode_cycles=%d",
		s.Cycles, s.Instructions, s.CPI(), s.Stalls, s.Bubbles,
		s.Flushes, s.Traps, s.MicrocodeCycles)
}
