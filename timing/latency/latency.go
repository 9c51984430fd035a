// Package latency models the cycle cost of the microcoded emulation path.
// The emulation program is rendered behaviorally, so its per-instruction
// cost comes from this table instead of counting fetched microcode
// halfwords.
package latency

import "github.com/sarchlab/ucsim/emu"

// Table computes trap handling costs from a Config.
type Table struct {
	cfg Config
}

// NewTable creates a cost table.
func NewTable(cfg Config) *Table {
	return &Table{cfg: cfg}
}

// Config returns the cost model behind the table.
func (t *Table) Config() Config {
	return t.cfg
}

// Refill returns the pipeline refill cost after a mode switch.
func (t *Table) Refill() uint64 {
	return t.cfg.TrapRefill
}

// TrapCost returns the number of cycles the emulation program spends on
// one trapped instruction: field extraction, dispatch, the handler body
// for the cost class, and the return sequence. Shift handlers add one
// step cost per shifter iteration.
func (t *Table) TrapCost(class emu.CostClass, shiftSteps uint64) uint64 {
	body := t.cfg.ALU
	switch class {
	case emu.CostShift:
		body = t.cfg.ShiftBase + shiftSteps*t.cfg.ShiftStep
	case emu.CostCompare:
		body = t.cfg.Compare
	case emu.CostLoad:
		body = t.cfg.Load
	case emu.CostStore:
		body = t.cfg.Store
	case emu.CostBranch:
		body = t.cfg.Branch
	case emu.CostJump:
		body = t.cfg.Jump
	case emu.CostUpperImm:
		body = t.cfg.UpperImm
	case emu.CostSystem:
		body = t.cfg.System
	}
	return t.cfg.FieldExtract + t.cfg.Dispatch + body + t.cfg.Return
}
