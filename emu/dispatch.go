package emu

import "math/bits"

// CostClass groups trapped instructions by the microcode path they take,
// for the cycle-cost model.
type CostClass uint8

// Cost classes.
const (
	CostALU CostClass = iota
	CostShift
	CostCompare
	CostLoad
	CostStore
	CostBranch
	CostJump
	CostUpperImm
	CostSystem
)

// Outcome is the architectural result of one trapped instruction.
type Outcome struct {
	// NextPC is the resume address in halfword units.
	NextPC uint32

	// Steps is the number of iterations the dynamic shifter ran, zero
	// for non-shift instructions.
	Steps uint64

	// Class selects the cycle-cost row for this instruction.
	Class CostClass

	// Halt is set by the system break instruction when halting on it
	// is enabled.
	Halt bool
}

type handler func(d *Dispatcher, out *Outcome)

// Dispatcher executes the emulation program for one trapped 32-bit
// instruction. Dispatch is a two-level jump table: the major opcode
// selects the primary entry, and funct3 selects within the load, store,
// immediate-ALU, register-ALU, and branch groups. Unsupported opcodes
// fall through to an inert handler that just advances the program
// counter.
type Dispatcher struct {
	bank *RegBank
	mem  *Memory
	alu  ALU
	agu  AGU

	haltOnBreak bool

	primary   [32]handler
	loadOps   [8]handler
	storeOps  [8]handler
	immOps    [8]handler
	regOps    [8]handler
	branchOps [8]handler
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchAGU shares the core's address generation unit so resume
// addresses wrap to the configured address width.
func WithDispatchAGU(agu AGU) DispatcherOption {
	return func(d *Dispatcher) {
		d.agu = agu
	}
}

// WithHaltOnBreak makes the 32-bit EBREAK instruction halt the core
// instead of executing inertly.
func WithHaltOnBreak(halt bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.haltOnBreak = halt
	}
}

// NewDispatcher creates a dispatcher over the given register bank and
// backing memory.
func NewDispatcher(bank *RegBank, mem *Memory, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bank: bank,
		mem:  mem,
		agu:  NewAGU(32),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.buildTables()
	return d
}

func (d *Dispatcher) buildTables() {
	inert := (*Dispatcher).handleInert
	for i := range d.primary {
		d.primary[i] = inert
	}

	// Major opcodes, bits 6:2.
	d.primary[0x00] = (*Dispatcher).dispatchLoad
	d.primary[0x03] = inert // FENCE
	d.primary[0x04] = (*Dispatcher).dispatchImm
	d.primary[0x05] = (*Dispatcher).handleAUIPC
	d.primary[0x08] = (*Dispatcher).dispatchStore
	d.primary[0x0C] = (*Dispatcher).dispatchReg
	d.primary[0x0D] = (*Dispatcher).handleLUI
	d.primary[0x18] = (*Dispatcher).dispatchBranch
	d.primary[0x19] = (*Dispatcher).handleJALR
	d.primary[0x1B] = (*Dispatcher).handleJAL
	d.primary[0x1C] = (*Dispatcher).handleSystem

	for i := range d.loadOps {
		d.loadOps[i] = inert
		d.storeOps[i] = inert
	}
	d.loadOps[0] = (*Dispatcher).handleLB
	d.loadOps[1] = (*Dispatcher).handleLH
	d.loadOps[2] = (*Dispatcher).handleLW
	d.loadOps[4] = (*Dispatcher).handleLBU
	d.loadOps[5] = (*Dispatcher).handleLHU
	d.storeOps[0] = (*Dispatcher).handleSB
	d.storeOps[1] = (*Dispatcher).handleSH
	d.storeOps[2] = (*Dispatcher).handleSW

	d.immOps = [8]handler{
		(*Dispatcher).handleADDI,
		(*Dispatcher).handleSLLI,
		(*Dispatcher).handleSLTI,
		(*Dispatcher).handleSLTIU,
		(*Dispatcher).handleXORI,
		(*Dispatcher).handleShiftRightImm,
		(*Dispatcher).handleORI,
		(*Dispatcher).handleANDI,
	}
	d.regOps = [8]handler{
		(*Dispatcher).handleAddSub,
		(*Dispatcher).handleSLL,
		(*Dispatcher).handleSLT,
		(*Dispatcher).handleSLTU,
		(*Dispatcher).handleXOR,
		(*Dispatcher).handleShiftRight,
		(*Dispatcher).handleOR,
		(*Dispatcher).handleAND,
	}
	d.branchOps = [8]handler{
		(*Dispatcher).handleBEQ,
		(*Dispatcher).handleBNE,
		inert,
		inert,
		(*Dispatcher).handleBLT,
		(*Dispatcher).handleBGE,
		(*Dispatcher).handleBLTU,
		(*Dispatcher).handleBGEU,
	}
}

// Execute runs the emulation program for one trapped instruction. pcHW is
// the trapped instruction's address in halfword units. On return the
// microcode program-counter field holds the resume address so the thunk
// back to user mode lands past the emulated instruction.
func (d *Dispatcher) Execute(pcHW, inst uint32) Outcome {
	ExtractFields(d.bank, pcHW, inst)

	// Default resume: the halfword after the 32-bit instruction.
	out := Outcome{
		NextPC: d.agu.Next(pcHW, 1),
		Class:  CostALU,
	}
	d.primary[inst>>2&0x1F](d, &out)
	d.setField(FieldPC, out.NextPC)
	return out
}

func (d *Dispatcher) field(slot uint8) uint32 {
	return d.bank.Read(BankMicrocode, slot)
}

func (d *Dispatcher) setField(slot uint8, v uint32) {
	d.bank.Write(BankMicrocode, slot, v)
}

// poke commits a result to the user-bank destination register through the
// bank-crossing write port.
func (d *Dispatcher) poke(v uint32) {
	d.bank.CrossWrite(BankMicrocode, uint8(d.field(FieldRd)), v)
}

func (d *Dispatcher) funct3() uint32 {
	return d.field(FieldFunct3) >> 1
}

func (d *Dispatcher) pcBytes() uint32 {
	return d.field(FieldPC) << 1
}

func (d *Dispatcher) handleInert(out *Outcome) {
	out.Class = CostSystem
}

// Secondary dispatch.

func (d *Dispatcher) dispatchLoad(out *Outcome) {
	d.loadOps[d.funct3()](d, out)
}

func (d *Dispatcher) dispatchStore(out *Outcome) {
	d.storeOps[d.funct3()](d, out)
}

func (d *Dispatcher) dispatchImm(out *Outcome) {
	d.immOps[d.funct3()](d, out)
}

func (d *Dispatcher) dispatchReg(out *Outcome) {
	d.regOps[d.funct3()](d, out)
}

func (d *Dispatcher) dispatchBranch(out *Outcome) {
	d.branchOps[d.funct3()](d, out)
}

// Loads read the aligned word and rotate the addressed lane down, the
// same path the byte and halfword compressed loads take.

func (d *Dispatcher) loadWord(out *Outcome) (value uint32, lane uint32) {
	out.Class = CostLoad
	addr := d.alu.AddSub(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst))), false)
	word := d.mem.Read32(addr &^ 3)
	lane = addr & 3
	return bits.RotateLeft32(word, -int(8*lane)), lane
}

func (d *Dispatcher) handleLB(out *Outcome) {
	v, _ := d.loadWord(out)
	d.poke(uint32(int32(int8(v))))
}

func (d *Dispatcher) handleLH(out *Outcome) {
	v, _ := d.loadWord(out)
	d.poke(uint32(int32(int16(v))))
}

func (d *Dispatcher) handleLW(out *Outcome) {
	v, _ := d.loadWord(out)
	d.poke(v)
}

func (d *Dispatcher) handleLBU(out *Outcome) {
	v, _ := d.loadWord(out)
	d.poke(uint32(uint8(v)))
}

func (d *Dispatcher) handleLHU(out *Outcome) {
	v, _ := d.loadWord(out)
	d.poke(uint32(uint16(v)))
}

func (d *Dispatcher) store(out *Outcome, size uint32) {
	out.Class = CostStore
	addr := d.alu.AddSub(d.field(FieldRs1Val), uint32(immS(d.field(FieldInst))), false)
	d.mem.Apply(BuildStore(addr, d.field(FieldRs2Val), size))
}

func (d *Dispatcher) handleSB(out *Outcome) { d.store(out, 1) }
func (d *Dispatcher) handleSH(out *Outcome) { d.store(out, 2) }
func (d *Dispatcher) handleSW(out *Outcome) { d.store(out, 4) }

// Immediate ALU group.

func (d *Dispatcher) handleADDI(out *Outcome) {
	d.poke(d.alu.AddSub(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst))), false))
}

func (d *Dispatcher) handleSLTI(out *Outcome) {
	out.Class = CostCompare
	d.poke(LessThanSigned(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst)))))
}

func (d *Dispatcher) handleSLTIU(out *Outcome) {
	out.Class = CostCompare
	d.poke(LessThanUnsigned(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst)))))
}

func (d *Dispatcher) handleXORI(out *Outcome) {
	d.poke(d.alu.Xor(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst)))))
}

func (d *Dispatcher) handleORI(out *Outcome) {
	d.poke(d.alu.Or(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst)))))
}

func (d *Dispatcher) handleANDI(out *Outcome) {
	d.poke(d.alu.And(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst)))))
}

func (d *Dispatcher) shiftImm(out *Outcome, kind ShiftKind) {
	amount := d.field(FieldInst) >> 20 & 0x1F
	out.Class = CostShift
	out.Steps = ShiftSteps(amount)
	d.poke(d.alu.Shift(d.field(FieldRs1Val), amount, kind))
}

func (d *Dispatcher) handleSLLI(out *Outcome) {
	d.shiftImm(out, ShiftLeft)
}

func (d *Dispatcher) handleShiftRightImm(out *Outcome) {
	kind := ShiftRightLogical
	if d.field(FieldFunct7)&0x20 != 0 {
		kind = ShiftRightArith
	}
	d.shiftImm(out, kind)
}

// Register ALU group.

func (d *Dispatcher) handleAddSub(out *Outcome) {
	subtract := d.field(FieldFunct7)&0x20 != 0
	d.poke(d.alu.AddSub(d.field(FieldRs1Val), d.field(FieldRs2Val), subtract))
}

func (d *Dispatcher) handleSLT(out *Outcome) {
	out.Class = CostCompare
	d.poke(LessThanSigned(d.field(FieldRs1Val), d.field(FieldRs2Val)))
}

func (d *Dispatcher) handleSLTU(out *Outcome) {
	out.Class = CostCompare
	d.poke(LessThanUnsigned(d.field(FieldRs1Val), d.field(FieldRs2Val)))
}

func (d *Dispatcher) handleXOR(out *Outcome) {
	d.poke(d.alu.Xor(d.field(FieldRs1Val), d.field(FieldRs2Val)))
}

func (d *Dispatcher) handleOR(out *Outcome) {
	d.poke(d.alu.Or(d.field(FieldRs1Val), d.field(FieldRs2Val)))
}

func (d *Dispatcher) handleAND(out *Outcome) {
	d.poke(d.alu.And(d.field(FieldRs1Val), d.field(FieldRs2Val)))
}

func (d *Dispatcher) shiftReg(out *Outcome, kind ShiftKind) {
	amount := d.field(FieldRs2Val) & 0x1F
	out.Class = CostShift
	out.Steps = ShiftSteps(amount)
	d.poke(d.alu.Shift(d.field(FieldRs1Val), amount, kind))
}

func (d *Dispatcher) handleSLL(out *Outcome) {
	d.shiftReg(out, ShiftLeft)
}

func (d *Dispatcher) handleShiftRight(out *Outcome) {
	kind := ShiftRightLogical
	if d.field(FieldFunct7)&0x20 != 0 {
		kind = ShiftRightArith
	}
	d.shiftReg(out, kind)
}

// Branch group.

func (d *Dispatcher) branchIf(taken bool, out *Outcome) {
	out.Class = CostBranch
	if !taken {
		return
	}
	target := d.alu.AddSub(d.pcBytes(), uint32(immB(d.field(FieldInst))), false)
	out.NextPC = target >> 1 & d.agu.Mask()
}

func (d *Dispatcher) handleBEQ(out *Outcome) {
	d.branchIf(d.alu.Xor(d.field(FieldRs1Val), d.field(FieldRs2Val)) == 0, out)
}

func (d *Dispatcher) handleBNE(out *Outcome) {
	d.branchIf(d.alu.Xor(d.field(FieldRs1Val), d.field(FieldRs2Val)) != 0, out)
}

func (d *Dispatcher) handleBLT(out *Outcome) {
	d.branchIf(LessThanSigned(d.field(FieldRs1Val), d.field(FieldRs2Val)) != 0, out)
}

func (d *Dispatcher) handleBGE(out *Outcome) {
	d.branchIf(LessThanSigned(d.field(FieldRs1Val), d.field(FieldRs2Val)) == 0, out)
}

func (d *Dispatcher) handleBLTU(out *Outcome) {
	d.branchIf(LessThanUnsigned(d.field(FieldRs1Val), d.field(FieldRs2Val)) != 0, out)
}

func (d *Dispatcher) handleBGEU(out *Outcome) {
	d.branchIf(LessThanUnsigned(d.field(FieldRs1Val), d.field(FieldRs2Val)) == 0, out)
}

// Jumps and upper immediates.

func (d *Dispatcher) handleJAL(out *Outcome) {
	out.Class = CostJump
	d.poke(d.pcBytes() + 4)
	target := d.alu.AddSub(d.pcBytes(), uint32(immJ(d.field(FieldInst))), false)
	out.NextPC = target >> 1 & d.agu.Mask()
}

func (d *Dispatcher) handleJALR(out *Outcome) {
	out.Class = CostJump
	target := d.alu.AddSub(d.field(FieldRs1Val), uint32(immI(d.field(FieldInst))), false)
	d.poke(d.pcBytes() + 4)
	out.NextPC = (target &^ 1) >> 1 & d.agu.Mask()
}

func (d *Dispatcher) handleLUI(out *Outcome) {
	out.Class = CostUpperImm
	d.poke(uint32(immU(d.field(FieldInst))))
}

func (d *Dispatcher) handleAUIPC(out *Outcome) {
	out.Class = CostUpperImm
	d.poke(d.alu.AddSub(d.pcBytes(), uint32(immU(d.field(FieldInst))), false))
}

// System group. CSR space is not implemented; everything here is inert
// except EBREAK when halting on it is enabled.

func (d *Dispatcher) handleSystem(out *Outcome) {
	out.Class = CostSystem
	inst := d.field(FieldInst)
	if d.haltOnBreak && d.funct3() == 0 && inst>>20 == 1 {
		out.Halt = true
	}
}
