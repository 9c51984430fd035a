// Package pipeline implements the three-stage fetch/decode/execute
// pipeline of the microcoded RV32 core: native execution of the
// compressed repertoire, trap entry into the emulation path for 32-bit
// instructions, and the thunk back to user mode.
package pipeline

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/ucsim/emu"
	"github.com/sarchlab/ucsim/insts"
	"github.com/sarchlab/ucsim/timing/latency"
)

// Pipeline is the cycle-level core model. Program counters are kept in
// halfword units; the byte address is the counter shifted left once.
type Pipeline struct {
	bank       *emu.RegBank
	decoder    *insts.Decoder
	dispatcher *emu.Dispatcher
	fetchPort  emu.InstPort
	dataPort   emu.DataPort
	table      *latency.Table
	agu        emu.AGU

	pcFetch uint32
	decode  stageReg
	exec    stageReg

	microcode   bool
	ucodeLeft   uint64
	haltPending bool

	redirectPending bool
	redirectPC      uint32

	fetchStall uint64
	load       pendingLoad
	loadBank   emu.Bank

	halted bool
	stats  Statistics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetchPort sets the instruction fetch port. Required.
func WithFetchPort(port emu.InstPort) Option {
	return func(p *Pipeline) {
		p.fetchPort = port
	}
}

// WithDataPort sets the data memory port. Required.
func WithDataPort(port emu.DataPort) Option {
	return func(p *Pipeline) {
		p.dataPort = port
	}
}

// WithLatencyTable sets the emulation-path cost model.
func WithLatencyTable(t *latency.Table) Option {
	return func(p *Pipeline) {
		p.table = t
	}
}

// WithAGU sets the address generation unit, fixing the address width.
func WithAGU(agu emu.AGU) Option {
	return func(p *Pipeline) {
		p.agu = agu
	}
}

// NewPipeline creates a pipeline over the given register bank and trap
// dispatcher. Fetch and data ports must be supplied via options.
func NewPipeline(
	bank *emu.RegBank,
	dispatcher *emu.Dispatcher,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		bank:       bank,
		decoder:    insts.NewDecoder(),
		dispatcher: dispatcher,
		table:      latency.NewTable(latency.DefaultConfig()),
		agu:        emu.NewAGU(32),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reset clears all pipeline state and restarts fetch at the given
// halfword address. The two cycles after reset execute bubbles while the
// pipeline refills.
func (p *Pipeline) Reset(entryHW uint32) {
	p.pcFetch = entryHW & p.agu.Mask()
	p.decode.bubble()
	p.exec.bubble()
	p.microcode = false
	p.ucodeLeft = 0
	p.haltPending = false
	p.redirectPending = false
	p.fetchStall = 0
	p.load = pendingLoad{}
	p.halted = false
	p.stats = Statistics{}
}

// Halted reports whether the core has stopped.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// InMicrocode reports whether the core is inside the emulation path.
func (p *Pipeline) InMicrocode() bool {
	return p.microcode
}

// PC returns the fetch program counter in halfword units.
func (p *Pipeline) PC() uint32 {
	return p.pcFetch
}

// Stats returns the accumulated counters.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Tick advances the core by one clock cycle. It returns false once the
// core has halted.
func (p *Pipeline) Tick() bool {
	if p.halted {
		return false
	}
	p.stats.Cycles++

	// Emulation-path cycles burn down before anything else runs; the
	// architectural work already happened at trap entry.
	if p.ucodeLeft > 0 {
		p.ucodeLeft--
		p.stats.MicrocodeCycles++
		if p.ucodeLeft == 0 {
			p.thunk()
		}
		return true
	}

	if p.fetchStall > 0 {
		p.fetchStall--
		p.stats.Stalls++
		return true
	}

	if p.load.active {
		word, ack := p.dataPort.Poll()
		p.stats.Stalls++
		if ack {
			p.completeLoad(word)
		}
		return true
	}

	p.execute()
	if p.halted {
		return true
	}
	if p.ucodeLeft > 0 {
		// A trap was entered this cycle; the stages are dead.
		return true
	}
	p.advance()
	return true
}

// thunk leaves microcode mode and redirects fetch to the resume address
// the emulation program left in its program-counter field.
func (p *Pipeline) thunk() {
	p.microcode = false
	p.pcFetch = p.bank.Read(emu.BankMicrocode, emu.FieldPC) & p.agu.Mask()
	p.decode.bubble()
	p.exec.bubble()
	p.stats.Flushes++
	if p.haltPending {
		p.haltPending = false
		p.halted = true
	}
}

// advance shifts the stage registers by one. A redirect registered during
// execute squashes both younger stages and steers fetch; the target is
// fetched on the following cycle, so every taken control transfer costs
// two bubbles.
func (p *Pipeline) advance() {
	if p.redirectPending {
		p.redirectPending = false
		p.decode.bubble()
		p.exec.bubble()
		p.pcFetch = p.redirectPC
		p.stats.Flushes++
		return
	}

	p.exec = p.decode

	word, extra := p.fetchPort.Fetch(p.pcFetch)
	p.fetchStall += extra
	p.decode = stageReg{
		valid: true,
		pc:    p.pcFetch,
		word:  word,
		inst:  p.decoder.Decode(word),
	}
	p.pcFetch = p.agu.Next(p.pcFetch, 0)
}

func (p *Pipeline) setRedirect(targetHW uint32) {
	p.redirectPending = true
	p.redirectPC = targetHW & p.agu.Mask()
}

// relativeTarget resolves a pc-relative byte offset against the executing
// instruction's address.
func (p *Pipeline) relativeTarget(offset int32) uint32 {
	return p.agu.Next(p.exec.pc, offset>>1-1)
}

// execute retires the instruction in the execute stage.
func (p *Pipeline) execute() {
	if !p.exec.valid {
		p.stats.Bubbles++
		return
	}

	inst := p.exec.inst
	if inst.Op == insts.OpTrap {
		p.trap()
		return
	}

	var alu emu.ALU
	bank := emu.SelectBank(p.microcode)
	rs1v := p.bank.Read(bank, inst.Rs1)
	rs2v := p.bank.Read(bank, inst.Rs2)
	p.stats.Instructions++

	switch inst.Op {
	case insts.OpADDI4SPN, insts.OpADDI, insts.OpADDI16SP:
		p.bank.Write(bank, inst.Rd, alu.AddSub(rs1v, uint32(inst.Imm), false))

	case insts.OpLI, insts.OpLUI:
		p.bank.Write(bank, inst.Rd, uint32(inst.Imm))

	case insts.OpANDI:
		p.bank.Write(bank, inst.Rd, alu.And(rs1v, uint32(inst.Imm)))

	case insts.OpSRLI:
		p.shift(bank, inst, rs1v, emu.ShiftRightLogical)
	case insts.OpSRAI:
		p.shift(bank, inst, rs1v, emu.ShiftRightArith)
	case insts.OpSLLI:
		p.shift(bank, inst, rs1v, emu.ShiftLeft)

	case insts.OpSUB:
		p.bank.Write(bank, inst.Rd, alu.AddSub(rs1v, rs2v, true))
	case insts.OpXOR:
		p.bank.Write(bank, inst.Rd, alu.Xor(rs1v, rs2v))
	case insts.OpOR:
		p.bank.Write(bank, inst.Rd, alu.Or(rs1v, rs2v))
	case insts.OpAND:
		p.bank.Write(bank, inst.Rd, alu.And(rs1v, rs2v))
	case insts.OpMV:
		p.bank.Write(bank, inst.Rd, rs2v)
	case insts.OpADD:
		p.bank.Write(bank, inst.Rd, alu.AddSub(rs1v, rs2v, false))

	case insts.OpLW, insts.OpLWSP:
		p.issueLoad(bank, inst, rs1v, 4, false)
	case insts.OpLBU:
		p.issueLoad(bank, inst, rs1v, 1, false)
	case insts.OpLHU:
		p.issueLoad(bank, inst, rs1v, 2, false)
	case insts.OpLH:
		p.issueLoad(bank, inst, rs1v, 2, true)

	case insts.OpSW, insts.OpSWSP:
		p.issueStore(inst, rs1v, rs2v, 4)
	case insts.OpSB:
		p.issueStore(inst, rs1v, rs2v, 1)
	case insts.OpSH:
		p.issueStore(inst, rs1v, rs2v, 2)

	case insts.OpJ:
		p.setRedirect(p.relativeTarget(inst.Imm))
	case insts.OpJAL:
		p.bank.Write(bank, inst.Rd, (p.exec.pc+1)<<1)
		p.setRedirect(p.relativeTarget(inst.Imm))
	case insts.OpJR:
		p.setRedirect((rs1v &^ 1) >> 1)
	case insts.OpJALR:
		p.bank.Write(bank, inst.Rd, (p.exec.pc+1)<<1)
		p.setRedirect((rs1v &^ 1) >> 1)

	case insts.OpBEQZ:
		if rs1v == 0 {
			p.setRedirect(p.relativeTarget(inst.Imm))
		}
	case insts.OpBNEZ:
		if rs1v != 0 {
			p.setRedirect(p.relativeTarget(inst.Imm))
		}

	case insts.OpEBREAK:
		p.halted = true

	case insts.OpXPEEK:
		// The source register number comes from a register, not the
		// encoding, so the operation spends a second cycle on the
		// indirect read.
		num := uint8(p.bank.Read(bank, inst.Rs2) & 0x1F)
		p.bank.Write(bank, emu.FieldRs1Val, p.bank.CrossRead(bank, num))
		p.fetchStall++

	case insts.OpXPOKE:
		num := uint8(p.bank.Read(bank, emu.FieldRd) & 0x1F)
		p.bank.CrossWrite(bank, num, rs2v)
		p.fetchStall++

	case insts.OpXTHUNK:
		p.microcode = false
		p.setRedirect(p.bank.Read(bank, emu.FieldPC))
	}
}

// shift runs the iterative shifter, stalling one cycle per iteration
// beyond the issue cycle.
func (p *Pipeline) shift(bank emu.Bank, inst *insts.Instruction, rs1v uint32, kind emu.ShiftKind) {
	amount := uint32(inst.Imm)
	p.bank.Write(bank, inst.Rd, emu.DynamicShift(rs1v, amount, kind))
	p.fetchStall += emu.ShiftSteps(amount)
}

func (p *Pipeline) issueLoad(bank emu.Bank, inst *insts.Instruction, rs1v uint32, size uint32, signed bool) {
	var alu emu.ALU
	addr := alu.AddSub(rs1v, uint32(inst.Imm), false)
	p.dataPort.Issue(emu.Transaction{Addr: addr &^ 3, Read: true})
	p.load = pendingLoad{
		active: true,
		rd:     inst.Rd,
		lane:   addr & 3,
		size:   size,
		signed: signed,
	}
	p.loadBank = bank
}

func (p *Pipeline) completeLoad(word uint32) {
	v := bits.RotateLeft32(word, -int(8*p.load.lane))
	switch p.load.size {
	case 1:
		v = uint32(uint8(v))
	case 2:
		if p.load.signed {
			v = uint32(int32(int16(v)))
		} else {
			v = uint32(uint16(v))
		}
	}
	p.bank.Write(p.loadBank, p.load.rd, v)
	p.load = pendingLoad{}
}

func (p *Pipeline) issueStore(inst *insts.Instruction, rs1v, rs2v uint32, size uint32) {
	var alu emu.ALU
	addr := alu.AddSub(rs1v, uint32(inst.Imm), false)
	p.dataPort.Issue(emu.BuildStore(addr, rs2v, size))
}

// trap enters the emulation path for the 32-bit instruction whose low
// parcel sits in the execute stage. A trap while already inside the
// emulation path has no architectural recovery and is a hard fault.
func (p *Pipeline) trap() {
	if p.microcode {
		panic(fmt.Sprintf(
			"hard fault: trap at 0x%X inside the emulation path",
			p.exec.pc<<1))
	}

	high := p.highParcel()
	word := uint32(p.exec.word) | uint32(high)<<16

	p.microcode = true
	out := p.dispatcher.Execute(p.exec.pc, word)
	p.ucodeLeft = p.table.Refill() + p.table.TrapCost(out.Class, out.Steps)
	p.haltPending = out.Halt
	p.stats.Traps++
	p.stats.Instructions++
	p.stats.Flushes++
	p.decode.bubble()
	p.exec.bubble()
}

// highParcel returns the upper halfword of the trapped instruction. The
// decode stage usually holds it already; after a disturbance it is
// refetched.
func (p *Pipeline) highParcel() uint16 {
	next := p.agu.Next(p.exec.pc, 0)
	if p.decode.valid && p.decode.pc == next {
		return p.decode.word
	}
	word, _ := p.fetchPort.Fetch(next)
	return word
}
