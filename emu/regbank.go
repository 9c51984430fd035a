// Package emu provides the functional units of the microcoded RV32 core:
// the dual-bank register file, the ALU/shifter/AGU, the memory ports, and
// the trap/emulation dispatcher.
package emu

// Bank selects one half of the register file.
type Bank uint8

const (
	// BankUser is the bank visible to normal execution.
	BankUser Bank = 0
	// BankMicrocode is the bank visible to the emulation program.
	BankMicrocode Bank = 1
)

// Flip returns the opposite bank. The bank-crossing bridge operations
// apply it to exactly one port for the duration of the operation.
func (b Bank) Flip() Bank {
	return b ^ 1
}

// SelectBank maps the pipeline's microcode-mode flag to the active bank.
func SelectBank(microcode bool) Bank {
	if microcode {
		return BankMicrocode
	}
	return BankUser
}

// NumSlots is the total register file size: two banks of 32 slots.
const NumSlots = 64

// RegBank is the 64-slot register file. Slot 0 of each bank is hardwired:
// it reads as zero and writes to it are discarded. The bank bit and the
// 5-bit slot number form the storage index, so mode switching and the
// bank-crossing operations are pure index arithmetic.
type RegBank struct {
	slots [NumSlots]uint32
}

// NewRegBank creates a register bank with all slots cleared.
func NewRegBank() *RegBank {
	return &RegBank{}
}

func (r *RegBank) index(bank Bank, slot uint8) int {
	return int(bank&1)<<5 | int(slot&0x1F)
}

// Read returns the committed value of a slot. Slot 0 reads as zero.
func (r *RegBank) Read(bank Bank, slot uint8) uint32 {
	if slot&0x1F == 0 {
		return 0
	}
	return r.slots[r.index(bank, slot)]
}

// Write commits a value to a slot. Writes to slot 0 are discarded.
func (r *RegBank) Write(bank Bank, slot uint8, value uint32) {
	if slot&0x1F == 0 {
		return
	}
	r.slots[r.index(bank, slot)] = value
}

// CrossRead reads a slot from the opposite bank. This is the source-port
// path of the X.PEEK bridge operation and of trap field extraction.
func (r *RegBank) CrossRead(bank Bank, slot uint8) uint32 {
	return r.Read(bank.Flip(), slot)
}

// CrossWrite writes a slot in the opposite bank. This is the
// destination-port path of the X.POKE bridge operation.
func (r *RegBank) CrossWrite(bank Bank, slot uint8, value uint32) {
	r.Write(bank.Flip(), slot, value)
}

// Reset clears every slot in both banks.
func (r *RegBank) Reset() {
	r.slots = [NumSlots]uint32{}
}
