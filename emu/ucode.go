package emu

// Microcode field-register ABI. The trap sequencer fills these slots of
// the microcode bank before the emulation program runs, so handlers never
// re-decode the instruction word. Slot 0 stays hardwired zero; the
// remaining slots above FieldFunct7 are emulation-program scratch.
const (
	// FieldPC is the trapped instruction's address in halfword units.
	FieldPC uint8 = 1
	// FieldInst is the full 32-bit instruction word.
	FieldInst uint8 = 2
	// FieldOpcode is the major opcode, bits 6:0.
	FieldOpcode uint8 = 3
	// FieldRd is the destination register number.
	FieldRd uint8 = 4
	// FieldFunct3 is funct3 stored doubled, ready to index a table of
	// halfword-pair entries without a shift.
	FieldFunct3 uint8 = 5
	// FieldRs1 is the first source register number.
	FieldRs1 uint8 = 6
	// FieldRs1Val is the first source register value, read across the
	// bank boundary at extraction time.
	FieldRs1Val uint8 = 7
	// FieldRs2 is the second source register number.
	FieldRs2 uint8 = 8
	// FieldRs2Val is the second source register value.
	FieldRs2Val uint8 = 9
	// FieldFunct7 is funct7, bits 31:25.
	FieldFunct7 uint8 = 10
)

// ExtractFields populates the microcode field registers for a trapped
// instruction. Register values cross the bank boundary the same way the
// peek bridge operation does.
func ExtractFields(bank *RegBank, pcHW, inst uint32) {
	rs1 := uint8(inst >> 15 & 0x1F)
	rs2 := uint8(inst >> 20 & 0x1F)

	bank.Write(BankMicrocode, FieldPC, pcHW)
	bank.Write(BankMicrocode, FieldInst, inst)
	bank.Write(BankMicrocode, FieldOpcode, inst&0x7F)
	bank.Write(BankMicrocode, FieldRd, inst>>7&0x1F)
	bank.Write(BankMicrocode, FieldFunct3, (inst>>12&0x7)<<1)
	bank.Write(BankMicrocode, FieldRs1, uint32(rs1))
	bank.Write(BankMicrocode, FieldRs1Val, bank.CrossRead(BankMicrocode, rs1))
	bank.Write(BankMicrocode, FieldRs2, uint32(rs2))
	bank.Write(BankMicrocode, FieldRs2Val, bank.CrossRead(BankMicrocode, rs2))
	bank.Write(BankMicrocode, FieldFunct7, inst>>25&0x7F)
}

// Immediate reconstruction for the 32-bit instruction formats. Each
// returns the sign-extended value.

func immI(inst uint32) int32 {
	return int32(inst) >> 20
}

func immS(inst uint32) int32 {
	return int32(inst&0xFE000000)>>20 | int32(inst>>7&0x1F)
}

func immB(inst uint32) int32 {
	imm := (inst>>31&0x1)<<12 | (inst>>7&0x1)<<11 |
		(inst>>25&0x3F)<<5 | (inst>>8&0xF)<<1
	return int32(imm<<19) >> 19
}

func immU(inst uint32) int32 {
	return int32(inst & 0xFFFFF000)
}

func immJ(inst uint32) int32 {
	imm := (inst>>31&0x1)<<20 | (inst>>12&0xFF)<<12 |
		(inst>>20&0x1)<<11 | (inst>>21&0x3FF)<<1
	return int32(imm<<11) >> 11
}
