// Package insts provides compressed instruction definitions and decoding.
package insts

// Op identifies a supported compressed operation.
type Op uint8

// Compressed opcodes. OpTrap stands for every encoding the core does not
// execute natively: all 32-bit instructions and all reserved patterns.
const (
	OpTrap Op = iota
	OpADDI4SPN
	OpLW
	OpSW
	OpLBU
	OpLHU
	OpLH
	OpSB
	OpSH
	OpADDI
	OpJAL
	OpLI
	OpADDI16SP
	OpLUI
	OpSRLI
	OpSRAI
	OpANDI
	OpSUB
	OpXOR
	OpOR
	OpAND
	OpJ
	OpBEQZ
	OpBNEZ
	OpSLLI
	OpLWSP
	OpJR
	OpMV
	OpEBREAK
	OpJALR
	OpADD
	OpSWSP
	OpXPEEK
	OpXPOKE
	OpXTHUNK
)

var opNames = [...]string{
	OpTrap:     "TRAP",
	OpADDI4SPN: "C.ADDI4SPN",
	OpLW:       "C.LW",
	OpSW:       "C.SW",
	OpLBU:      "C.LBU",
	OpLHU:      "C.LHU",
	OpLH:       "C.LH",
	OpSB:       "C.SB",
	OpSH:       "C.SH",
	OpADDI:     "C.ADDI",
	OpJAL:      "C.JAL",
	OpLI:       "C.LI",
	OpADDI16SP: "C.ADDI16SP",
	OpLUI:      "C.LUI",
	OpSRLI:     "C.SRLI",
	OpSRAI:     "C.SRAI",
	OpANDI:     "C.ANDI",
	OpSUB:      "C.SUB",
	OpXOR:      "C.XOR",
	OpOR:       "C.OR",
	OpAND:      "C.AND",
	OpJ:        "C.J",
	OpBEQZ:     "C.BEQZ",
	OpBNEZ:     "C.BNEZ",
	OpSLLI:     "C.SLLI",
	OpLWSP:     "C.LWSP",
	OpJR:       "C.JR",
	OpMV:       "C.MV",
	OpEBREAK:   "C.EBREAK",
	OpJALR:     "C.JALR",
	OpADD:      "C.ADD",
	OpSWSP:     "C.SWSP",
	OpXPEEK:    "X.PEEK",
	OpXPOKE:    "X.POKE",
	OpXTHUNK:   "X.THUNK",
}

// String returns the assembler mnemonic for the opcode.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "TRAP"
}

// WritesRd reports whether the operation commits a result to its
// destination slot. Writes to slot 0 are discarded by the register bank.
func (o Op) WritesRd() bool {
	switch o {
	case OpADDI4SPN, OpLW, OpLBU, OpLHU, OpLH,
		OpADDI, OpJAL, OpLI, OpADDI16SP, OpLUI,
		OpSRLI, OpSRAI, OpANDI, OpSUB, OpXOR, OpOR, OpAND,
		OpSLLI, OpLWSP, OpJALR, OpMV, OpADD:
		return true
	default:
		return false
	}
}

// IsLoad reports whether the operation reads data memory.
func (o Op) IsLoad() bool {
	switch o {
	case OpLW, OpLBU, OpLHU, OpLH, OpLWSP:
		return true
	default:
		return false
	}
}

// IsStore reports whether the operation writes data memory.
func (o Op) IsStore() bool {
	switch o {
	case OpSW, OpSB, OpSH, OpSWSP:
		return true
	default:
		return false
	}
}

// IsBranch reports whether the operation is a conditional branch.
func (o Op) IsBranch() bool {
	return o == OpBEQZ || o == OpBNEZ
}

// IsJump reports whether the operation unconditionally redirects fetch.
// XTHUNK counts: the mode return is a taken jump from the pipeline's
// point of view.
func (o Op) IsJump() bool {
	switch o {
	case OpJ, OpJAL, OpJR, OpJALR, OpXTHUNK:
		return true
	default:
		return false
	}
}

// IsBridge reports whether the operation is one of the three non-standard
// bank-bridge operations reserved for the microcode program.
func (o Op) IsBridge() bool {
	return o == OpXPEEK || o == OpXPOKE || o == OpXTHUNK
}

// Instruction is a decoded compressed instruction.
type Instruction struct {
	// Raw is the 16-bit instruction word.
	Raw uint16

	// Op is the classified operation (OpTrap if unsupported).
	Op Op

	// Rd is the destination slot number (0-31). For the read-modify
	// forms it doubles as the first source.
	Rd uint8

	// Rs1 is the first source slot number.
	Rs1 uint8

	// Rs2 is the second source slot number.
	Rs2 uint8

	// Imm is the sign-extended immediate. Memory and control-transfer
	// offsets are in bytes; shift forms carry the shift amount.
	Imm int32
}

// pattern is one row of the decode table: a halfword matches when
// word&mask == bits.
type pattern struct {
	mask uint16
	bits uint16
	op   Op
}

// patterns is evaluated in order; earlier rows win where encodings
// overlap (the EBREAK/JALR/JR and bridge/MV/ADD prefix groups).
var patterns = []pattern{
	// Quadrant 0
	{0xFFFF, 0x0000, OpTrap}, // all-zero halfword is defined illegal
	{0xE003, 0x0000, OpADDI4SPN},
	{0xE003, 0x4000, OpLW},
	{0xE003, 0xC000, OpSW},
	{0xFC03, 0x8000, OpLBU},
	{0xFC43, 0x8400, OpLHU},
	{0xFC43, 0x8440, OpLH},
	{0xFC03, 0x8800, OpSB},
	{0xFC43, 0x8C00, OpSH},

	// Quadrant 1
	{0xE003, 0x0001, OpADDI},
	{0xE003, 0x2001, OpJAL},
	{0xE003, 0x4001, OpLI},
	{0xE003, 0x6001, OpLUI}, // rd=2 resolves to C.ADDI16SP
	{0xEC03, 0x8001, OpSRLI},
	{0xEC03, 0x8401, OpSRAI},
	{0xEC03, 0x8801, OpANDI},
	{0xFC63, 0x8C01, OpSUB},
	{0xFC63, 0x8C21, OpXOR},
	{0xFC63, 0x8C41, OpOR},
	{0xFC63, 0x8C61, OpAND},
	{0xE003, 0xA001, OpJ},
	{0xE003, 0xC001, OpBEQZ},
	{0xE003, 0xE001, OpBNEZ},

	// Quadrant 2
	{0xE003, 0x0002, OpSLLI},
	{0xE003, 0x4002, OpLWSP},
	{0xFFFF, 0x9002, OpEBREAK},
	{0xFFFF, 0x8002, OpXTHUNK}, // C.JR rs1=0 reserved slot
	{0xFF83, 0x8002, OpXPEEK},  // C.MV rd=0 hint slot
	{0xFF83, 0x9002, OpXPOKE},  // C.ADD rd=0 hint slot
	{0xF07F, 0x8002, OpJR},
	{0xF07F, 0x9002, OpJALR},
	{0xF003, 0x8002, OpMV},
	{0xF003, 0x9002, OpADD},
	{0xE003, 0xC002, OpSWSP},
}

// Decoder classifies 16-bit instruction words.
type Decoder struct{}

// NewDecoder creates a new compressed-instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode classifies a halfword and extracts its fields. Decoding is pure:
// an unsupported or full-width encoding yields Op == OpTrap and no other
// populated fields.
func (d *Decoder) Decode(word uint16) *Instruction {
	inst := &Instruction{Raw: word, Op: OpTrap}

	// Low bits 11 mark the first parcel of a 32-bit instruction.
	if word&0x3 == 0x3 {
		return inst
	}

	for _, p := range patterns {
		if word&p.mask == p.bits {
			inst.Op = p.op
			break
		}
	}
	if inst.Op == OpTrap {
		return inst
	}

	decodeFields(inst)
	return inst
}

// Compressed 3-bit register fields address the popular x8-x15 subset.
const popularRegBase = 8

// decodeFields extracts register numbers and immediates for a classified
// word. Reserved residual encodings (nzimm=0 forms, RV32 shifts with the
// high shamt bit set, C.LWSP rd=0) are demoted to OpTrap here.
func decodeFields(inst *Instruction) {
	w := uint32(inst.Raw)

	switch inst.Op {
	case OpADDI4SPN:
		// nzuimm[5:4|9:6|2|3] at bits 12:5
		imm := (w>>11&0x3)<<4 | (w>>7&0xF)<<6 | (w>>6&0x1)<<2 | (w>>5&0x1)<<3
		if imm == 0 {
			inst.Op = OpTrap // RES, nzuimm=0
			return
		}
		inst.Rd = popularRegBase + uint8(w>>2&0x7)
		inst.Rs1 = 2 // sp
		inst.Imm = int32(imm)

	case OpLW, OpSW:
		// uimm[5:3] at bits 12:10, uimm[2|6] at bits 6:5
		imm := (w>>10&0x7)<<3 | (w>>6&0x1)<<2 | (w>>5&0x1)<<6
		inst.Rs1 = popularRegBase + uint8(w>>7&0x7)
		inst.Imm = int32(imm)
		if inst.Op == OpLW {
			inst.Rd = popularRegBase + uint8(w>>2&0x7)
		} else {
			inst.Rs2 = popularRegBase + uint8(w>>2&0x7)
		}

	case OpLBU, OpSB:
		// uimm[0] at bit 6, uimm[1] at bit 5
		imm := (w >> 6 & 0x1) | (w>>5&0x1)<<1
		inst.Rs1 = popularRegBase + uint8(w>>7&0x7)
		inst.Imm = int32(imm)
		if inst.Op == OpLBU {
			inst.Rd = popularRegBase + uint8(w>>2&0x7)
		} else {
			inst.Rs2 = popularRegBase + uint8(w>>2&0x7)
		}

	case OpLHU, OpLH, OpSH:
		// uimm[1] at bit 5
		imm := (w >> 5 & 0x1) << 1
		inst.Rs1 = popularRegBase + uint8(w>>7&0x7)
		inst.Imm = int32(imm)
		if inst.Op == OpSH {
			inst.Rs2 = popularRegBase + uint8(w>>2&0x7)
		} else {
			inst.Rd = popularRegBase + uint8(w>>2&0x7)
		}

	case OpADDI:
		inst.Rd = uint8(w >> 7 & 0x1F)
		inst.Rs1 = inst.Rd
		inst.Imm = signExtend((w>>12&0x1)<<5|w>>2&0x1F, 6)

	case OpLI:
		inst.Rd = uint8(w >> 7 & 0x1F)
		inst.Imm = signExtend((w>>12&0x1)<<5|w>>2&0x1F, 6)

	case OpLUI:
		rd := uint8(w >> 7 & 0x1F)
		if rd == 2 {
			// nzimm[9] at bit 12, nzimm[4|6|8:7|5] at bits 6:2
			imm := (w>>12&0x1)<<9 | (w>>6&0x1)<<4 | (w>>5&0x1)<<6 |
				(w>>3&0x3)<<7 | (w>>2&0x1)<<5
			if imm == 0 {
				inst.Op = OpTrap // RES, nzimm=0
				return
			}
			inst.Op = OpADDI16SP
			inst.Rd = 2
			inst.Rs1 = 2
			inst.Imm = signExtend(imm, 10)
			return
		}
		imm := (w>>12&0x1)<<17 | (w>>2&0x1F)<<12
		if imm == 0 {
			inst.Op = OpTrap // RES, nzimm=0
			return
		}
		inst.Rd = rd
		inst.Imm = signExtend(imm, 18)

	case OpSRLI, OpSRAI:
		if w>>12&0x1 != 0 {
			inst.Op = OpTrap // shamt[5]=1 is NSE on RV32
			return
		}
		inst.Rd = popularRegBase + uint8(w>>7&0x7)
		inst.Rs1 = inst.Rd
		inst.Imm = int32(w >> 2 & 0x1F)

	case OpANDI:
		inst.Rd = popularRegBase + uint8(w>>7&0x7)
		inst.Rs1 = inst.Rd
		inst.Imm = signExtend((w>>12&0x1)<<5|w>>2&0x1F, 6)

	case OpSUB, OpXOR, OpOR, OpAND:
		inst.Rd = popularRegBase + uint8(w>>7&0x7)
		inst.Rs1 = inst.Rd
		inst.Rs2 = popularRegBase + uint8(w>>2&0x7)

	case OpJ, OpJAL:
		// imm[11|4|9:8|10|6|7|3:1|5] at bits 12:2
		imm := (w>>12&0x1)<<11 | (w>>11&0x1)<<4 | (w>>9&0x3)<<8 |
			(w>>8&0x1)<<10 | (w>>7&0x1)<<6 | (w>>6&0x1)<<7 |
			(w>>3&0x7)<<1 | (w>>2&0x1)<<5
		inst.Imm = signExtend(imm, 12)
		if inst.Op == OpJAL {
			inst.Rd = 1 // ra
		}

	case OpBEQZ, OpBNEZ:
		// imm[8|4:3] at bits 12:10, imm[7:6|2:1|5] at bits 6:2
		imm := (w>>12&0x1)<<8 | (w>>10&0x3)<<3 | (w>>5&0x3)<<6 |
			(w>>3&0x3)<<1 | (w>>2&0x1)<<5
		inst.Rs1 = popularRegBase + uint8(w>>7&0x7)
		inst.Imm = signExtend(imm, 9)

	case OpSLLI:
		if w>>12&0x1 != 0 {
			inst.Op = OpTrap // shamt[5]=1 is NSE on RV32
			return
		}
		inst.Rd = uint8(w >> 7 & 0x1F)
		inst.Rs1 = inst.Rd
		inst.Imm = int32(w >> 2 & 0x1F)

	case OpLWSP:
		rd := uint8(w >> 7 & 0x1F)
		if rd == 0 {
			inst.Op = OpTrap // RES, rd=0
			return
		}
		// uimm[5] at bit 12, uimm[4:2|7:6] at bits 6:2
		imm := (w>>12&0x1)<<5 | (w>>4&0x7)<<2 | (w>>2&0x3)<<6
		inst.Rd = rd
		inst.Rs1 = 2
		inst.Imm = int32(imm)

	case OpSWSP:
		// uimm[5:2|7:6] at bits 12:7
		imm := (w>>9&0xF)<<2 | (w>>7&0x3)<<6
		inst.Rs1 = 2
		inst.Rs2 = uint8(w >> 2 & 0x1F)
		inst.Imm = int32(imm)

	case OpJR:
		inst.Rs1 = uint8(w >> 7 & 0x1F)

	case OpJALR:
		inst.Rd = 1 // ra
		inst.Rs1 = uint8(w >> 7 & 0x1F)

	case OpMV:
		inst.Rd = uint8(w >> 7 & 0x1F)
		inst.Rs2 = uint8(w >> 2 & 0x1F)

	case OpADD:
		inst.Rd = uint8(w >> 7 & 0x1F)
		inst.Rs1 = inst.Rd
		inst.Rs2 = uint8(w >> 2 & 0x1F)

	case OpXPEEK, OpXPOKE:
		inst.Rs2 = uint8(w >> 2 & 0x1F)

	case OpEBREAK, OpXTHUNK:
		// no fields
	}
}

// signExtend sign-extends the low bits of v to 32 bits.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
