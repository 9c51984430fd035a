package insts_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ucsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Full-width instructions", func() {
		It("should trap every halfword with low bits 11", func() {
			r := rand.New(rand.NewSource(7))
			for i := 0; i < 1000; i++ {
				word := uint16(r.Uint32())<<2 | 0x3
				inst := decoder.Decode(word)
				Expect(inst.Op).To(Equal(insts.OpTrap),
					"word 0x%04X should trap", word)
			}
		})

		It("should trap the all-zero halfword", func() {
			inst := decoder.Decode(0x0000)
			Expect(inst.Op).To(Equal(insts.OpTrap))
		})
	})

	Describe("Quadrant 0", func() {
		// C.ADDI4SPN a2, sp, 8
		It("should decode C.ADDI4SPN", func() {
			inst := decoder.Decode(0x0030)

			Expect(inst.Op).To(Equal(insts.OpADDI4SPN))
			Expect(inst.Rd).To(Equal(uint8(12)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		It("should trap C.ADDI4SPN with zero immediate", func() {
			// rd' set, nzuimm bits all clear
			inst := decoder.Decode(0x0010)
			Expect(inst.Op).To(Equal(insts.OpTrap))
		})

		// C.LW a2, 8(a0)
		It("should decode C.LW", func() {
			inst := decoder.Decode(0x4510)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Rd).To(Equal(uint8(12)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// C.SW a2, 8(a0)
		It("should decode C.SW", func() {
			inst := decoder.Decode(0xC510)

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(12)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// C.LBU a2, 1(a0)
		It("should decode C.LBU", func() {
			inst := decoder.Decode(0x8150)

			Expect(inst.Op).To(Equal(insts.OpLBU))
			Expect(inst.Rd).To(Equal(uint8(12)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(1)))
		})

		// C.LHU a2, 2(a0)
		It("should decode C.LHU", func() {
			inst := decoder.Decode(0x8530)

			Expect(inst.Op).To(Equal(insts.OpLHU))
			Expect(inst.Rd).To(Equal(uint8(12)))
			Expect(inst.Imm).To(Equal(int32(2)))
		})

		// C.LH a2, 2(a0)
		It("should decode C.LH", func() {
			inst := decoder.Decode(0x8570)

			Expect(inst.Op).To(Equal(insts.OpLH))
			Expect(inst.Rd).To(Equal(uint8(12)))
			Expect(inst.Imm).To(Equal(int32(2)))
		})

		// C.SB a2, 1(a0)
		It("should decode C.SB", func() {
			inst := decoder.Decode(0x8950)

			Expect(inst.Op).To(Equal(insts.OpSB))
			Expect(inst.Rs2).To(Equal(uint8(12)))
			Expect(inst.Imm).To(Equal(int32(1)))
		})

		// C.SH a2, 2(a0)
		It("should decode C.SH", func() {
			inst := decoder.Decode(0x8D30)

			Expect(inst.Op).To(Equal(insts.OpSH))
			Expect(inst.Rs2).To(Equal(uint8(12)))
			Expect(inst.Imm).To(Equal(int32(2)))
		})
	})

	Describe("Quadrant 1", func() {
		// C.ADDI a0, 1
		It("should decode C.ADDI", func() {
			inst := decoder.Decode(0x0505)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(1)))
		})

		// C.LI a0, 5
		It("should decode C.LI", func() {
			inst := decoder.Decode(0x4515)

			Expect(inst.Op).To(Equal(insts.OpLI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(5)))
		})

		// C.LI a0, -1
		It("should sign-extend C.LI", func() {
			inst := decoder.Decode(0x557D)

			Expect(inst.Op).To(Equal(insts.OpLI))
			Expect(inst.Imm).To(Equal(int32(-1)))
		})

		// C.LUI a1, 0x1
		It("should decode C.LUI", func() {
			inst := decoder.Decode(0x6585)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Rd).To(Equal(uint8(11)))
			Expect(inst.Imm).To(Equal(int32(0x1000)))
		})

		// C.ADDI16SP sp, 16
		It("should decode C.ADDI16SP when rd is sp", func() {
			inst := decoder.Decode(0x6141)

			Expect(inst.Op).To(Equal(insts.OpADDI16SP))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(16)))
		})

		It("should trap C.LUI with zero immediate", func() {
			// funct3=011, rd=a1, nzimm=0
			inst := decoder.Decode(0x6581)
			Expect(inst.Op).To(Equal(insts.OpTrap))
		})

		// C.SRLI a0, 4
		It("should decode C.SRLI", func() {
			inst := decoder.Decode(0x8111)

			Expect(inst.Op).To(Equal(insts.OpSRLI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		It("should trap C.SRLI with the high shamt bit set", func() {
			inst := decoder.Decode(0x9111)
			Expect(inst.Op).To(Equal(insts.OpTrap))
		})

		// C.ANDI a0, 3
		It("should decode C.ANDI", func() {
			inst := decoder.Decode(0x890D)

			Expect(inst.Op).To(Equal(insts.OpANDI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(3)))
		})

		// C.SUB a0, a1 and friends
		It("should decode the register-register group", func() {
			Expect(decoder.Decode(0x8D0D).Op).To(Equal(insts.OpSUB))
			Expect(decoder.Decode(0x8D2D).Op).To(Equal(insts.OpXOR))
			Expect(decoder.Decode(0x8D4D).Op).To(Equal(insts.OpOR))
			Expect(decoder.Decode(0x8D6D).Op).To(Equal(insts.OpAND))

			inst := decoder.Decode(0x8D0D)
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(11)))
		})

		// C.J +8
		It("should decode C.J", func() {
			inst := decoder.Decode(0xA021)

			Expect(inst.Op).To(Equal(insts.OpJ))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// C.JAL +8
		It("should decode C.JAL with the link register", func() {
			inst := decoder.Decode(0x2021)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// C.BEQZ a2, +8
		It("should decode C.BEQZ", func() {
			inst := decoder.Decode(0xC601)

			Expect(inst.Op).To(Equal(insts.OpBEQZ))
			Expect(inst.Rs1).To(Equal(uint8(12)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})
	})

	Describe("Quadrant 2", func() {
		// C.SLLI a0, 4
		It("should decode C.SLLI", func() {
			inst := decoder.Decode(0x0512)

			Expect(inst.Op).To(Equal(insts.OpSLLI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		// C.LWSP a0, 4(sp)
		It("should decode C.LWSP", func() {
			inst := decoder.Decode(0x4512)

			Expect(inst.Op).To(Equal(insts.OpLWSP))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		It("should trap C.LWSP with rd=0", func() {
			inst := decoder.Decode(0x4012)
			Expect(inst.Op).To(Equal(insts.OpTrap))
		})

		// C.SWSP a0, 4(sp)
		It("should decode C.SWSP", func() {
			inst := decoder.Decode(0xC22A)

			Expect(inst.Op).To(Equal(insts.OpSWSP))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		// C.JR ra
		It("should decode C.JR", func() {
			inst := decoder.Decode(0x8082)

			Expect(inst.Op).To(Equal(insts.OpJR))
			Expect(inst.Rs1).To(Equal(uint8(1)))
		})

		// C.JALR a0
		It("should decode C.JALR", func() {
			inst := decoder.Decode(0x9502)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
		})

		// C.MV a0, a1
		It("should decode C.MV", func() {
			inst := decoder.Decode(0x852E)

			Expect(inst.Op).To(Equal(insts.OpMV))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(11)))
		})

		// C.ADD a2, a0
		It("should decode C.ADD", func() {
			inst := decoder.Decode(0x962A)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Rd).To(Equal(uint8(12)))
			Expect(inst.Rs1).To(Equal(uint8(12)))
			Expect(inst.Rs2).To(Equal(uint8(10)))
		})

		It("should decode C.EBREAK", func() {
			inst := decoder.Decode(0x9002)
			Expect(inst.Op).To(Equal(insts.OpEBREAK))
		})
	})

	Describe("Bridge operations", func() {
		It("should decode X.THUNK in the C.JR rs1=0 slot", func() {
			inst := decoder.Decode(0x8002)
			Expect(inst.Op).To(Equal(insts.OpXTHUNK))
		})

		It("should decode X.PEEK in the C.MV rd=0 slot", func() {
			inst := decoder.Decode(0x8016)

			Expect(inst.Op).To(Equal(insts.OpXPEEK))
			Expect(inst.Rs2).To(Equal(uint8(5)))
		})

		It("should decode X.POKE in the C.ADD rd=0 slot", func() {
			inst := decoder.Decode(0x9016)

			Expect(inst.Op).To(Equal(insts.OpXPOKE))
			Expect(inst.Rs2).To(Equal(uint8(5)))
		})

		It("should not shadow C.MV or C.ADD with a real destination", func() {
			Expect(decoder.Decode(0x852E).Op).To(Equal(insts.OpMV))
			Expect(decoder.Decode(0x962A).Op).To(Equal(insts.OpADD))
		})

		It("should classify the bridge group", func() {
			Expect(insts.OpXPEEK.IsBridge()).To(BeTrue())
			Expect(insts.OpXPOKE.IsBridge()).To(BeTrue())
			Expect(insts.OpXTHUNK.IsBridge()).To(BeTrue())
			Expect(insts.OpMV.IsBridge()).To(BeFalse())
		})
	})

	Describe("Op classification", func() {
		It("should classify loads and stores", func() {
			Expect(insts.OpLW.IsLoad()).To(BeTrue())
			Expect(insts.OpLWSP.IsLoad()).To(BeTrue())
			Expect(insts.OpSW.IsStore()).To(BeTrue())
			Expect(insts.OpSB.IsStore()).To(BeTrue())
			Expect(insts.OpADD.IsLoad()).To(BeFalse())
		})

		It("should classify control transfers", func() {
			Expect(insts.OpBEQZ.IsBranch()).To(BeTrue())
			Expect(insts.OpJ.IsJump()).To(BeTrue())
			Expect(insts.OpXTHUNK.IsJump()).To(BeTrue())
			Expect(insts.OpADDI.IsBranch()).To(BeFalse())
		})

		It("should name every opcode", func() {
			Expect(insts.OpADD.String()).To(Equal("C.ADD"))
			Expect(insts.OpXPEEK.String()).To(Equal("X.PEEK"))
			Expect(insts.OpTrap.String()).To(Equal("TRAP"))
		})
	})
})
