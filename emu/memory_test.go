package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ucsim/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemory()
	})

	It("should read zero from untouched addresses", func() {
		Expect(mem.Read32(0x1000)).To(Equal(uint32(0)))
	})

	It("should store words little-endian", func() {
		mem.Write32(0x100, 0xDEADBEEF)

		Expect(mem.Read8(0x100)).To(Equal(uint8(0xEF)))
		Expect(mem.Read8(0x103)).To(Equal(uint8(0xDE)))
		Expect(mem.Read16(0x100)).To(Equal(uint16(0xBEEF)))
		Expect(mem.Read32(0x100)).To(Equal(uint32(0xDEADBEEF)))
	})

	It("should span page boundaries", func() {
		mem.Write32(0xFFE, 0x12345678)
		Expect(mem.Read32(0xFFE)).To(Equal(uint32(0x12345678)))
	})

	Describe("BuildStore", func() {
		It("should rotate a byte store into its lane", func() {
			// Byte at an address with low bits 10 lands in lane 2.
			tx := emu.BuildStore(0x102, 0xAB, 1)

			Expect(tx.Addr).To(Equal(uint32(0x100)))
			Expect(tx.Mask).To(Equal(uint8(0b0100)))
			Expect(tx.WData).To(Equal(uint32(0x00AB0000)))
		})

		It("should rotate a halfword store into its lanes", func() {
			tx := emu.BuildStore(0x102, 0xBEEF, 2)

			Expect(tx.Addr).To(Equal(uint32(0x100)))
			Expect(tx.Mask).To(Equal(uint8(0b1100)))
			Expect(tx.WData).To(Equal(uint32(0xBEEF0000)))
		})

		It("should cover all lanes for a word store", func() {
			tx := emu.BuildStore(0x100, 0xCAFEBABE, 4)

			Expect(tx.Addr).To(Equal(uint32(0x100)))
			Expect(tx.Mask).To(Equal(uint8(0xF)))
			Expect(tx.WData).To(Equal(uint32(0xCAFEBABE)))
		})
	})

	Describe("Apply", func() {
		It("should write only the masked lanes", func() {
			mem.Write32(0x100, 0x11223344)

			mem.Apply(emu.BuildStore(0x102, 0xAB, 1))

			Expect(mem.Read32(0x100)).To(Equal(uint32(0x11AB3344)))
		})
	})
})

var _ = Describe("MemoryPort", func() {
	var (
		mem  *emu.Memory
		port *emu.MemoryPort
	)

	BeforeEach(func() {
		mem = emu.NewMemory()
		port = emu.NewMemoryPort(mem, 2)
	})

	It("should acknowledge a read after the configured latency", func() {
		mem.Write32(0x200, 0x55AA55AA)

		port.Issue(emu.Transaction{Addr: 0x200, Read: true})
		Expect(port.Busy()).To(BeTrue())

		_, ack := port.Poll()
		Expect(ack).To(BeFalse())

		data, ack := port.Poll()
		Expect(ack).To(BeTrue())
		Expect(data).To(Equal(uint32(0x55AA55AA)))
		Expect(port.Busy()).To(BeFalse())
	})

	It("should commit writes at issue time", func() {
		port.Issue(emu.BuildStore(0x300, 0xCAFEBABE, 4))

		Expect(port.Busy()).To(BeFalse())
		Expect(mem.Read32(0x300)).To(Equal(uint32(0xCAFEBABE)))
	})

	It("should reject a second outstanding read", func() {
		port.Issue(emu.Transaction{Addr: 0x200, Read: true})

		Expect(func() {
			port.Issue(emu.Transaction{Addr: 0x204, Read: true})
		}).To(Panic())
	})
})

var _ = Describe("MemoryInstPort", func() {
	It("should fetch halfwords by halfword address", func() {
		mem := emu.NewMemory()
		mem.Write16(0x10, 0x4515)

		port := emu.NewMemoryInstPort(mem)
		word, stall := port.Fetch(0x8)

		Expect(word).To(Equal(uint16(0x4515)))
		Expect(stall).To(Equal(uint64(0)))
	})
})
