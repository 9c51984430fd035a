package emu_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ucsim/emu"
)

var _ = Describe("ALU", func() {
	var alu emu.ALU

	It("should add and subtract on the shared adder", func() {
		Expect(alu.AddSub(5, 7, false)).To(Equal(uint32(12)))
		Expect(alu.AddSub(5, 7, true)).To(Equal(uint32(0xFFFFFFFE)))
		Expect(alu.AddSub(0xFFFFFFFF, 1, false)).To(Equal(uint32(0)))
	})

	It("should compute the bitwise operations", func() {
		Expect(alu.And(0xF0F0, 0xFF00)).To(Equal(uint32(0xF000)))
		Expect(alu.Or(0xF0F0, 0x0F0F)).To(Equal(uint32(0xFFFF)))
		Expect(alu.Xor(0xFFFF, 0x00FF)).To(Equal(uint32(0xFF00)))
	})

	Describe("DynamicShift", func() {
		It("should match direct shifts at the group boundaries", func() {
			for _, amount := range []uint32{0, 1, 7, 8, 9, 15, 16, 17, 31} {
				v := uint32(0x80001234)
				Expect(emu.DynamicShift(v, amount, emu.ShiftLeft)).
					To(Equal(v<<amount), "left by %d", amount)
				Expect(emu.DynamicShift(v, amount, emu.ShiftRightLogical)).
					To(Equal(v>>amount), "logical right by %d", amount)
				Expect(emu.DynamicShift(v, amount, emu.ShiftRightArith)).
					To(Equal(uint32(int32(v)>>amount)), "arith right by %d", amount)
			}
		})

		It("should match direct shifts on random operands", func() {
			r := rand.New(rand.NewSource(42))
			for i := 0; i < 1000; i++ {
				v := r.Uint32()
				amount := r.Uint32() & 31
				Expect(emu.DynamicShift(v, amount, emu.ShiftLeft)).To(Equal(v << amount))
				Expect(emu.DynamicShift(v, amount, emu.ShiftRightLogical)).To(Equal(v >> amount))
				Expect(emu.DynamicShift(v, amount, emu.ShiftRightArith)).
					To(Equal(uint32(int32(v) >> amount)))
			}
		})

		It("should count one step per iteration", func() {
			Expect(emu.ShiftSteps(0)).To(Equal(uint64(0)))
			Expect(emu.ShiftSteps(1)).To(Equal(uint64(1)))
			Expect(emu.ShiftSteps(8)).To(Equal(uint64(1)))
			Expect(emu.ShiftSteps(9)).To(Equal(uint64(2)))
			Expect(emu.ShiftSteps(31)).To(Equal(uint64(10)))
		})
	})

	Describe("Comparisons", func() {
		It("should compare unsigned", func() {
			Expect(emu.LessThanUnsigned(1, 2)).To(Equal(uint32(1)))
			Expect(emu.LessThanUnsigned(2, 1)).To(Equal(uint32(0)))
			Expect(emu.LessThanUnsigned(3, 3)).To(Equal(uint32(0)))
			Expect(emu.LessThanUnsigned(0xFFFFFFFF, 0)).To(Equal(uint32(0)))
		})

		It("should compare signed across the overflow boundary", func() {
			// INT_MIN - 1 overflows a plain subtraction, so the compare
			// must not rely on the difference's sign.
			Expect(emu.LessThanSigned(0x80000000, 1)).To(Equal(uint32(1)))
			Expect(emu.LessThanSigned(1, 0x80000000)).To(Equal(uint32(0)))
			Expect(emu.LessThanSigned(0x7FFFFFFF, 0x80000000)).To(Equal(uint32(0)))
			Expect(emu.LessThanSigned(0xFFFFFFFF, 0)).To(Equal(uint32(1)))
			Expect(emu.LessThanSigned(5, 5)).To(Equal(uint32(0)))
		})

		It("should agree with native signed compare on random operands", func() {
			r := rand.New(rand.NewSource(99))
			for i := 0; i < 1000; i++ {
				a, b := r.Uint32(), r.Uint32()
				want := uint32(0)
				if int32(a) < int32(b) {
					want = 1
				}
				Expect(emu.LessThanSigned(a, b)).To(Equal(want))
			}
		})
	})

	Describe("AGU", func() {
		It("should step sequentially in halfword units", func() {
			agu := emu.NewAGU(20)
			Expect(agu.Next(0x100, 0)).To(Equal(uint32(0x101)))
		})

		It("should apply relative offsets minus the implicit step", func() {
			agu := emu.NewAGU(20)
			Expect(agu.Next(0x100, 3)).To(Equal(uint32(0x104)))
			Expect(agu.Next(0x100, -5)).To(Equal(uint32(0xFC)))
		})

		It("should wrap at the address width", func() {
			agu := emu.NewAGU(8)
			Expect(agu.Next(0xFF, 0)).To(Equal(uint32(0)))
			Expect(agu.Mask()).To(Equal(uint32(0xFF)))
		})
	})
})
