package emu

// ShiftKind selects the dynamic shifter's operation.
type ShiftKind uint8

// Shift kinds.
const (
	ShiftLeft ShiftKind = iota
	ShiftRightLogical
	ShiftRightArith
)

// ALU implements the combinational arithmetic of the datapath: a shared
// adder for add/subtract, the bitwise operations, and the dynamic shifter.
type ALU struct{}

// AddSub computes a+b or a-b on the shared adder. Subtraction is addition
// of the two's complement.
func (ALU) AddSub(a, b uint32, subtract bool) uint32 {
	if subtract {
		b = ^b + 1
	}
	return a + b
}

// And returns a & b.
func (ALU) And(a, b uint32) uint32 { return a & b }

// Or returns a | b.
func (ALU) Or(a, b uint32) uint32 { return a | b }

// Xor returns a ^ b.
func (ALU) Xor(a, b uint32) uint32 { return a ^ b }

// Shift applies the dynamic shift algorithm.
func (ALU) Shift(v, amount uint32, kind ShiftKind) uint32 {
	return DynamicShift(v, amount, kind)
}

// DynamicShift shifts v by amount (mod 32) using the iterative two-phase
// algorithm of the emulation program: whole groups of 8 bit positions
// first, then one position at a time for the remainder. Amount 0 runs
// zero iterations of both phases and returns v unchanged; there is no
// special case for it.
func DynamicShift(v, amount uint32, kind ShiftKind) uint32 {
	amount &= 31
	for ; amount >= 8; amount -= 8 {
		v = shiftOnce(v, 8, kind)
	}
	for ; amount > 0; amount-- {
		v = shiftOnce(v, 1, kind)
	}
	return v
}

// ShiftSteps returns the number of iterations the dynamic shifter runs
// for the given amount. Used by the microcode cycle-cost model.
func ShiftSteps(amount uint32) uint64 {
	amount &= 31
	return uint64(amount/8 + amount%8)
}

func shiftOnce(v uint32, n uint, kind ShiftKind) uint32 {
	switch kind {
	case ShiftLeft:
		return v << n
	case ShiftRightLogical:
		return v >> n
	default:
		return uint32(int32(v) >> n)
	}
}

// LessThanUnsigned returns 1 if a < b as unsigned words, else 0.
func LessThanUnsigned(a, b uint32) uint32 {
	if a < b {
		return 1
	}
	return 0
}

// LessThanSigned returns 1 if a < b as two's-complement words, else 0.
// Both operands are biased by 2^31 so a single unsigned compare gives the
// signed order; this is the overflow-safe MSB-alignment used by the SLT
// handler, which cannot trust a bare subtraction.
func LessThanSigned(a, b uint32) uint32 {
	return LessThanUnsigned(a^0x80000000, b^0x80000000)
}

// AGU computes fetch addresses in halfword units within the configured
// address width.
type AGU struct {
	mask uint32
}

// NewAGU creates an address generation unit for the given address-bus
// width in bits (halfword units). Width validation happens at core
// construction; the AGU itself just wraps.
func NewAGU(addrBits uint) AGU {
	return AGU{mask: uint32(1)<<addrBits - 1}
}

// Next computes base + offset + 1, wrapped to the address width. The
// trailing +1 is the sequential halfword step: a sequential fetch passes
// offset 0, a control transfer passes the target offset minus one.
func (a AGU) Next(base uint32, offset int32) uint32 {
	return (base + uint32(offset) + 1) & a.mask
}

// Mask returns the address mask for the configured width.
func (a AGU) Mask() uint32 {
	return a.mask
}
