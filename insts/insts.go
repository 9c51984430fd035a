// Package insts provides compressed (16-bit) instruction definitions and
// decoding for the microcoded RV32 core.
//
// The core executes the RVC repertoire (plus the Zcb byte/halfword memory
// forms) natively. Three non-standard bridge operations, squatting on
// reserved encoding space next to C.JR/C.MV, connect normal execution with
// the microcode register bank:
//   - XPEEK: read a user-bank register, selected by a register number held
//     in a microcode register, into a fixed microcode slot
//   - XPOKE: write a microcode register value into the user-bank register
//     whose number is held in the microcode rd-field slot
//   - XTHUNK: leave microcode mode and resume user execution at the saved
//     program counter
//
// Any halfword whose low two bits are 11 marks a full 32-bit instruction
// and decodes to OpTrap, as does every reserved or unsupported compressed
// pattern. Traps are the entry point of the emulation path, not errors.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x962A) // C.ADD a2, a0
package insts
