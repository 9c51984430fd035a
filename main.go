// Package main provides the entry point for ucsim.
// ucsim is a cycle-level simulator of a small RV32 core that executes
// compressed instructions natively and emulates the 32-bit base ISA
// through a microcode trap path.
//
// For the full CLI, use: go run ./cmd/ucsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("ucsim - Microcoded RV32 Core Simulator")
	fmt.Println("")
	fmt.Println("Usage: ucsim [options] <program.bin|program.hex>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to core configuration JSON file")
	fmt.Println("  -latency     Path to emulation cost model JSON file")
	fmt.Println("  -icache      Enable the instruction fetch cache")
	fmt.Println("  -max-cycles  Cycle budget before giving up")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/ucsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/ucsim' instead.")
	}
}
