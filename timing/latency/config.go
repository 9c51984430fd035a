package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the cycle costs of the emulation path. All values are in
// core clock cycles.
type Config struct {
	// TrapRefill is the pipeline refill after entering or leaving
	// microcode mode.
	TrapRefill uint64 `json:"trap_refill"`

	// FieldExtract covers saving the trapped instruction's fields into
	// the microcode bank.
	FieldExtract uint64 `json:"field_extract"`

	// Dispatch covers the two jump-table hops to the handler.
	Dispatch uint64 `json:"dispatch"`

	// Return covers the writeback and thunk sequence at the end of a
	// handler.
	Return uint64 `json:"return"`

	// Per-class handler bodies.
	ALU      uint64 `json:"alu"`
	Compare  uint64 `json:"compare"`
	Load     uint64 `json:"load"`
	Store    uint64 `json:"store"`
	Branch   uint64 `json:"branch"`
	Jump     uint64 `json:"jump"`
	UpperImm uint64 `json:"upper_imm"`
	System   uint64 `json:"system"`

	// ShiftBase is the shift handler body before the shifter runs;
	// ShiftStep is the cost of each shifter iteration.
	ShiftBase uint64 `json:"shift_base"`
	ShiftStep uint64 `json:"shift_step"`
}

// DefaultConfig returns the baseline cost model.
func DefaultConfig() Config {
	return Config{
		TrapRefill:   2,
		FieldExtract: 10,
		Dispatch:     2,
		Return:       3,
		ALU:          2,
		Compare:      4,
		Load:         6,
		Store:        6,
		Branch:       4,
		Jump:         3,
		UpperImm:     2,
		System:       1,
		ShiftBase:    3,
		ShiftStep:    1,
	}
}

// LoadConfig reads a cost model from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read latency config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse latency config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Save writes the cost model to a JSON file.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal latency config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write latency config: %w", err)
	}

	return nil
}

// Validate checks the cost model for values the pipeline cannot honor.
func (c Config) Validate() error {
	if c.TrapRefill == 0 {
		return fmt.Errorf("trap_refill must be at least 1")
	}
	if c.FieldExtract == 0 {
		return fmt.Errorf("field_extract must be at least 1")
	}
	if c.Dispatch == 0 {
		return fmt.Errorf("dispatch must be at least 1")
	}
	if c.Return == 0 {
		return fmt.Errorf("return must be at least 1")
	}
	return nil
}

// Clone returns a copy of the config.
func (c Config) Clone() Config {
	return c
}
