package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config describes one core instance.
type Config struct {
	// AddrBits is the width of the halfword-unit program counter. The
	// byte address space is twice as large.
	AddrBits uint `json:"addr_bits"`

	// MicrocodeBase is the byte address of the region reserved for the
	// emulation program. Nothing else may be loaded there.
	MicrocodeBase uint32 `json:"microcode_base"`

	// DataLatency is the data-port read acknowledge latency in cycles.
	DataLatency int `json:"data_latency"`

	// FullSystem enables halting on the 32-bit EBREAK instruction. In
	// the minimal configuration the system group executes inertly.
	FullSystem bool `json:"full_system"`
}

// DefaultConfig returns the minimal core configuration: a 2 MiB byte
// address space with the emulation region at the top.
func DefaultConfig() Config {
	return Config{
		AddrBits:      20,
		MicrocodeBase: 0x1FF000,
		DataLatency:   1,
	}
}

// LoadConfig reads a core configuration from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read core config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse core config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal core config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write core config: %w", err)
	}

	return nil
}

// Validate checks the configuration for values the core cannot honor.
func (c Config) Validate() error {
	if c.AddrBits < 8 || c.AddrBits > 31 {
		return fmt.Errorf("addr_bits must be between 8 and 31, got %d", c.AddrBits)
	}
	if c.MicrocodeBase%2 != 0 {
		return fmt.Errorf("microcode_base 0x%X is not halfword aligned", c.MicrocodeBase)
	}
	if limit := uint64(1) << (c.AddrBits + 1); uint64(c.MicrocodeBase) >= limit {
		return fmt.Errorf("microcode_base 0x%X is outside the %d-bit address space",
			c.MicrocodeBase, c.AddrBits)
	}
	if c.DataLatency < 1 {
		return fmt.Errorf("data_latency must be at least 1, got %d", c.DataLatency)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c Config) Clone() Config {
	return c
}
