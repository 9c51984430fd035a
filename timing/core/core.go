// Package core assembles the register bank, memory ports, trap
// dispatcher, and pipeline into a runnable core instance.
package core

import (
	"fmt"

	"github.com/sarchlab/ucsim/emu"
	"github.com/sarchlab/ucsim/timing/latency"
	"github.com/sarchlab/ucsim/timing/pipeline"
)

// Core is one configured core instance.
type Core struct {
	cfg  Config
	mem  *emu.Memory
	bank *emu.RegBank
	pipe *pipeline.Pipeline
}

// Option configures a Core beyond its Config.
type Option func(*coreBuild)

type coreBuild struct {
	mem        *emu.Memory
	instPort   emu.InstPort
	latencyCfg latency.Config
}

// WithMemory supplies a pre-populated backing memory.
func WithMemory(mem *emu.Memory) Option {
	return func(b *coreBuild) {
		b.mem = mem
	}
}

// WithInstPort overrides the flat instruction port, typically with a
// fetch cache.
func WithInstPort(port emu.InstPort) Option {
	return func(b *coreBuild) {
		b.instPort = port
	}
}

// WithLatencyConfig overrides the emulation-path cost model.
func WithLatencyConfig(cfg latency.Config) Option {
	return func(b *coreBuild) {
		b.latencyCfg = cfg
	}
}

// NewCore builds a core from the configuration. The core starts in reset
// with fetch at address zero.
func NewCore(cfg Config, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core config: %w", err)
	}

	build := coreBuild{latencyCfg: latency.DefaultConfig()}
	for _, opt := range opts {
		opt(&build)
	}
	if err := build.latencyCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid latency config: %w", err)
	}

	mem := build.mem
	if mem == nil {
		mem = emu.NewMemory()
	}

	bank := emu.NewRegBank()
	agu := emu.NewAGU(cfg.AddrBits)
	dispatcher := emu.NewDispatcher(bank, mem,
		emu.WithDispatchAGU(agu),
		emu.WithHaltOnBreak(cfg.FullSystem))

	instPort := build.instPort
	if instPort == nil {
		instPort = emu.NewMemoryInstPort(mem)
	}

	pipe := pipeline.NewPipeline(bank, dispatcher,
		pipeline.WithFetchPort(instPort),
		pipeline.WithDataPort(emu.NewMemoryPort(mem, cfg.DataLatency)),
		pipeline.WithLatencyTable(latency.NewTable(build.latencyCfg)),
		pipeline.WithAGU(agu))
	pipe.Reset(0)

	return &Core{
		cfg:  cfg,
		mem:  mem,
		bank: bank,
		pipe: pipe,
	}, nil
}

// Config returns the core's configuration.
func (c *Core) Config() Config {
	return c.cfg
}

// Memory returns the backing memory.
func (c *Core) Memory() *emu.Memory {
	return c.mem
}

// Register reads a user-bank register.
func (c *Core) Register(n uint8) uint32 {
	return c.bank.Read(emu.BankUser, n)
}

// SetRegister writes a user-bank register.
func (c *Core) SetRegister(n uint8, v uint32) {
	c.bank.Write(emu.BankUser, n, v)
}

// SetPC restarts the core with fetch at the given byte address.
func (c *Core) SetPC(byteAddr uint32) error {
	if byteAddr%2 != 0 {
		return fmt.Errorf("entry address 0x%X is not halfword aligned", byteAddr)
	}
	c.pipe.Reset(byteAddr >> 1)
	return nil
}

// Reset restarts the core at address zero with cleared registers.
func (c *Core) Reset() {
	c.bank.Reset()
	c.pipe.Reset(0)
}

// Tick advances the core one cycle. It returns false once halted.
func (c *Core) Tick() bool {
	return c.pipe.Tick()
}

// Halted reports whether the core has stopped.
func (c *Core) Halted() bool {
	return c.pipe.Halted()
}

// Run ticks the core until it halts or maxCycles elapse. A zero
// maxCycles runs without bound.
func (c *Core) Run(maxCycles uint64) (pipeline.Statistics, error) {
	for c.pipe.Tick() {
		if maxCycles > 0 && c.pipe.Stats().Cycles >= maxCycles && !c.pipe.Halted() {
			return c.pipe.Stats(),
				fmt.Errorf("core did not halt within %d cycles", maxCycles)
		}
	}
	return c.pipe.Stats(), nil
}

// RunCycles ticks the core for at most n cycles, stopping early on halt.
func (c *Core) RunCycles(n uint64) pipeline.Statistics {
	for i := uint64(0); i < n && c.pipe.Tick(); i++ {
	}
	return c.pipe.Stats()
}

// Stats returns the accumulated pipeline counters.
func (c *Core) Stats() pipeline.Statistics {
	return c.pipe.Stats()
}

// ExitCode returns the conventional exit value register (a0).
func (c *Core) ExitCode() uint32 {
	return c.Register(10)
}
