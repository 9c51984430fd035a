package latency_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ucsim/emu"
	"github.com/sarchlab/ucsim/timing/latency"
)

var _ = Describe("Latency", func() {
	Describe("Table", func() {
		var table *latency.Table

		BeforeEach(func() {
			table = latency.NewTable(latency.DefaultConfig())
		})

		It("should sum extraction, dispatch, body and return", func() {
			// 10 + 2 + 2 + 3 with the default model
			Expect(table.TrapCost(emu.CostALU, 0)).To(Equal(uint64(17)))
		})

		It("should charge per shifter iteration", func() {
			// body = 3 + 4 steps
			Expect(table.TrapCost(emu.CostShift, 4)).To(Equal(uint64(22)))
			Expect(table.TrapCost(emu.CostShift, 0)).To(Equal(uint64(18)))
		})

		It("should pick the class body", func() {
			Expect(table.TrapCost(emu.CostLoad, 0)).To(Equal(uint64(21)))
			Expect(table.TrapCost(emu.CostSystem, 0)).To(Equal(uint64(16)))
		})

		It("should expose the refill cost", func() {
			Expect(table.Refill()).To(Equal(uint64(2)))
		})
	})

	Describe("Config", func() {
		It("should validate the default", func() {
			Expect(latency.DefaultConfig().Validate()).To(Succeed())
		})

		It("should reject a zero refill", func() {
			cfg := latency.DefaultConfig()
			cfg.TrapRefill = 0
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should round-trip through a file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "latency.json")

			cfg := latency.DefaultConfig()
			cfg.Load = 9
			Expect(cfg.Save(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("should fail on a missing file", func() {
			_, err := latency.LoadConfig("/nonexistent/latency.json")
			Expect(err).To(HaveOccurred())
		})

		It("should clone without sharing", func() {
			cfg := latency.DefaultConfig()
			clone := cfg.Clone()
			clone.ALU = 99
			Expect(cfg.ALU).ToNot(Equal(clone.ALU))
		})
	})
})
