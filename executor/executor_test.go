package executor_test

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/circuit"
	"github.com/sarchlab/mpssim/executor"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/observable"
	"github.com/sarchlab/mpssim/record"
	"github.com/sarchlab/mpssim/simstate"
)

// fixedCircuit builds the L=4, open, n_steps=2 circuit with two
// operations (HaarRandom on a right staircase starting at 1, then Reset
// on site 2) used across every quantitative scenario below.
func fixedCircuit() *circuit.Circuit {
	c, err := circuit.NewBuilder(4, basis.Open).
		WithSteps(2).
		Apply(gate.NewHaarRandom(), geometry.NewStaircaseRight(1)).
		Apply(gate.NewReset(), geometry.SingleSite{Site: 2}).
		Build()
	Expect(err).NotTo(HaveOccurred())
	return c
}

// eightGatesPerRepCircuit builds an L=4, open, n_steps=4 circuit with the
// same two operations per step as fixedCircuit, giving 8 gates per
// repetition instead of 4 — enough for every_n_gates(2) to fire its
// deferred flag four times within a single repetition, which must still
// collapse to exactly one recorded value at that repetition's end.
func eightGatesPerRepCircuit() *circuit.Circuit {
	c, err := circuit.NewBuilder(4, basis.Open).
		WithSteps(4).
		Apply(gate.NewHaarRandom(), geometry.NewStaircaseRight(1)).
		Apply(gate.NewReset(), geometry.SingleSite{Site: 2}).
		Build()
	Expect(err).NotTo(HaveOccurred())
	return c
}

func freshState() *simstate.SimulationState {
	s, err := simstate.NewBuilder(4, basis.Open).Build()
	Expect(err).NotTo(HaveOccurred())
	bits := "0000"
	Expect(s.Initialize(simstate.InitSpec{ProductState: &simstate.ProductStateSpec{Bitstring: &bits}})).To(Succeed())
	Expect(s.Track("dw", observable.NewDomainWall("dw", 1))).To(Succeed())
	return s
}

var _ = Describe("Simulate", func() {
	It("records length 2 for n_circuits=2 with :every_step", func() {
		state := freshState()
		Expect(executor.Simulate(fixedCircuit(), state, 2, record.EveryStep())).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(2))
	})

	It("records length 8 for n_circuits=2 with :every_gate", func() {
		state := freshState()
		Expect(executor.Simulate(fixedCircuit(), state, 2, record.EveryGate())).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(8))
	})

	It("records length 1 for n_circuits=2 with :final_only", func() {
		state := freshState()
		Expect(executor.Simulate(fixedCircuit(), state, 2, record.FinalOnly())).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(1))
	})

	It("records length 3 for n_circuits=3 with every_n_gates(4)", func() {
		state := freshState()
		pred, err := record.EveryNGates(4)
		Expect(err).NotTo(HaveOccurred())
		Expect(executor.Simulate(fixedCircuit(), state, 3, pred)).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(3))
	})

	It("records length 2, not 8, for n_circuits=2 with every_n_gates(2) over 8 gates/repetition", func() {
		state := freshState()
		pred, err := record.EveryNGates(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(executor.Simulate(eightGatesPerRepCircuit(), state, 2, pred)).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(2))
	})

	It("records length 2 for n_circuits=4 with every_n_steps(2)", func() {
		state := freshState()
		pred, err := record.EveryNSteps(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(executor.Simulate(fixedCircuit(), state, 4, pred)).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(2))
	})

	It("records length 1 for n_circuits=2 with a user predicate firing once on gate_idx==1", func() {
		state := freshState()
		pred := record.User(func(ctx record.Context) bool { return ctx.GateIdx == 1 })
		Expect(executor.Simulate(fixedCircuit(), state, 2, pred)).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(1))
	})

	It("rejects n_circuits < 1", func() {
		state := freshState()
		err := executor.Simulate(fixedCircuit(), state, 0, record.EveryStep())
		Expect(err).To(HaveOccurred())
	})

	It("resolves a named preset via record.Resolve", func() {
		pred, err := record.Resolve("every_step")
		Expect(err).NotTo(HaveOccurred())
		state := freshState()
		Expect(executor.Simulate(fixedCircuit(), state, 1, pred)).To(Succeed())
		series, err := state.Series("dw")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(HaveLen(1))
	})

	It("rejects an unknown preset name", func() {
		_, err := record.Resolve("every_blorp")
		Expect(err).To(HaveOccurred())
	})

	It("evaluates a tracked observable exactly once per :every_step repetition", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		mockObs := NewMockObservable(mockCtrl)
		mockObs.EXPECT().Eval(gomock.Any(), gomock.Any()).Return(0.0, nil).Times(3)

		state, err := simstate.NewBuilder(4, basis.Open).Build()
		Expect(err).NotTo(HaveOccurred())
		bits := "0000"
		Expect(state.Initialize(simstate.InitSpec{ProductState: &simstate.ProductStateSpec{Bitstring: &bits}})).To(Succeed())
		Expect(state.Track("mock", mockObs)).To(Succeed())

		Expect(executor.Simulate(fixedCircuit(), state, 3, record.EveryStep())).To(Succeed())
	})
})
