package expand_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/circuit"
	"github.com/sarchlab/mpssim/expand"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
)

var _ = Describe("ExpandCircuit", func() {
	It("emits one ExpandedOp per step for a deterministic single-site circuit", func() {
		c, err := circuit.NewBuilder(4, basis.Open).
			WithSteps(3).
			Apply(gate.NewPauliX(), geometry.SingleSite{Site: 2}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		steps, err := expand.ExpandCircuit(c, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(steps).To(HaveLen(3))
		for _, ops := range steps {
			Expect(ops).To(HaveLen(1))
			Expect(ops[0].Sites).To(Equal([]int{2}))
		}
	})

	It("advances a staircase geometry's site tuple exactly once per step", func() {
		geo := geometry.NewStaircaseRight(1)
		c, err := circuit.NewBuilder(4, basis.Open).
			WithSteps(3).
			Apply(gate.NewCZ(), geo).
			Build()
		Expect(err).NotTo(HaveOccurred())

		steps, err := expand.ExpandCircuit(c, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(steps[0][0].Sites).To(Equal([]int{1, 2}))
		Expect(steps[1][0].Sites).To(Equal([]int{2, 3}))
		Expect(steps[2][0].Sites).To(Equal([]int{3, 4}))
		// the live geometry itself must never have been mutated
		Expect(geo.Pos).To(Equal(1))
	})

	It("is deterministic for a fixed seed", func() {
		c, err := circuit.NewBuilder(4, basis.Open).
			WithSteps(5).
			ApplyWithProb("ctrl", []circuit.Outcome{
				{Probability: 0.5, Gate: gate.NewPauliX(), Geometry: geometry.SingleSite{Site: 1}},
				{Probability: 0.5, Gate: gate.NewPauliZ(), Geometry: geometry.SingleSite{Site: 2}},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		a, err := expand.ExpandCircuit(c, 42)
		Expect(err).NotTo(HaveOccurred())
		b, err := expand.ExpandCircuit(c, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("emits one ExpandedOp per element for a compound geometry", func() {
		c, err := circuit.NewBuilder(4, basis.Open).
			Apply(gate.NewCZ(), geometry.Bricklayer{Parity: geometry.Odd}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		steps, err := expand.ExpandCircuit(c, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(steps[0]).To(HaveLen(2)) // (1,2) and (3,4)
	})

	It("emits nothing for a step where the stochastic operation selects no outcome", func() {
		c, err := circuit.NewBuilder(4, basis.Open).
			WithSteps(1).
			ApplyWithProb("ctrl", []circuit.Outcome{
				{Probability: 0.0, Gate: gate.NewPauliX(), Geometry: geometry.SingleSite{Site: 1}},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		steps, err := expand.ExpandCircuit(c, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(steps[0]).To(BeEmpty())
	})
})
