// Package expand is the Expander: it resolves a symbolic Circuit to a
// concrete, per-step list of ExpandedOps under a seeded RNG, without ever
// touching a SimulationState (spec.md §4.7). It shares circuit.SelectBranch
// with package executor so the two implementations of the Selection Rule
// can never drift apart.
package expand

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/circuit"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/simerr"
)

// ExpandedOp is one concrete per-timestep gate application.
type ExpandedOp struct {
	StepIdx int
	Gate    gate.Gate
	Sites   []int
	Label   string
}

// ExpandCircuit validates c's geometries, then walks its n_steps
// repetitions against an RNG seeded from seed, producing one []ExpandedOp
// per step. Each stochastic operation consumes exactly one draw per step,
// matching the Selection Rule the Executor also uses.
func ExpandCircuit(c *circuit.Circuit, seed int64) ([][]ExpandedOp, error) {
	for _, op := range c.Operations {
		if err := validateOperationGeometries(op); err != nil {
			return nil, err
		}
	}

	r := rand.New(rand.NewSource(seed))
	advance := map[geometry.Geometry]int{}

	steps := make([][]ExpandedOp, c.NSteps)
	for step := 1; step <= c.NSteps; step++ {
		var stepOps []ExpandedOp
		for _, op := range c.Operations {
			switch op.Kind {
			case circuit.Deterministic:
				ops, err := expandElement(op.Gate, op.Geometry, step, c.L, c.BC, advance)
				if err != nil {
					return nil, err
				}
				stepOps = append(stepOps, ops...)

			case circuit.Stochastic:
				u := r.Float64()
				outcome, ok := circuit.SelectBranch(u, op.Outcomes)
				if !ok {
					continue
				}
				ops, err := expandElement(outcome.Gate, outcome.Geometry, step, c.L, c.BC, advance)
				if err != nil {
					return nil, err
				}
				stepOps = append(stepOps, ops...)
			}
		}
		steps[step-1] = stepOps
	}
	return steps, nil
}

// expandElement computes the physical site tuple(s) geo yields at its
// current advance count (never mutating geo itself), emits one ExpandedOp
// per tuple, then records an advance for geo if it is a staircase — the
// pure equivalent of the auto-advance Apply performs after a live gate
// application.
func expandElement(g gate.Gate, geo geometry.Geometry, step, l int, bc basis.BC, advance map[geometry.Geometry]int) ([]ExpandedOp, error) {
	n := advance[geo]
	tuples, err := geometry.ComputeSites(geo, n, l, bc)
	if err != nil {
		return nil, err
	}
	if _, ok := geo.(geometry.Advancer); ok {
		advance[geo] = n + 1
	}

	out := make([]ExpandedOp, len(tuples))
	for i, sites := range tuples {
		out[i] = ExpandedOp{
			StepIdx: step,
			Gate:    g,
			Sites:   sites,
			Label:   fmt.Sprintf("%s@%v", g.Kind().Label(), sites),
		}
	}
	return out, nil
}

func validateOperationGeometries(op circuit.Operation) error {
	if op.Kind == circuit.Deterministic {
		return validateGeometry(op.Geometry)
	}
	for _, o := range op.Outcomes {
		if err := validateGeometry(o.Geometry); err != nil {
			return err
		}
	}
	return nil
}

// validateGeometry rejects any geometry type the Expander does not
// understand how to advance/compute (spec.md §4.7 step 1).
func validateGeometry(g geometry.Geometry) error {
	switch g.(type) {
	case geometry.SingleSite, geometry.AdjacentPair, geometry.NextNearestNeighbor,
		*geometry.StaircaseRight, *geometry.StaircaseLeft, *geometry.Pointer,
		geometry.Bricklayer, geometry.AllSites:
		return nil
	default:
		return simerr.New(simerr.Unsupported, "geometry %T is not a supported Expander type", g)
	}
}
