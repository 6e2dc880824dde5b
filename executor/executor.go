// Package executor is the Executor: it drives a symbolic Circuit against a
// live SimulationState, n_circuits times, dispatching gates through the
// Apply Engine element by element so the Recording Controller can evaluate
// its predicate between elements of a compound geometry, not only at the
// end of a repetition. This plays the role the teacher's core.Emu event
// loop played for CGRA instruction dispatch, but against a Circuit's
// operations instead of a compiled instruction stream.
package executor

import (
	"github.com/sarchlab/mpssim/apply"
	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/circuit"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/record"
	"github.com/sarchlab/mpssim/simerr"
	"github.com/sarchlab/mpssim/simstate"
)

// Simulate runs c against state n_circuits times, per spec.md §4.8.
// gate_idx is cumulative across the entire call, never reset between
// repetitions; is_step_boundary fires exactly once per repetition, on the
// last gate of the last operation of the last inner step. When that fires
// pred requests a deferred record (set_flag), state is recorded once at
// the end of that repetition; when it requests an immediate record
// (record_now), state is recorded right away, mid-repetition if need be.
// If an operation resolves to zero elements (a stochastic op that
// selected no outcome) and it is the final operation of the final inner
// step, pred is still evaluated once with an unchanged gate_idx and
// is_step_boundary=true, so :every_step/:final_only still fire for that
// repetition even though no gate ran on that tick.
func Simulate(c *circuit.Circuit, state *simstate.SimulationState, nCircuits int, pred record.Predicate) error {
	if nCircuits < 1 {
		return simerr.New(simerr.InvalidArgument, "n_circuits must be >= 1, got %d", nCircuits)
	}

	gateIdx := 0
	for rep := 1; rep <= nCircuits; rep++ {
		if err := runRepetition(c, state, rep, nCircuits, pred, &gateIdx); err != nil {
			return err
		}
	}
	return nil
}

func runRepetition(c *circuit.Circuit, state *simstate.SimulationState, rep, nCircuits int, pred record.Predicate, gateIdx *int) error {
	shouldRecord := false

	for step := 1; step <= c.NSteps; step++ {
		for opIdx, op := range c.Operations {
			isLastOp := opIdx == len(c.Operations)-1
			isFinalTick := step == c.NSteps && isLastOp

			g, geo, ranStochastic, err := resolveOperation(state, op)
			if err != nil {
				return err
			}
			if ranStochastic && geo == nil {
				if err := maybeEvaluateEmptyBoundary(state, pred, rep, nCircuits, step, c.NSteps, isFinalTick, *gateIdx, &shouldRecord); err != nil {
					return err
				}
				continue
			}

			elements, err := geometryElements(geo, state.L, state.BC)
			if err != nil {
				return err
			}
			if len(elements) == 0 {
				if err := maybeEvaluateEmptyBoundary(state, pred, rep, nCircuits, step, c.NSteps, isFinalTick, *gateIdx, &shouldRecord); err != nil {
					return err
				}
				continue
			}

			for i, sites := range elements {
				if err := apply.ApplyAt(state.Mps, state.Bmap(), state.RNG, g, sites,
					apply.Params{L: state.L, BC: state.BC, Cutoff: state.Cutoff, Maxdim: state.Maxdim}); err != nil {
					return err
				}
				*gateIdx++
				isBoundary := isFinalTick && i == len(elements)-1
				ctx := record.Context{
					StepIdx: rep, GateIdx: *gateIdx, GateType: g.Kind().Label(),
					IsStepBoundary: isBoundary, InnerStep: step, NSteps: c.NSteps, NCircuits: nCircuits,
				}
				setFlag, recordNow := pred(ctx)
				if setFlag {
					shouldRecord = true
				}
				if recordNow {
					if err := state.Record(); err != nil {
						return err
					}
				}
			}

			if geo.Kind() != geometry.Compound {
				if adv, ok := geo.(geometry.Advancer); ok {
					if err := adv.Advance(state.L, state.BC); err != nil {
						return err
					}
				}
			}
		}
	}

	if shouldRecord {
		return state.Record()
	}
	return nil
}

// maybeEvaluateEmptyBoundary implements design note (ii): the conservative
// behavior for a tick whose operation ran zero gates is to still evaluate
// pred once it reaches the repetition's final tick, so
// :every_step/:final_only still fire for that repetition.
func maybeEvaluateEmptyBoundary(state *simstate.SimulationState, pred record.Predicate, rep, nCircuits, step, nSteps int, isFinalTick bool, gateIdx int, shouldRecord *bool) error {
	if !isFinalTick {
		return nil
	}
	ctx := record.Context{
		StepIdx: rep, GateIdx: gateIdx, GateType: "",
		IsStepBoundary: true, InnerStep: step, NSteps: nSteps, NCircuits: nCircuits,
	}
	setFlag, recordNow := pred(ctx)
	if setFlag {
		*shouldRecord = true
	}
	if recordNow {
		return state.Record()
	}
	return nil
}

// resolveOperation returns the gate/geometry a Deterministic operation
// always runs, or the outcome a Stochastic operation's single draw
// selects. ranStochastic is true for a Stochastic operation regardless of
// whether an outcome was selected; when it drew but selected nothing, geo
// is nil and the caller must still honor the empty-boundary contract.
func resolveOperation(state *simstate.SimulationState, op circuit.Operation) (g gate.Gate, geo geometry.Geometry, ranStochastic bool, err error) {
	if op.Kind == circuit.Deterministic {
		return op.Gate, op.Geometry, false, nil
	}

	r, err := state.RNG.Float64(op.RNGStream)
	if err != nil {
		return nil, nil, false, err
	}
	outcome, ok := circuit.SelectBranch(r, op.Outcomes)
	if !ok {
		return nil, nil, true, nil
	}
	return outcome.Gate, outcome.Geometry, true, nil
}

// geometryElements returns the physical site tuple(s) geo currently
// yields: exactly one for a Simple geometry, one per element for a
// Compound geometry.
func geometryElements(geo geometry.Geometry, l int, bc basis.BC) ([][]int, error) {
	tuples, err := geo.SitesFor(l, bc)
	if err != nil {
		return nil, err
	}
	if geo.Kind() != geometry.Compound && len(tuples) != 1 {
		return nil, simerr.New(simerr.Internal, "simple geometry %T produced %d site tuples, expected 1", geo, len(tuples))
	}
	return tuples, nil
}
