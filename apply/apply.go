// Package apply is the Apply Engine: it takes a gate and a geometry and
// updates a truncated MPS, handling SVD truncation, basis translation,
// composite-gate (Measurement/Reset) dispatch, and post-application
// normalization. It plays the role the teacher's core.emu.go dispatch
// switch played for CGRA opcodes, but dispatches on gate.Kind/geometry.Kind
// instead of an opcode string.
package apply

import (
	"sort"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/rng"
	"github.com/sarchlab/mpssim/simerr"
	"github.com/sarchlab/mpssim/tensor"
)

// Params bundles the truncation and chain parameters the Apply Engine
// needs on every call; SimulationState owns one of these and passes it
// through unchanged.
type Params struct {
	L      int
	BC     basis.BC
	Cutoff float64
	Maxdim int
}

// Apply dispatches on geo's kind and applies g to mps via bmap/reg,
// exactly as described in spec.md §4.4:
//
//   - Static single-target geometries: compute sites, apply once.
//   - Staircases: compute sites, apply once, then advance.
//   - Pointer: compute sites, apply once, never auto-advance.
//   - Compound geometries (Bricklayer, AllSites): apply once per element.
func Apply(mps *tensor.MPS, bmap *basis.Mapping, reg *rng.Registry, g gate.Gate, geo geometry.Geometry, p Params) error {
	switch geo.Kind() {
	case geometry.Compound:
		elements, err := geo.SitesFor(p.L, p.BC)
		if err != nil {
			return err
		}
		for _, sites := range elements {
			if err := applyElement(mps, bmap, reg, g, sites, p); err != nil {
				return err
			}
		}
		return nil

	default: // geometry.Simple
		tuples, err := geo.SitesFor(p.L, p.BC)
		if err != nil {
			return err
		}
		if len(tuples) != 1 {
			return simerr.New(simerr.Internal, "simple geometry %T produced %d site tuples, expected 1", geo, len(tuples))
		}
		if err := applyElement(mps, bmap, reg, g, tuples[0], p); err != nil {
			return err
		}
		if adv, ok := geo.(geometry.Advancer); ok {
			if err := adv.Advance(p.L, p.BC); err != nil {
				return err
			}
		}
		return nil
	}
}

// ApplyAt applies g to exactly one physical-site tuple, without consulting
// geo at all. The Executor uses this to drive compound geometries element
// by element so it can evaluate a recording predicate between elements,
// something the single-shot Apply entry point cannot offer.
func ApplyAt(mps *tensor.MPS, bmap *basis.Mapping, reg *rng.Registry, g gate.Gate, physicalSites []int, p Params) error {
	return applyElement(mps, bmap, reg, g, physicalSites, p)
}

// applyElement applies g to exactly one physical-site tuple, dispatching
// composite gates (Measurement, Reset) to their dedicated primitives and
// everything else through the generic operator path.
func applyElement(mps *tensor.MPS, bmap *basis.Mapping, reg *rng.Registry, g gate.Gate, physicalSites []int, p Params) error {
	switch g.Kind() {
	case gate.Measurement:
		if len(physicalSites) != 1 {
			return simerr.New(simerr.Unsupported, "Measurement requires a single-site element, got %d sites", len(physicalSites))
		}
		_, err := MeasureSite(mps, bmap, reg, physicalSites[0])
		return err

	case gate.Reset:
		if len(physicalSites) != 1 {
			return simerr.New(simerr.Unsupported, "Reset requires a single-site element, got %d sites", len(physicalSites))
		}
		outcome, err := MeasureSite(mps, bmap, reg, physicalSites[0])
		if err != nil {
			return err
		}
		if outcome == 1 {
			x := gate.NewPauliX().(gate.OperatorGate)
			return applyOperatorGate(mps, bmap, x, physicalSites, mps.D, reg, p)
		}
		return nil

	default:
		og, ok := g.(gate.OperatorGate)
		if !ok {
			return simerr.New(simerr.Unsupported, "gate kind %v has no operator-building implementation", g.Kind())
		}
		return applyOperatorGate(mps, bmap, og, physicalSites, mps.D, reg, p)
	}
}

// applyOperatorGate is the core primitive from spec.md §4.4,
// _apply_single(state, gate, physical_sites):
//
//  1. Validate |physical_sites| = gate.support(); else InvalidArgument.
//  2. Translate each physical site to its RAM index via phy->ram.
//  3. Ask the gate to build its operator against those RAM indices,
//     sorted ascending.
//  4. Run apply_op_internal using the state's cutoff/maxdim.
//  5. If the gate's kind requires normalization, normalize the MPS.
func applyOperatorGate(mps *tensor.MPS, bmap *basis.Mapping, og gate.OperatorGate, physicalSites []int, d int, reg *rng.Registry, p Params) error {
	if len(physicalSites) != og.Support() {
		return simerr.New(simerr.InvalidArgument, "gate %v has support %d but received %d sites", og.Kind(), og.Support(), len(physicalSites))
	}

	ram := make([]int, len(physicalSites))
	for i, phy := range physicalSites {
		r, err := bmap.Phy2RAM(phy)
		if err != nil {
			return err
		}
		ram[i] = r
	}
	sortedRAM := append([]int(nil), ram...)
	sort.Ints(sortedRAM)

	ctx := &gate.Context{RNG: reg, MPS: mps, D: d}
	op, err := og.BuildOperator(sortedRAM, d, ctx)
	if err != nil {
		return err
	}

	center, err := applyOpInternal(mps, op, sortedRAM, p.Cutoff, p.Maxdim)
	if err != nil {
		return err
	}

	if og.Kind().NormalizeAfter() {
		if err := mps.NormalizeAt(center); err != nil {
			return err
		}
	}
	return nil
}

// applyOpInternal is apply_op_internal(mps, op, site_indices, cutoff,
// maxdim) from spec.md §4.4. sortedRAM holds the operator's touched RAM
// positions in ascending order (I in the spec's notation); it must have
// come from index identity, never tag parsing, which is automatically
// true here since applyOperatorGate derives it straight from phy->ram.
func applyOpInternal(mps *tensor.MPS, op *tensor.Matrix, sortedRAM []int, cutoff float64, maxdim int) (center int, err error) {
	switch len(sortedRAM) {
	case 1:
		ramIdx := sortedRAM[0] - 1
		if ramIdx < 0 || ramIdx >= mps.L {
			return 0, simerr.New(simerr.Internal, "operator RAM index %d not found in the state's %d sites", sortedRAM[0], mps.L)
		}
		if err := mps.ApplySingleSite(ramIdx, op); err != nil {
			return 0, err
		}
		return ramIdx, nil

	case 2:
		if sortedRAM[1] != sortedRAM[0]+1 {
			// Two-site operators are applied only to RAM-adjacent pairs; a
			// longer run of tensors is never contracted. The open mapping
			// keeps every nearest-neighbor pair adjacent, but under the
			// periodic mappings many physical neighbors are not (periodic,
			// L=4: physical sites 1 and 2 sit at RAM 1 and 3), and such
			// pairs are rejected here.
			return 0, simerr.New(simerr.Internal, "two-site operator touches non-adjacent RAM positions %d and %d", sortedRAM[0], sortedRAM[1])
		}
		ramI := sortedRAM[0] - 1
		if ramI < 0 || ramI+1 >= mps.L {
			return 0, simerr.New(simerr.Internal, "operator RAM indices %v not found in the state's %d sites", sortedRAM, mps.L)
		}
		if err := mps.ApplyTwoSite(ramI, op, cutoff, maxdim); err != nil {
			return 0, err
		}
		return ramI + 1, nil

	default:
		return 0, simerr.New(simerr.Unsupported, "operators over %d sites are not implemented; only support 1 or 2 is defined", len(sortedRAM))
	}
}

// MeasureSite performs the per-site Born measurement primitive from
// spec.md §4.4: compute p0 = <psi|P_0|psi> at the site, draw u from the
// born stream, outcome is 0 if u < p0 else 1, apply the corresponding
// 1-d projector, renormalize.
func MeasureSite(mps *tensor.MPS, bmap *basis.Mapping, reg *rng.Registry, phySite int) (outcome int, err error) {
	ram, err := bmap.Phy2RAM(phySite)
	if err != nil {
		return 0, err
	}
	ramIdx := ram - 1

	probs, err := mps.SiteMarginal(ramIdx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, p := range probs {
		total += p
	}
	if total < 1e-14 {
		return 0, simerr.New(simerr.NumericalFailure, "total measurement probability %.3e at site %d is below the numerical floor", total, phySite)
	}

	u, err := reg.Float64(rng.Born)
	if err != nil {
		return 0, err
	}

	p0 := probs[0] / total
	outcome = 0
	if u >= p0 {
		outcome = 1
	}

	proj := tensor.NewMatrix(mps.D, mps.D)
	proj.Set(outcome, outcome, 1)
	if err := mps.ApplySingleSite(ramIdx, proj); err != nil {
		return 0, err
	}
	if err := mps.NormalizeAt(ramIdx); err != nil {
		return 0, err
	}
	return outcome, nil
}
