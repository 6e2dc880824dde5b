// Package gate is the Gate Catalog: single- and two-site operators plus
// the composite stochastic gates (Measurement, Reset) and the two-site
// spin-sector gates. Gates are a closed tagged-variant sum type, the same
// shape as the teacher's ISA registry (program.ISA mapped instruction
// names to behaviors); here the "behavior" is BuildOperator, dispatched
// by Kind rather than by opcode string.
package gate

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sarchlab/mpssim/rng"
	"github.com/sarchlab/mpssim/simerr"
	"github.com/sarchlab/mpssim/tensor"
)

var titleCaser = cases.Title(language.English)

// Kind tags which catalog entry a Gate is.
type Kind int

const (
	PauliX Kind = iota
	PauliY
	PauliZ
	HaarRandom
	Projection
	CZ
	Measurement
	Reset
	SpinSectorProjection
	SpinSectorMeasurement
)

// Label returns the display name used in ExpandedOp visualization labels
// and in RecordingContext.GateType. Measurement and Reset are title-cased
// from their lowercase names with golang.org/x/text/cases; every other
// kind returns a fixed literal such as "HaarRandom".
func (k Kind) Label() string {
	switch k {
	case PauliX:
		return "PauliX"
	case PauliY:
		return "PauliY"
	case PauliZ:
		return "PauliZ"
	case HaarRandom:
		return "HaarRandom"
	case Projection:
		return "Projection"
	case CZ:
		return "CZ"
	case Measurement:
		return titleCaser.String("measurement")
	case Reset:
		return titleCaser.String("reset")
	case SpinSectorProjection:
		return "SpinSectorProjection"
	case SpinSectorMeasurement:
		return "SpinSectorMeasurement"
	default:
		return "Unknown"
	}
}

// NormalizeAfter reports whether the Apply Engine must renormalize the
// MPS after applying a gate of this kind. Exactly Projection,
// SpinSectorProjection, and SpinSectorMeasurement require it; every other
// kind is unitary and must not be renormalized.
func (k Kind) NormalizeAfter() bool {
	switch k {
	case Projection, SpinSectorProjection, SpinSectorMeasurement:
		return true
	default:
		return false
	}
}

// Context is what a gate's BuildOperator receives: the RNG registry (for
// HaarRandom's haar draw and SpinSectorMeasurement's born draw), the
// local Hilbert dimension, and read-only access to the MPS for two-site
// random gates that need Born-rule probabilities before choosing an
// operator.
type Context struct {
	RNG *rng.Registry
	MPS *tensor.MPS
	D   int
}

// Gate is the common interface every catalog entry implements.
type Gate interface {
	Kind() Kind
	Support() int
}

// OperatorGate is implemented by every non-composite gate: it can build
// its operator directly. Measurement and Reset do not implement this
// interface; the Apply Engine recognizes their Kind and drives its own
// per-site Born-measurement primitive instead (see package apply).
type OperatorGate interface {
	Gate
	BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error)
}

// ---- single-site Paulis ----

type pauliX struct{}
type pauliY struct{}
type pauliZ struct{}

func NewPauliX() Gate { return pauliX{} }
func NewPauliY() Gate { return pauliY{} }
func NewPauliZ() Gate { return pauliZ{} }

func (pauliX) Kind() Kind    { return PauliX }
func (pauliX) Support() int { return 1 }
func (pauliX) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	return qubitOnly(d, func() *tensor.Matrix {
		m := tensor.NewMatrix(2, 2)
		m.Set(0, 1, 1)
		m.Set(1, 0, 1)
		return m
	})
}

func (pauliY) Kind() Kind    { return PauliY }
func (pauliY) Support() int { return 1 }
func (pauliY) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	return qubitOnly(d, func() *tensor.Matrix {
		m := tensor.NewMatrix(2, 2)
		m.Set(0, 1, complex(0, -1))
		m.Set(1, 0, complex(0, 1))
		return m
	})
}

func (pauliZ) Kind() Kind    { return PauliZ }
func (pauliZ) Support() int { return 1 }
func (pauliZ) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	return qubitOnly(d, func() *tensor.Matrix {
		m := tensor.NewMatrix(2, 2)
		m.Set(0, 0, 1)
		m.Set(1, 1, -1)
		return m
	})
}

func qubitOnly(d int, build func() *tensor.Matrix) (*tensor.Matrix, error) {
	if d != 2 {
		return nil, simerr.New(simerr.Unsupported, "Pauli gates are only defined for d=2 (Qubit sites), got d=%d", d)
	}
	return build(), nil
}

// ---- HaarRandom (two-site) ----

type haarRandom struct{}

func NewHaarRandom() Gate { return haarRandom{} }

func (haarRandom) Kind() Kind    { return HaarRandom }
func (haarRandom) Support() int { return 2 }
func (haarRandom) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	stream, err := ctx.RNG.Stream(rng.Haar)
	if err != nil {
		return nil, err
	}
	return tensor.RandomUnitary(d*d, stream)
}

// ---- CZ (two-site, qubit only) ----

type cz struct{}

func NewCZ() Gate { return cz{} }

func (cz) Kind() Kind    { return CZ }
func (cz) Support() int { return 2 }
func (cz) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	if d != 2 {
		return nil, simerr.New(simerr.Unsupported, "CZ is only defined for d=2 (Qubit sites), got d=%d", d)
	}
	m := tensor.Identity(4)
	m.Set(3, 3, -1)
	return m, nil
}

// ---- Projection (single-site, opaque externally supplied projector) ----

// projection wraps a caller-supplied d x d projector matrix. Per the
// scope note in spec.md §1, concrete projector formulas (spin sectors,
// domain-wall-adjacent observables) are external collaborators; the
// engine only needs to know this is a single-site operator that requires
// renormalization after application.
type projection struct{ P *tensor.Matrix }

func NewProjection(p *tensor.Matrix) Gate { return projection{P: p} }

func (g projection) Kind() Kind    { return Projection }
func (g projection) Support() int { return 1 }
func (g projection) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	if g.P.Rows != d || g.P.Cols != d {
		return nil, simerr.New(simerr.InvalidArgument, "projection matrix shape %dx%d does not match local dimension %d", g.P.Rows, g.P.Cols, d)
	}
	return g.P, nil
}

// ---- Measurement / Reset (composite) ----

// Basis names a one-site measurement basis. Only the computational basis
// is built in; callers that need a rotated basis apply a unitary before
// Measurement/Reset, matching how the teacher leaves basis-change
// composition to the caller rather than baking it into one opcode.
type Basis string

const ComputationalBasis Basis = "computational"

type measurement struct{ Basis Basis }

func NewMeasurement(basis Basis) Gate { return measurement{Basis: basis} }

func (g measurement) Kind() Kind    { return Measurement }
func (g measurement) Support() int { return 1 }

type reset struct{}

func NewReset() Gate { return reset{} }

func (reset) Kind() Kind    { return Reset }
func (reset) Support() int { return 1 }

// ---- Spin-sector gates (two-site, opaque externally supplied sectors) ----

// SpinSector is one irreducible-representation projector among the sector
// decomposition of two adjacent sites' joint Hilbert space (e.g. for two
// spin-1 sites, dims 1/3/5 summing to 9). The concrete projector matrices
// are out of the core's scope (spec.md §1): callers build them from the
// physical site type and hand them in.
type SpinSector struct {
	P *tensor.Matrix
}

type spinSectorProjection struct{ Sector SpinSector }

// NewSpinSectorProjection builds a deterministic two-site gate that always
// projects onto the given sector.
func NewSpinSectorProjection(sector SpinSector) Gate {
	return spinSectorProjection{Sector: sector}
}

func (g spinSectorProjection) Kind() Kind    { return SpinSectorProjection }
func (g spinSectorProjection) Support() int { return 2 }
func (g spinSectorProjection) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	if g.Sector.P.Rows != d*d || g.Sector.P.Cols != d*d {
		return nil, simerr.New(simerr.InvalidArgument, "spin-sector projector shape %dx%d does not match joint dimension %d", g.Sector.P.Rows, g.Sector.P.Cols, d*d)
	}
	return g.Sector.P, nil
}

type spinSectorMeasurement struct{ Sectors []SpinSector }

// NewSpinSectorMeasurement builds a Born-sampled two-site gate that picks
// one of sectors (in order) with probability equal to that sector's
// expectation value on the current state, drawing exactly one value from
// the born stream.
func NewSpinSectorMeasurement(sectors []SpinSector) Gate {
	return spinSectorMeasurement{Sectors: sectors}
}

func (g spinSectorMeasurement) Kind() Kind    { return SpinSectorMeasurement }
func (g spinSectorMeasurement) Support() int { return 2 }

func (g spinSectorMeasurement) BuildOperator(sites []int, d int, ctx *Context) (*tensor.Matrix, error) {
	if len(sites) != 2 {
		return nil, simerr.New(simerr.InvalidArgument, "SpinSectorMeasurement requires exactly 2 sites, got %d", len(sites))
	}
	if ctx.MPS == nil {
		return nil, simerr.New(simerr.Internal, "SpinSectorMeasurement requires read-only MPS access")
	}

	scratch := ctx.MPS.Clone()
	probs := make([]float64, len(g.Sectors))
	total := 0.0
	for i, sector := range g.Sectors {
		if sector.P.Rows != d*d || sector.P.Cols != d*d {
			return nil, simerr.New(simerr.InvalidArgument, "spin-sector projector %d shape %dx%d does not match joint dimension %d", i, sector.P.Rows, sector.P.Cols, d*d)
		}
		p, err := bornProbabilityTwoSite(scratch, sites[0]-1, sector.P)
		if err != nil {
			return nil, err
		}
		probs[i] = p
		total += p
	}
	if total < 1e-14 {
		return nil, simerr.New(simerr.NumericalFailure, "total spin-sector probability %.3e is below the numerical floor", total)
	}

	u, err := ctx.RNG.Float64(rng.Born)
	if err != nil {
		return nil, err
	}

	cumulative := 0.0
	for i, p := range probs {
		cumulative += p / total
		if u < cumulative {
			return g.Sectors[i].P, nil
		}
	}
	// Residual mass (numerical edge case): fall back to the last sector.
	return g.Sectors[len(g.Sectors)-1].P, nil
}

// bornProbabilityTwoSite computes <psi|P|psi> for a two-site projector P
// acting on the adjacent RAM sites (ramI, ramI+1). It gauges m in place,
// which rewrites m's tensors without changing the state they represent;
// SpinSectorMeasurement therefore hands it a clone of the live MPS.
func bornProbabilityTwoSite(m *tensor.MPS, ramI int, p *tensor.Matrix) (float64, error) {
	if err := m.Gauge(ramI); err != nil {
		return 0, err
	}
	A := m.Sites[ramI]
	B := m.Sites[ramI+1]
	d1, d2 := A.Phys, B.Phys

	var sum float64
	for l := 0; l < A.Left; l++ {
		for r := 0; r < B.Right; r++ {
			amp := make([]complex128, d1*d2)
			for p1 := 0; p1 < d1; p1++ {
				for p2 := 0; p2 < d2; p2++ {
					var v complex128
					for mid := 0; mid < A.Right; mid++ {
						v += A.Data[l][p1][mid] * B.Data[mid][p2][r]
					}
					amp[p1*d2+p2] = v
				}
			}
			for i := 0; i < d1*d2; i++ {
				var pAmp complex128
				for j := 0; j < d1*d2; j++ {
					pv := p.At(i, j)
					if pv == 0 {
						continue
					}
					pAmp += pv * amp[j]
				}
				sum += real(amp[i])*real(pAmp) + imag(amp[i])*imag(pAmp)
			}
		}
	}
	return sum, nil
}
