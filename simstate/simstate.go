// Package simstate is the Simulation State: the MPS, basis mapping,
// truncation parameters, RNG registry, and the registered observable/series
// bookkeeping a circuit runs against. Construction follows the teacher's
// fluent Builder idiom (core.Builder, config.DeviceBuilder); initialization
// and the track!/record! lifecycle are separate steps, matching spec.md §3's
// "created, has observables registered, is initialized once" sequence.
package simstate

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sarchlab/mpssim/apply"
	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/circuit"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/observable"
	"github.com/sarchlab/mpssim/rng"
	"github.com/sarchlab/mpssim/simerr"
	"github.com/sarchlab/mpssim/tensor"
)

// Logger is the package-level logger every SimulationState logs through;
// replace it (e.g. with a level- or handler-customized slog.Logger) before
// constructing states if the default behavior is not wanted.
var Logger = slog.Default()

// SiteType names the local Hilbert space a SimulationState's sites use.
type SiteType string

const (
	Qubit   SiteType = "Qubit"
	SpinOne SiteType = "S=1"
	Qudit   SiteType = "Qudit"
)

// defaultDim reports the implied local dimension for a site type that has
// one, and whether it has one at all (Qudit requires an explicit local_dim).
func (t SiteType) defaultDim() (int, bool) {
	switch t {
	case Qubit:
		return 2, true
	case SpinOne:
		return 3, true
	default:
		return 0, false
	}
}

func (t SiteType) valid() bool {
	switch t {
	case Qubit, SpinOne, Qudit:
		return true
	default:
		return false
	}
}

// SimulationState is the mutable home of one trajectory: its MPS, basis
// mapping, RNG streams, and recorded observable series.
type SimulationState struct {
	ID       string
	L        int
	BC       basis.BC
	SiteType SiteType
	D        int
	Cutoff   float64
	Maxdim   int
	RNG      *rng.Registry

	bmap *basis.Mapping
	Mps  *tensor.MPS

	observables map[string]observable.Observable
	order       []string
	series      map[string][]float64
}

// MPS implements observable.StateView.
func (s *SimulationState) MPS() *tensor.MPS { return s.Mps }

// Bmap implements observable.StateView, and is the accessor the executor
// uses to read this state's basis mapping.
func (s *SimulationState) Bmap() *basis.Mapping { return s.bmap }

// LocalDim implements observable.StateView.
func (s *SimulationState) LocalDim() int { return s.D }

// Builder constructs a SimulationState fluently, following the teacher's
// WithX(...).Build() idiom (core.Builder, config.DeviceBuilder).
type Builder struct {
	id       string
	l        int
	bc       basis.BC
	siteType SiteType
	d        int
	dSet     bool
	cutoff   float64
	maxdim   int
	seed     int64
	err      error
}

// NewBuilder starts a Builder for an L-site state under bc, with the
// defaults from spec.md §6: site_type="Qubit", cutoff=1e-10, maxdim=100.
func NewBuilder(l int, bc basis.BC) *Builder {
	return &Builder{l: l, bc: bc, siteType: Qubit, cutoff: 1e-10, maxdim: 100}
}

// WithID overrides the auto-generated state id used in log lines.
func (b *Builder) WithID(id string) *Builder {
	if b.err != nil {
		return b
	}
	b.id = id
	return b
}

// WithSiteType sets the site type; local_dim defaults per type unless
// WithLocalDim is also called.
func (b *Builder) WithSiteType(t SiteType) *Builder {
	if b.err != nil {
		return b
	}
	if !t.valid() {
		b.err = simerr.New(simerr.Unsupported, "site type %q is not one of Qubit, S=1, Qudit", t)
		return b
	}
	b.siteType = t
	return b
}

// WithLocalDim sets an explicit local Hilbert dimension, required for
// SiteType Qudit and optional (but must match) for Qubit/S=1.
func (b *Builder) WithLocalDim(d int) *Builder {
	if b.err != nil {
		return b
	}
	b.d = d
	b.dSet = true
	return b
}

// WithCutoff sets the SVD truncation cutoff.
func (b *Builder) WithCutoff(cutoff float64) *Builder {
	if b.err != nil {
		return b
	}
	b.cutoff = cutoff
	return b
}

// WithMaxdim sets the maximum retained bond dimension.
func (b *Builder) WithMaxdim(maxdim int) *Builder {
	if b.err != nil {
		return b
	}
	b.maxdim = maxdim
	return b
}

// WithSeed sets the seed the RNG Registry is constructed from.
func (b *Builder) WithSeed(seed int64) *Builder {
	if b.err != nil {
		return b
	}
	b.seed = seed
	return b
}

// Build finalizes the SimulationState. The returned state has no MPS yet;
// call Initialize before applying any gate to it.
func (b *Builder) Build() (*SimulationState, error) {
	if b.err != nil {
		return nil, b.err
	}

	d, dOK := b.siteType.defaultDim()
	switch {
	case b.siteType == Qudit && !b.dSet:
		return nil, simerr.New(simerr.InvalidArgument, "site type Qudit requires an explicit local dimension")
	case b.dSet && dOK && b.d != d:
		return nil, simerr.New(simerr.InvalidArgument, "local dimension %d is inconsistent with site type %q (expected %d)", b.d, b.siteType, d)
	case b.dSet:
		d = b.d
	case !dOK:
		return nil, simerr.New(simerr.InvalidArgument, "site type %q has no default local dimension", b.siteType)
	}
	if d < 2 {
		return nil, simerr.New(simerr.InvalidArgument, "local dimension must be >= 2, got %d", d)
	}

	bmap, err := basis.New(b.l, b.bc)
	if err != nil {
		return nil, err
	}

	id := b.id
	if id == "" {
		id = fmt.Sprintf("state-%d-%s", b.l, b.bc)
	}

	s := &SimulationState{
		ID:          id,
		L:           b.l,
		BC:          b.bc,
		SiteType:    b.siteType,
		D:           d,
		Cutoff:      b.cutoff,
		Maxdim:      b.maxdim,
		RNG:         rng.New(b.seed),
		bmap:        bmap,
		observables: map[string]observable.Observable{},
		series:      map[string][]float64{},
	}
	Logger.Info("simstate: constructed", "id", s.ID, "L", s.L, "bc", s.BC, "site_type", s.SiteType, "d", s.D)
	return s, nil
}

// ProductStateSpec initializes the MPS to a bond-dimension-1 product
// state. Exactly one of BinaryInt, BinaryDecimal, Bitstring must be set.
type ProductStateSpec struct {
	BinaryInt     *int
	BinaryDecimal *string
	Bitstring     *string
}

// RandomMPSSpec initializes the MPS to a random state of the given bond
// dimension, drawing its randomness from the "state_init" stream.
type RandomMPSSpec struct {
	BondDim int
}

// InitSpec is the tagged initialization request: exactly one of
// ProductStateSpec or RandomMPSSpec.
type InitSpec struct {
	ProductState *ProductStateSpec
	RandomMPS    *RandomMPSSpec
}

// Initialize builds s's MPS per spec. MSB is at physical site 1, LSB at
// physical site L (spec.md §6's site-name convention).
func (s *SimulationState) Initialize(spec InitSpec) error {
	switch {
	case spec.ProductState != nil && spec.RandomMPS == nil:
		return s.initializeProductState(*spec.ProductState)
	case spec.RandomMPS != nil && spec.ProductState == nil:
		return s.initializeRandomMPS(*spec.RandomMPS)
	default:
		return simerr.New(simerr.InvalidArgument, "InitSpec must set exactly one of ProductState or RandomMPS")
	}
}

func (s *SimulationState) initializeProductState(spec ProductStateSpec) error {
	bits, err := resolveBitPattern(spec, s.L)
	if err != nil {
		return err
	}

	basisIndexRAM := make([]int, s.L)
	for ram := 1; ram <= s.L; ram++ {
		phy, err := s.bmap.RAM2Phy(ram)
		if err != nil {
			return err
		}
		basisIndexRAM[ram-1] = int(bits[phy-1] - '0')
	}

	mps, err := tensor.NewProductState(s.L, s.D, basisIndexRAM)
	if err != nil {
		return err
	}
	s.Mps = mps
	Logger.Info("simstate: initialized to product state", "id", s.ID, "bits", bits)
	return nil
}

// resolveBitPattern turns exactly one populated ProductStateSpec field into
// an L-character '0'/'1' string, MSB (site 1) first.
func resolveBitPattern(spec ProductStateSpec, l int) (string, error) {
	set := 0
	if spec.BinaryInt != nil {
		set++
	}
	if spec.BinaryDecimal != nil {
		set++
	}
	if spec.Bitstring != nil {
		set++
	}
	if set != 1 {
		return "", simerr.New(simerr.InvalidArgument, "ProductState requires exactly one of binary_int, binary_decimal, bitstring, got %d", set)
	}

	switch {
	case spec.BinaryInt != nil:
		if *spec.BinaryInt < 0 {
			return "", simerr.New(simerr.InvalidArgument, "binary_int must be >= 0, got %d", *spec.BinaryInt)
		}
		bits := strconv.FormatInt(int64(*spec.BinaryInt), 2)
		if len(bits) > l {
			return "", simerr.New(simerr.InvalidArgument, "binary_int=%d needs more than L=%d bits", *spec.BinaryInt, l)
		}
		return strings.Repeat("0", l-len(bits)) + bits, nil

	case spec.BinaryDecimal != nil:
		raw := *spec.BinaryDecimal
		if !strings.HasPrefix(raw, "0.") {
			return "", simerr.New(simerr.InvalidArgument, "binary_decimal %q must look like \"0.xxx\"", raw)
		}
		frac := raw[2:]
		for _, c := range frac {
			if c != '0' && c != '1' {
				return "", simerr.New(simerr.InvalidArgument, "binary_decimal %q has a non-binary fractional digit", raw)
			}
		}
		if len(frac) > l {
			frac = frac[:l]
		}
		return frac + strings.Repeat("0", l-len(frac)), nil

	default:
		raw := *spec.Bitstring
		for _, c := range raw {
			if c != '0' && c != '1' {
				return "", simerr.New(simerr.InvalidArgument, "bitstring %q must be 0/1 only", raw)
			}
		}
		if len(raw) >= l {
			return raw[:l], nil
		}
		return raw + strings.Repeat("0", l-len(raw)), nil
	}
}

// initializeRandomMPS builds a random state of the given bond dimension by
// scrambling a product state with a brickwork of random unitaries drawn
// from "state_init", the stream spec.md §6 reserves for this purpose
// (never "haar", which belongs to the HaarRandom gate).
func (s *SimulationState) initializeRandomMPS(spec RandomMPSSpec) error {
	if spec.BondDim < 1 {
		return simerr.New(simerr.InvalidArgument, "RandomMPS bond_dim must be >= 1, got %d", spec.BondDim)
	}

	basisIndex := make([]int, s.L)
	mps, err := tensor.NewProductState(s.L, s.D, basisIndex)
	if err != nil {
		return err
	}
	s.Mps = mps

	stream, err := s.RNG.Stream(rng.StateInit)
	if err != nil {
		return err
	}

	sweeps := 1
	for dim := 1; dim < spec.BondDim; dim *= s.D {
		sweeps++
	}
	for sweep := 0; sweep < sweeps; sweep++ {
		start := sweep % 2
		for ramI := start; ramI+1 < s.L; ramI += 2 {
			u, err := tensor.RandomUnitary(s.D*s.D, stream)
			if err != nil {
				return err
			}
			if err := s.Mps.ApplyTwoSite(ramI, u, s.Cutoff, spec.BondDim); err != nil {
				return err
			}
		}
	}
	Logger.Info("simstate: initialized to random MPS", "id", s.ID, "bond_dim", spec.BondDim, "sweeps", sweeps)
	return nil
}

// Track registers an observable under a unique name.
func (s *SimulationState) Track(name string, obs observable.Observable) error {
	if _, exists := s.observables[name]; exists {
		return simerr.New(simerr.InvalidArgument, "observable %q is already tracked", name)
	}
	s.observables[name] = obs
	s.order = append(s.order, name)
	s.series[name] = nil
	Logger.Debug("simstate: tracking observable", "id", s.ID, "name", name)
	return nil
}

// ListObservables reports the registered observable names in registration
// order.
func (s *SimulationState) ListObservables() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Record evaluates every tracked observable against the current MPS and
// appends the result to its series. i1, if given, overrides the default
// extra-context index for observables that accept one (see
// observable.Observable.Eval); only the first value is used.
func (s *SimulationState) Record(i1 ...int) error {
	var override *int
	if len(i1) > 0 {
		override = &i1[0]
	}
	for _, name := range s.order {
		v, err := s.observables[name].Eval(s, override)
		if err != nil {
			return err
		}
		s.series[name] = append(s.series[name], v)
	}
	return nil
}

// Series returns the recorded scalar series for a tracked observable.
func (s *SimulationState) Series(name string) ([]float64, error) {
	series, ok := s.series[name]
	if !ok {
		return nil, simerr.New(simerr.InvalidArgument, "observable %q is not tracked", name)
	}
	return series, nil
}

// ApplyGate is the direct, non-circuit "apply(state, gate, geometry)" entry
// point from spec.md §6, delegating to the Apply Engine with this state's
// own basis mapping, RNG registry, and truncation parameters.
func (s *SimulationState) ApplyGate(g gate.Gate, geo geometry.Geometry) error {
	Logger.Debug("simstate: apply", "id", s.ID, "gate", g.Kind(), "geometry", geo.Kind())
	return apply.Apply(s.Mps, s.bmap, s.RNG, g, geo, apply.Params{L: s.L, BC: s.BC, Cutoff: s.Cutoff, Maxdim: s.Maxdim})
}

// ApplyWithProb is the direct, non-circuit "apply_with_prob(state, rng,
// outcomes)" entry point: it draws exactly one value from streamName and,
// if an outcome is selected (via the same circuit.SelectBranch Selection
// Rule the Expander and Executor use), applies it (looping over the
// selected geometry's elements itself, via ApplyGate/apply.Apply, if it
// is compound).
func (s *SimulationState) ApplyWithProb(streamName string, outcomes []circuit.Outcome) error {
	r, err := s.RNG.Float64(streamName)
	if err != nil {
		return err
	}
	outcome, ok := circuit.SelectBranch(r, outcomes)
	if !ok {
		return nil
	}
	return s.ApplyGate(outcome.Gate, outcome.Geometry)
}
