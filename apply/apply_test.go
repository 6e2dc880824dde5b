package apply

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/rng"
	"github.com/sarchlab/mpssim/tensor"
)

func openParams(L int) Params {
	return Params{L: L, BC: basis.Open, Cutoff: 1e-12, Maxdim: 16}
}

func TestApplySingleSitePauliXOnSimpleGeometry(t *testing.T) {
	bmap, err := basis.New(4, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(4, 2, []int{0, 0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(1)

	x := gate.NewPauliX()
	require.NoError(t, Apply(m, bmap, reg, x, geometry.SingleSite{Site: 2}, openParams(4)))

	probs, err := m.SiteMarginal(1)
	require.NoError(t, err)
	require.InDelta(t, 1.0, probs[1], 1e-9)
}

func TestApplyCZOnAdjacentPairLeavesZeroZeroInvariant(t *testing.T) {
	bmap, err := basis.New(3, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(3, 2, []int{0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(2)

	cz := gate.NewCZ()
	require.NoError(t, Apply(m, bmap, reg, cz, geometry.AdjacentPair{I: 1}, openParams(3)))

	probs, err := m.SiteMarginal(0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, probs[0], 1e-9)
}

func TestApplyStaircaseRightAdvancesPointerAfterSuccess(t *testing.T) {
	bmap, err := basis.New(4, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(4, 2, []int{0, 0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(3)

	geo := geometry.NewStaircaseRight(1)
	cz := gate.NewCZ()
	require.NoError(t, Apply(m, bmap, reg, cz, geo, openParams(4)))
	require.Equal(t, 2, geo.Pos)

	require.NoError(t, Apply(m, bmap, reg, cz, geo, openParams(4)))
	require.Equal(t, 3, geo.Pos)
}

func TestApplyPointerNeverAutoAdvances(t *testing.T) {
	bmap, err := basis.New(4, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(4, 2, []int{0, 0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(4)

	geo := geometry.NewPointer(1)
	cz := gate.NewCZ()
	require.NoError(t, Apply(m, bmap, reg, cz, geo, openParams(4)))
	require.Equal(t, 1, geo.Pos)
}

func TestApplyCompoundGeometryAppliesToEveryElement(t *testing.T) {
	bmap, err := basis.New(4, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(4, 2, []int{0, 0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(5)

	x := gate.NewPauliX()
	require.NoError(t, Apply(m, bmap, reg, x, geometry.AllSites{}, openParams(4)))

	for ram := 0; ram < 4; ram++ {
		probs, err := m.SiteMarginal(ram)
		require.NoError(t, err)
		require.InDelta(t, 1.0, probs[1], 1e-9)
	}
}

func TestApplyTwoSiteGateRejectsNonAdjacentRAMPositions(t *testing.T) {
	// Under periodic_nnn BC with L=4, the RAM order is [2,1,3,4]; physical
	// sites 2 and 4 (NextNearestNeighbor(2)) map to RAM 1 and 4, which do
	// not land adjacent. This exercises apply_op_internal's adjacency
	// guard rather than silently contracting the wrong legs.
	bmap, err := basis.New(4, basis.PeriodicNNN)
	require.NoError(t, err)
	m, err := tensor.NewProductState(4, 2, []int{0, 0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(6)

	cz := gate.NewCZ()
	p := Params{L: 4, BC: basis.PeriodicNNN, Cutoff: 1e-12, Maxdim: 16}
	err = Apply(m, bmap, reg, cz, geometry.NextNearestNeighbor{I: 2}, p)
	require.Error(t, err)
}

func TestApplyMeasurementCollapsesToDeterministicOutcome(t *testing.T) {
	bmap, err := basis.New(2, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(2, 2, []int{1, 0})
	require.NoError(t, err)
	reg := rng.New(7)

	meas := gate.NewMeasurement(gate.ComputationalBasis)
	require.NoError(t, Apply(m, bmap, reg, meas, geometry.SingleSite{Site: 1}, openParams(2)))

	probs, err := m.SiteMarginal(0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, probs[1], 1e-9)
}

func TestApplyResetFlipsSiteBackToZero(t *testing.T) {
	bmap, err := basis.New(2, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(2, 2, []int{1, 0})
	require.NoError(t, err)
	reg := rng.New(8)

	reset := gate.NewReset()
	require.NoError(t, Apply(m, bmap, reg, reset, geometry.SingleSite{Site: 1}, openParams(2)))

	probs, err := m.SiteMarginal(0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, probs[0], 1e-9)
}

func TestMeasureSiteDrawsExactlyOneBornValue(t *testing.T) {
	bmap, err := basis.New(2, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(2, 2, []int{0, 0})
	require.NoError(t, err)
	reg := rng.New(9)

	outcome, err := MeasureSite(m, bmap, reg, 1)
	require.NoError(t, err)
	require.Equal(t, 0, outcome)

	// The born stream advanced by exactly one draw: its next value equals
	// the second draw of an identically seeded reference registry.
	ref := rng.New(9)
	_, err = ref.Float64(rng.Born)
	require.NoError(t, err)
	want, err := ref.Float64(rng.Born)
	require.NoError(t, err)
	got, err := reg.Float64(rng.Born)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMeasurementRejectsMultiSiteElement(t *testing.T) {
	bmap, err := basis.New(3, basis.Open)
	require.NoError(t, err)
	m, err := tensor.NewProductState(3, 2, []int{0, 0, 0})
	require.NoError(t, err)
	reg := rng.New(10)

	meas := gate.NewMeasurement(gate.ComputationalBasis)
	err = Apply(m, bmap, reg, meas, geometry.AdjacentPair{I: 1}, openParams(3))
	require.Error(t, err)
}
