package gate

import (
	"testing"

	"github.com/stretchr/testify/require"

	mrng "github.com/sarchlab/mpssim/rng"
	"github.com/sarchlab/mpssim/tensor"
)

func TestNormalizeAfter(t *testing.T) {
	require.True(t, Projection.NormalizeAfter())
	require.True(t, SpinSectorProjection.NormalizeAfter())
	require.True(t, SpinSectorMeasurement.NormalizeAfter())
	require.False(t, PauliX.NormalizeAfter())
	require.False(t, PauliY.NormalizeAfter())
	require.False(t, PauliZ.NormalizeAfter())
	require.False(t, HaarRandom.NormalizeAfter())
	require.False(t, CZ.NormalizeAfter())
}

func TestPauliXOperator(t *testing.T) {
	g := NewPauliX().(OperatorGate)
	op, err := g.BuildOperator([]int{1}, 2, &Context{})
	require.NoError(t, err)
	require.Equal(t, complex(1, 0), op.At(0, 1))
	require.Equal(t, complex(1, 0), op.At(1, 0))
	require.Equal(t, complex(0, 0), op.At(0, 0))
}

func TestPauliRejectsNonQubitDimension(t *testing.T) {
	g := NewPauliZ().(OperatorGate)
	_, err := g.BuildOperator([]int{1}, 3, &Context{})
	require.Error(t, err)
}

func TestCZOperatorFlipsSignOnOneOne(t *testing.T) {
	g := NewCZ().(OperatorGate)
	op, err := g.BuildOperator([]int{1, 2}, 2, &Context{})
	require.NoError(t, err)
	require.Equal(t, complex(-1, 0), op.At(3, 3))
	require.Equal(t, complex(1, 0), op.At(0, 0))
}

func TestHaarRandomBuildsUnitaryFromHaarStream(t *testing.T) {
	reg := mrng.New(1234)
	g := NewHaarRandom().(OperatorGate)
	ctx := &Context{RNG: reg, D: 2}
	op, err := g.BuildOperator([]int{1, 2}, 2, ctx)
	require.NoError(t, err)
	require.Equal(t, 4, op.Rows)
	require.Equal(t, 4, op.Cols)
}

func TestSpinSectorMeasurementDrawsExactlyOneBornValue(t *testing.T) {
	reg := mrng.New(55)
	m, err := tensor.NewProductState(2, 3, []int{0, 0})
	require.NoError(t, err)

	sectors := []SpinSector{
		{P: identityLike(9)},
		{P: tensor.NewMatrix(9, 9)},
		{P: tensor.NewMatrix(9, 9)},
	}
	g := NewSpinSectorMeasurement(sectors).(OperatorGate)
	ctx := &Context{RNG: reg, MPS: m, D: 3}

	before, err := reg.Stream(mrng.Born)
	require.NoError(t, err)
	_ = before

	op, err := g.BuildOperator([]int{1, 2}, 3, ctx)
	require.NoError(t, err)
	require.Same(t, sectors[0].P, op)

	// The born stream advanced by exactly one draw: its next value equals
	// the second draw of an identically seeded reference registry.
	ref := mrng.New(55)
	_, err = ref.Float64(mrng.Born)
	require.NoError(t, err)
	want, err := ref.Float64(mrng.Born)
	require.NoError(t, err)
	got, err := reg.Float64(mrng.Born)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func identityLike(n int) *tensor.Matrix {
	return tensor.Identity(n)
}

func TestSpinSectorMeasurementFailsOnZeroProbability(t *testing.T) {
	reg := mrng.New(1)
	m, err := tensor.NewProductState(2, 3, []int{0, 0})
	require.NoError(t, err)

	sectors := []SpinSector{
		{P: tensor.NewMatrix(9, 9)},
	}
	g := NewSpinSectorMeasurement(sectors).(OperatorGate)
	ctx := &Context{RNG: reg, MPS: m, D: 3}
	_, err = g.BuildOperator([]int{1, 2}, 3, ctx)
	require.Error(t, err)
}

func TestMeasurementAndResetAreNotOperatorGates(t *testing.T) {
	m := NewMeasurement(ComputationalBasis)
	_, ok := m.(OperatorGate)
	require.False(t, ok)

	r := NewReset()
	_, ok = r.(OperatorGate)
	require.False(t, ok)
}

func TestDeterministicHaarRandomAcrossIdenticalSeeds(t *testing.T) {
	g := NewHaarRandom().(OperatorGate)
	reg1 := mrng.New(777)
	reg2 := mrng.New(777)
	op1, err := g.BuildOperator([]int{1, 2}, 2, &Context{RNG: reg1, D: 2})
	require.NoError(t, err)
	op2, err := g.BuildOperator([]int{1, 2}, 2, &Context{RNG: reg2, D: 2})
	require.NoError(t, err)
	for i := 0; i < op1.Rows; i++ {
		for j := 0; j < op1.Cols; j++ {
			require.InDelta(t, real(op1.At(i, j)), real(op2.At(i, j)), 1e-12)
			require.InDelta(t, imag(op1.At(i, j)), imag(op2.At(i, j)), 1e-12)
		}
	}
}
