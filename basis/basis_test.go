package basis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenIsIdentityBothWays(t *testing.T) {
	m, err := New(5, Open)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		r, err := m.Phy2RAM(i)
		require.NoError(t, err)
		require.Equal(t, i, r)
		p, err := m.RAM2Phy(i)
		require.NoError(t, err)
		require.Equal(t, i, p)
	}
}

func TestPeriodicRejectsOddL(t *testing.T) {
	_, err := New(5, Periodic)
	require.Error(t, err)
}

func TestPeriodicInterleavesFromBothEnds(t *testing.T) {
	m, err := New(6, Periodic)
	require.NoError(t, err)
	require.Equal(t, []int{1, 6, 2, 5, 3, 4}, m.RAMToPhy)
}

func TestPeriodicNNNOutwardFromMiddle(t *testing.T) {
	m, err := New(4, PeriodicNNN)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1, 3, 4}, m.RAMToPhy)
}

func TestPeriodicNNNAcceptsOddL(t *testing.T) {
	m, err := New(5, PeriodicNNN)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1, 3, 4, 5}, m.RAMToPhy)
}

func TestMappingsAreMutualInverses(t *testing.T) {
	for _, bc := range []BC{Open, Periodic, PeriodicNNN} {
		m, err := New(8, bc)
		require.NoError(t, err)
		for ram := 1; ram <= 8; ram++ {
			phy, err := m.RAM2Phy(ram)
			require.NoError(t, err)
			r, err := m.Phy2RAM(phy)
			require.NoError(t, err)
			require.Equal(t, ram, r)
		}
	}
}

func TestOutOfRangeLookupsFail(t *testing.T) {
	m, err := New(4, Open)
	require.NoError(t, err)
	_, err = m.Phy2RAM(0)
	require.Error(t, err)
	_, err = m.Phy2RAM(5)
	require.Error(t, err)
	_, err = m.RAM2Phy(0)
	require.Error(t, err)
}

func TestUnknownBoundaryConditionFails(t *testing.T) {
	_, err := New(4, BC(99))
	require.Error(t, err)
}

func TestLTooSmallFails(t *testing.T) {
	_, err := New(1, Open)
	require.Error(t, err)
}
