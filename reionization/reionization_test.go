package reionization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testYHe       = 0.2454
	testStartFac  = 8.0
	testZStartMax = 50.0
)

func TestNone(t *testing.T) {
	var n None
	n.SetXeBefore(2.0e-4)
	x, dx, err := n.Xe(7.0)
	require.NoError(t, err)
	assert.Equal(t, 2.0e-4, x)
	assert.Zero(t, dx)
	assert.Zero(t, n.Start())
}

func newTestCAMB(t *testing.T, par CAMBParams) *CAMB {
	t.Helper()
	c, err := NewCAMB(par, testYHe, testStartFac, testZStartMax)
	require.NoError(t, err)
	c.SetXeBefore(2.0e-4)
	return c
}

func TestCAMBValidation(t *testing.T) {
	par := DefaultCAMBParams()
	par.Width = 0
	_, err := NewCAMB(par, testYHe, testStartFac, testZStartMax)
	assert.ErrorContains(t, err, "division by zero")

	par = DefaultCAMBParams()
	par.ZReio = 49.0
	_, err = NewCAMB(par, testYHe, testStartFac, testZStartMax)
	assert.ErrorContains(t, err, "reionization_z_start_max")
}

func TestCAMBLimits(t *testing.T) {
	c := newTestCAMB(t, DefaultCAMBParams())

	// relic above the start
	x, dx, err := c.Xe(c.Start() + 1.0)
	require.NoError(t, err)
	assert.Equal(t, 2.0e-4, x)
	assert.Zero(t, dx)

	// fully reionized today: H plus both helium stages
	x, _, err = c.Xe(0.0)
	require.NoError(t, err)
	fhe := testYHe / (3.9715 * (1.0 - testYHe))
	assert.InDelta(t, 1.0+2.0*fhe, x, 1e-3)

	// half way at the central redshift (helium term negligible there)
	x, _, err = c.Xe(c.par.ZReio)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+fhe+2.0e-4)/2.0, x, 1e-3)
}

func TestCAMBDerivativeMatchesDifference(t *testing.T) {
	c := newTestCAMB(t, DefaultCAMBParams())
	h := 1e-6
	for _, z := range []float64{2.0, 3.5, 8.0, 11.357, 14.0} {
		xp, _, err := c.Xe(z + h)
		require.NoError(t, err)
		xm, _, err := c.Xe(z - h)
		require.NoError(t, err)
		_, dx, err := c.Xe(z)
		require.NoError(t, err)
		assert.InDelta(t, (xp-xm)/(2.0*h), dx, 1e-5, "z=%g", z)
	}
}

func TestCAMBHalfTanh(t *testing.T) {
	par := DefaultCAMBParams()
	par.HalfTanh = true
	c := newTestCAMB(t, par)

	assert.Equal(t, par.ZReio, c.Start())

	// at the central redshift the half tanh starts from xe_before
	x, _, err := c.Xe(par.ZReio)
	require.NoError(t, err)
	assert.InDelta(t, 2.0e-4, x, 1e-6)

	// saturates to pure hydrogen ionization
	x, _, err = c.Xe(0.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x, 1e-2)
}

func TestCAMBSetRedshiftMovesStart(t *testing.T) {
	c := newTestCAMB(t, DefaultCAMBParams())
	require.NoError(t, c.SetRedshift(8.0))
	assert.InDelta(t, 8.0+testStartFac*0.5, c.Start(), 1e-12)
	assert.ErrorContains(t, c.SetRedshift(49.5), "reionization_z_start_max")
	assert.InDelta(t, testZStartMax-testStartFac*0.5, c.MaxRedshift(), 1e-12)
}

func TestBinsTanh(t *testing.T) {
	b, err := NewBinsTanh([]float64{10, 12, 14}, []float64{0.9, 0.5, 0.1}, 0.3, testYHe, testZStartMax)
	require.NoError(t, err)
	b.SetXeBefore(1.0e-4)

	// padded edges: 18 above, 8 below
	assert.InDelta(t, 18.0, b.Start(), 1e-12)

	x, _, err := b.Xe(19.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0e-4, x)

	x, _, err = b.Xe(5.0)
	require.NoError(t, err)
	fhe := testYHe / (3.9715 * (1.0 - testYHe))
	assert.InDelta(t, 1.0+fhe, x, 1e-12)

	// inside: between neighbouring bin values
	x, _, err = b.Xe(11.0)
	require.NoError(t, err)
	assert.Greater(t, x, 0.45)
	assert.Less(t, x, 0.95)

	_, err = NewBinsTanh([]float64{12, 10}, []float64{0.5, 0.4}, 0.3, testYHe, testZStartMax)
	assert.ErrorContains(t, err, "must grow")

	_, err = NewBinsTanh([]float64{20, 30, 40}, []float64{0.9, 0.5, 0.1}, 0.3, testYHe, testZStartMax)
	assert.ErrorContains(t, err, "change the binning")
}

func TestManyTanh(t *testing.T) {
	// single jump to the "hydrogen plus first helium" plateau
	m, err := NewManyTanh([]float64{8.0}, []float64{-1.0}, 0.5, testYHe, testStartFac, testZStartMax)
	require.NoError(t, err)
	m.SetXeBefore(1.0e-4)

	assert.InDelta(t, 12.0, m.Start(), 1e-12)

	x, _, err := m.Xe(20.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0e-4, x)

	x, _, err = m.Xe(1.0)
	require.NoError(t, err)
	fhe := testYHe / (3.9715 * (1.0 - testYHe))
	assert.InDelta(t, 1.0+fhe, x, 1e-12)

	// the jump passes through the midpoint at its center
	x, _, err = m.Xe(8.0)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+fhe+1.0e-4)/2.0, x, 1e-3)

	_, err = NewManyTanh([]float64{8.0}, []float64{-3.0}, 0.5, testYHe, testStartFac, testZStartMax)
	assert.ErrorContains(t, err, "makes no sense")

	_, err = NewManyTanh([]float64{8.0}, []float64{-1.0}, 0.0, testYHe, testStartFac, testZStartMax)
	assert.ErrorContains(t, err, "strictly positive")
}

func TestInterp(t *testing.T) {
	p, err := NewInterp([]float64{0, 3, 9, 25}, []float64{-2, -1, 0.5, 0}, testYHe, testZStartMax)
	require.NoError(t, err)
	p.SetXeBefore(2.0e-4)

	assert.InDelta(t, 25.0, p.Start(), 1e-12)

	// linear between the two inner points
	x, dx, err := p.Xe(6.0)
	require.NoError(t, err)
	fhe := testYHe / (3.9715 * (1.0 - testYHe))
	expected := (1.0 + fhe + 0.5) / 2.0
	assert.InDelta(t, expected, x, 1e-12)
	assert.InDelta(t, (0.5-(1.0+fhe))/6.0, dx, 1e-12)

	// above the last point the relic applies
	x, _, err = p.Xe(30.0)
	require.NoError(t, err)
	assert.Equal(t, 2.0e-4, x)

	_, err = NewInterp([]float64{1, 3}, []float64{0.5, 0}, testYHe, testZStartMax)
	assert.ErrorContains(t, err, "should always be zero")

	_, err = NewInterp([]float64{0, 3}, []float64{0.5, 0.1}, testYHe, testZStartMax)
	assert.ErrorContains(t, err, "placeholder")
}
