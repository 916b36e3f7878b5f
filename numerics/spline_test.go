package numerics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(a, b float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return x
}

func apply(x []float64, f func(float64) float64) []float64 {
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = f(xi)
	}
	return y
}

func TestSplineReproducesCubicAtKnots(t *testing.T) {
	f := func(x float64) float64 { return 2.0 + x - 0.5*x*x + 0.25*x*x*x }
	x := grid(0, 4, 41)
	y := apply(x, f)
	y2 := make([]float64, len(x))
	require.NoError(t, SplineFit(x, y, y2, EstimateDerivativeBoundary))

	for _, xq := range []float64{0.13, 1.77, 2.5, 3.99} {
		i, err := FindIndex(x, xq)
		require.NoError(t, err)
		assert.InDelta(t, f(xq), SplineValue(x, y, y2, i, xq), 1e-6)
	}
}

func TestSplineDecreasingAbscissa(t *testing.T) {
	// conformal-time tables run high to low
	x := grid(10, 1, 37)
	y := apply(x, math.Sin)
	y2 := make([]float64, len(x))
	require.NoError(t, SplineFit(x, y, y2, EstimateDerivativeBoundary))

	xq := 4.321
	i := 0
	for x[i+1] > xq {
		i++
	}
	assert.InDelta(t, math.Sin(xq), SplineValue(x, y, y2, i, xq), 1e-5)
}

func TestDeriveAtKnots(t *testing.T) {
	x := grid(0, math.Pi, 101)
	y := apply(x, math.Sin)
	y2 := make([]float64, len(x))
	dy := make([]float64, len(x))
	require.NoError(t, SplineFit(x, y, y2, EstimateDerivativeBoundary))
	require.NoError(t, DeriveAtKnots(x, y, y2, dy))

	for i, xi := range x {
		assert.InDelta(t, math.Cos(xi), dy[i], 1e-4, "knot %d", i)
	}
}

func TestCumulativeSplineIntegral(t *testing.T) {
	x := grid(0, 2, 81)
	y := apply(x, math.Exp)
	y2 := make([]float64, len(x))
	integral := make([]float64, len(x))
	require.NoError(t, SplineFit(x, y, y2, EstimateDerivativeBoundary))
	require.NoError(t, CumulativeSplineIntegral(x, y, y2, integral))

	assert.Zero(t, integral[0])
	assert.InDelta(t, math.E*math.E-1.0, integral[len(x)-1], 1e-7)

	total, err := SplineIntegral(x, y, y2)
	require.NoError(t, err)
	assert.Equal(t, integral[len(x)-1], total)
}

func TestCumulativeIntegralSignedForDecreasingX(t *testing.T) {
	x := grid(5, 1, 33)
	y := apply(x, func(float64) float64 { return 1.0 })
	y2 := make([]float64, len(x))
	integral := make([]float64, len(x))
	require.NoError(t, SplineFit(x, y, y2, NaturalBoundary))
	require.NoError(t, CumulativeSplineIntegral(x, y, y2, integral))
	assert.InDelta(t, -4.0, integral[len(x)-1], 1e-12)
}

func TestFindIndexCloseby(t *testing.T) {
	x := grid(0, 1, 11)
	last := 0
	for _, xq := range []float64{0.05, 0.07, 0.31, 0.99, 0.02} {
		i, err := FindIndexCloseby(x, xq, &last)
		require.NoError(t, err)
		assert.True(t, x[i] <= xq && xq <= x[i+1])
		assert.Equal(t, i, last)
	}

	_, err := FindIndexCloseby(x, 1.5, &last)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSmoothPreservesConstant(t *testing.T) {
	v := apply(grid(0, 1, 25), func(float64) float64 { return 3.5 })
	Smooth(v, 4)
	for _, vi := range v {
		assert.InDelta(t, 3.5, vi, 1e-14)
	}
}

func TestSmoothDampsSpike(t *testing.T) {
	v := make([]float64, 21)
	v[10] = 1.0
	Smooth(v, 2)
	assert.InDelta(t, 0.2, v[10], 1e-14)
	assert.InDelta(t, 0.2, v[9], 1e-14)
	assert.Zero(t, v[0])
}

func TestSplineFitErrors(t *testing.T) {
	assert.ErrorIs(t, SplineFit([]float64{0, 1}, []float64{0, 1}, []float64{0, 1}, NaturalBoundary), ErrSplineTooShort)
	assert.ErrorIs(t, SplineFit([]float64{0, 1, 2}, []float64{0, 1}, []float64{0, 1, 2}, NaturalBoundary), ErrSplineLengths)
	_, err := FindIndex([]float64{0, 1, 2}, -0.5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMakeRectangular(t *testing.T) {
	m := MakeRectangular(3, 5)
	require.Len(t, m, 3)
	for _, row := range m {
		assert.Len(t, row, 5)
	}
	m[2][4] = 1.0
	assert.Zero(t, m[2][3])
}
