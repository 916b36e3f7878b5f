package sampling

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollingthunder/thermal/thermal"
)

func testAxes() []Axis {
	return []Axis{
		{
			Name: "omega_b", Min: 0.04, Max: 0.06,
			Apply: func(p *thermal.Params, v float64) { p.Background.OmegaB = v },
		},
		{
			Name: "z_reio", Min: 6.0, Max: 14.0,
			Apply: func(p *thermal.Params, v float64) { p.Reio.CAMB.ZReio = v },
		},
	}
}

func TestLatinHypercubeStratification(t *testing.T) {
	axes := testAxes()
	const count = 16
	points := LatinHypercube(axes, count, rand.New(rand.NewSource(1)))
	require.Len(t, points, count)

	// exactly one sample per stratum on every axis
	for j, ax := range axes {
		values := make([]float64, count)
		for i, pt := range points {
			values[i] = pt[j]
		}
		sort.Float64s(values)
		for i, v := range values {
			lo := ax.Min + float64(i)/count*(ax.Max-ax.Min)
			hi := ax.Min + float64(i+1)/count*(ax.Max-ax.Min)
			assert.GreaterOrEqual(t, v, lo, "axis %s stratum %d", ax.Name, i)
			assert.Less(t, v, hi, "axis %s stratum %d", ax.Name, i)
		}
	}
}

func TestCartesian(t *testing.T) {
	points := Cartesian(testAxes(), 3)
	require.Len(t, points, 9)
	assert.Equal(t, Point{0.04, 6.0}, points[0])
	assert.Equal(t, Point{0.06, 14.0}, points[8])
	assert.Equal(t, Point{0.05, 6.0}, points[1])
}

func TestRunFilters(t *testing.T) {
	s := &Sweep{
		Base: thermal.DefaultParams(),
		Axes: testAxes(),
		// reject everything, so no solve runs at all
		Filter: func(Point) bool { return false },
	}
	results, err := s.Run(context.Background(), Cartesian(s.Axes, 3))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunRejectsMismatchedPoint(t *testing.T) {
	s := &Sweep{Base: thermal.DefaultParams(), Axes: testAxes()}
	_, err := s.Run(context.Background(), []Point{{1.0}})
	assert.Error(t, err)
}

func TestRunSolves(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	prec := thermal.DefaultPrecision()
	prec.NLogRecomb = 200
	prec.NLinRecomb = 400
	prec.ReionizationSampling = 0.5

	s := &Sweep{
		Base:      thermal.DefaultParams(),
		Precision: prec,
		Axes:      testAxes(),
		Workers:   2,
	}
	points := LatinHypercube(s.Axes, 3, rand.New(rand.NewSource(7)))

	results, err := s.Run(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		require.NotNil(t, r.History)
		assert.Greater(t, r.History.ZRec, 900.0)
		assert.Less(t, r.History.ZRec, 1250.0)
		assert.Equal(t, r.Point[0], r.Params.Background.OmegaB)
		assert.Equal(t, r.Point[1], r.Params.Reio.CAMB.ZReio)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Sweep{Base: thermal.DefaultParams(), Precision: thermal.DefaultPrecision(), Axes: testAxes()}
	_, err := s.Run(ctx, Cartesian(s.Axes, 2))
	assert.ErrorIs(t, err, context.Canceled)
}
