package thermal

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollingthunder/thermal/heating"
	"github.com/rollingthunder/thermal/numerics"
)

// coarsePrecision keeps the solves in this file fast while leaving the epoch
// quantities accurate to a few per mille.
func coarsePrecision() Precision {
	p := DefaultPrecision()
	p.NLogRecomb = 400
	p.NLinRecomb = 800
	p.ReionizationSampling = 0.25
	return p
}

var (
	baselineOnce sync.Once
	baselineHist *History
	baselineErr  error
)

// baseline solves the default cosmology once and shares the result between
// tests.
func baseline(t *testing.T) *History {
	t.Helper()
	baselineOnce.Do(func() {
		s, err := NewSolver(DefaultParams(), coarsePrecision(), nil)
		if err != nil {
			baselineErr = err
			return
		}
		baselineHist, baselineErr = s.Solve()
	})
	require.NoError(t, baselineErr)
	return baselineHist
}

func TestGrid(t *testing.T) {
	prec := coarsePrecision()
	s, err := NewSolver(DefaultParams(), prec, nil)
	require.NoError(t, err)
	require.NoError(t, s.buildGrid())

	n := prec.NLogRecomb + prec.NLinRecomb + int(prec.ReionizationZStartMax/prec.ReionizationSampling)
	require.Equal(t, n, s.table.Len())

	assert.Equal(t, 0.0, s.table.Z[0])
	assert.InEpsilon(t, prec.ZInitial, s.table.Z[n-1], 1e-12)

	for i := 1; i < n; i++ {
		assert.Greater(t, s.table.Z[i], s.table.Z[i-1], "redshift grid must grow at %d", i)
		assert.Less(t, s.table.Tau[i], s.table.Tau[i-1], "conformal time must shrink at %d", i)
	}

	// the evolver list is the same grid, mirrored and negated
	for i := 0; i < n; i++ {
		assert.Equal(t, -s.table.Z[n-1-i], s.mzOutput[i])
	}
}

func TestFullIonizationAtHighRedshift(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	h := baseline(t)
	n := h.Table.Len()

	fHe := h.YHe / (3.9715 * (1.0 - h.YHe))
	assert.InEpsilon(t, 1.0+2.0*fHe, h.Table.XeColumn()[n-1], 1e-6,
		"hydrogen and helium fully ionized at the top of the table")

	// today everything is reionized again
	assert.Greater(t, h.Table.XeColumn()[0], 1.0)
}

func TestRecombinationEpoch(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	h := baseline(t)

	assert.Greater(t, h.ZRec, 1000.0)
	assert.Less(t, h.ZRec, 1150.0)
	assert.Greater(t, h.TauRec, 200.0)
	assert.Less(t, h.TauRec, 400.0)
	assert.Greater(t, h.RsRec, 100.0)
	assert.Less(t, h.RsRec, 200.0)
	assert.Greater(t, h.DaRec, 0.0)
	assert.InEpsilon(t, h.RaRec, h.DaRec*(1.0+h.ZRec), 1e-12)

	// baryon drag releases slightly after recombination
	assert.Less(t, h.ZDrag, h.ZRec)
	assert.Greater(t, h.ZDrag, 900.0)
	assert.Greater(t, h.RsDrag, h.RsRec)

	// free streaming and the visibility cutoff lie after recombination
	assert.Greater(t, h.TauFreeStreaming, h.TauRec)
	assert.Greater(t, h.TauCut, h.TauRec)
}

// TestDefaultPrecisionEpochs pins the epoch values of the default cosmology
// at full sampling; z_reio = 11.357 was chosen to give tau_reio = 0.0925.
func TestDefaultPrecisionEpochs(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	s, err := NewSolver(DefaultParams(), DefaultPrecision(), nil)
	require.NoError(t, err)
	h, err := s.Solve()
	require.NoError(t, err)

	assert.InDelta(t, 1089.0, h.ZRec, 5.0)
	assert.InEpsilon(t, 0.0925, h.TauReio, 2e-2)
}

func TestOpticalDepthColumns(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	h := baseline(t)
	n := h.Table.Len()

	// default tanh reionization around z=11 gives a reasonable optical depth
	assert.Greater(t, h.TauReio, 0.03)
	assert.Less(t, h.TauReio, 0.15)
	assert.InDelta(t, 11.357, h.ZReio, 1e-12)

	// exp(-kappa) falls from about one today to zero before recombination
	expmk := make([]float64, n)
	for i := 0; i < n; i++ {
		expmk[i] = h.Table.Row(i).ExpMinusKappa
	}
	assert.Equal(t, 1.0, expmk[0], "kappa integrates from today")
	assert.Less(t, expmk[n-1], 1e-30)

	// drag optical depth grows with redshift from zero
	prev := -1.0
	for i := 0; i < n; i++ {
		tauD := h.Table.Row(i).TauD
		assert.GreaterOrEqual(t, tauD, prev, "tau_d must grow at %d", i)
		prev = tauD
	}
	assert.Equal(t, 0.0, h.Table.Row(0).TauD)

	// the visibility peaks at the recombination redshift
	iMax := 0
	for i := 1; i < n; i++ {
		if h.Table.Row(i).G > h.Table.Row(iMax).G {
			iMax = i
		}
	}
	assert.InDelta(t, h.ZRec, h.Table.Z[iMax], 2.0*(h.Table.Z[iMax+1]-h.Table.Z[iMax]))
}

func TestRegimeContinuity(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	h := baseline(t)
	xe := h.Table.XeColumn()

	boundaries := []float64{8050.0, 5100.0, 3550.0, 2870.0, 1600.0}
	for _, zb := range boundaries {
		i, err := numerics.FindIndex(h.Table.Z, zb)
		require.NoError(t, err)
		for j := i - 3; j <= i+3; j++ {
			step := math.Abs(xe[j+1] - xe[j])
			assert.Less(t, step, 0.05*xe[j]+1e-6,
				"ionization fraction jumps across z=%g at index %d", zb, j)
		}
	}
}

func TestOpticalDepthTarget(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	const target = 0.06
	par := DefaultParams()
	par.Reio.TauReio = target

	s, err := NewSolver(par, coarsePrecision(), nil)
	require.NoError(t, err)
	h, err := s.Solve()
	require.NoError(t, err)

	assert.Equal(t, target, h.TauReio)
	assert.Greater(t, h.ZReio, 4.0)
	assert.Less(t, h.ZReio, 20.0)

	// feeding the found redshift back must reproduce the target
	par2 := DefaultParams()
	par2.Reio.CAMB.ZReio = h.ZReio
	s2, err := NewSolver(par2, coarsePrecision(), nil)
	require.NoError(t, err)
	h2, err := s2.Solve()
	require.NoError(t, err)
	assert.InEpsilon(t, target, h2.TauReio, 1e-2)
}

func TestSolveRepeatable(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	s, err := NewSolver(DefaultParams(), coarsePrecision(), nil)
	require.NoError(t, err)

	h1, err := s.Solve()
	require.NoError(t, err)
	h2, err := s.Solve()
	require.NoError(t, err)

	assert.Equal(t, h1.ZRec, h2.ZRec)
	assert.Equal(t, h1.TauReio, h2.TauReio)
	assert.Equal(t, h1.Table.XeColumn(), h2.Table.XeColumn())
}

func TestZeroInjectionInert(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	href := baseline(t)

	// a dark matter provider with all channels at zero must leave the
	// trajectories bit-identical to the no-injection solve
	s, err := NewSolver(DefaultParams(), coarsePrecision(), nil)
	require.NoError(t, err)
	inj, err := heating.NewDarkMatterInjection(heating.DarkMatter{},
		s.h0SI, s.nH0, s.par.Background.OmegaB, s.par.Background.OmegaCDM)
	require.NoError(t, err)
	s.heat = inj

	h, err := s.Solve()
	require.NoError(t, err)

	assert.Equal(t, href.Table.XeColumn(), h.Table.XeColumn())
	assert.Equal(t, href.Table.col[colTb], h.Table.col[colTb])
	assert.Equal(t, href.ZRec, h.ZRec)
	assert.Equal(t, href.TauReio, h.TauReio)
}

func TestAtZMatchesTable(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	h := baseline(t)
	n := h.Table.Len()

	for _, i := range []int{0, 1, n / 4, n / 2, n - 2} {
		r, err := h.AtZ(h.Table.Z[i])
		require.NoError(t, err)
		want := h.Table.Row(i)
		assert.InDelta(t, want.Xe, r.Xe, 1e-9*math.Abs(want.Xe)+1e-300, "row %d", i)
		assert.InDelta(t, want.Tb, r.Tb, 1e-9*want.Tb, "row %d", i)
		assert.InDelta(t, want.DKappa, r.DKappa, 1e-9*want.DKappa, "row %d", i)
	}
}

func TestAtZExtrapolation(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	h := baseline(t)
	n := h.Table.Len()
	last := h.Table.Row(n - 1)
	zLast := h.Table.Z[n-1]

	z := 2.0 * zLast
	r, err := h.AtZ(z)
	require.NoError(t, err)

	assert.Equal(t, last.Xe, r.Xe, "ionization frozen above the table")
	assert.InEpsilon(t, last.DKappa*math.Pow((1.0+z)/(1.0+zLast), 2), r.DKappa, 1e-12)
	assert.InEpsilon(t, last.TauD*math.Pow((1.0+z)/(1.0+zLast), 2), r.TauD, 1e-12)
	assert.InEpsilon(t, h.Tcmb()*(1.0+z), r.Tb, 1e-12)
	assert.Zero(t, r.G)
	assert.Zero(t, r.ExpMinusKappa)
	assert.Greater(t, r.Rate, 0.0)
}

func TestRateDivergence(t *testing.T) {
	s := &Solver{par: DefaultParams(), prec: DefaultPrecision()}
	s.table = newTable(8)
	for i := 0; i < 8; i++ {
		s.table.Z[i] = float64(i) * 100.0
		s.table.Tau[i] = 300.0 - 30.0*float64(i)
		s.table.col[colDKappa][i] = 1.0 + float64(i)
	}
	s.table.col[colDKappa][5] = 0.0

	err := s.opticals()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateDiverges)
}

func TestDragEpochMissing(t *testing.T) {
	s := &Solver{par: DefaultParams(), prec: DefaultPrecision()}
	s.table = newTable(6)
	for i := 0; i < 6; i++ {
		s.table.Z[i] = float64(i) * 100.0
		s.table.col[colTauD][i] = 0.1 * float64(i)
	}

	err := s.dragQuantities(&History{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drag optical depth")
}

func TestBlend(t *testing.T) {
	assert.Equal(t, 0.0, blend(-1.0))
	assert.Equal(t, 0.0, blend(0.0))
	assert.Equal(t, 1.0, blend(1.0))
	assert.Equal(t, 1.0, blend(2.0))
	assert.InDelta(t, 0.5, blend(0.5), 1e-12)

	prev := 0.0
	for s := 0.05; s < 1.0; s += 0.05 {
		w := blend(s)
		assert.Greater(t, w, prev)
		prev = w
	}
}

func TestOutputSlice(t *testing.T) {
	s := &Solver{mzOutput: []float64{-10.0, -8.0, -6.0, -4.0, -2.0, 0.0}}

	points, lo := s.outputSlice(-10.0, -4.0, true)
	assert.Equal(t, []float64{-10.0, -8.0, -6.0, -4.0}, points)
	assert.Equal(t, 0, lo)

	points, lo = s.outputSlice(-4.0, 0.0, false)
	assert.Equal(t, []float64{-2.0, 0.0}, points)
	assert.Equal(t, 4, lo)
}

func TestValidation(t *testing.T) {
	par := DefaultParams()
	par.YHe = 0.8
	_, err := NewSolver(par, coarsePrecision(), nil)
	assert.Error(t, err, "helium fraction out of bounds")

	par = DefaultParams()
	par.Reio.Scheme = "sudden"
	_, err = NewSolver(par, coarsePrecision(), nil)
	assert.Error(t, err, "unknown scheme")

	par = DefaultParams()
	par.Reio.Scheme = ReioBinsTanh
	par.Reio.TauReio = 0.06
	par.Reio.BinZ = []float64{8.0, 12.0}
	par.Reio.BinXe = []float64{1.0, 0.5}
	par.Reio.BinSharpness = 0.3
	_, err = NewSolver(par, coarsePrecision(), nil)
	assert.Error(t, err, "optical depth target needs a tanh scheme")

	prec := coarsePrecision()
	prec.ZInitial = 2000.0
	_, err = NewSolver(DefaultParams(), prec, nil)
	assert.Error(t, err, "initial redshift below helium recombination")
}
