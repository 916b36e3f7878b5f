package background

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCosmology(t *testing.T) *LCDM {
	t.Helper()
	b, err := NewLCDM(DefaultParams())
	require.NoError(t, err)
	return b
}

func TestNewLCDMValidation(t *testing.T) {
	p := DefaultParams()
	p.H100 = 0.0
	_, err := NewLCDM(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.OmegaB = 0.6
	p.OmegaCDM = 0.6
	_, err = NewLCDM(p)
	assert.ErrorContains(t, err, "closed universe")
}

func TestHubbleToday(t *testing.T) {
	b := testCosmology(t)
	assert.InEpsilon(t, b.par.H100/2997.92458, b.hubble(0.0), 1e-9)
}

func TestPhotonDensityFromTCMB(t *testing.T) {
	b := testCosmology(t)
	// omega_gamma = Omega_gamma h^2 for T = 2.7255 K
	assert.InEpsilon(t, 2.4729e-5, b.OmegaG()*b.par.H100*b.par.H100, 2e-3)
	assert.InEpsilon(t, 3.046*7.0/8.0*math.Pow(4.0/11.0, 4.0/3.0),
		b.OmegaUR()/b.OmegaG(), 1e-9)
}

func TestConformalAge(t *testing.T) {
	b := testCosmology(t)
	// roughly 14 Gpc/c for a Planck-like cosmology
	assert.Greater(t, b.ConformalAge(), 13000.0)
	assert.Less(t, b.ConformalAge(), 15500.0)
}

func TestTimeAtMonotone(t *testing.T) {
	b := testCosmology(t)
	prev := math.Inf(1)
	for _, z := range []float64{0, 10, 100, 1100, 1e4, 1e6, 5e6} {
		tau, err := b.TimeAt(z)
		require.NoError(t, err)
		assert.Less(t, tau, prev, "tau must shrink with z")
		prev = tau
	}

	tau0, err := b.TimeAt(0)
	require.NoError(t, err)
	assert.InEpsilon(t, b.ConformalAge(), tau0, 1e-9)

	_, err = b.TimeAt(-1.0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestStateRoundTrip(t *testing.T) {
	b := testCosmology(t)
	for _, z := range []float64{0.5, 50, 1100, 2.5e4, 1e6} {
		tau, err := b.TimeAt(z)
		require.NoError(t, err)
		st, err := b.StateAt(tau)
		require.NoError(t, err)
		assert.InEpsilon(t, z, st.Z, 1e-3, "z round trip")
		assert.InEpsilon(t, b.hubble(z), st.H, 1e-3)
	}
}

func TestStateDensities(t *testing.T) {
	b := testCosmology(t)
	tau, err := b.TimeAt(1100.0)
	require.NoError(t, err)
	st, err := b.StateAt(tau)
	require.NoError(t, err)

	total := st.RhoG + st.RhoB + st.RhoCDM + st.RhoUR + st.RhoLambda
	assert.InEpsilon(t, st.RhoCrit, total, 1e-2, "flatness")
	assert.Less(t, st.HPrime, 0.0, "H decreases in conformal time")
}

func TestSoundHorizonAtRecombination(t *testing.T) {
	b := testCosmology(t)
	tau, err := b.TimeAt(1089.0)
	require.NoError(t, err)
	st, err := b.StateAt(tau)
	require.NoError(t, err)
	assert.Greater(t, st.RS, 130.0)
	assert.Less(t, st.RS, 160.0)

	// comoving angular diameter distance ~ 14 Gpc
	assert.Greater(t, st.DA*(1.0+st.Z), 12000.0)
	assert.Less(t, st.DA*(1.0+st.Z), 15000.0)
}

func TestNEffAt(t *testing.T) {
	b := testCosmology(t)
	tau, err := b.TimeAt(0.0) // today
	require.NoError(t, err)
	neff, err := b.NEffAt(tau)
	require.NoError(t, err)
	assert.InEpsilon(t, 3.046, neff, 1e-9)
}
