package bbn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableLookup(t *testing.T) {
	tab := DefaultTable()

	y, err := tab.HeliumFraction(0.0224, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.2471, y, 1e-4)

	// extra radiation raises Y_He
	yHigh, err := tab.HeliumFraction(0.0224, 1.0)
	require.NoError(t, err)
	assert.Greater(t, yHigh, y)

	// more baryons raise Y_He
	yBaryon, err := tab.HeliumFraction(0.025, 0.0)
	require.NoError(t, err)
	assert.Greater(t, yBaryon, y)
}

func TestRangeChecksNameOffendingValue(t *testing.T) {
	tab := DefaultTable()

	_, err := tab.HeliumFraction(1e-4, 0.0)
	assert.ErrorContains(t, err, "small omega_b = 1.000000e-04")

	_, err = tab.HeliumFraction(0.5, 0.0)
	assert.ErrorContains(t, err, "high omega_b")

	_, err = tab.HeliumFraction(0.0224, -5.0)
	assert.ErrorContains(t, err, "small Delta N_eff")

	_, err = tab.HeliumFraction(0.0224, 5.0)
	assert.ErrorContains(t, err, "high Delta N_eff")
}

func TestParse(t *testing.T) {
	src := `# sBBN test table
% three omega_b values, three deltaN values
3 3
0.01 -1 0.24
0.02 -1 0.25
0.03 -1 0.26
0.01 0 0.25
0.02 0 0.26
0.03 0 0.27
0.01 1 0.26
0.02 1 0.27
0.03 1 0.28
`
	tab, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, 0.02, 0.03}, tab.omegaB)
	assert.Equal(t, []float64{-1, 0, 1}, tab.deltaN)

	y, err := tab.HeliumFraction(0.02, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.26, y, 1e-12)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("3 3\n0.01 0 0.24\n"))
	assert.ErrorContains(t, err, "truncated")

	_, err = Parse(strings.NewReader("x y\n"))
	assert.ErrorContains(t, err, "grid sizes")
}

func TestBBNRedshift(t *testing.T) {
	z := BBNRedshift(2.7255)
	assert.InEpsilon(t, 4.2577e8, z, 1e-3)
}
