// Package bbn predicts the primordial helium mass fraction Y_He from big
// bang nucleosynthesis, tabulated over the baryon density omega_b and the
// deviation Delta N_eff of the relativistic species count from 3.046.
package bbn

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rollingthunder/thermal/numerics"
)

// Table is a YHe(omega_b, Delta N_eff) grid. YHe is stored row-major with
// deltaN as the slow index, as in the sBBN file layout.
type Table struct {
	omegaB []float64
	deltaN []float64
	yhe    []float64 // len(omegaB) * len(deltaN)
}

// NewTable builds a table from explicit grids. yhe[j*len(omegaB)+i]
// corresponds to (omegaB[i], deltaN[j]).
func NewTable(omegaB, deltaN, yhe []float64) (*Table, error) {
	if len(omegaB) < 3 || len(deltaN) < 3 {
		return nil, fmt.Errorf("bbn: need at least 3 grid points per axis, got %dx%d", len(omegaB), len(deltaN))
	}
	if len(yhe) != len(omegaB)*len(deltaN) {
		return nil, fmt.Errorf("bbn: YHe grid size %d does not match %dx%d", len(yhe), len(omegaB), len(deltaN))
	}
	return &Table{omegaB: omegaB, deltaN: deltaN, yhe: yhe}, nil
}

// Parse reads the sBBN text format: comment lines start with # or %, the
// first data line holds the two grid sizes, then rows of
// (omega_b, deltaN, YHe) with omega_b as the fast index.
func Parse(r io.Reader) (*Table, error) {
	var numOmegaB, numDeltaN, line int
	var t *Table

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' || text[0] == '%' {
			continue
		}

		if numOmegaB == 0 && numDeltaN == 0 {
			if _, err := fmt.Sscanf(text, "%d %d", &numOmegaB, &numDeltaN); err != nil {
				return nil, fmt.Errorf("bbn: could not read grid sizes: %w", err)
			}
			t = &Table{
				omegaB: make([]float64, numOmegaB),
				deltaN: make([]float64, numDeltaN),
				yhe:    make([]float64, numOmegaB*numDeltaN),
			}
			continue
		}

		if line >= len(t.yhe) {
			return nil, fmt.Errorf("bbn: more than %d data rows", len(t.yhe))
		}
		var ob, dn, y float64
		if _, err := fmt.Sscanf(text, "%g %g %g", &ob, &dn, &y); err != nil {
			return nil, fmt.Errorf("bbn: could not read data row %d: %w", line, err)
		}
		t.omegaB[line%numOmegaB] = ob
		t.deltaN[line/numOmegaB] = dn
		t.yhe[line] = y
		line++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if t == nil || line != len(t.yhe) {
		return nil, fmt.Errorf("bbn: truncated table")
	}
	return t, nil
}

// HeliumFraction interpolates Y_He with two nested natural-spline passes,
// first along deltaN at every omega_b column, then along omega_b. Queries
// outside the tabulated range are an error naming the offending value.
func (t *Table) HeliumFraction(omegaB, deltaNeff float64) (float64, error) {
	nb, nd := len(t.omegaB), len(t.deltaN)

	if omegaB < t.omegaB[0] {
		return 0, fmt.Errorf("bbn: unrealistically small omega_b = %e, outside the interpolation table; fix YHe explicitly instead", omegaB)
	}
	if omegaB > t.omegaB[nb-1] {
		return 0, fmt.Errorf("bbn: unrealistically high omega_b = %e, outside the interpolation table; fix YHe explicitly instead", omegaB)
	}
	if deltaNeff < t.deltaN[0] {
		return 0, fmt.Errorf("bbn: unrealistically small Delta N_eff = %e, outside the interpolation table; fix YHe explicitly instead", deltaNeff)
	}
	if deltaNeff > t.deltaN[nd-1] {
		return 0, fmt.Errorf("bbn: unrealistically high Delta N_eff = %e, outside the interpolation table; fix YHe explicitly instead", deltaNeff)
	}

	// pass one: collapse the deltaN axis
	col := make([]float64, nd)
	dd := make([]float64, nd)
	atDeltaN := make([]float64, nb)
	j, err := numerics.FindIndex(t.deltaN, deltaNeff)
	if err != nil {
		return 0, err
	}
	for i := 0; i < nb; i++ {
		for k := 0; k < nd; k++ {
			col[k] = t.yhe[k*nb+i]
		}
		if err := numerics.SplineFit(t.deltaN, col, dd, numerics.NaturalBoundary); err != nil {
			return 0, err
		}
		atDeltaN[i] = numerics.SplineValue(t.deltaN, col, dd, j, deltaNeff)
	}

	// pass two: along omega_b
	ddB := make([]float64, nb)
	if err := numerics.SplineFit(t.omegaB, atDeltaN, ddB, numerics.NaturalBoundary); err != nil {
		return 0, err
	}
	i, err := numerics.FindIndex(t.omegaB, omegaB)
	if err != nil {
		return 0, err
	}
	return numerics.SplineValue(t.omegaB, atDeltaN, ddB, i, omegaB), nil
}

// BBNRedshift is the redshift where the photon temperature passes the
// 0.1 MeV nucleosynthesis scale, for CMB temperature tcmb in K.
// 8.6173e-11 converts Kelvin to MeV.
func BBNRedshift(tcmb float64) float64 {
	return 0.1/(8.6173e-11*tcmb) - 1.0
}

// DefaultTable is a PArthENoPE-like standard-BBN grid, adequate when no
// external sBBN table is supplied.
func DefaultTable() *Table {
	omegaB := make([]float64, 15)
	deltaN := []float64{-3, -2, -1, 0, 1, 2, 3}
	yhe := make([]float64, len(omegaB)*len(deltaN))
	for i := range omegaB {
		omegaB[i] = 0.005 + 0.0025*float64(i)
	}
	for j, dn := range deltaN {
		for i, ob := range omegaB {
			yhe[j*len(omegaB)+i] = 0.2471 + 0.415*(ob-0.0224) + 0.0127*dn
		}
	}
	t, _ := NewTable(omegaB, deltaN, yhe)
	return t
}
