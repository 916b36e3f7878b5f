package thermal

import (
	"fmt"

	"github.com/rollingthunder/thermal/numerics"
)

// column indices into Table.col
const (
	colXe = iota
	colDKappa
	colDDKappa
	colDDDKappa
	colExpMK
	colG
	colDG
	colDDG
	colTb
	colCb2
	colDCb2
	colDDCb2
	colTauD
	colRate
	colRd
	numCols
)

// Row is the full set of thermodynamic quantities at one redshift.
// Optical depth derivatives are with respect to conformal time.
type Row struct {
	Xe            float64 // free electron fraction n_e/n_H
	DKappa        float64 // dkappa/dtau in 1/Mpc
	DDKappa       float64
	DDDKappa      float64
	ExpMinusKappa float64
	G             float64 // visibility g = kappa' exp(-kappa)
	DG            float64
	DDG           float64
	Tb            float64 // baryon temperature in K
	Cb2           float64 // baryon sound speed squared, units of c^2
	DCb2          float64 // only filled when cb2 derivatives are requested
	DDCb2         float64
	TauD          float64 // baryon drag optical depth
	Rate          float64 // variation rate used for source sampling
	Rd            float64 // damping scale in Mpc, when requested
}

// Table holds the solved history on the redshift grid. Z grows with the
// index from 0 to the initial redshift; Tau decreases accordingly. After the
// solve the table is read-only.
type Table struct {
	Z   []float64
	Tau []float64

	col [numCols][]float64
	dd  [numCols][]float64 // second derivatives with respect to Z
}

func newTable(n int) *Table {
	t := &Table{
		Z:   make([]float64, n),
		Tau: make([]float64, n),
	}
	for c := 0; c < numCols; c++ {
		t.col[c] = make([]float64, n)
		t.dd[c] = make([]float64, n)
	}
	return t
}

func (t *Table) Len() int { return len(t.Z) }

// Row assembles the stored values at grid index i.
func (t *Table) Row(i int) Row {
	return Row{
		Xe:            t.col[colXe][i],
		DKappa:        t.col[colDKappa][i],
		DDKappa:       t.col[colDDKappa][i],
		DDDKappa:      t.col[colDDDKappa][i],
		ExpMinusKappa: t.col[colExpMK][i],
		G:             t.col[colG][i],
		DG:            t.col[colDG][i],
		DDG:           t.col[colDDG][i],
		Tb:            t.col[colTb][i],
		Cb2:           t.col[colCb2][i],
		DCb2:          t.col[colDCb2][i],
		DDCb2:         t.col[colDDCb2][i],
		TauD:          t.col[colTauD][i],
		Rate:          t.col[colRate][i],
		Rd:            t.col[colRd][i],
	}
}

// Xe returns the electron fraction column (do not modify).
func (t *Table) XeColumn() []float64 { return t.col[colXe] }

// DKappaColumn returns the scattering rate column (do not modify).
func (t *Table) DKappaColumn() []float64 { return t.col[colDKappa] }

// TbColumn returns the baryon temperature column (do not modify).
func (t *Table) TbColumn() []float64 { return t.col[colTb] }

// fitSplines prepares spline interpolation in redshift for every column.
func (t *Table) fitSplines() error {
	for c := 0; c < numCols; c++ {
		if err := numerics.SplineFit(t.Z, t.col[c], t.dd[c], numerics.EstimateDerivativeBoundary); err != nil {
			return fmt.Errorf("thermal: spline of column %d: %w", c, err)
		}
	}
	return nil
}

// splineRowAt evaluates every column by cubic spline on interval i.
func (t *Table) splineRowAt(i int, z float64) Row {
	var v [numCols]float64
	for c := 0; c < numCols; c++ {
		v[c] = numerics.SplineValue(t.Z, t.col[c], t.dd[c], i, z)
	}
	return rowFromValues(v)
}

// linearRowAt evaluates every column linearly on interval i.
func (t *Table) linearRowAt(i int, z float64) Row {
	var v [numCols]float64
	for c := 0; c < numCols; c++ {
		v[c] = numerics.LinearValue(t.Z, t.col[c], i, z)
	}
	return rowFromValues(v)
}

func rowFromValues(v [numCols]float64) Row {
	return Row{
		Xe:            v[colXe],
		DKappa:        v[colDKappa],
		DDKappa:       v[colDDKappa],
		DDDKappa:      v[colDDDKappa],
		ExpMinusKappa: v[colExpMK],
		G:             v[colG],
		DG:            v[colDG],
		DDG:           v[colDDG],
		Tb:            v[colTb],
		Cb2:           v[colCb2],
		DCb2:          v[colDCb2],
		DDCb2:         v[colDDCb2],
		TauD:          v[colTauD],
		Rate:          v[colRate],
		Rd:            v[colRd],
	}
}
