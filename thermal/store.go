package thermal

import (
	"github.com/rollingthunder/thermal/chemistry"
)

// blend is a smooth 0 to 1 weight on s in [0,1], used to stitch the
// ionization fraction across a regime switch.
func blend(s float64) float64 {
	if s <= 0 {
		return 0.0
	}
	if s >= 1 {
		return 1.0
	}
	return s * s * s * (10.0 + s*(-15.0+6.0*s))
}

// store is the output callback of the evolver. It recomputes the ionization
// fraction under the active regime's rule, blends it with the previous
// regime's rule shortly after a switch, and writes the chemistry columns
// into the table. Integration runs towards decreasing redshift while the
// table is ordered by increasing redshift, hence the reversed row index.
func (s *Solver) store(z float64, y, dy []float64, outputIndex int) error {
	w := &s.w
	reg := s.reg

	w.tmat = y[idxTmat]
	w.dTmat = -dy[idxTmat]

	var x float64
	switch reg {
	case regimeH:
		if err := s.xAnalytic(z, reg); err != nil {
			return err
		}
		x = w.xH + s.fHe*y[idxXHe]
	case regimeFRec:
		x = y[idxXH] + s.fHe*y[idxXHe]
	case regimeReio:
		w.x = y[idxXH] + s.fHe*y[idxXHe]
		if err := s.xAnalytic(z, reg); err != nil {
			return err
		}
		x = w.x
	default:
		if err := s.xAnalytic(z, reg); err != nil {
			return err
		}
		x = w.x
	}

	// within 2 delta after a switch, mix in the previous regime's rule
	if reg != regimeBRec && z > s.limits[reg-1]-2.0*s.deltas[reg] {
		var xPrevious float64
		switch reg - 1 {
		case regimeH:
			if err := s.xAnalytic(z, reg-1); err != nil {
				return err
			}
			xPrevious = w.xH + s.fHe*y[idxXHe]
		case regimeFRec:
			xPrevious = y[idxXH] + s.fHe*y[idxXHe]
		default:
			if err := s.xAnalytic(z, reg-1); err != nil {
				return err
			}
			xPrevious = w.x
		}
		weight := blend((s.limits[reg-1] - z) / (2.0 * s.deltas[reg]))
		x = weight*x + (1.0-weight)*xPrevious
	}

	row := s.table.Len() - 1 - outputIndex
	tb := y[idxTmat]

	s.table.col[colXe][row] = x
	s.table.col[colTb][row] = tb

	// cb2 = (k_B/mu/m_H c^2) Tb (1 + (1+z) dlnTb/dz / 3); dy is the minus
	// redshift derivative
	s.table.col[colCb2][row] = chemistry.KBoltz / (chemistry.CLight * chemistry.CLight * chemistry.MHydrogen) *
		(1.0 + (1.0/chemistry.Not4-1.0)*s.yhe + x*(1.0-s.yhe)) *
		tb * (1.0 - (1.0+z)*dy[idxTmat]/tb/3.0)

	// dkappa/dtau = a n_e x_e sigma_T in 1/Mpc
	s.table.col[colDKappa][row] = (1.0 + z) * (1.0 + z) * s.nH0 * x *
		chemistry.SigmaT * chemistry.MpcOverM

	return nil
}
