package thermal

import (
	"math"

	"github.com/rollingthunder/thermal/chemistry"
)

// derivs is the right hand side handed to the evolver. The independent
// variable is minus redshift so that integration runs forward in time; every
// derivative is therefore negated on the way out. Depending on the regime
// the vector holds Tmat, (Tmat, xHe) or (Tmat, xHe, xH); whatever is not
// evolved is reconstructed from its Saha closed form.
func (s *Solver) derivs(mz float64, y, dyOut []float64) error {
	z := -mz
	vec := s.vec
	w := &s.w

	tau, err := s.bg.TimeAt(z)
	if err != nil {
		return err
	}
	st, err := s.bg.StateAt(tau)
	if err != nil {
		return err
	}
	rate, err := s.heat.TotalRate(z)
	if err != nil {
		return err
	}

	// H in 1/s, hydrogen density in 1/m^3
	Hz := st.H * chemistry.CLight / chemistry.MpcOverM
	n := s.nH0 * (1.0 + z) * (1.0 + z) * (1.0 + z)
	Trad := s.tcmb * (1.0 + z)

	Tmat := y[idxTmat]
	w.tmat = Tmat
	w.dTmat = -vec.dy[idxTmat]

	if err := s.xAnalytic(z, s.reg); err != nil {
		return err
	}

	var x, xH, xHe, dx, dxH, dxHe float64
	if vec.hasHe {
		xHe = y[idxXHe]
		dxHe = -vec.dy[idxXHe]
		x = w.xH + s.fHe*xHe
	} else {
		xHe = w.xHe
		dxHe = w.dxHe
		x = w.x
	}
	if vec.hasH {
		xH = y[idxXH]
		dxH = -vec.dy[idxXH]
		x = xH + s.fHe*xHe
	} else {
		xH = w.xH
		dxH = w.dxH
	}

	if vec.hasH {
		dyOut[idxXH] = s.net.HydrogenRate(xH, x, n, z, Hz, Tmat, Trad, rate)
		dxH = dyOut[idxXH]
	}
	if vec.hasHe {
		dyOut[idxXHe] = s.net.HeliumRate(xHe, x, xH, n, z, Hz, Tmat, Trad)
		dxHe = dyOut[idxXHe]
	}

	switch s.reg {
	case regimeH:
		dx = w.dxH + s.fHe*dxHe
	case regimeFRec, regimeReio:
		dx = dxH + s.fHe*dxHe
	default:
		dx = w.dx
	}

	// during reionization the parametrized history replaces the chemistry
	// value of x, on top of the relic fraction the chemistry provides
	if s.reg == regimeReio {
		w.x = x
		if err := s.xAnalytic(z, regimeReio); err != nil {
			return err
		}
		x = w.x
		dx = w.dx + dxH + s.fHe*dxHe
	}

	// matter temperature. While the Compton coupling is much faster than
	// expansion the stiff equation is replaced by its steady state
	// expansion dTm/dz = Tcmb - eps dln(eps)/dz with Tm = Trad - eps.
	Rg := s.rgFactor * Trad * Trad * Trad * Trad
	timeTh := (1.0 / Rg) * (1.0 + x + s.fHe) / x
	timeH := 2.0 / (3.0 * s.h0SI * math.Pow(1.0+z, 1.5))

	if timeTh < s.prec.HFrac*timeH {
		dHdz := -st.HPrime / st.H * chemistry.CLight / chemistry.MpcOverM
		eps := Hz * (1.0 + x + s.fHe) / (Rg / Trad * x)
		dlneps := dHdz/Hz - ((1.0+s.fHe)/(1.0+s.fHe+x))*(dx/x) - 3.0/(1.0+z)
		dyOut[idxTmat] = s.tcmb - eps*dlneps
	} else {
		chiHeat := chemistry.HeatingEfficiency(x)
		dyOut[idxTmat] = Rg*x/(1.0+x+s.fHe)*(Tmat-Trad)/(Hz*(1.0+z)) +
			2.0*Tmat/(1.0+z) -
			2.0/(3.0*chemistry.KBoltz)*rate*chiHeat/n/(1.0+s.fHe+x)/(Hz*(1.0+z))
	}

	w.x, w.dx = x, dx
	w.xH, w.dxH = xH, dxH
	w.xHe, w.dxHe = xHe, dxHe

	for i := range dyOut {
		dyOut[i] = -dyOut[i]
	}
	copy(vec.dy, dyOut)

	return nil
}
