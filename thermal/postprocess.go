package thermal

import (
	"fmt"
	"math"

	"github.com/rollingthunder/thermal/numerics"
)

// postprocess turns the raw columns written during the integration into the
// derived quantities: drag optical depth, damping scale, visibility and the
// variation rate, then the epoch markers.
func (s *Solver) postprocess(h *History) error {
	if err := s.conformalDragTime(); err != nil {
		return err
	}
	if s.par.ComputeDampingScale {
		if err := s.dampingScale(); err != nil {
			return err
		}
	}
	if err := s.opticals(); err != nil {
		return err
	}
	if err := s.table.fitSplines(); err != nil {
		return err
	}
	if err := s.recombinationQuantities(h); err != nil {
		return err
	}
	return s.dragQuantities(h)
}

// conformalDragTime fills the baryon drag optical depth
// tau_d(tau) = int_tau^tau_0 dtau' kappa'/R with R = 3 rho_b / 4 rho_g.
// The tau axis decreases with the index, so the integrand carries a minus.
func (s *Solver) conformalDragTime() error {
	n := s.table.Len()
	integrand := make([]float64, n)
	y2 := make([]float64, n)

	for i := 0; i < n; i++ {
		st, err := s.bg.StateAt(s.table.Tau[i])
		if err != nil {
			return err
		}
		R := 0.75 * st.RhoB / st.RhoG
		integrand[i] = -1.0 / R * s.table.col[colDKappa][i]
	}

	if err := numerics.SplineFit(s.table.Tau, integrand, y2, numerics.EstimateDerivativeBoundary); err != nil {
		return err
	}
	return numerics.CumulativeSplineIntegral(s.table.Tau, integrand, y2, s.table.col[colTauD])
}

// dampingScale fills the photon damping scale
// r_d = 2pi [int_0^tau dtau' (1/kappa') 1/6 (R^2/(1+R)+16/15)/(1+R)]^1/2.
// The integral runs in growing time; the stretch between tau=0 and the first
// grid point is added analytically, using kappa' ~ 1/a^2 and tau ~ a deep in
// radiation domination.
func (s *Solver) dampingScale() error {
	n := s.table.Len()
	tauGrow := make([]float64, n)
	integrand := make([]float64, n)
	y2 := make([]float64, n)
	integral := make([]float64, n)

	for i := 0; i < n; i++ {
		tauGrow[i] = s.table.Tau[n-1-i]
		st, err := s.bg.StateAt(tauGrow[i])
		if err != nil {
			return err
		}
		R := 0.75 * st.RhoB / st.RhoG
		integrand[i] = 1.0 / 6.0 / s.table.col[colDKappa][n-1-i] *
			(R*R/(1.0+R) + 16.0/15.0) / (1.0 + R)
	}

	if err := numerics.SplineFit(tauGrow, integrand, y2, numerics.EstimateDerivativeBoundary); err != nil {
		return err
	}
	if err := numerics.CumulativeSplineIntegral(tauGrow, integrand, y2, integral); err != nil {
		return err
	}

	tauIni := s.table.Tau[n-1]
	dkappaIni := s.table.col[colDKappa][n-1]
	for i := 0; i < n; i++ {
		s.table.col[colRd][i] = 2.0 * math.Pi *
			math.Sqrt(16.0/(15.0*6.0*3.0)*tauIni/dkappaIni+integral[n-1-i])
	}
	return nil
}

// opticals fills the optical depth derivatives, exp(-kappa), the visibility
// function with its derivatives, and the variation rate that controls the
// source sampling. Derivatives are with respect to conformal time.
func (s *Solver) opticals() error {
	n := s.table.Len()
	tau := s.table.Tau
	dkappaCol := s.table.col[colDKappa]

	// kappa'' and kappa''' by spline
	if err := numerics.SplineFit(tau, dkappaCol, s.table.col[colDDDKappa], numerics.EstimateDerivativeBoundary); err != nil {
		return err
	}
	if err := numerics.DeriveAtKnots(tau, dkappaCol, s.table.col[colDDDKappa], s.table.col[colDDKappa]); err != nil {
		return err
	}

	// minus kappa, integrated from today
	mkappa := make([]float64, n)
	if err := numerics.CumulativeSplineIntegral(tau, dkappaCol, s.table.col[colDDDKappa], mkappa); err != nil {
		return err
	}

	for i := n - 1; i >= 0; i-- {
		dkappa := dkappaCol[i]
		ddkappa := s.table.col[colDDKappa][i]
		dddkappa := s.table.col[colDDDKappa][i]
		expmk := math.Exp(mkappa[i])

		s.table.col[colExpMK][i] = expmk
		s.table.col[colG][i] = dkappa * expmk
		s.table.col[colDG][i] = (ddkappa + dkappa*dkappa) * expmk
		s.table.col[colDDG][i] = (dddkappa + 3.0*dkappa*ddkappa + dkappa*dkappa*dkappa) * expmk

		if dkappa == 0.0 {
			return fmt.Errorf("%w at z=%g", ErrRateDiverges, s.table.Z[i])
		}
		s.table.col[colRate][i] = math.Sqrt(dkappa*dkappa +
			math.Pow(ddkappa/dkappa, 2) + math.Abs(dddkappa/dkappa))
	}

	// only the order of magnitude of the rate matters
	numerics.Smooth(s.table.col[colRate], s.prec.RateSmoothingRadius)

	if s.par.ComputeCb2Derivatives {
		if err := numerics.SplineFit(tau, s.table.col[colCb2], s.table.col[colDDCb2], numerics.EstimateDerivativeBoundary); err != nil {
			return err
		}
		if err := numerics.DeriveAtKnots(tau, s.table.col[colCb2], s.table.col[colDDCb2], s.table.col[colDCb2]); err != nil {
			return err
		}
	}
	return nil
}

// recombinationQuantities locates the maximum of the visibility function and
// derives the recombination epoch, the free streaming time and the visibility
// cutoff.
func (s *Solver) recombinationQuantities(h *History) error {
	g := s.table.col[colG]
	z := s.table.Z

	idx := s.table.Len() - 1
	for z[idx] > zRecMax {
		idx--
	}
	if g[idx+1] > g[idx] {
		return fmt.Errorf("thermal: recombination redshift above the sanity ceiling z=%g", zRecMax)
	}
	for g[idx+1] < g[idx] {
		idx--
	}
	gMax := g[idx]
	idxMax := idx

	// quadratic refinement around the grid maximum
	h.ZRec = z[idx+1] + 0.5*(z[idx+1]-z[idx])*(g[idx]-g[idx+2])/
		(g[idx]-2.0*g[idx+1]+g[idx+2])
	if h.ZRec >= zRecMax {
		return fmt.Errorf("thermal: recombination redshift z=%g above the sanity ceiling z=%g", h.ZRec, zRecMax)
	}
	if h.ZRec <= zRecMin {
		return fmt.Errorf("thermal: recombination redshift z=%g below the sanity floor z=%g", h.ZRec, zRecMin)
	}

	tauRec, err := s.bg.TimeAt(h.ZRec)
	if err != nil {
		return err
	}
	st, err := s.bg.StateAt(tauRec)
	if err != nil {
		return err
	}
	h.TauRec = tauRec
	h.RsRec = st.RS
	h.DsRec = st.RS / (1.0 + h.ZRec)
	h.DaRec = st.DA
	h.RaRec = st.DA * (1.0 + h.ZRec)
	h.AngularRescaling = h.RaRec / (s.bg.ConformalAge() - tauRec)

	if s.par.ComputeDampingScale {
		h.RdRec = numerics.LinearValue(z, s.table.col[colRd], idx, h.ZRec)
	}

	// photons free-stream once the mean free path exceeds the trigger
	// fraction of the conformal time, always after recombination
	tau, err := s.bg.TimeAt(z[idx])
	if err != nil {
		return err
	}
	for 1.0/s.table.col[colDKappa][idx]/tau < s.prec.FreeStreamingTrigger {
		idx--
		if tau, err = s.bg.TimeAt(z[idx]); err != nil {
			return err
		}
	}
	h.TauFreeStreaming = tau

	// time above which the visibility is a negligible fraction of its peak
	idx = idxMax
	for g[idx] > gMax*s.prec.VisibilityThreshold && idx > 0 {
		idx--
	}
	h.TauCut, err = s.bg.TimeAt(z[idx])
	return err
}

// dragQuantities locates the end of the baryon drag epoch, where the drag
// optical depth crosses one.
func (s *Solver) dragQuantities(h *History) error {
	tauD := s.table.col[colTauD]
	z := s.table.Z

	idx := 0
	for idx < s.table.Len() && tauD[idx] < 1.0 {
		idx++
	}
	if idx == s.table.Len() {
		return fmt.Errorf("thermal: drag optical depth never reaches one, tau_d at the top of the table is %g", tauD[idx-1])
	}

	h.ZDrag = z[idx-1] + (1.0-tauD[idx-1])/(tauD[idx]-tauD[idx-1])*(z[idx]-z[idx-1])

	tau, err := s.bg.TimeAt(h.ZDrag)
	if err != nil {
		return err
	}
	st, err := s.bg.StateAt(tau)
	if err != nil {
		return err
	}
	h.TauDrag = tau
	h.RsDrag = st.RS
	h.DsDrag = st.RS / (1.0 + h.ZDrag)
	return nil
}
