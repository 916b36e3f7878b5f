package thermal

import (
	"fmt"

	"github.com/rollingthunder/thermal/numerics"
	"github.com/rollingthunder/thermal/reionization"
)

// reionizationTau integrates the scattering rate over conformal time from
// today up to the start of reionization. The tau axis decreases with the row
// index, so the signed spline integral comes out negative.
func (s *Solver) reionizationTau() (float64, error) {
	start := s.reio.Start()

	i := 0
	for s.table.Z[i] < start {
		i++
		if i == s.table.Len() {
			return 0, fmt.Errorf("thermal: reionization start %g above the largest redshift in the table", start)
		}
	}

	tau := s.table.Tau[:i]
	dkappa := s.table.col[colDKappa][:i]
	y2 := make([]float64, i)
	if err := numerics.SplineFit(tau, dkappa, y2, numerics.EstimateDerivativeBoundary); err != nil {
		return 0, err
	}
	v, err := numerics.SplineIntegral(tau, dkappa, y2)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

// evolveWithTau replaces the plain reionization interval when the input is a
// target optical depth. The reionization redshift is found by bisection on
// [0, z_start_max - start_factor*width]; every trial re-runs the interval
// from a snapshot of the entry state.
func (s *Solver) evolveWithTau(mzIni, mzEnd float64) error {
	camb, ok := s.reio.(*reionization.CAMB)
	if !ok {
		return fmt.Errorf("thermal: optical depth target needs a tanh reionization history")
	}

	snapshot := s.vec.clone()

	zSup := camb.MaxRedshift()
	if zSup < 0 {
		return fmt.Errorf("thermal: reionization cannot complete before today while starting below z_start_max; increase z_start_max")
	}
	zCur := zSup
	if err := camb.SetRedshift(zSup); err != nil {
		return err
	}
	if err := s.integrateInterval(mzIni, mzEnd, false); err != nil {
		return err
	}
	tauSup, err := s.reionizationTau()
	if err != nil {
		return err
	}
	if tauSup < s.tauTarget {
		return fmt.Errorf("thermal: optical depth at the maximum reionization redshift is %g, below the target %g; reionization cannot start after z_start_max", tauSup, s.tauTarget)
	}

	zInf, tauInf := 0.0, 0.0

	counter := 0
	for tauSup-tauInf > s.tauTarget*s.prec.ReionizationOpticalDepthTol {
		zMid := 0.5 * (zSup + zInf)

		zCur = zMid
		if err := camb.SetRedshift(zMid); err != nil {
			return err
		}
		s.vec = snapshot.clone()
		if err := s.integrateInterval(mzIni, mzEnd, false); err != nil {
			return err
		}
		tauMid, err := s.reionizationTau()
		if err != nil {
			return err
		}

		if tauMid > s.tauTarget {
			zSup, tauSup = zMid, tauMid
		} else {
			zInf, tauInf = zMid, tauMid
		}

		counter++
		if counter > s.prec.MaxBisectionIterations {
			return fmt.Errorf("%w: %d iterations while searching for tau=%g", ErrBisectionNoConvergence, counter, s.tauTarget)
		}
	}

	s.zReio = zCur
	s.tauReio = s.tauTarget
	return nil
}
