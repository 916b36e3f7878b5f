package thermal

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

func (r regime) String() string {
	switch r {
	case regimeBRec:
		return "before recombination"
	case regimeHe1:
		return "HeIII Saha"
	case regimeHe1f:
		return "HeIII done"
	case regimeHe2:
		return "HeII Saha"
	case regimeH:
		return "H Saha"
	case regimeFRec:
		return "full network"
	case regimeReio:
		return "reionization"
	}
	return fmt.Sprintf("regime(%d)", int(r))
}

// Solve integrates the thermal history over the full redshift grid and
// post-processes it. The solver may be reused for another Solve afterwards.
func (s *Solver) Solve() (*History, error) {
	if err := s.buildGrid(); err != nil {
		return nil, err
	}
	s.zReio, s.tauReio = 0.0, 0.0

	// one evolver run per approximation regime, chained through the state
	// vector; the first interval also samples its starting point
	mzIni := s.mzOutput[0]
	includeStart := true
	for reg := regimeBRec; reg < numRegimes; reg++ {
		mzEnd := -s.limits[reg]
		s.reg = reg
		if err := s.vectorInit(reg, -mzIni); err != nil {
			return nil, err
		}

		var err error
		if reg == regimeReio && s.tauTarget > 0 {
			err = s.evolveWithTau(mzIni, mzEnd)
		} else {
			err = s.integrateInterval(mzIni, mzEnd, includeStart)
		}
		if err != nil {
			return nil, fmt.Errorf("thermal: %v interval: %w", reg, err)
		}

		includeStart = false
		mzIni = mzEnd
	}

	scheme := s.par.Reio.Scheme
	if scheme != ReioNone && s.tauTarget == 0 {
		tau, err := s.reionizationTau()
		if err != nil {
			return nil, err
		}
		s.tauReio = tau
		if scheme == ReioCAMB || scheme == ReioHalfTanh {
			s.zReio = s.par.Reio.CAMB.ZReio
		}
	}

	h := &History{
		Table:   s.table,
		YHe:     s.yhe,
		ZReio:   s.zReio,
		TauReio: s.tauReio,
		bg:      s.bg,
		nH0:     s.nH0,
		tcmb:    s.tcmb,
	}
	switch scheme {
	case ReioHalfTanh:
		h.linearBelow = 2.0 * s.zReio
	case ReioInter:
		h.linearBelow = 50.0
	}

	if err := s.postprocess(h); err != nil {
		return nil, err
	}

	s.logSummary(h)
	return h, nil
}

func (s *Solver) logSummary(h *History) {
	if s.log == nil {
		return
	}
	s.log.WithFields(logrus.Fields{
		"z":           h.ZRec,
		"tau_mpc":     h.TauRec,
		"rs_mpc":      h.RsRec,
		"da_mpc":      h.DaRec,
		"100*theta_s": 100.0 * h.RsRec / h.RaRec,
	}).Info("recombination")
	if s.par.ComputeDampingScale {
		s.log.WithFields(logrus.Fields{
			"rd_mpc":     h.RdRec,
			"kd_per_mpc": 2.0 * math.Pi / h.RdRec,
		}).Info("photon damping scale at recombination")
	}
	s.log.WithFields(logrus.Fields{
		"z":       h.ZDrag,
		"tau_mpc": h.TauDrag,
		"rs_mpc":  h.RsDrag,
	}).Info("end of baryon drag")
	switch s.par.Reio.Scheme {
	case ReioNone:
	case ReioCAMB, ReioHalfTanh:
		s.log.WithFields(logrus.Fields{
			"z":        h.ZReio,
			"tau_reio": h.TauReio,
		}).Info("reionization")
	default:
		s.log.WithField("tau_reio", h.TauReio).Info("reionization")
	}
	s.log.WithField("tau_mpc", h.TauFreeStreaming).Debug("free streaming onset")
}
