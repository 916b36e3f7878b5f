package thermal

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/rollingthunder/thermal/background"
	"github.com/rollingthunder/thermal/bbn"
	"github.com/rollingthunder/thermal/chemistry"
	"github.com/rollingthunder/thermal/heating"
	"github.com/rollingthunder/thermal/ode"
	"github.com/rollingthunder/thermal/ode/rk"
	"github.com/rollingthunder/thermal/reionization"
)

var (
	// ErrRateDiverges is returned when the scattering rate is exactly zero
	// where the variation rate is computed.
	ErrRateDiverges = errors.New("thermal: variation rate diverges")
	// ErrBisectionNoConvergence is returned when the optical depth search
	// exceeds its iteration cap.
	ErrBisectionNoConvergence = errors.New("thermal: optical depth bisection did not converge")
)

// approximation regimes, in chronological order (decreasing redshift)
type regime int

const (
	regimeBRec regime = iota // everything fully ionized
	regimeHe1                // HeIII -> HeII in Saha equilibrium
	regimeHe1f               // first helium recombination finished
	regimeHe2                // HeII -> HeI in Saha equilibrium
	regimeH                  // helium evolved, hydrogen in Saha
	regimeFRec               // hydrogen evolved too
	regimeReio               // reionization on top of the relic fraction
	numRegimes
)

// stateVector is the set of quantities evolved in the current regime. dy
// keeps the most recent derivative in minus-redshift convention; the
// temperature equation needs it for the Saha derivative chains.
type stateVector struct {
	y, dy []float64
	hasHe bool
	hasH  bool
}

const (
	idxTmat = 0
	idxXHe  = 1
	idxXH   = 2
)

func (v *stateVector) clone() *stateVector {
	c := &stateVector{
		y:     append([]float64(nil), v.y...),
		dy:    append([]float64(nil), v.dy...),
		hasHe: v.hasHe,
		hasH:  v.hasH,
	}
	return c
}

// workspace carries the analytic ionization values shared between the
// derivative and output callbacks.
type workspace struct {
	x, dx     float64
	xH, dxH   float64
	xHe, dxHe float64
	tmat      float64
	dTmat     float64 // positive redshift convention
}

// Solver runs one thermal history. It is not safe for concurrent use; run
// independent solves on independent solvers.
type Solver struct {
	par  Params
	prec Precision
	log  *logrus.Logger

	bg    background.Provider
	heat  heating.Provider
	reio  reionization.History
	net   *chemistry.Network
	integ ode.Integrator

	yhe      float64
	fHe      float64
	tcmb     float64
	h0SI     float64 // 1/s
	nH0      float64 // hydrogen nuclei today, 1/m^3
	rgFactor float64 // photon scattering rate per Trad^4, 1/s/K^4

	tauTarget float64 // > 0 when the reionization redshift is bisected

	limits [numRegimes]float64
	deltas [numRegimes]float64

	// live solve state
	table    *Table
	mzOutput []float64
	vec      *stateVector
	w        workspace
	reg      regime

	zReio   float64
	tauReio float64
}

// NewSolver validates the configuration and prepares all collaborators.
// A nil logger disables the epoch summary.
func NewSolver(par Params, prec Precision, log *logrus.Logger) (*Solver, error) {
	if err := prec.validate(); err != nil {
		return nil, err
	}

	s := &Solver{par: par, prec: prec, log: log}

	// helium fraction, from BBN if not set explicitly
	s.yhe = par.YHe
	if s.yhe <= 0 {
		neff := par.NeffBBN
		if neff == 0 {
			neff = par.Background.NEff
		}
		omegaB := par.Background.OmegaB * par.Background.H100 * par.Background.H100
		yhe, err := bbn.DefaultTable().HeliumFraction(omegaB, neff-3.046)
		if err != nil {
			return nil, err
		}
		s.yhe = yhe
	}
	if err := par.validate(s.yhe); err != nil {
		return nil, err
	}
	s.fHe = s.yhe / (chemistry.Not4 * (1.0 - s.yhe))
	s.tcmb = par.Background.TCMB

	bg, err := background.NewLCDM(par.Background)
	if err != nil {
		return nil, err
	}
	s.bg = bg

	s.h0SI = par.Background.H100 * 1.0e5 / chemistry.MpcOverM
	s.nH0 = 3.0 * s.h0SI * s.h0SI * par.Background.OmegaB /
		(8.0 * math.Pi * chemistry.GNewton * chemistry.MHydrogen) * (1.0 - s.yhe)
	aRad := 8.0 * math.Pow(math.Pi, 5) * math.Pow(chemistry.KBoltz, 4) /
		(15.0 * math.Pow(chemistry.HPlanck, 3) * math.Pow(chemistry.CLight, 3))
	s.rgFactor = (8.0 / 3.0) * chemistry.SigmaT / (chemistry.MElectron * chemistry.CLight) * aRad

	if par.Heating.Annihilation > 0 || par.Heating.Decay > 0 {
		inj, err := heating.NewDarkMatterInjection(par.Heating, s.h0SI, s.nH0,
			par.Background.OmegaB, par.Background.OmegaCDM)
		if err != nil {
			return nil, err
		}
		s.heat = inj
	} else {
		s.heat = heating.None{}
	}

	net, err := chemistry.NewNetwork(prec.Chemistry, s.fHe)
	if err != nil {
		return nil, err
	}
	s.net = net

	if err := s.buildReionization(); err != nil {
		return nil, err
	}

	integ, err := rk.NewRK(rk.DoPri5)
	if err != nil {
		return nil, err
	}
	s.integ = integ

	s.limits = [numRegimes]float64{
		prec.ZHe1 + prec.DeltaZHe1,
		prec.ZHe2 + prec.DeltaZHe2,
		prec.ZHe3 + prec.DeltaZHe3,
		prec.ZHydrogenSaha,
		prec.ZFullRecomb,
		prec.ReionizationZStartMax,
		0.0,
	}
	s.deltas = [numRegimes]float64{
		0.0,
		prec.DeltaZHe1,
		prec.DeltaZHe2,
		prec.DeltaZHe3,
		prec.DeltaZHydrogen,
		prec.DeltaZFullRecomb,
		prec.DeltaZReio,
	}

	return s, nil
}

func (s *Solver) buildReionization() error {
	cfg := s.par.Reio
	startFactor := s.prec.ReionizationStartFactor
	zStartMax := s.prec.ReionizationZStartMax

	var err error
	switch cfg.Scheme {
	case ReioNone:
		s.reio = &reionization.None{}
	case ReioCAMB, ReioHalfTanh:
		par := cfg.CAMB
		par.HalfTanh = cfg.Scheme == ReioHalfTanh
		if cfg.TauReio > 0 {
			s.tauTarget = cfg.TauReio
			// the bisection upper bound must itself fit below the ceiling
			par.ZReio = zStartMax - startFactor*par.Width
		}
		s.reio, err = reionization.NewCAMB(par, s.yhe, startFactor, zStartMax)
	case ReioBinsTanh:
		s.reio, err = reionization.NewBinsTanh(cfg.BinZ, cfg.BinXe, cfg.BinSharpness, s.yhe, zStartMax)
	case ReioManyTanh:
		s.reio, err = reionization.NewManyTanh(cfg.ManyZ, cfg.ManyXe, cfg.ManyWidth, s.yhe, startFactor, zStartMax)
	case ReioInter:
		s.reio, err = reionization.NewInterp(cfg.InterZ, cfg.InterXe, s.yhe, zStartMax)
	}
	return err
}

// YHe reports the helium fraction in use, after a possible BBN lookup.
func (s *Solver) YHe() float64 { return s.yhe }

// buildGrid fills the redshift table (growing z) and its conformal times,
// plus the minus-redshift output list handed to the evolver.
func (s *Solver) buildGrid() error {
	nLog := s.prec.NLogRecomb
	nLin := s.prec.NLinRecomb
	nReio := int(s.prec.ReionizationZStartMax / s.prec.ReionizationSampling)
	n := nLog + nLin + nReio

	s.table = newTable(n)
	z := s.table.Z

	zIni := s.prec.ZInitial
	zLin := s.prec.ZLinear
	zsm := s.prec.ReionizationZStartMax

	// log spacing from z_initial down to z_linear
	for i := 0; i < nLog; i++ {
		z[n-1-i] = math.Exp((math.Log(zIni)-math.Log(zLin))*float64(nLog-1-i)/float64(nLog-1) + math.Log(zLin))
	}
	// linear spacing down to the reionization ceiling, which is included
	for i := 0; i < nLin; i++ {
		z[n-1-(i+nLog)] = (zLin-zsm)*float64(nLin-1-i)/float64(nLin) + zsm
	}
	// uniform reionization sampling down to zero, ceiling excluded
	for i := 0; i < nReio; i++ {
		z[n-1-(i+nLog+nLin)] = zsm * float64(nReio-1-i) / float64(nReio)
	}

	for i := 0; i < n; i++ {
		tau, err := s.bg.TimeAt(z[i])
		if err != nil {
			return err
		}
		s.table.Tau[i] = tau
	}

	s.mzOutput = make([]float64, n)
	for i := 0; i < n; i++ {
		s.mzOutput[i] = -z[n-1-i]
	}
	return nil
}

// xAnalytic fills the workspace with the closed-form ionization state of the
// given regime at z. The workspace temperature values must be current.
func (s *Solver) xAnalytic(z float64, reg regime) error {
	w := &s.w
	switch reg {
	case regimeBRec:
		w.xH, w.xHe = 1.0, 1.0
		w.x = 1.0 + 2.0*s.fHe
		w.dx, w.dxH, w.dxHe = 0.0, 0.0, 0.0

	case regimeHe1:
		w.xH, w.xHe = 1.0, 1.0
		w.dxH, w.dxHe = 0.0, 0.0
		w.x, w.dx = s.net.SahaHeIII(z, w.tmat, w.dTmat, s.nH0)

	case regimeHe1f:
		w.xH, w.xHe = 1.0, 1.0
		w.x = 1.0 + s.fHe
		w.dx, w.dxH, w.dxHe = 0.0, 0.0, 0.0

	case regimeHe2:
		w.xH = 1.0
		w.dxH = 0.0
		w.x, w.xHe, w.dx, w.dxHe = s.net.SahaHeII(z, w.tmat, w.dTmat, s.nH0)

	case regimeH:
		w.xH, w.dxH = s.net.SahaHydrogen(z, w.tmat, w.dTmat, s.nH0)

	case regimeFRec:
		// both species are evolved, nothing analytic remains

	case regimeReio:
		// the relic fraction from the evolver becomes the asymptote the
		// reionization function starts from
		s.reio.SetXeBefore(w.x)
		x, dx, err := s.reio.Xe(z)
		if err != nil {
			return err
		}
		w.x, w.dx = x, dx

	default:
		return fmt.Errorf("thermal: no analytic ionization state for regime %d", reg)
	}
	return nil
}

// vectorInit rebuilds the evolved vector when entering a regime at redshift
// z. The previous regime's vector seeds the carried quantities; variables
// newly promoted to the ODE system start from their Saha values.
func (s *Solver) vectorInit(reg regime, z float64) error {
	switch reg {
	case regimeBRec:
		s.w.tmat = s.tcmb * (1.0 + z)
		s.w.dTmat = s.tcmb
		s.vec = &stateVector{
			y:  []float64{s.tcmb * (1.0 + z)},
			dy: []float64{-s.tcmb},
		}

	case regimeH:
		old := s.vec
		s.w.tmat = old.y[idxTmat]
		s.w.dTmat = -old.dy[idxTmat]
		if err := s.xAnalytic(z, reg-1); err != nil {
			return err
		}
		s.vec = &stateVector{
			y:     []float64{old.y[idxTmat], s.w.xHe},
			dy:    []float64{old.dy[idxTmat], -s.w.dxHe},
			hasHe: true,
		}

	case regimeFRec:
		old := s.vec
		s.w.tmat = old.y[idxTmat]
		s.w.dTmat = -old.dy[idxTmat]
		if err := s.xAnalytic(z, reg-1); err != nil {
			return err
		}
		s.vec = &stateVector{
			y:     []float64{old.y[idxTmat], old.y[idxXHe], s.w.xH},
			dy:    []float64{old.dy[idxTmat], old.dy[idxXHe], -s.w.dxH},
			hasHe: true,
			hasH:  true,
		}

	case regimeReio:
		old := s.vec
		s.vec = &stateVector{
			y:     []float64{old.y[idxTmat], old.y[idxXHe], old.y[idxXH]},
			dy:    []float64{old.dy[idxTmat], old.dy[idxXHe], old.dy[idxXH]},
			hasHe: true,
			hasH:  true,
		}

	default: // He1, He1f, He2 only carry the temperature
		old := s.vec
		s.w.tmat = old.y[idxTmat]
		s.w.dTmat = -old.dy[idxTmat]
		s.vec = &stateVector{
			y:  []float64{old.y[idxTmat]},
			dy: []float64{old.dy[idxTmat]},
		}
	}
	return nil
}

// evolverConfig assembles the ode configuration for one interval. lo is the
// global output index of the first point in the slice.
func (s *Solver) evolverConfig(points []float64, lo int) *ode.Config {
	return &ode.Config{
		Fcn:               s.derivs,
		AbsoluteTolerance: s.prec.IntegrationTol,
		RelativeTolerance: s.prec.IntegrationTol,
		OutputPoints:      points,
		OutputFcn: func(t float64, y, dy []float64, idx int) error {
			return s.store(-t, y, dy, lo+idx)
		},
	}
}

// outputSlice selects the output points of the interval (mzIni, mzEnd]. The
// first interval also includes its starting point.
func (s *Solver) outputSlice(mzIni, mzEnd float64, includeStart bool) ([]float64, int) {
	const eps = 1.0e-12
	lo := 0
	for lo < len(s.mzOutput) && s.mzOutput[lo] < mzIni-eps {
		lo++
	}
	if !includeStart {
		for lo < len(s.mzOutput) && s.mzOutput[lo] <= mzIni+eps {
			lo++
		}
	}
	hi := lo
	for hi < len(s.mzOutput) && s.mzOutput[hi] <= mzEnd+eps {
		hi++
	}
	return s.mzOutput[lo:hi], lo
}

// integrateInterval runs the evolver across one regime window.
func (s *Solver) integrateInterval(mzIni, mzEnd float64, includeStart bool) error {
	points, lo := s.outputSlice(mzIni, mzEnd, includeStart)
	cfg := s.evolverConfig(points, lo)
	_, err := s.integ.Integrate(mzIni, mzEnd, s.vec.y, cfg)
	return err
}
