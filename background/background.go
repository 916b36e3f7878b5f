// Package background supplies the homogeneous cosmology the thermal solver
// integrates against: Hubble rate, conformal time, densities, sound horizon
// and angular diameter distance. Quantities use the conformal convention with
// lengths in Mpc, so H carries units of 1/Mpc and densities absorb a factor
// 8 pi G / 3 to make rho_crit(z) = H(z)^2.
package background

import (
	"errors"
	"fmt"
	"math"

	"github.com/rollingthunder/thermal/chemistry"
	"github.com/rollingthunder/thermal/numerics"
)

// State is the background at one conformal time.
type State struct {
	Z      float64 // redshift
	A      float64 // scale factor, a0 = 1
	H      float64 // Hubble rate, 1/Mpc
	HPrime float64 // dH/dtau, 1/Mpc^2

	RhoG      float64 // photons, Mpc^-2
	RhoB      float64 // baryons
	RhoCDM    float64 // cold dark matter
	RhoUR     float64 // massless neutrinos
	RhoLambda float64
	RhoCrit   float64 // H^2

	RS float64 // comoving sound horizon, Mpc
	DA float64 // angular diameter distance, Mpc
}

// Provider is what the thermal solver needs from a cosmology.
type Provider interface {
	// TimeAt maps a redshift to conformal time in Mpc.
	TimeAt(z float64) (float64, error)
	// StateAt evaluates the background at a conformal time.
	StateAt(tau float64) (State, error)
	// ConformalAge is the conformal time today.
	ConformalAge() float64
}

var ErrOutOfRange = errors.New("background: redshift outside tabulated range")

// Params fixes a flat LCDM cosmology.
type Params struct {
	H100     float64 `yaml:"h"` // dimensionless Hubble parameter
	OmegaB   float64 `yaml:"omega_b"`
	OmegaCDM float64 `yaml:"omega_cdm"`
	TCMB     float64 `yaml:"t_cmb"` // K
	NEff     float64 `yaml:"n_eff"` // massless neutrino species
}

// DefaultParams returns a Planck 2018-like cosmology.
func DefaultParams() Params {
	return Params{
		H100:     0.6781,
		OmegaB:   0.04897,
		OmegaCDM: 0.2640,
		TCMB:     2.7255,
		NEff:     3.046,
	}
}

// LCDM is a tabulated flat LCDM background. Conformal time, sound horizon and
// comoving distance are integrated once on a log grid at construction; state
// lookups interpolate by spline.
type LCDM struct {
	par Params

	h0       float64 // H0 in 1/Mpc
	omegaG   float64
	omegaUR  float64
	omegaL   float64
	confAge  float64

	// increasing in tau, i.e. decreasing in z
	tauGrid, zGrid, rsGrid, chiGrid    []float64
	ddZ, ddRS, ddChi                   []float64

	zMax float64
}

const (
	backgroundZMax   = 1.0e8
	backgroundPoints = 16384
)

// NewLCDM validates p and tabulates the background up to z = 1e8.
func NewLCDM(p Params) (*LCDM, error) {
	if p.H100 <= 0 || p.OmegaB <= 0 || p.OmegaCDM < 0 || p.TCMB <= 0 {
		return nil, fmt.Errorf("background: non-physical parameters %+v", p)
	}

	b := &LCDM{par: p, zMax: backgroundZMax}
	b.h0 = p.H100 * 1.0e5 / chemistry.CLight

	// photon density parameter from T_cmb
	h0SI := p.H100 * 1.0e5 / chemistry.MpcOverM
	rhoCritSI := 3.0 * h0SI * h0SI * chemistry.CLight * chemistry.CLight /
		(8.0 * math.Pi * chemistry.GNewton)
	aRad := 8.0 * math.Pow(math.Pi, 5) * math.Pow(chemistry.KBoltz, 4) /
		(15.0 * math.Pow(chemistry.HPlanck, 3) * math.Pow(chemistry.CLight, 3))
	rhoG := aRad * math.Pow(p.TCMB, 4)
	b.omegaG = rhoG / rhoCritSI
	b.omegaUR = p.NEff * 7.0 / 8.0 * math.Pow(4.0/11.0, 4.0/3.0) * b.omegaG

	b.omegaL = 1.0 - p.OmegaB - p.OmegaCDM - b.omegaG - b.omegaUR
	if b.omegaL < 0 {
		return nil, fmt.Errorf("background: closed universe not supported, Omega_Lambda=%g", b.omegaL)
	}

	b.tabulate()
	return b, nil
}

// hubble returns H(z) in 1/Mpc for the flat sum of components.
func (b *LCDM) hubble(z float64) float64 {
	zp := 1.0 + z
	e2 := (b.par.OmegaB+b.par.OmegaCDM)*zp*zp*zp +
		(b.omegaG+b.omegaUR)*zp*zp*zp*zp + b.omegaL
	return b.h0 * math.Sqrt(e2)
}

// dHdz returns dH/dz in 1/Mpc.
func (b *LCDM) dHdz(z float64) float64 {
	zp := 1.0 + z
	de2 := 3.0*(b.par.OmegaB+b.par.OmegaCDM)*zp*zp +
		4.0*(b.omegaG+b.omegaUR)*zp*zp*zp
	return b.h0 * b.h0 * de2 / (2.0 * b.hubble(z))
}

// baryonPhotonRatio is R = 3 rho_b / (4 rho_g).
func (b *LCDM) baryonPhotonRatio(z float64) float64 {
	return 0.75 * b.par.OmegaB / b.omegaG / (1.0 + z)
}

// tabulate integrates dchi = dz/H from today outwards on a grid that is
// linear in log(1+z), accumulating the comoving distance and sound horizon.
func (b *LCDM) tabulate() {
	n := backgroundPoints
	z := make([]float64, n)
	chi := make([]float64, n)
	rs := make([]float64, n)

	lmax := math.Log(1.0 + b.zMax)
	for i := 0; i < n; i++ {
		z[i] = math.Expm1(lmax * float64(i) / float64(n-1))
	}

	// comoving distance from today, trapezoidal in z
	chi[0] = 0.0
	for i := 1; i < n; i++ {
		dz := z[i] - z[i-1]
		chi[i] = chi[i-1] + 0.5*dz*(1.0/b.hubble(z[i-1])+1.0/b.hubble(z[i]))
	}

	// sound horizon integrated from high z downwards
	csOverH := func(zi float64) float64 {
		return 1.0 / (b.hubble(zi) * math.Sqrt(3.0*(1.0+b.baryonPhotonRatio(zi))))
	}
	// radiation-era remainder above zMax, where H = h0 sqrt(Omega_r) (1+z)^2
	sqrtOmegaR := math.Sqrt(b.omegaG + b.omegaUR)
	rs[n-1] = 1.0 / (math.Sqrt(3.0) * b.h0 * sqrtOmegaR * (1.0 + b.zMax))
	for i := n - 2; i >= 0; i-- {
		dz := z[i+1] - z[i]
		rs[i] = rs[i+1] + 0.5*dz*(csOverH(z[i])+csOverH(z[i+1]))
	}

	// conformal age and tau(z) = age - chi(z)
	b.confAge = chi[n-1] + 1.0/(b.h0*sqrtOmegaR*(1.0+b.zMax))
	tau := make([]float64, n)
	for i := 0; i < n; i++ {
		tau[i] = b.confAge - chi[i]
	}

	// store with tau increasing
	b.tauGrid = make([]float64, n)
	b.zGrid = make([]float64, n)
	b.rsGrid = make([]float64, n)
	b.chiGrid = make([]float64, n)
	for i := 0; i < n; i++ {
		j := n - 1 - i
		b.tauGrid[i] = tau[j]
		b.zGrid[i] = z[j]
		b.rsGrid[i] = rs[j]
		b.chiGrid[i] = chi[j]
	}

	b.ddZ = make([]float64, n)
	b.ddRS = make([]float64, n)
	b.ddChi = make([]float64, n)
	numerics.SplineFit(b.tauGrid, b.zGrid, b.ddZ, numerics.EstimateDerivativeBoundary)
	numerics.SplineFit(b.tauGrid, b.rsGrid, b.ddRS, numerics.EstimateDerivativeBoundary)
	numerics.SplineFit(b.tauGrid, b.chiGrid, b.ddChi, numerics.EstimateDerivativeBoundary)
}

// TimeAt maps redshift to conformal time via the tabulated tau(z).
func (b *LCDM) TimeAt(z float64) (float64, error) {
	if z < 0 || z > b.zMax {
		return 0, fmt.Errorf("%w: z=%g", ErrOutOfRange, z)
	}
	// zGrid decreases with index; search its mirror
	lo, hi := 0, len(b.zGrid)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if b.zGrid[mid] < z {
			hi = mid
		} else {
			lo = mid
		}
	}
	// linear in log(1+z) between the two grid points
	z0, z1 := b.zGrid[lo], b.zGrid[hi]
	t0, t1 := b.tauGrid[lo], b.tauGrid[hi]
	if z1 == z0 {
		return t0, nil
	}
	w := (math.Log1p(z) - math.Log1p(z0)) / (math.Log1p(z1) - math.Log1p(z0))
	return t0 + w*(t1-t0), nil
}

// StateAt evaluates the background at conformal time tau.
func (b *LCDM) StateAt(tau float64) (State, error) {
	n := len(b.tauGrid)
	if tau < b.tauGrid[0] || tau > b.tauGrid[n-1] {
		return State{}, fmt.Errorf("%w: tau=%g Mpc", ErrOutOfRange, tau)
	}
	i, err := numerics.FindIndex(b.tauGrid, tau)
	if err != nil {
		return State{}, err
	}
	z := numerics.SplineValue(b.tauGrid, b.zGrid, b.ddZ, i, tau)
	if z < 0 {
		z = 0
	}
	return b.stateAtZ(z, i, tau), nil
}

func (b *LCDM) stateAtZ(z float64, i int, tau float64) State {
	zp := 1.0 + z
	h := b.hubble(z)
	h02 := b.h0 * b.h0

	s := State{
		Z:      z,
		A:      1.0 / zp,
		H:      h,
		HPrime: -h * b.dHdz(z), // dH/dtau = -H dH/dz (dz/dtau = -H, a0 = 1)

		RhoG:      h02 * b.omegaG * zp * zp * zp * zp,
		RhoB:      h02 * b.par.OmegaB * zp * zp * zp,
		RhoCDM:    h02 * b.par.OmegaCDM * zp * zp * zp,
		RhoUR:     h02 * b.omegaUR * zp * zp * zp * zp,
		RhoLambda: h02 * b.omegaL,
		RhoCrit:   h * h,

		RS: numerics.SplineValue(b.tauGrid, b.rsGrid, b.ddRS, i, tau),
	}
	chi := numerics.SplineValue(b.tauGrid, b.chiGrid, b.ddChi, i, tau)
	s.DA = chi / zp
	return s
}

// ConformalAge is the conformal time today in Mpc.
func (b *LCDM) ConformalAge() float64 { return b.confAge }

// Params returns the input parameters.
func (b *LCDM) Params() Params { return b.par }

// OmegaG is the photon density parameter derived from T_cmb.
func (b *LCDM) OmegaG() float64 { return b.omegaG }

// OmegaUR is the massless neutrino density parameter.
func (b *LCDM) OmegaUR() float64 { return b.omegaUR }

// NEffAt returns the effective number of relativistic species from the
// tabulated densities at conformal time tau.
func (b *LCDM) NEffAt(tau float64) (float64, error) {
	st, err := b.StateAt(tau)
	if err != nil {
		return 0, err
	}
	return st.RhoUR / st.RhoG / (7.0 / 8.0 * math.Pow(4.0/11.0, 4.0/3.0)), nil
}
