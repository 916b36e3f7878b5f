// Package heating models exotic energy injection into the intergalactic
// medium: dark matter annihilation (with an optional redshift-dependent
// cross-section and halo enhancement) and dark matter decay. The thermal
// solver only consumes the total deposited rate; the split into deposition
// channels is derived from the ionized fraction by the callers.
package heating

import (
	"fmt"
	"math"

	"github.com/rollingthunder/thermal/chemistry"
)

// Provider returns the energy density deposition rate in J/m^3/s.
type Provider interface {
	TotalRate(z float64) (float64, error)
}

// None injects nothing.
type None struct{}

func (None) TotalRate(z float64) (float64, error) { return 0.0, nil }

// DarkMatter describes annihilating and/or decaying dark matter.
type DarkMatter struct {
	// Annihilation is <sigma v>/m_dm in m^3/s/kg.
	Annihilation float64 `yaml:"annihilation"`
	// Variation, Z, ZMin, ZMax shape a redshift-dependent annihilation
	// parameter: constant outside [ZMin, ZMax], log-Gaussian inside,
	// anchored at Z. Variation must be <= 0.
	Variation float64 `yaml:"annihilation_variation"`
	Z         float64 `yaml:"annihilation_z"`
	ZMin      float64 `yaml:"annihilation_zmin"`
	ZMax      float64 `yaml:"annihilation_zmax"`
	// FHalo and ZHalo add the low-redshift halo enhancement term.
	FHalo float64 `yaml:"f_halo"`
	ZHalo float64 `yaml:"z_halo"`
	// Decay is the decay rate in 1/s.
	Decay float64 `yaml:"decay"`
	// OnTheSpot assumes injected energy is absorbed at the same redshift.
	// Otherwise the deposition is an integral over the injection history.
	OnTheSpot bool `yaml:"on_the_spot"`
}

// Validate mirrors the one-shot parameter checks of the solver: everything
// is verified here once, with the offending value in the message.
func (p *DarkMatter) Validate() error {
	switch {
	case p.Annihilation < 0:
		return fmt.Errorf("heating: annihilation parameter cannot be negative (%e)", p.Annihilation)
	case p.Annihilation > 1.e-4:
		return fmt.Errorf("heating: annihilation parameter suspiciously large (%e, typical bounds are 1e-7 to 1e-6)", p.Annihilation)
	case p.Variation > 0:
		return fmt.Errorf("heating: annihilation variation must be negative (%e)", p.Variation)
	case p.Z < 0 || p.ZMin < 0 || p.ZMax < 0 || p.ZHalo < 0:
		return fmt.Errorf("heating: characteristic annihilation redshifts cannot be negative")
	case p.FHalo < 0:
		return fmt.Errorf("heating: halo annihilation parameter cannot be negative (%e)", p.FHalo)
	case p.Decay < 0:
		return fmt.Errorf("heating: decay rate cannot be negative (%e)", p.Decay)
	}
	return nil
}

// DarkMatterInjection evaluates the deposition rate for one cosmology.
type DarkMatterInjection struct {
	par DarkMatter

	rhoCDMToday float64 // J/m^3
	factor      float64 // sigma_T n_H(0) c / H0 / sqrt(Omega_m), dimensionless
}

// NewDarkMatterInjection validates par and binds it to a cosmology given by
// the SI Hubble rate today, the present hydrogen density nH0 (1/m^3) and the
// matter and CDM density parameters.
func NewDarkMatterInjection(par DarkMatter, h0SI, nH0, omegaB, omegaCDM float64) (*DarkMatterInjection, error) {
	if err := par.Validate(); err != nil {
		return nil, err
	}
	if par.Annihilation > 0 && omegaCDM <= 0 {
		return nil, fmt.Errorf("heating: CDM annihilation requires CDM (Omega_cdm=%g)", omegaCDM)
	}

	d := &DarkMatterInjection{par: par}
	d.rhoCDMToday = h0SI * h0SI * 3.0 / (8.0 * math.Pi * chemistry.GNewton) *
		omegaCDM * chemistry.CLight * chemistry.CLight
	d.factor = chemistry.CLight * chemistry.SigmaT * nH0 / h0SI / math.Sqrt(omegaB+omegaCDM)
	return d, nil
}

// annihilationAt applies the redshift-variation envelope.
func (d *DarkMatterInjection) annihilationAt(z float64) float64 {
	p := &d.par
	if p.Variation == 0 {
		return p.Annihilation
	}
	anchor := math.Pow(math.Log((p.Z+1.0)/(p.ZMax+1.0)), 2)
	switch {
	case z > p.ZMax:
		return p.Annihilation * math.Exp(-p.Variation*anchor)
	case z > p.ZMin:
		return p.Annihilation * math.Exp(p.Variation*
			(-anchor+math.Pow(math.Log((z+1.0)/(p.ZMax+1.0)), 2)))
	default:
		return p.Annihilation * math.Exp(p.Variation*
			(-anchor+math.Pow(math.Log((p.ZMin+1.0)/(p.ZMax+1.0)), 2)))
	}
}

// OnTheSpotRate is the injected energy density rate at z assuming local
// absorption, in J/m^3/s.
func (d *DarkMatterInjection) OnTheSpotRate(z float64) float64 {
	zp3 := (1.0 + z) * (1.0 + z) * (1.0 + z)

	uMin := (1.0 + z) / (1.0 + d.par.ZHalo)
	erfc := math.Pow(1.0+0.278393*uMin+0.230389*uMin*uMin+
		0.000972*uMin*uMin*uMin+0.078108*uMin*uMin*uMin*uMin, -4)

	return d.rhoCDMToday*d.rhoCDMToday/(chemistry.CLight*chemistry.CLight)*zp3*
		(zp3*d.annihilationAt(z)+d.par.FHalo*erfc) +
		d.rhoCDMToday*zp3*d.par.Decay
}

// TotalRate is the deposited energy density rate at z. Without the
// on-the-spot approximation the injection history above z is integrated with
// the absorption kernel until the integrand has decayed to 2 percent.
func (d *DarkMatterInjection) TotalRate(z float64) (float64, error) {
	if d.par.Annihilation <= 0 && d.par.Decay <= 0 {
		return 0.0, nil
	}
	if d.par.OnTheSpot || d.par.Annihilation <= 0 {
		return d.OnTheSpotRate(z), nil
	}

	kernel := func(zp float64) float64 {
		return d.factor * math.Pow(1.0+z, 8) / math.Pow(1.0+zp, 7.5) *
			math.Exp(2.0/3.0*d.factor*(math.Pow(1.0+z, 1.5)-math.Pow(1.0+zp, 1.5))) *
			d.OnTheSpotRate(zp)
	}

	const dz = 1.0
	first := kernel(z)
	if first == 0.0 {
		return 0.0, nil
	}
	result := 0.5 * dz * first
	zp := z
	for {
		zp += dz
		integrand := kernel(zp)
		result += dz * integrand
		if integrand/first <= 0.02 {
			break
		}
	}
	return result, nil
}

// Deposition splits a total rate into heating, ionization and excitation
// channels using the ionized-fraction fits of the chemistry network.
type Deposition struct {
	Heat        float64
	IonizationH float64
	LymanAlpha  float64
}

// SplitRate distributes rate over the channels at ionized fraction x. The
// remainder of the heat and ionization fractions goes to Lyman-alpha
// excitations.
func SplitRate(rate, x float64) Deposition {
	heat := chemistry.HeatingEfficiency(x)
	ion := chemistry.IonizationEfficiency(x)
	lya := 1.0 - heat - ion
	if lya < 0 {
		lya = 0
	}
	return Deposition{
		Heat:        rate * heat,
		IonizationH: rate * ion,
		LymanAlpha:  rate * lya,
	}
}
