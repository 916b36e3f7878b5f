// Package thermal computes the thermal history of the universe: the free
// electron fraction, the baryon temperature and the photon scattering optical
// depth as functions of redshift. A RECFAST-style chemical network is
// integrated across seven approximation regimes, reionization is added on top
// of the relic electron fraction, and the raw table is post-processed into
// visibility, damping-scale and epoch quantities by spline passes.
package thermal

import (
	"fmt"

	"github.com/rollingthunder/thermal/background"
	"github.com/rollingthunder/thermal/chemistry"
	"github.com/rollingthunder/thermal/heating"
	"github.com/rollingthunder/thermal/reionization"
)

// bounds on a sensible primordial helium mass fraction
const (
	yheSmall = 0.01
	yheBig   = 0.5
)

// sanity window for the recombination redshift
const (
	zRecMin = 500.0
	zRecMax = 2000.0
)

// Precision gathers the sampling and switching settings of the solver.
// DefaultPrecision is tuned so that derived epochs are stable at the
// per-mille level; loosen NLogRecomb/NLinRecomb for quick scans.
type Precision struct {
	// redshift grid
	ZInitial             float64 `yaml:"z_initial"` // highest tabulated redshift
	ZLinear              float64 `yaml:"z_linear"`  // switch from log to linear sampling
	NLogRecomb           int     `yaml:"n_log"`     // points in the log part
	NLinRecomb           int     `yaml:"n_lin"`     // points in the linear part
	ReionizationSampling float64 `yaml:"reio_sampling"`

	// reionization window and bisection
	ReionizationZStartMax       float64 `yaml:"reio_z_start_max"`
	ReionizationStartFactor     float64 `yaml:"reio_start_factor"`
	ReionizationOpticalDepthTol float64 `yaml:"reio_tau_tol"` // relative tolerance on tau_reio
	MaxBisectionIterations      int     `yaml:"max_bisection_iterations"`

	// evolver tolerances
	IntegrationTol float64 `yaml:"integration_tol"`

	// regime switching redshifts and the smoothing half widths applied
	// just after each switch
	ZHe1             float64 `yaml:"z_he1"` // HeIII Saha starts below ZHe1+DeltaZHe1
	DeltaZHe1        float64 `yaml:"delta_z_he1"`
	ZHe2             float64 `yaml:"z_he2"`
	DeltaZHe2        float64 `yaml:"delta_z_he2"`
	ZHe3             float64 `yaml:"z_he3"`
	DeltaZHe3        float64 `yaml:"delta_z_he3"`
	ZHydrogenSaha    float64 `yaml:"z_hydrogen_saha"` // helium evolved, hydrogen still in Saha
	ZFullRecomb      float64 `yaml:"z_full_recomb"`   // hydrogen evolved too
	DeltaZHydrogen   float64 `yaml:"delta_z_hydrogen"`
	DeltaZFullRecomb float64 `yaml:"delta_z_full_recomb"`
	DeltaZReio       float64 `yaml:"delta_z_reio"`

	// matter temperature steady state trigger, timeTh < HFrac * timeH
	HFrac float64 `yaml:"h_frac"`

	// post-processing
	RateSmoothingRadius  int     `yaml:"rate_smoothing_radius"`
	FreeStreamingTrigger float64 `yaml:"free_streaming_trigger"` // tau_c/tau above which photons free-stream
	VisibilityThreshold  float64 `yaml:"visibility_threshold"`   // fraction of g_max defining the cutoff

	Chemistry chemistry.Config `yaml:"chemistry"`
}

// DefaultPrecision mirrors the reference sampling of the thermal history.
func DefaultPrecision() Precision {
	return Precision{
		ZInitial:             5.0e6,
		ZLinear:              1.0e4,
		NLogRecomb:           5000,
		NLinRecomb:           15000,
		ReionizationSampling: 5.0e-2,

		ReionizationZStartMax:       50.0,
		ReionizationStartFactor:     8.0,
		ReionizationOpticalDepthTol: 1.0e-4,
		MaxBisectionIterations:      100,

		IntegrationTol: 1.0e-2,

		ZHe1: 8000.0, DeltaZHe1: 50.0,
		ZHe2: 5000.0, DeltaZHe2: 100.0,
		ZHe3: 3500.0, DeltaZHe3: 50.0,
		ZHydrogenSaha:    2870.0,
		ZFullRecomb:      1600.0,
		DeltaZHydrogen:   50.0,
		DeltaZFullRecomb: 50.0,
		DeltaZReio:       2.0,

		HFrac: 1.0e-3,

		RateSmoothingRadius:  50,
		FreeStreamingTrigger: 45.0,
		VisibilityThreshold:  1.0e-3,

		Chemistry: chemistry.DefaultConfig(),
	}
}

func (p *Precision) validate() error {
	if p.NLogRecomb < 2 || p.NLinRecomb < 2 {
		return fmt.Errorf("thermal: need at least two grid points per sampling segment, got %d log and %d linear", p.NLogRecomb, p.NLinRecomb)
	}
	if p.ZLinear <= p.ReionizationZStartMax || p.ZInitial <= p.ZLinear {
		return fmt.Errorf("thermal: grid segments out of order, z_initial=%g z_linear=%g z_start_max=%g", p.ZInitial, p.ZLinear, p.ReionizationZStartMax)
	}
	if p.ReionizationSampling <= 0 {
		return fmt.Errorf("thermal: reionization sampling step must be positive, got %g", p.ReionizationSampling)
	}
	if p.ZInitial < p.ZHe3 {
		return fmt.Errorf("thermal: increase z_initial=%g, it is after HeliumIII recombination starts", p.ZInitial)
	}
	if p.ReionizationOpticalDepthTol <= 0 || p.MaxBisectionIterations <= 0 {
		return fmt.Errorf("thermal: bisection settings must be positive, tol=%g iterations=%d", p.ReionizationOpticalDepthTol, p.MaxBisectionIterations)
	}
	return nil
}

// ReioScheme names a reionization parametrization.
type ReioScheme string

const (
	ReioNone     ReioScheme = "none"
	ReioCAMB     ReioScheme = "camb"
	ReioHalfTanh ReioScheme = "half_tanh"
	ReioBinsTanh ReioScheme = "bins_tanh"
	ReioManyTanh ReioScheme = "many_tanh"
	ReioInter    ReioScheme = "inter"
)

// ReioConfig selects one scheme and carries the parameters of all of them;
// only the fields of the chosen scheme are read.
type ReioConfig struct {
	Scheme ReioScheme `yaml:"scheme"`

	CAMB reionization.CAMBParams `yaml:"camb"`
	// TauReio > 0 replaces CAMB.ZReio as the target: the reionization
	// redshift is then found by bisection. Only valid with the camb and
	// half_tanh schemes.
	TauReio float64 `yaml:"tau_reio"`

	BinZ          []float64 `yaml:"bin_z"`
	BinXe         []float64 `yaml:"bin_xe"`
	BinSharpness  float64   `yaml:"bin_sharpness"`
	ManyZ         []float64 `yaml:"many_z"`
	ManyXe        []float64 `yaml:"many_xe"`
	ManyWidth     float64   `yaml:"many_width"`
	InterZ        []float64 `yaml:"inter_z"`
	InterXe       []float64 `yaml:"inter_xe"`
}

// Params are the physical inputs of one solve.
type Params struct {
	Background background.Params `yaml:"background"`

	// YHe <= 0 requests the primordial helium fraction from the BBN grid.
	YHe float64 `yaml:"yhe"`
	// NeffBBN is the effective neutrino number during BBN; 0 falls back to
	// Background.NEff.
	NeffBBN float64 `yaml:"neff_bbn"`

	Heating heating.DarkMatter `yaml:"heating"`
	Reio    ReioConfig         `yaml:"reionization"`

	ComputeDampingScale   bool `yaml:"compute_damping_scale"`
	ComputeCb2Derivatives bool `yaml:"compute_cb2_derivatives"`
}

// DefaultParams uses the default cosmology with CAMB-style reionization and
// no energy injection.
func DefaultParams() Params {
	return Params{
		Background: background.DefaultParams(),
		YHe:        0.0,
		Reio: ReioConfig{
			Scheme: ReioCAMB,
			CAMB:   reionization.DefaultCAMBParams(),
		},
	}
}

func (p *Params) validate(yhe float64) error {
	if yhe < yheSmall || yhe > yheBig {
		return fmt.Errorf("thermal: Y_He=%g out of bounds (%g < Y_He < %g)", yhe, yheSmall, yheBig)
	}
	if yhe == 1.0 {
		return fmt.Errorf("thermal: Y_He=1 would divide by zero")
	}
	if err := p.Heating.Validate(); err != nil {
		return err
	}
	if (p.Heating.Annihilation > 0 || p.Heating.Decay > 0) && p.Background.OmegaCDM <= 0 {
		return fmt.Errorf("thermal: dark matter energy injection requires Omega_cdm > 0, got %g", p.Background.OmegaCDM)
	}
	switch p.Reio.Scheme {
	case ReioNone, ReioCAMB, ReioHalfTanh, ReioBinsTanh, ReioManyTanh, ReioInter:
	case "":
		return fmt.Errorf("thermal: reionization scheme not set")
	default:
		return fmt.Errorf("thermal: unknown reionization scheme %q", p.Reio.Scheme)
	}
	if p.Reio.TauReio > 0 && p.Reio.Scheme != ReioCAMB && p.Reio.Scheme != ReioHalfTanh {
		return fmt.Errorf("thermal: optical depth target requires the camb or half_tanh scheme, got %q", p.Reio.Scheme)
	}
	return nil
}
