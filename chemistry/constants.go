// Package chemistry implements the RECFAST 1.5 recombination network for
// hydrogen and helium: effective case-B rates, escape probabilities, fudged
// Peebles coefficients and the Saha equilibrium closed forms.
package chemistry

import "math"

// Physical constants, SI.
const (
	CLight    = 2.99792458e8  // m/s
	HPlanck   = 6.62606896e-34 // J s
	KBoltz    = 1.3806504e-23  // J/K
	MElectron = 9.10938215e-31 // kg
	MHydrogen = 1.673575e-27   // kg
	SigmaT    = 6.6524616e-29  // m^2
	GNewton   = 6.67428e-11    // m^3/kg/s^2
	MpcOverM  = 3.085677581282e22

	// Ratio of the helium to hydrogen mass, slightly below 4.
	Not4 = 3.9715
)

// Atomic transition frequencies (1/m) and two-photon decay rates (1/s).
const (
	LHIon       = 1.096787737e7
	LHAlpha     = 8.225916453e6
	LHe1Ion     = 1.98310772e7
	LHe2Ion     = 4.389088863e7
	LHe2s       = 1.66277434e7
	LHe2p       = 1.71134891e7
	LHe2Pt      = 1.690871466e7
	LHe2St      = 1.5985597526e7
	LHe2StIon   = 3.078583577e6
	A2Ps        = 1.798287e9
	A2Pt        = 177.58
	SigmaHe2Ps  = 1.436289e-22
	SigmaHe2Pt  = 1.484872e-22
	Lambda2s1s  = 8.2245809 // H 2s -> 1s two photon rate, 1/s
	LambdaHe2s  = 51.3      // He 2s -> 1s two photon rate, 1/s
)

// Pequignot, Petitjean & Boisson case-B hydrogen fit.
const (
	aPPB = 4.309
	bPPB = -0.6166
	cPPB = 0.6703
	dPPB = 0.5300
)

// Verner & Ferland helium singlet fit, with the Hummer & Storey triplet
// variant. T0 and T1 are the fit pivot temperatures in K.
const (
	bVF   = 0.711
	bTrip = 0.761
)

var (
	aVF   = math.Pow(10.0, -16.744)
	t0VF  = math.Pow(10.0, 0.477121)
	t1VF  = math.Pow(10.0, 5.114)
	aTrip = math.Pow(10.0, -16.306)
)
