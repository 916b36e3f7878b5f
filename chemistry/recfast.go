package chemistry

import (
	"fmt"
	"math"
)

// Config collects the RECFAST fudging switches and factors. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// HSwitch enables the RECFAST 1.5 double-Gaussian correction to the
	// hydrogen escape factor. When on, DeltaFudgeH is added to FudgeH.
	HSwitch     bool    `yaml:"h_switch"`
	FudgeH      float64 `yaml:"fudge_h"`
	DeltaFudgeH float64 `yaml:"delta_fudge_h"`
	AGauss1     float64 `yaml:"a_gauss1"`
	AGauss2     float64 `yaml:"a_gauss2"`
	ZGauss1     float64 `yaml:"z_gauss1"`
	ZGauss2     float64 `yaml:"z_gauss2"`
	WGauss1     float64 `yaml:"w_gauss1"`
	WGauss2     float64 `yaml:"w_gauss2"`

	// HeSwitch selects the helium accuracy scheme, 0 to 6.
	HeSwitch int     `yaml:"he_switch"`
	FudgeHe  float64 `yaml:"fudge_he"`

	// Peebles coefficients saturate to one above these ionized fractions.
	XH0Trigger2  float64 `yaml:"xh0_trigger2"`
	XHe0Trigger2 float64 `yaml:"xhe0_trigger2"`
}

// DefaultConfig returns the RECFAST 1.5 reference settings.
func DefaultConfig() Config {
	return Config{
		HSwitch:      true,
		FudgeH:       1.14,
		DeltaFudgeH:  -0.015,
		AGauss1:      -0.14,
		AGauss2:      0.079,
		ZGauss1:      7.28,
		ZGauss2:      6.73,
		WGauss1:      0.18,
		WGauss2:      0.33,
		HeSwitch:     6,
		FudgeHe:      0.86,
		XH0Trigger2:  0.995,
		XHe0Trigger2: 0.995,
	}
}

// Network holds the derived rate constants for one cosmology. All methods are
// pure and safe for concurrent use.
type Network struct {
	cfg Config
	fHe float64

	fudgeH float64

	// derived constants, see NewNetwork
	CDB, CDBHe             float64
	CB1, CB1He1, CB1He2    float64
	CR, CK, CKHe, CL, CLHe float64
	Bfact                  float64

	xHLimitKHe   float64
	xHLimitCfHeT float64
	maxExpBoltz  float64
}

// NewNetwork validates cfg and precomputes the derived constants for a
// cosmology with helium-to-hydrogen number ratio fHe.
func NewNetwork(cfg Config, fHe float64) (*Network, error) {
	if cfg.HeSwitch < 0 || cfg.HeSwitch > 6 {
		return nil, fmt.Errorf("chemistry: unknown He fudging scheme %d", cfg.HeSwitch)
	}
	if fHe <= 0 {
		return nil, fmt.Errorf("chemistry: non-positive helium fraction fHe=%g", fHe)
	}

	n := &Network{cfg: cfg, fHe: fHe}

	n.fudgeH = cfg.FudgeH
	if cfg.HSwitch {
		n.fudgeH += cfg.DeltaFudgeH
	}

	lAlpha := 1.0 / LHAlpha
	lAlphaHe := 1.0 / LHe2p
	n.CDB = HPlanck * CLight * (LHIon - LHAlpha) / KBoltz
	n.CDBHe = HPlanck * CLight * (LHe1Ion - LHe2s) / KBoltz
	n.CB1 = HPlanck * CLight * LHIon / KBoltz
	n.CB1He1 = HPlanck * CLight * LHe1Ion / KBoltz
	n.CB1He2 = HPlanck * CLight * LHe2Ion / KBoltz
	n.CR = 2.0 * math.Pi * (MElectron / HPlanck) * (KBoltz / HPlanck)
	n.CK = lAlpha * lAlpha * lAlpha / (8.0 * math.Pi)
	n.CKHe = lAlphaHe * lAlphaHe * lAlphaHe / (8.0 * math.Pi)
	n.CL = CLight * HPlanck / (KBoltz * lAlpha)
	n.CLHe = CLight * HPlanck / (KBoltz / LHe2s)
	n.Bfact = HPlanck * CLight * (LHe2p - LHe2s) / KBoltz

	n.xHLimitKHe = 0.9999999
	n.xHLimitCfHeT = 0.99999
	n.maxExpBoltz = 680.0

	return n, nil
}

// FHe returns the helium-to-hydrogen number ratio the network was built for.
func (n *Network) FHe() float64 { return n.fHe }

// HydrogenRate returns dx_H/dz from the fudged Peebles equation, including
// the ionizing part of the injected energy rate (W/m^3). nH is the total
// hydrogen number density in 1/m^3, Hz the Hubble rate in 1/s.
func (n *Network) HydrogenRate(xH, x, nH, z, Hz, Tmat, Trad, injectionRate float64) float64 {
	Rdown := 1.e-19 * aPPB * math.Pow(Tmat/1.e4, bPPB) / (1.0 + cPPB*math.Pow(Tmat/1.e4, dPPB))
	Rup := 1.e-19 * aPPB * math.Pow(Trad/1.e4, bPPB) / (1.0 + cPPB*math.Pow(Trad/1.e4, dPPB)) *
		math.Pow(n.CR*Trad, 1.5) * math.Exp(-n.CDB/Trad)

	K := n.CK / Hz
	if n.cfg.HSwitch {
		lz := math.Log(1.0 + z)
		g1 := (lz - n.cfg.ZGauss1) / n.cfg.WGauss1
		g2 := (lz - n.cfg.ZGauss2) / n.cfg.WGauss2
		K *= 1.0 + n.cfg.AGauss1*math.Exp(-g1*g1) + n.cfg.AGauss2*math.Exp(-g2*g2)
	}

	// Peebles coefficient, approximated as one very close to full ionization
	C := 1.0
	if xH < n.cfg.XH0Trigger2 {
		C = (1.0 + K*Lambda2s1s*nH*(1.0-xH)) /
			(1.0/n.fudgeH + K*Lambda2s1s*nH*(1.0-xH)/n.fudgeH + K*Rup*nH*(1.0-xH))
	}

	dxHdz := (x*xH*nH*Rdown - Rup*(1.0-xH)*math.Exp(-n.CL/Tmat)) * C / (Hz * (1.0 + z))
	dxHdz += -injectionRate * IonizationEfficiency(x) / nH *
		(1.0/LHIon + (1.0-C)/LHAlpha) / (HPlanck * CLight * Hz * (1.0 + z))
	return dxHdz
}

// IonizationEfficiency is the fraction of injected energy going into hydrogen
// ionization, the Slatyer et al. 2013 fit. Exactly zero at full ionization.
func IonizationEfficiency(x float64) float64 {
	if x >= 1.0 {
		return 0.0
	}
	return 0.369202 * math.Pow(1.0-math.Pow(x, 0.463929), 1.70237)
}

// HeatingEfficiency is the fraction of injected energy deposited as heat,
// capped at one.
func HeatingEfficiency(x float64) float64 {
	if x >= 1.0 {
		return 1.0
	}
	chi := 0.996857 * (1.0 - math.Pow(1.0-math.Pow(x, 0.300134), 1.51035))
	return math.Min(chi, 1.0)
}

// safeRatio guards the 0/0 that the triplet correction produces when the
// matter temperature has dropped so far that both exponentials underflow.
func safeRatio(num, den float64) float64 {
	if den == 0.0 {
		return 0.0
	}
	return num / den
}

// HeliumRate returns dx_He/dz from the fudged Peebles equation for the helium
// singlet channel, with the scheme-dependent escape-probability and triplet
// corrections. Injected energy is not channeled into helium ionization.
func (n *Network) HeliumRate(xHe, x, xH, nH, z, Hz, Tmat, Trad float64) float64 {
	if xHe < 1.e-15 {
		return 0.0
	}

	sq0 := math.Sqrt(Tmat / t0VF)
	sq1 := math.Sqrt(Tmat / t1VF)
	RdownHe := aVF / (sq0 * math.Pow(1.0+sq0, 1.0-bVF) * math.Pow(1.0+sq1, 1.0+bVF))
	sq0r := math.Sqrt(Trad / t0VF)
	sq1r := math.Sqrt(Trad / t1VF)
	RupHe := 4.0 * aVF / (sq0r * math.Pow(1.0+sq0r, 1.0-bVF) * math.Pow(1.0+sq1r, 1.0+bVF)) *
		math.Pow(n.CR*Trad, 1.5) * math.Exp(-n.CDBHe/Trad)
	nHe := n.fHe * nH

	heflag := n.cfg.HeSwitch
	if xHe < 5.e-9 || xHe > n.cfg.XHe0Trigger2 {
		heflag = 0
	}

	var KHe float64
	var RdownTrip, RupTrip, CfHeT float64
	if heflag == 0 {
		KHe = n.CKHe / Hz
	} else {
		tauHeS := A2Ps * n.CKHe * 3.0 * nHe * (1.0 - xHe) / Hz
		pHeS := (1.0 - math.Exp(-tauHeS)) / tauHeS
		KHe = 1.0 / (A2Ps * pHeS * 3.0 * nHe * (1.0 - xHe))

		if (heflag == 2 || heflag >= 5) && xH < n.xHLimitKHe {
			doppler := 2.0 * KBoltz * Tmat / (MHydrogen * Not4 * CLight * CLight)
			doppler = CLight * LHe2p * math.Sqrt(doppler)
			gamma2Ps := 3.0 * A2Ps * n.fHe * (1.0 - xHe) * CLight * CLight /
				(math.Sqrt(math.Pi) * SigmaHe2Ps * 8.0 * math.Pi * doppler * (1.0 - xH)) /
				(CLight * LHe2p * CLight * LHe2p)
			const pb = 0.36
			qb := n.cfg.FudgeHe
			AHcon := A2Ps / (1.0 + pb*math.Pow(gamma2Ps, qb))
			KHe = 1.0 / ((A2Ps*pHeS + AHcon) * 3.0 * nHe * (1.0 - xHe))
		}

		if heflag >= 3 {
			RdownTrip = aTrip / (sq0 * math.Pow(1.0+sq0, 1.0-bTrip) * math.Pow(1.0+sq1, 1.0+bTrip))
			RupTrip = aTrip / (sq0r * math.Pow(1.0+sq0r, 1.0-bTrip) * math.Pow(1.0+sq1r, 1.0+bTrip)) *
				math.Exp(-HPlanck*CLight*LHe2StIon/(KBoltz*Tmat)) * math.Pow(n.CR*Tmat, 1.5) * 4.0 / 3.0

			tauHeT := A2Pt * nHe * (1.0 - xHe) * 3.0 / (8.0 * math.Pi * Hz * LHe2Pt * LHe2Pt * LHe2Pt)
			pHeT := (1.0 - math.Exp(-tauHeT)) / tauHeT
			CLPSt := HPlanck * CLight * (LHe2Pt - LHe2St) / KBoltz
			if heflag == 3 || heflag == 5 || xH >= n.xHLimitCfHeT {
				CfHeT = A2Pt * pHeT * math.Exp(-CLPSt/Tmat)
				CfHeT = safeRatio(CfHeT, RupTrip+CfHeT)
			} else {
				doppler := 2.0 * KBoltz * Tmat / (MHydrogen * Not4 * CLight * CLight)
				doppler = CLight * LHe2Pt * math.Sqrt(doppler)
				gamma2Pt := 3.0 * A2Pt * n.fHe * (1.0 - xHe) * CLight * CLight /
					(math.Sqrt(math.Pi) * SigmaHe2Pt * 8.0 * math.Pi * doppler * (1.0 - xH)) /
					(CLight * LHe2Pt * CLight * LHe2Pt)
				const pb = 0.66
				const qb = 0.9
				AHcon := A2Pt / (1.0 + pb*math.Pow(gamma2Pt, qb)) / 3.0
				CfHeT = (A2Pt*pHeT + AHcon) * math.Exp(-CLPSt/Tmat)
				CfHeT = safeRatio(CfHeT, RupTrip+CfHeT)
			}
		}
	}

	// Boltzmann factor, clamped for numerical reasons
	var heBoltz float64
	if n.Bfact/Tmat < n.maxExpBoltz {
		heBoltz = math.Exp(n.Bfact / Tmat)
	} else {
		heBoltz = math.Exp(n.maxExpBoltz)
	}

	dxHedz := (x*xHe*nH*RdownHe - RupHe*(1.0-xHe)*math.Exp(-n.CLHe/Tmat)) *
		(1.0 + KHe*LambdaHe2s*nHe*(1.0-xHe)*heBoltz) /
		(Hz * (1.0 + z) * (1.0 + KHe*(LambdaHe2s+RupHe)*nHe*(1.0-xHe)*heBoltz))

	if heflag >= 3 {
		dxHedz += (x*xHe*nH*RdownTrip -
			(1.0-xHe)*3.0*RupTrip*math.Exp(-HPlanck*CLight*LHe2St/(KBoltz*Tmat))) *
			CfHeT / (Hz * (1.0 + z))
	}
	return dxHedz
}
