package chemistry

import "math"

// Saha equilibrium closed forms used while a species is still tightly
// coupled. All take the matter temperature and its redshift derivative so the
// returned dx/dz carries the full chain rule. nH0 is the hydrogen number
// density today in 1/m^3.

// sahaRHS is exp(1.5 ln(CR T / (1+z)^2) - CB/T) / nH0.
func sahaRHS(cb, cr, Tmat, z, nH0 float64) float64 {
	return math.Exp(1.5*math.Log(cr*Tmat/(1.0+z)/(1.0+z))-cb/Tmat) / nH0
}

// SahaHeIII returns the total ionized fraction and its derivative while
// HeIII recombines to HeII. Hydrogen and the first helium electron are still
// fully ionized, so x runs from 1+2fHe down to 1+fHe.
func (n *Network) SahaHeIII(z, Tmat, dTmat, nH0 float64) (x, dx float64) {
	rhs := sahaRHS(n.CB1He2, n.CR, Tmat, z, nH0)
	sqrtVal := math.Sqrt((rhs-1.0-n.fHe)*(rhs-1.0-n.fHe) + 4.0*(1.0+2.0*n.fHe)*rhs)
	drhs := rhs * (n.CB1He2*dTmat/Tmat/Tmat + 1.5*(dTmat/Tmat-2.0/(1.0+z)))
	x = 0.5 * (sqrtVal - (rhs - 1.0 - n.fHe))
	dx = 0.5 * (((rhs-1.0-n.fHe)+2.0*(1.0+2.0*n.fHe))/sqrtVal - 1.0) * drhs
	return x, dx
}

// SahaHeII returns the total ionized fraction, the helium singlet fraction
// and their derivatives while HeII recombines to HeI. x runs from 1+fHe
// towards 1.
func (n *Network) SahaHeII(z, Tmat, dTmat, nH0 float64) (x, xHe, dx, dxHe float64) {
	rhs := sahaRHS(n.CB1He1, n.CR, Tmat, z, nH0)
	rhs *= 4.0
	sqrtVal := math.Sqrt((rhs-1.0)*(rhs-1.0) + 4.0*(1.0+n.fHe)*rhs)
	drhs := rhs * (n.CB1He1*dTmat/Tmat/Tmat + 1.5*(dTmat/Tmat-2.0/(1.0+z)))
	x = 0.5 * (sqrtVal - (rhs - 1.0))
	xHe = (x - 1.0) / n.fHe
	dx = 0.5 * (((rhs-1.0)+2.0*(1.0+n.fHe))/sqrtVal - 1.0) * drhs
	dxHe = dx / n.fHe
	return x, xHe, dx, dxHe
}

// SahaHydrogen returns the hydrogen ionized fraction and its derivative in
// Saha equilibrium, used to seed the hydrogen integration.
func (n *Network) SahaHydrogen(z, Tmat, dTmat, nH0 float64) (xH, dxH float64) {
	rhs := sahaRHS(n.CB1, n.CR, Tmat, z, nH0)
	sqrtVal := math.Sqrt(rhs*rhs + 4.0*rhs)
	drhs := rhs * (n.CB1*dTmat/Tmat/Tmat + 1.5*(dTmat/Tmat-2.0/(1.0+z)))
	xH = 0.5 * (sqrtVal - rhs)
	dxH = 0.5 * ((rhs+2.0)/sqrtVal - 1.0) * drhs
	return xH, dxH
}
