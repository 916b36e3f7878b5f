package thermal

import (
	"math"

	"github.com/rollingthunder/thermal/background"
	"github.com/rollingthunder/thermal/chemistry"
	"github.com/rollingthunder/thermal/numerics"
)

// History is the solved thermal history. The table spans 0 <= z <= the
// initial redshift; AtZ extrapolates analytically above it. A History is
// read-only and safe for concurrent use.
type History struct {
	Table *Table

	// helium fraction actually used, after a possible BBN lookup
	YHe float64

	// recombination epoch, defined by the maximum of the visibility
	ZRec             float64
	TauRec           float64 // conformal time, Mpc
	RsRec            float64 // comoving sound horizon, Mpc
	DsRec            float64 // physical sound horizon, Mpc
	DaRec            float64 // angular diameter distance, Mpc
	RaRec            float64 // comoving angular diameter distance, Mpc
	AngularRescaling float64
	RdRec            float64 // damping scale, Mpc, when computed

	// end of the baryon drag epoch, tau_d = 1
	ZDrag   float64
	TauDrag float64
	RsDrag  float64
	DsDrag  float64

	// conformal time after which photons free-stream
	TauFreeStreaming float64
	// conformal time after which the visibility is negligible
	TauCut float64

	// reionization summary; ZReio is zero for the binned schemes
	ZReio   float64
	TauReio float64

	bg   background.Provider
	nH0  float64
	tcmb float64

	// below this redshift the parametrized history has a kink and spline
	// interpolation would ring; fall back to linear
	linearBelow float64
}

// Tcmb is the CMB temperature today in K.
func (h *History) Tcmb() float64 { return h.tcmb }

// AtZ evaluates the history at one redshift. Inside the table the columns
// are spline interpolated; above it the quantities follow their analytic
// high redshift scalings, with the visibility set to zero.
func (h *History) AtZ(z float64) (Row, error) {
	n := h.Table.Len()
	if z >= h.Table.Z[n-1] {
		return h.extrapolate(z)
	}
	i, err := numerics.FindIndex(h.Table.Z, z)
	if err != nil {
		return Row{}, err
	}
	if z < h.linearBelow {
		return h.Table.linearRowAt(i, z), nil
	}
	return h.Table.splineRowAt(i, z), nil
}

func (h *History) extrapolate(z float64) (Row, error) {
	n := h.Table.Len()
	last := h.Table.Row(n - 1)
	zLast := h.Table.Z[n-1]

	tau, err := h.bg.TimeAt(z)
	if err != nil {
		return Row{}, err
	}
	st, err := h.bg.StateAt(tau)
	if err != nil {
		return Row{}, err
	}

	var r Row

	// the ionization fraction stays at its value at the top of the table,
	// so kappa' keeps its (1+z)^2 scaling
	x0 := last.Xe
	r.Xe = x0
	r.DKappa = (1.0 + z) * (1.0 + z) * h.nH0 * x0 * chemistry.SigmaT * chemistry.MpcOverM
	r.DDKappa = -st.H * 2.0 / (1.0 + z) * r.DKappa
	r.DDDKappa = (st.H*st.H/(1.0+z) - st.HPrime) * 2.0 / (1.0 + z) * r.DKappa
	r.Rate = r.DKappa

	r.TauD = last.TauD * math.Pow((1.0+z)/(1.0+zLast), 2)
	if last.Rd > 0 {
		r.Rd = last.Rd * math.Pow((1.0+z)/(1.0+zLast), -1.5)
	}

	// exp(-kappa) and the visibility are only sampled below the top of the
	// table; zero is fine there
	r.ExpMinusKappa = 0.0
	r.G, r.DG, r.DDG = 0.0, 0.0, 0.0

	r.Tb = h.tcmb * (1.0 + z)
	r.Cb2 = chemistry.KBoltz / (chemistry.CLight * chemistry.CLight * chemistry.MHydrogen) *
		(1.0 + (1.0/chemistry.Not4-1.0)*h.YHe + x0*(1.0-h.YHe)) *
		h.tcmb * (1.0 + z) * 4.0 / 3.0
	r.DCb2 = -st.H * st.A * r.Cb2
	r.DDCb2 = -st.HPrime * st.A * r.Cb2

	return r, nil
}
