// Package reionization provides the parametrized ionization histories
// layered on top of the recombination relic: the CAMB-like tanh model, its
// half-tanh variant, binned and multi-jump tanh schemes, and a piecewise
// linear interpolation scheme.
//
// Every history exposes x_e(z) and its redshift derivative. The fraction
// left over by recombination ("xe before") is not known at construction; the
// solver feeds it in while integrating, via SetXeBefore.
package reionization

import (
	"errors"
	"fmt"
	"math"

	"github.com/rollingthunder/thermal/chemistry"
)

// History is one parametrized ionization history.
type History interface {
	// Xe evaluates the total ionized fraction and its derivative dx/dz.
	Xe(z float64) (x, dx float64, err error)
	// Start is the redshift where the history departs from the
	// recombination relic.
	Start() float64
	// SetXeBefore updates the pre-reionization fraction the history decays
	// to above Start.
	SetXeBefore(x float64)
}

var ErrNegativeFraction = errors.New("reionization: interpolation gives negative ionization fraction")

// fHe is the helium to hydrogen number ratio for helium mass fraction yhe.
func fHe(yhe float64) float64 {
	return yhe / (chemistry.Not4 * (1.0 - yhe))
}

// None leaves the recombination relic untouched.
type None struct {
	xeBefore float64
}

func (n *None) Xe(z float64) (float64, float64, error) { return n.xeBefore, 0.0, nil }
func (n *None) Start() float64                         { return 0.0 }
func (n *None) SetXeBefore(x float64)                  { n.xeBefore = x }

// CAMBParams configures the CAMB-like tanh history.
type CAMBParams struct {
	ZReio    float64 // central hydrogen reionization redshift
	Exponent float64 // 1.5 reproduces CAMB
	Width    float64

	HeliumRedshift float64 // second helium reionization
	HeliumWidth    float64

	// HalfTanh drops the helium term and uses only the upper half of the
	// hydrogen tanh.
	HalfTanh bool
}

// DefaultCAMBParams matches the reference defaults.
func DefaultCAMBParams() CAMBParams {
	return CAMBParams{
		ZReio:          11.357,
		Exponent:       1.5,
		Width:          0.5,
		HeliumRedshift: 3.5,
		HeliumWidth:    0.5,
	}
}

// CAMB is the tanh ionization history. The central redshift can be retuned
// after construction, which the optical-depth bisection relies on.
type CAMB struct {
	par CAMBParams

	xeAfter   float64
	heliumFrc float64
	xeBefore  float64
	start     float64

	startFactor, zStartMax float64
}

// NewCAMB validates par against a helium fraction yhe and the sampling
// ceiling zStartMax.
func NewCAMB(par CAMBParams, yhe, startFactor, zStartMax float64) (*CAMB, error) {
	if par.Exponent == 0 || par.Width == 0 || par.HeliumWidth == 0 {
		return nil, errors.New("reionization: zero exponent or width, stop to avoid division by zero")
	}
	c := &CAMB{
		par:         par,
		heliumFrc:   fHe(yhe),
		startFactor: startFactor,
		zStartMax:   zStartMax,
	}
	if par.HalfTanh {
		// neglect helium ionization
		c.xeAfter = 1.0
	} else {
		// hydrogen plus singly ionized helium
		c.xeAfter = 1.0 + c.heliumFrc
	}
	if err := c.SetRedshift(par.ZReio); err != nil {
		return nil, err
	}
	return c, nil
}

// SetRedshift moves the central reionization redshift and recomputes the
// starting redshift, erroring if it exceeds the sampling ceiling.
func (c *CAMB) SetRedshift(zReio float64) error {
	c.par.ZReio = zReio
	if c.par.HalfTanh {
		c.start = zReio
	} else {
		c.start = zReio + c.startFactor*c.par.Width
		if hs := c.par.HeliumRedshift + c.startFactor*c.par.HeliumWidth; c.start < hs {
			c.start = hs
		}
	}
	if c.start > c.zStartMax {
		return fmt.Errorf("reionization: starting redshift %g > reionization_z_start_max = %e", c.start, c.zStartMax)
	}
	return nil
}

// MaxRedshift is the largest central redshift compatible with the ceiling,
// the upper bisection bound.
func (c *CAMB) MaxRedshift() float64 {
	return c.zStartMax - c.startFactor*c.par.Width
}

func (c *CAMB) Start() float64        { return c.start }
func (c *CAMB) SetXeBefore(x float64) { c.xeBefore = x }

func (c *CAMB) Xe(z float64) (float64, float64, error) {
	if z > c.start {
		return c.xeBefore, 0.0, nil
	}

	e := c.par.Exponent
	zp := 1.0 + c.par.ZReio
	arg := (math.Pow(zp, e) - math.Pow(1.0+z, e)) / (e * math.Pow(zp, e-1.0)) / c.par.Width
	darg := -math.Pow(1.0+z, e-1.0) / math.Pow(zp, e-1.0) / c.par.Width
	th := math.Tanh(arg)

	var x, dx float64
	if c.par.HalfTanh {
		x = (c.xeAfter-c.xeBefore)*th + c.xeBefore
		dx = (c.xeAfter - c.xeBefore) * (1.0 - th*th) * darg
	} else {
		x = (c.xeAfter-c.xeBefore)*(th+1.0)/2.0 + c.xeBefore
		dx = (c.xeAfter - c.xeBefore) * (1.0 - th*th) / 2.0 * darg

		// helium contribution, simple tanh
		hArg := (c.par.HeliumRedshift - z) / c.par.HeliumWidth
		hTh := math.Tanh(hArg)
		x += c.heliumFrc * (hTh + 1.0) / 2.0
		dx += c.heliumFrc * (1.0 - hTh*hTh) / 2.0 * (-1.0 / c.par.HeliumWidth)
	}
	return x, dx, nil
}

// BinsTanh joins ionized-fraction bins with tanh steps, after
// astro-ph/0606552. zCenters must grow; the scheme pads an edge bin on each
// side.
type BinsTanh struct {
	z, xe     []float64
	sharpness float64
	xeBefore  float64
	start     float64
}

// NewBinsTanh builds the padded bin arrays from at least two bin centers.
func NewBinsTanh(zCenters, xeCenters []float64, sharpness, yhe, zStartMax float64) (*BinsTanh, error) {
	n := len(zCenters)
	if n < 2 || len(xeCenters) != n {
		return nil, errors.New("reionization: binned scheme requires at least two bin centers")
	}
	for i := 1; i < n; i++ {
		if zCenters[i-1] >= zCenters[i] {
			return nil, fmt.Errorf("reionization: bin centers must grow: %e, %e", zCenters[i-1], zCenters[i])
		}
	}

	b := &BinsTanh{
		z:         make([]float64, n+2),
		xe:        make([]float64, n+2),
		sharpness: sharpness,
	}
	copy(b.z[1:], zCenters)
	copy(b.xe[1:], xeCenters)

	// outermost z: one bin spacing below, two above
	b.z[n+1] = b.z[n] + 2.0*(b.z[n]-b.z[n-1])
	b.z[0] = 2.0*b.z[1] - b.z[2]
	if b.z[0] < 0 {
		b.z[0] = 0
	}
	b.start = b.z[n+1]
	if b.start > zStartMax {
		return nil, fmt.Errorf("reionization: starting redshift %e > reionization_z_start_max %e, change the binning", b.start, zStartMax)
	}

	// fully reionized below the lowest bin
	b.xe[0] = 1.0 + fHe(yhe)
	return b, nil
}

func (b *BinsTanh) Start() float64        { return b.start }
func (b *BinsTanh) SetXeBefore(x float64) { b.xeBefore = x }

func (b *BinsTanh) Xe(z float64) (float64, float64, error) {
	n := len(b.z)
	if z > b.z[n-1] {
		return b.xeBefore, 0.0, nil
	}
	if z < b.z[0] {
		return b.xe[0], 0.0, nil
	}

	i := 0
	for b.z[i+1] < z {
		i++
	}
	b.xe[n-1] = b.xeBefore

	// center of the tanh jump between bins i and i+1
	var zJump float64
	if i == n-2 {
		zJump = b.z[i] + 0.5*(b.z[i]-b.z[i-1])
	} else {
		zJump = 0.5 * (b.z[i+1] + b.z[i])
	}

	th := math.Tanh((z - zJump) / b.sharpness)
	x := b.xe[i] + 0.5*(th+1.0)*(b.xe[i+1]-b.xe[i])
	dx := 0.5 * (1.0 - th*th) * (b.xe[i+1] - b.xe[i]) / b.sharpness
	return x, dx, nil
}

// ManyTanh superposes tanh jumps at given centers. Negative sentinel
// fractions select recombination plateaus: -1 is hydrogen plus first helium,
// -2 is hydrogen plus both helium stages.
type ManyTanh struct {
	z, xe    []float64
	width    float64
	xeBefore float64
	start    float64
}

// NewManyTanh builds the padded jump arrays from at least one jump center.
func NewManyTanh(zCenters, xeCenters []float64, width, yhe, startFactor, zStartMax float64) (*ManyTanh, error) {
	n := len(zCenters)
	if n < 1 || len(xeCenters) != n {
		return nil, errors.New("reionization: many-tanh scheme requires at least one jump center")
	}
	if width <= 0 {
		return nil, fmt.Errorf("reionization: many_tanh_width must be strictly positive, you passed %e", width)
	}
	for i := 1; i < n; i++ {
		if zCenters[i-1] >= zCenters[i] {
			return nil, fmt.Errorf("reionization: jump centers must grow: %e, %e", zCenters[i-1], zCenters[i])
		}
	}

	m := &ManyTanh{
		z:     make([]float64, n+2),
		xe:    make([]float64, n+2),
		width: width,
	}
	copy(m.z[1:], zCenters)
	for i, xeIn := range xeCenters {
		xeActual, err := resolveSentinel(xeIn, yhe)
		if err != nil {
			return nil, err
		}
		m.xe[1+i] = xeActual
	}

	m.z[n+1] = m.z[n] + startFactor*width
	m.z[0] = m.z[1] - startFactor*width
	if m.z[0] < 0 {
		m.z[0] = 0
	}
	m.start = m.z[n+1]
	if m.start > zStartMax {
		return nil, fmt.Errorf("reionization: starting redshift %e > reionization_z_start_max %e, change the binning", m.start, zStartMax)
	}

	m.xe[0] = m.xe[1]
	return m, nil
}

func resolveSentinel(xe, yhe float64) (float64, error) {
	switch {
	case xe >= 0:
		return xe, nil
	case xe < -0.9 && xe > -1.1:
		return 1.0 + fHe(yhe), nil
	case xe < -1.9 && xe > -2.1:
		return 1.0 + 2.0*fHe(yhe), nil
	default:
		return 0, fmt.Errorf("reionization: fraction entry %e makes no sense (either positive or 0,-1,-2)", xe)
	}
}

func (m *ManyTanh) Start() float64        { return m.start }
func (m *ManyTanh) SetXeBefore(x float64) { m.xeBefore = x }

func (m *ManyTanh) Xe(z float64) (float64, float64, error) {
	n := len(m.z)
	if z > m.z[n-1] {
		return m.xeBefore, 0.0, nil
	}
	if z <= m.z[0] {
		return m.xe[0], 0.0, nil
	}

	m.xe[n-1] = m.xeBefore

	x := m.xeBefore
	dx := 0.0
	for jump := 1; jump < n-1; jump++ {
		center := m.z[n-1-jump]
		// before and after are with respect to growing z, not growing time
		before := m.xe[n-1-jump] - m.xe[n-jump]
		after := 0.0
		th := math.Tanh((z - center) / m.width)
		x += before + (after-before)*(th+1.0)/2.0
		dx += (after - before) * (1.0 - th*th) / 2.0 / m.width
	}
	return x, dx, nil
}

// Interp interpolates x_e linearly between given points. The first point
// must sit at z = 0, the last fraction must be the 0 placeholder which the
// solver overwrites with the recombination relic.
type Interp struct {
	z, xe    []float64
	xeBefore float64
	start    float64
}

// NewInterp validates and copies the sample points. Sentinel fractions as in
// ManyTanh are allowed.
func NewInterp(zPoints, xePoints []float64, yhe, zStartMax float64) (*Interp, error) {
	n := len(zPoints)
	if n < 2 || len(xePoints) != n {
		return nil, errors.New("reionization: interpolation scheme requires at least two points")
	}
	if zPoints[0] != 0 {
		return nil, fmt.Errorf("reionization: first interpolation redshift should always be zero, you passed %e", zPoints[0])
	}
	if xePoints[n-1] != 0 {
		return nil, fmt.Errorf("reionization: last interpolation fraction should always be the 0 placeholder, you passed %e", xePoints[n-1])
	}
	for i := 1; i < n; i++ {
		if zPoints[i-1] >= zPoints[i] {
			return nil, fmt.Errorf("reionization: interpolation redshifts must grow: %e, %e", zPoints[i-1], zPoints[i])
		}
	}
	if zPoints[n-1] > zStartMax {
		return nil, fmt.Errorf("reionization: starting redshift %e > reionization_z_start_max %e", zPoints[n-1], zStartMax)
	}

	p := &Interp{z: make([]float64, n), xe: make([]float64, n), start: zPoints[n-1]}
	copy(p.z, zPoints)
	for i, xeIn := range xePoints {
		xeActual, err := resolveSentinel(xeIn, yhe)
		if err != nil {
			return nil, err
		}
		p.xe[i] = xeActual
	}
	return p, nil
}

func (p *Interp) Start() float64        { return p.start }
func (p *Interp) SetXeBefore(x float64) { p.xeBefore = x }

func (p *Interp) Xe(z float64) (float64, float64, error) {
	n := len(p.z)
	if z > p.z[n-1] {
		return p.xeBefore, 0.0, nil
	}

	i := 0
	for p.z[i+1] < z {
		i++
	}
	p.xe[n-1] = p.xeBefore

	w := (z - p.z[i]) / (p.z[i+1] - p.z[i])
	x := p.xe[i] + w*(p.xe[i+1]-p.xe[i])
	dx := (p.xe[i+1] - p.xe[i]) / (p.z[i+1] - p.z[i])
	if x < 0 {
		return 0, 0, ErrNegativeFraction
	}
	return x, dx, nil
}
