// Package numerics provides the cubic spline, interpolation and smoothing
// routines used by the thermal history solver. All spline functions accept
// strictly monotonic abscissas, increasing or decreasing.
package numerics

import (
	"errors"
	"math"
)

// Boundary selects the spline boundary condition.
type Boundary int

const (
	// NaturalBoundary forces the second derivative to zero at both ends.
	NaturalBoundary Boundary = iota
	// EstimateDerivativeBoundary clamps the end slopes to the derivative of
	// the parabola through the three outermost points.
	EstimateDerivativeBoundary
)

var (
	ErrSplineTooShort = errors.New("numerics: spline needs at least 3 points")
	ErrSplineLengths  = errors.New("numerics: x and y length mismatch")
	ErrOutOfRange     = errors.New("numerics: query point outside table range")
)

// SplineFit computes the second derivatives y2 of the interpolating cubic
// spline through (x, y) and stores them in y2out, which must have len(x).
func SplineFit(x, y, y2out []float64, bc Boundary) error {
	n := len(x)
	if n < 3 {
		return ErrSplineTooShort
	}
	if len(y) != n || len(y2out) != n {
		return ErrSplineLengths
	}

	u := make([]float64, n-1)

	if bc == EstimateDerivativeBoundary {
		yp1 := parabolaSlope(x[0], x[1], x[2], y[0], y[1], y[2])
		y2out[0] = -0.5
		u[0] = (3.0 / (x[1] - x[0])) * ((y[1]-y[0])/(x[1]-x[0]) - yp1)
	} else {
		y2out[0] = 0.0
		u[0] = 0.0
	}

	for i := 1; i < n-1; i++ {
		sig := (x[i] - x[i-1]) / (x[i+1] - x[i-1])
		p := sig*y2out[i-1] + 2.0
		y2out[i] = (sig - 1.0) / p
		u[i] = (y[i+1]-y[i])/(x[i+1]-x[i]) - (y[i]-y[i-1])/(x[i]-x[i-1])
		u[i] = (6.0*u[i]/(x[i+1]-x[i-1]) - sig*u[i-1]) / p
	}

	var qn, un float64
	if bc == EstimateDerivativeBoundary {
		ypn := parabolaSlope(x[n-1], x[n-2], x[n-3], y[n-1], y[n-2], y[n-3])
		qn = 0.5
		un = (3.0 / (x[n-1] - x[n-2])) * (ypn - (y[n-1]-y[n-2])/(x[n-1]-x[n-2]))
	}

	y2out[n-1] = (un - qn*u[n-2]) / (qn*y2out[n-2] + 1.0)
	for i := n - 2; i >= 0; i-- {
		y2out[i] = y2out[i]*y2out[i+1] + u[i]
	}
	return nil
}

// parabolaSlope is the derivative at x0 of the parabola through three points.
func parabolaSlope(x0, x1, x2, y0, y1, y2 float64) float64 {
	d02 := x2 - x0
	d01 := x1 - x0
	return (d02*d02*(y1-y0) - d01*d01*(y2-y0)) / (d02 * d01 * (x2 - x1))
}

// SplineValue evaluates the spline on the interval [x[i], x[i+1]].
func SplineValue(x, y, y2 []float64, i int, xq float64) float64 {
	h := x[i+1] - x[i]
	a := (x[i+1] - xq) / h
	b := (xq - x[i]) / h
	return a*y[i] + b*y[i+1] + ((a*a*a-a)*y2[i]+(b*b*b-b)*y2[i+1])*h*h/6.0
}

// SplineDerivative evaluates the first derivative of the spline on the
// interval [x[i], x[i+1]].
func SplineDerivative(x, y, y2 []float64, i int, xq float64) float64 {
	h := x[i+1] - x[i]
	a := (x[i+1] - xq) / h
	b := (xq - x[i]) / h
	return (y[i+1]-y[i])/h + ((1.0-3.0*a*a)*y2[i]+(3.0*b*b-1.0)*y2[i+1])*h/6.0
}

// DeriveAtKnots computes the first derivative of the spline at every knot.
func DeriveAtKnots(x, y, y2, dyout []float64) error {
	n := len(x)
	if n < 2 || len(y) != n || len(y2) != n || len(dyout) != n {
		return ErrSplineLengths
	}
	for i := 0; i < n-1; i++ {
		h := x[i+1] - x[i]
		dyout[i] = (y[i+1]-y[i])/h - h*(2.0*y2[i]+y2[i+1])/6.0
	}
	h := x[n-1] - x[n-2]
	dyout[n-1] = (y[n-1]-y[n-2])/h + h*(2.0*y2[n-1]+y2[n-2])/6.0
	return nil
}

// CumulativeSplineIntegral fills iout[i] with the integral of the spline
// from x[0] to x[i]. Signed: a decreasing abscissa gives negative values for
// positive integrands.
func CumulativeSplineIntegral(x, y, y2, iout []float64) error {
	n := len(x)
	if n < 2 || len(y) != n || len(y2) != n || len(iout) != n {
		return ErrSplineLengths
	}
	iout[0] = 0.0
	for i := 1; i < n; i++ {
		h := x[i] - x[i-1]
		iout[i] = iout[i-1] + h*(y[i-1]+y[i])/2.0 - h*h*h*(y2[i-1]+y2[i])/24.0
	}
	return nil
}

// SplineIntegral returns the integral of the spline over the full table.
func SplineIntegral(x, y, y2 []float64) (float64, error) {
	n := len(x)
	if n < 2 || len(y) != n || len(y2) != n {
		return 0.0, ErrSplineLengths
	}
	total := 0.0
	for i := 1; i < n; i++ {
		h := x[i] - x[i-1]
		total += h*(y[i-1]+y[i])/2.0 - h*h*h*(y2[i-1]+y2[i])/24.0
	}
	return total, nil
}

// FindIndex locates i such that x[i] <= xq <= x[i+1] by bisection.
// x must be increasing.
func FindIndex(x []float64, xq float64) (int, error) {
	n := len(x)
	if n < 2 || xq < x[0] || xq > x[n-1] {
		return 0, ErrOutOfRange
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x[mid] > xq {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo, nil
}

// FindIndexCloseby locates the bracketing interval by walking from *last,
// which is updated. Fast when successive queries are nearby, as during a
// sweep over conformal times.
func FindIndexCloseby(x []float64, xq float64, last *int) (int, error) {
	n := len(x)
	if n < 2 || xq < x[0] || xq > x[n-1] {
		return 0, ErrOutOfRange
	}
	i := *last
	if i < 0 {
		i = 0
	} else if i > n-2 {
		i = n - 2
	}
	for i > 0 && xq < x[i] {
		i--
	}
	for i < n-2 && xq > x[i+1] {
		i++
	}
	*last = i
	return i, nil
}

// LinearValue interpolates linearly on the interval [x[i], x[i+1]].
func LinearValue(x, y []float64, i int, xq float64) float64 {
	return y[i] + (y[i+1]-y[i])*(xq-x[i])/(x[i+1]-x[i])
}

// Smooth replaces v by its centered moving average with the given radius.
// The window shrinks symmetrically near the edges.
func Smooth(v []float64, radius int) {
	if radius <= 0 || len(v) < 3 {
		return
	}
	orig := make([]float64, len(v))
	copy(orig, v)
	for i := range v {
		r := radius
		if i < r {
			r = i
		}
		if len(v)-1-i < r {
			r = len(v) - 1 - i
		}
		sum := 0.0
		for j := i - r; j <= i+r; j++ {
			sum += orig[j]
		}
		v[i] = sum / float64(2*r+1)
	}
}

// EpsEqual reports whether x and y differ by less than eps.
func EpsEqual(x, y, eps float64) bool {
	return math.Abs(x-y) < eps
}

// MakeSquare allocates a contiguous n by n matrix.
func MakeSquare(n uint) [][]float64 {
	return MakeRectangular(n, n)
}

// MakeRectangular allocates a contiguous rows by cols matrix.
func MakeRectangular(rows, cols uint) (rect [][]float64) {
	arr := make([]float64, rows*cols)
	rect = make([][]float64, rows)
	for i := range rect {
		rect[i] = arr[:cols]
		arr = arr[cols:]
	}
	return
}
