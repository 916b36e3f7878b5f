// Package rk provides embedded Runge-Kutta integrators with adaptive step
// control. Steps are shortened to land exactly on every requested output
// point, where the solution and its derivative are handed to the output
// callback.
package rk

import (
	"errors"
	"math"

	"github.com/rollingthunder/thermal/numerics"
	"github.com/rollingthunder/thermal/ode"
)

type rk struct {
	ode.IntegratorInfo
	method           RKMethod
	firstStageAsLast bool
	b, c, e          []float64
	a                [][]float64
}

//-- performs Runge-Kutta integration
func (r *rk) Integrate(t, tEnd float64, yT []float64, c *ode.Config) (stat ode.Statistics, err error) {
	// set default parameters if necessary
	if c.MaxStepSize <= 0.0 {
		c.MaxStepSize = tEnd - t
	}
	if c.MinStepSize <= 0.0 {
		c.MinStepSize = 1e-10
	}
	if c.MaxStepCount == 0 {
		c.MaxStepCount = 1000000
	}
	if c.AbsoluteTolerance <= 0.0 {
		c.AbsoluteTolerance = 1e-4
	}
	if c.RelativeTolerance <= 0.0 {
		c.RelativeTolerance = c.AbsoluteTolerance
	}

	if r.a == nil || r.b == nil || r.c == nil {
		err = errors.New("RK Method coefficients not initialized")
		return
	}

	// local variables
	var n uint = uint(len(yT))

	// allocate temp matrices
	fcnValue := make([]float64, n)
	yCurrent := make([]float64, n)
	yError := make([]float64, n)
	ks := numerics.MakeRectangular(r.Stages, n)

	// tolerance for matching output points; the points are spaced much
	// wider than this in every use of the integrator
	outTol := 1e-10 * math.Max(1.0, math.Abs(tEnd-t))
	nextOut := 0
	for nextOut < len(c.OutputPoints) && c.OutputPoints[nextOut] < t-outTol {
		nextOut++
	}

	if err = c.Fcn(t, yT, fcnValue); err != nil {
		return
	}
	stat.EvaluationCount = 1

	// output points at or before the initial time
	for nextOut < len(c.OutputPoints) && c.OutputPoints[nextOut] <= t+outTol {
		if c.OutputFcn != nil {
			if err = c.OutputFcn(t, yT, fcnValue, nextOut); err != nil {
				return
			}
			stat.OutputCount++
		}
		nextOut++
	}

	// compute initial step size if not set
	stepEstimate := c.InitialStepSize
	if stepEstimate <= 0.0 {
		stepEstimate, err = ode.EstimateStepSize(t, yT, fcnValue, c, r.Order)
		if err != nil {
			return
		}
		stat.EvaluationCount++
	}
	var stepNext float64
	// repeat until tend
	for t < tEnd-outTol && err == nil {
		// Set new step size
		stepNext = stepEstimate

		stat.StepCount++
		if t+stepNext > tEnd {
			stepNext = tEnd - t
		}
		// shorten to land on the next output point
		if nextOut < len(c.OutputPoints) && t+stepNext > c.OutputPoints[nextOut]-outTol {
			stepNext = c.OutputPoints[nextOut] - t
		}

		// compute stages
		var stg, id, ic uint
		for stg = 1; stg < r.Stages; stg++ {
			tCurrent := t + stepNext*r.c[stg]

			for id = 0; id < n; id++ {
				yCurrent[id] = yT[id] + stepNext*r.a[stg][0]*fcnValue[id]
			}

			for ic = 1; ic < stg; ic++ {
				for id = 0; id < n; id++ {
					yCurrent[id] = yCurrent[id] + stepNext*r.a[stg][ic]*ks[ic][id]
				}
			}
			if err = c.Fcn(tCurrent, yCurrent, ks[stg]); err != nil {
				return
			}
			stat.EvaluationCount++
		}

		// compute error estimate:
		for id = 0; id < n; id++ {
			yError[id] = stepNext * r.e[0] * fcnValue[id]
		}

		for stg = 1; stg < r.Stages; stg++ {
			for id = 0; id < n; id++ {
				yError[id] = yError[id] + stepNext*r.e[stg]*ks[stg][id]
			}
		}

		// compute error quotient
		relativeError := 0.0
		for id = 0; id < n; id++ {
			currentTolerance := c.AbsoluteTolerance + c.RelativeTolerance*math.Abs(yT[id])
			relativeError = relativeError + math.Pow(yError[id]/currentTolerance, 2.0)
		}
		relativeError = math.Sqrt(relativeError / float64(n))

		// new stepsize estimate
		stepEstimate = 0.9 * math.Exp(-math.Log(1.0e-8+relativeError)/float64(r.Order))
		stepEstimate = stepNext * math.Max(0.2, math.Min(stepEstimate, 2.0)) // safety interval

		// reject step
		if relativeError > 1.0 {
			stat.RejectedCount++

			// report failure, step size too small
			if stepEstimate < c.MinStepSize {
				err = errors.New("stepsize too small")
				break
			}
		} else {
			// accept step and compute new solution
			t += stepNext
			for id = 0; id < n; id++ {
				yT[id] = yT[id] + stepNext*r.b[0]*fcnValue[id]
			}
			for stg = 1; stg < r.Stages; stg++ {
				for id = 0; id < n; id++ {
					yT[id] = yT[id] + stepNext*r.b[stg]*ks[stg][id]
				}
			}

			if r.firstStageAsLast {
				copy(fcnValue, ks[r.Stages-1])
			} else {
				if err = c.Fcn(t, yT, fcnValue); err != nil {
					return
				}
				stat.EvaluationCount++
			}

			// deliver reached output points
			for nextOut < len(c.OutputPoints) && c.OutputPoints[nextOut] <= t+outTol {
				if c.OutputFcn != nil {
					if err = c.OutputFcn(t, yT, fcnValue, nextOut); err != nil {
						return
					}
					stat.OutputCount++
				}
				nextOut++
			}

			// cancel after first step
			if c.OneStepOnly {
				break
			}
		}
		// failure, too many steps
		if stat.StepCount > c.MaxStepCount {
			err = errors.New("maximum step count exceeded")
			break
		}
	}

	stat.CurrentTime = t
	stat.LastStepSize = stepNext
	stat.NextStepSize = stepEstimate

	return

}
