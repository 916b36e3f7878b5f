// Package ode defines the contract between the thermal solver and its
// generic initial-value integrators.
package ode

// Function evaluates the right hand side yT'(t) = Fcn(t, yT(t)).
// Implementations may fail, e.g. when a background lookup leaves its
// tabulated range; the integrator aborts and surfaces the error.
type Function func(t float64, yT []float64, dyOut []float64) error

// OutputFunction receives the solution at a requested output point.
// outputIndex is the position of t in Config.OutputPoints.
type OutputFunction func(t float64, yT, dy []float64, outputIndex int) error

type Config struct {
	// InitialStepSize, if > 0.0 specifies the step size
	// to be used in the first integration step
	// Else, the implementation should use a sensible default
	InitialStepSize float64

	// MinStepSize, if > 0.0 specifies the minimal size of a processing step
	// processing will abort, if this value could not be reached
	MinStepSize float64

	// MaxStepSize if > 0.0 specifies the maximum size of a processing step
	MaxStepSize float64

	AbsoluteTolerance float64

	RelativeTolerance float64

	// MaxStepCount if > 0 specifies the maximum number of steps the Integrator
	// will take before aborting processing if the target time has not been reached
	MaxStepCount uint

	// OneStepOnly, if set, causes the Integrator to stop processing
	// after the first integration step was performed
	OneStepOnly bool

	// Fcn contains the expression that should be evaluated for
	// the right hand side of the differential equation
	// yT'(t) = Fcn(t, yT(t))
	Fcn Function

	// OutputPoints, if non-empty, lists strictly increasing values of t
	// the integrator must land on exactly. At each one OutputFcn is
	// invoked with the solution and its derivative. Points outside
	// [t, tEnd] are skipped.
	OutputPoints []float64
	OutputFcn    OutputFunction
}

type Statistics struct {
	// StepCount contains the number of steps the Integrator performed
	StepCount uint
	// RejectedCount is the number of steps the Integrator rejected during processing
	RejectedCount uint
	// EvaluationCount is the number of times the right hand side expression
	// of the differential equation was evaluated during processing
	EvaluationCount uint
	// OutputCount is the number of output points delivered to OutputFcn
	OutputCount uint

	// LastStepSize is the size of the last integration step performed
	LastStepSize float64
	// NextStepSize is the size of the next Step the integrator would take
	NextStepSize float64
	// CurrentTime is the value of t up to which the integration was performed
	CurrentTime float64
}

type Integrator interface {
	Info() IntegratorInfo
	Integrate(t, tEnd float64, yT []float64, config *Config) (stat Statistics, err error)
}

type IntegratorInfo struct {
	Name          string
	Stages, Order uint
}

func (i *IntegratorInfo) Info() IntegratorInfo {
	return *i
}
