package rk

import (
	"errors"
	"math"
	"testing"

	. "github.com/rollingthunder/thermal/ode"
	. "github.com/rollingthunder/thermal/ode/testing"
)

func allMethods(t *testing.T) []Integrator {
	integrators := make([]Integrator, NumberOfRKMethods)
	for j := 0; j < int(NumberOfRKMethods); j++ {
		rk, err := NewRK(RKMethod(j))
		if err != nil {
			t.Errorf("Couldn't create RK Method %d: %s", j, err.Error())
		} else {
			integrators[j] = rk
		}
	}
	return integrators
}

func TestAllRK(t *testing.T) {
	if testing.Short() {
		t.Skipf("Skipping because we're running in short test mode.")
	}

	RunIntegratorTests(t, allMethods(t), 1)
}

func TestRKOutputPoints(t *testing.T) {
	RunOutputTests(t, allMethods(t))
}

// A fast relaxation towards an equilibrium that moves with t, similar in
// character to a matter temperature tracking the radiation temperature.
func TestRKStiffRelaxation(t *testing.T) {
	integrator, err := NewRK(DoPri5)
	if err != nil {
		t.Fatalf("Couldn't create DoPri5: %s", err.Error())
	}

	const rate = 50.0
	config := Config{
		Fcn: func(tc float64, y, dy []float64) error {
			dy[0] = -rate * (y[0] - math.Sin(tc))
			return nil
		},
		AbsoluteTolerance: 1.e-8,
		RelativeTolerance: 1.e-8,
	}

	y := []float64{1.0}
	stat, err := integrator.Integrate(0.0, 4.0, y, &config)
	if err != nil {
		t.Fatalf("Integration failed - %s", err.Error())
	}

	// exact solution after the transient has decayed
	exact := (rate*rate*math.Sin(4.0) - rate*math.Cos(4.0)) / (rate*rate + 1.0)
	if math.Abs(y[0]-exact) > 1e-5 {
		t.Errorf("Expected %f but result was %f", exact, y[0])
	}
	if testing.Verbose() {
		t.Logf("Relaxation: %d steps, %d rejected, %d evaluations", stat.StepCount, stat.RejectedCount, stat.EvaluationCount)
	}
}

func TestRKPropagatesFcnError(t *testing.T) {
	integrator, err := NewRK(DoPri5)
	if err != nil {
		t.Fatalf("Couldn't create DoPri5: %s", err.Error())
	}

	boom := errors.New("background lookup out of range")
	config := Config{
		Fcn: func(tc float64, y, dy []float64) error {
			if tc > 0.5 {
				return boom
			}
			dy[0] = 1.0
			return nil
		},
	}

	y := []float64{0.0}
	_, err = integrator.Integrate(0.0, 1.0, y, &config)
	if !errors.Is(err, boom) {
		t.Errorf("Expected the right hand side error, got %v", err)
	}
}

func TestRKPropagatesOutputError(t *testing.T) {
	integrator, err := NewRK(DoPri5)
	if err != nil {
		t.Fatalf("Couldn't create DoPri5: %s", err.Error())
	}

	boom := errors.New("storage full")
	config := Config{
		Fcn: func(tc float64, y, dy []float64) error {
			dy[0] = 1.0
			return nil
		},
		OutputPoints: []float64{0.5},
		OutputFcn: func(tc float64, y, dy []float64, idx int) error {
			return boom
		},
	}

	y := []float64{0.0}
	_, err = integrator.Integrate(0.0, 1.0, y, &config)
	if !errors.Is(err, boom) {
		t.Errorf("Expected the output error, got %v", err)
	}
}
