// Package sampling runs batches of thermal history solves over a sampled
// parameter space, one solver per point, fanned out over a worker pool.
// The latin hypercube draw keeps the number of solves small while covering
// every axis evenly, which is what emulator training wants.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rollingthunder/thermal/thermal"
)

// Axis is one varied parameter: a range and a setter that writes the drawn
// value into the parameter set.
type Axis struct {
	Name     string
	Min, Max float64
	Apply    func(p *thermal.Params, v float64)
}

// Point is one drawn parameter vector, in axis order.
type Point []float64

// Result pairs a solved history with the point it came from. Index is the
// position in the drawn point list.
type Result struct {
	Index   int
	Point   Point
	Params  thermal.Params
	History *thermal.History
}

// Sweep describes a batch of solves.
type Sweep struct {
	Base      thermal.Params
	Precision thermal.Precision
	Axes      []Axis

	// Filter rejects drawn points before any solve; nil keeps everything.
	Filter func(Point) bool

	// Workers caps the concurrent solves; 0 means GOMAXPROCS.
	Workers int

	Log *logrus.Logger
}

// LatinHypercube draws count points, one per stratum on every axis.
func LatinHypercube(axes []Axis, count int, rng *rand.Rand) []Point {
	points := make([]Point, count)
	for i := range points {
		points[i] = make(Point, len(axes))
	}
	for j, ax := range axes {
		perm := rng.Perm(count)
		for i := 0; i < count; i++ {
			u := (float64(perm[i]) + rng.Float64()) / float64(count)
			points[i][j] = ax.Min + u*(ax.Max-ax.Min)
		}
	}
	return points
}

// Cartesian builds the full grid with perAxis points on every axis, endpoints
// included.
func Cartesian(axes []Axis, perAxis int) []Point {
	if perAxis < 2 {
		perAxis = 2
	}
	total := 1
	for range axes {
		total *= perAxis
	}
	points := make([]Point, total)
	for i := 0; i < total; i++ {
		points[i] = make(Point, len(axes))
		rest := i
		for j, ax := range axes {
			k := rest % perAxis
			rest /= perAxis
			points[i][j] = ax.Min + float64(k)/float64(perAxis-1)*(ax.Max-ax.Min)
		}
	}
	return points
}

// apply produces the parameter set of one point.
func (s *Sweep) apply(pt Point) thermal.Params {
	par := s.Base
	for j, ax := range s.Axes {
		ax.Apply(&par, pt[j])
	}
	return par
}

// Run solves every surviving point and returns the results in draw order.
// The first failing solve cancels the remaining ones.
func (s *Sweep) Run(ctx context.Context, points []Point) ([]Result, error) {
	if len(s.Axes) == 0 {
		return nil, errors.New("sampling: no axes configured")
	}

	kept := make([]Point, 0, len(points))
	for _, pt := range points {
		if len(pt) != len(s.Axes) {
			return nil, fmt.Errorf("sampling: point has %d values for %d axes", len(pt), len(s.Axes))
		}
		if s.Filter == nil || s.Filter(pt) {
			kept = append(kept, pt)
		}
	}
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"drawn": len(points),
			"kept":  len(kept),
		}).Info("starting parameter sweep")
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(kept))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, pt := range kept {
		i, pt := i, pt
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			par := s.apply(pt)
			solver, err := thermal.NewSolver(par, s.Precision, nil)
			if err != nil {
				return fmt.Errorf("sampling: point %d: %w", i, err)
			}
			hist, err := solver.Solve()
			if err != nil {
				return fmt.Errorf("sampling: point %d: %w", i, err)
			}
			results[i] = Result{Index: i, Point: pt, Params: par, History: hist}
			if s.Log != nil {
				s.Log.WithFields(logrus.Fields{
					"point": i,
					"z_rec": hist.ZRec,
				}).Debug("solve done")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
