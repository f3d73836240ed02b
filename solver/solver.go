// Package solver wraps external optimization backends behind the one solve
// primitive the whole-body controller needs: hand over a filled qp.Program,
// get back the full solution vector or a failure.
package solver

import (
	"github.com/pkg/errors"

	"github.com/robocore/wholebody/qp"
)

// ErrNoSolution is returned when the backend ran but did not reach a
// feasible, converged point.
var ErrNoSolution = errors.New("solver found no solution")

// ErrUnavailable is returned by Solve on backends whose Available reports
// false.
var ErrUnavailable = errors.New("solver is not available")

// Solver is an opaque QP solve primitive. Implementations are blocking and
// do not retry; a failed solve surfaces immediately.
type Solver interface {
	// Name identifies the backend for logs.
	Name() string
	// Available reports whether the backend can be invoked in this build.
	Available() bool
	// Solve minimizes the program's costs subject to its constraints,
	// starting from initial (zeros when nil), and returns the full decision
	// vector. Returns ErrNoSolution (possibly wrapped) when no feasible
	// optimum was found.
	Solve(prog *qp.Program, initial []float64) ([]float64, error)
}
