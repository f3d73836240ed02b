package qp

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// CheckSolution verifies that x satisfies every equality constraint within
// tol and every inequality within its bounds widened by tol. It reports all
// violations, one error per offending row. This checks the formulation
// against the solver's answer, not the physical system; a violation on a
// solver-accepted solution points at broken coefficient bookkeeping.
func (p *Program) CheckSolution(x []float64, tol float64) error {
	if len(x) != p.numVars {
		return errors.Errorf("solution length %d, want %d", len(x), p.numVars)
	}
	var err error
	for _, eq := range p.eqs {
		for r := 0; r < eq.Rows(); r++ {
			if res := eq.Residual(x, r); math.Abs(res) > tol {
				err = multierr.Append(err,
					errors.Errorf("%s: row %d residual %g exceeds %g", eq.Description(), r, res, tol))
			}
		}
	}
	for _, ineq := range p.ineqs {
		for r := 0; r < ineq.Rows(); r++ {
			val := ineq.Value(x, r)
			lb, ub := ineq.Bounds(r)
			if val < lb-tol || val > ub+tol {
				err = multierr.Append(err,
					errors.Errorf("%s: row %d value %g outside [%g, %g]", ineq.Description(), r, val, lb, ub))
			}
		}
	}
	return err
}
