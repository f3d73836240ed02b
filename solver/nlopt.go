//go:build cgo && !windows && !no_cgo

package solver

import (
	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/robocore/wholebody/qp"
)

// NLopt solves the program with nlopt's SLSQP implementation. Requires cgo
// and the nlopt C library; on builds without cgo the stub in
// nlopt_nocgo.go reports unavailable instead.
type NLopt struct {
	logger   golog.Logger
	accuracy float64
	maxEval  int
}

// NewNLopt returns an NLopt backend. Zero accuracy or evaluations select the
// defaults.
func NewNLopt(logger golog.Logger, accuracy float64, maxEval int) *NLopt {
	if accuracy <= 0 {
		accuracy = defaultAccuracy
	}
	if maxEval <= 0 {
		maxEval = 4000
	}
	return &NLopt{logger: logger, accuracy: accuracy, maxEval: maxEval}
}

// Name implements Solver.
func (s *NLopt) Name() string { return "nlopt" }

// Available implements Solver.
func (s *NLopt) Available() bool { return true }

// Solve implements Solver. Equalities become one vector-valued constraint,
// each two-sided inequality row two rows of fc(x) <= 0.
func (s *NLopt) Solve(prog *qp.Program, initial []float64) ([]float64, error) {
	n := prog.NumVars()
	if n == 0 {
		return nil, errors.New("program has no decision variables")
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(n))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	eqs := prog.EqualityConstraints()
	numEq := 0
	for _, eq := range eqs {
		numEq += eq.Rows()
	}
	ineqs := prog.Inequalities()
	numIneq := 0
	for _, ineq := range ineqs {
		numIneq += 2 * ineq.Rows()
	}

	objective := func(x, gradient []float64) float64 {
		return prog.EvalObjective(x, gradient)
	}
	err = multierr.Combine(
		opt.SetMinObjective(objective),
		opt.SetFtolAbs(s.accuracy),
		opt.SetXtolRel(s.accuracy),
		opt.SetMaxEval(s.maxEval),
	)

	if numEq > 0 {
		eqFunc := func(result, x, gradient []float64) {
			row := 0
			for _, eq := range eqs {
				for r := 0; r < eq.Rows(); r++ {
					result[row] = eq.Residual(x, r)
					if gradient != nil {
						g := gradient[row*n : (row+1)*n]
						zero(g)
						eq.RowGradient(r, g)
					}
					row++
				}
			}
		}
		err = multierr.Append(err, opt.AddEqualityMConstraint(eqFunc, tolSlice(numEq, s.accuracy)))
	}
	if numIneq > 0 {
		// fc(x) <= 0 rows: a*x - ub and lb - a*x.
		ineqFunc := func(result, x, gradient []float64) {
			row := 0
			for _, ineq := range ineqs {
				for r := 0; r < ineq.Rows(); r++ {
					lb, ub := ineq.Bounds(r)
					val := ineq.Value(x, r)
					result[row] = val - ub
					result[row+1] = lb - val
					if gradient != nil {
						g := gradient[row*n : (row+1)*n]
						zero(g)
						ineq.RowGradient(r, g)
						g2 := gradient[(row+1)*n : (row+2)*n]
						zero(g2)
						ineq.RowGradient(r, g2)
						neg(g2)
					}
					row += 2
				}
			}
		}
		err = multierr.Append(err, opt.AddInequalityMConstraint(ineqFunc, tolSlice(numIneq, s.accuracy)))
	}
	if err != nil {
		return nil, errors.Wrap(err, "nlopt setup")
	}

	x := make([]float64, n)
	copy(x, initial)
	solution, _, optErr := opt.Optimize(x)
	if optErr != nil || solution == nil {
		s.logger.Debugw("nlopt did not converge", "error", optErr)
		return nil, multierr.Combine(ErrNoSolution, optErr)
	}
	if chkErr := prog.CheckSolution(solution, checkTolerance(s.accuracy)); chkErr != nil {
		// nlopt can stop at an infeasible stationary point without erroring.
		return nil, errors.Wrapf(ErrNoSolution, "nlopt solution infeasible: %v", chkErr)
	}
	return solution, nil
}

func tolSlice(n int, tol float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = tol
	}
	return out
}

func checkTolerance(accuracy float64) float64 {
	const minCheck = 1e-6
	if accuracy > minCheck {
		return accuracy
	}
	return minCheck
}
