package solver

import (
	"github.com/curioloop/optimizer/slsqp"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/robocore/wholebody/qp"
)

const (
	defaultAccuracy      = 1e-10
	defaultMaxIterations = 200
)

// SLSQP solves the program with the pure-Go sequential least-squares QP
// backend. It is available on every build and is the default backend.
type SLSQP struct {
	logger   golog.Logger
	accuracy float64
	maxIter  int
}

// NewSLSQP returns an SLSQP backend. Zero accuracy or iterations select the
// defaults.
func NewSLSQP(logger golog.Logger, accuracy float64, maxIterations int) *SLSQP {
	if accuracy <= 0 {
		accuracy = defaultAccuracy
	}
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &SLSQP{logger: logger, accuracy: accuracy, maxIter: maxIterations}
}

// Name implements Solver.
func (s *SLSQP) Name() string { return "slsqp" }

// Available implements Solver.
func (s *SLSQP) Available() bool { return true }

// Solve implements Solver. Equality constraints map row for row; each
// two-sided inequality row becomes up to two one-sided rows (a*x - lb >= 0,
// ub - a*x >= 0).
func (s *SLSQP) Solve(prog *qp.Program, initial []float64) ([]float64, error) {
	n := prog.NumVars()
	if n == 0 {
		return nil, errors.New("program has no decision variables")
	}

	objective := func(x, g []float64) float64 {
		if g != nil {
			g = g[:n]
		}
		return prog.EvalObjective(x[:n], g)
	}

	var eqCons []slsqp.Evaluation
	for _, eq := range prog.EqualityConstraints() {
		eq := eq
		for r := 0; r < eq.Rows(); r++ {
			r := r
			eqCons = append(eqCons, func(x, g []float64) float64 {
				if g != nil {
					zero(g[:n])
					eq.RowGradient(r, g[:n])
				}
				return eq.Residual(x[:n], r)
			})
		}
	}

	var neqCons []slsqp.Evaluation
	for _, ineq := range prog.Inequalities() {
		ineq := ineq
		for r := 0; r < ineq.Rows(); r++ {
			r := r
			lb, ub := ineq.Bounds(r)
			neqCons = append(neqCons,
				func(x, g []float64) float64 {
					if g != nil {
						zero(g[:n])
						ineq.RowGradient(r, g[:n])
					}
					return ineq.Value(x[:n], r) - lb
				},
				func(x, g []float64) float64 {
					if g != nil {
						zero(g[:n])
						ineq.RowGradient(r, g[:n])
						neg(g[:n])
					}
					return ub - ineq.Value(x[:n], r)
				})
		}
	}

	problem := slsqp.Problem{
		N:      n,
		Object: objective,
		EqCons: eqCons,
		NeqCons: neqCons,
		Stop: slsqp.Termination{
			Accuracy:      s.accuracy,
			MaxIterations: s.maxIter,
		},
	}
	opt, err := problem.New()
	if err != nil {
		return nil, errors.Wrap(err, "slsqp problem setup")
	}

	x := make([]float64, n)
	copy(x, initial)
	res := opt.Fit(x, opt.Init())
	if !res.OK {
		s.logger.Debugw("slsqp did not converge", "status", res.Status, "iterations", res.NumIter)
		return nil, errors.Wrapf(ErrNoSolution, "slsqp status %v after %d iterations", res.Status, res.NumIter)
	}
	return res.X, nil
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

func neg(v []float64) {
	for i := range v {
		v[i] = -v[i]
	}
}
