// Package inject provides dependency-injected implementations of the
// whole-body controller's collaborator interfaces for testing.
package inject

import (
	"github.com/robocore/wholebody/qp"
	"github.com/robocore/wholebody/solver"
)

// Solver is an injected QP solve backend.
type Solver struct {
	solver.Solver
	NameFunc      func() string
	AvailableFunc func() bool
	SolveFunc     func(prog *qp.Program, initial []float64) ([]float64, error)
}

// Name calls the injected Name or the real version.
func (s *Solver) Name() string {
	if s.NameFunc == nil {
		return s.Solver.Name()
	}
	return s.NameFunc()
}

// Available calls the injected Available or the real version.
func (s *Solver) Available() bool {
	if s.AvailableFunc == nil {
		return s.Solver.Available()
	}
	return s.AvailableFunc()
}

// Solve calls the injected Solve or the real version.
func (s *Solver) Solve(prog *qp.Program, initial []float64) ([]float64, error) {
	if s.SolveFunc == nil {
		return s.Solver.Solve(prog, initial)
	}
	return s.SolveFunc(prog, initial)
}
