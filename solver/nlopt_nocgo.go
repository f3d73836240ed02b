//go:build !cgo || windows || no_cgo

package solver

import (
	"github.com/edaniels/golog"

	"github.com/robocore/wholebody/qp"
)

// NLopt mimics the type in the cgo compiled code.
type NLopt struct{}

// NewNLopt is not supported on no_cgo builds; the returned backend reports
// itself unavailable.
func NewNLopt(logger golog.Logger, accuracy float64, maxEval int) *NLopt {
	return &NLopt{}
}

// Name implements Solver.
func (s *NLopt) Name() string { return "nlopt" }

// Available implements Solver.
func (s *NLopt) Available() bool { return false }

// Solve refuses to solve problems without cgo.
func (s *NLopt) Solve(prog *qp.Program, initial []float64) ([]float64, error) {
	return nil, ErrUnavailable
}
