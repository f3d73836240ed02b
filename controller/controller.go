// Package controller formulates and solves the per-tick quadratic program of
// a whole-body inverse-dynamics controller for a floating-base robot in
// contact with its environment. Each tick maps a dynamics snapshot and a
// desired-motion spec to joint torques, contact forces and consistent
// accelerations; the only state carried between ticks is the cached QP
// topology, which is rebuilt solely when the contact or tracked-body
// structure changes.
package controller

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/solver"
)

// Status classifies the outcome of one control tick.
type Status int

const (
	// StatusOk means the tick produced a full output.
	StatusOk Status = iota
	// StatusInvalidInput means the desired-motion spec was rejected before
	// any mutation of the cached topology.
	StatusInvalidInput
	// StatusSolverUnavailable means the QP backend cannot be invoked.
	StatusSolverUnavailable
	// StatusNoSolutionFound means the backend ran but found no feasible
	// optimum.
	StatusNoSolutionFound
	// StatusInvalidOutput means the solve succeeded but the parsed output
	// failed a consistency or completeness check, indicating a formulation
	// defect rather than bad input.
	StatusInvalidOutput
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusInvalidInput:
		return "invalid input"
	case StatusSolverUnavailable:
		return "solver unavailable"
	case StatusNoSolutionFound:
		return "no solution found"
	case StatusInvalidOutput:
		return "invalid output"
	}
	return "unknown"
}

var (
	// ErrInvalidInput reports a rejected desired-motion spec.
	ErrInvalidInput = errors.New("invalid desired-motion spec")
	// ErrSolverUnavailable reports that the QP backend cannot be invoked.
	ErrSolverUnavailable = errors.New("qp solver unavailable")
	// ErrNoSolutionFound reports a solve that ended without a feasible point.
	ErrNoSolutionFound = errors.New("qp solution not found")
	// ErrInvalidOutput reports a post-solve validation failure.
	ErrInvalidOutput = errors.New("controller output invalid")
)

// StatusOf maps a Tick error to its Status; nil maps to StatusOk.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOk
	case errors.Is(err, ErrInvalidInput):
		return StatusInvalidInput
	case errors.Is(err, ErrSolverUnavailable):
		return StatusSolverUnavailable
	case errors.Is(err, ErrNoSolutionFound):
		return StatusNoSolutionFound
	default:
		return StatusInvalidOutput
	}
}

// Options are the tunables of the controller core.
type Options struct {
	// BasisUpperBound caps each contact force basis coefficient.
	BasisUpperBound float64 `yaml:"basis_upper_bound"`
	// Tolerance is the numerical tolerance of the formulation and momentum
	// consistency checks.
	Tolerance float64 `yaml:"tolerance"`
	// CheckFormulation re-verifies every constraint against the returned
	// solution after each solve. Meant for tests and debugging; it walks
	// every constraint row and is not free.
	CheckFormulation bool `yaml:"check_formulation"`
	// StrictMomentumCheck fails the tick when the centroidal momentum rate
	// does not match the net external wrench. When false the violation is
	// only logged.
	StrictMomentumCheck bool `yaml:"strict_momentum_check"`
	// SolverAccuracy and SolverIterations configure the default backend.
	SolverAccuracy   float64 `yaml:"solver_accuracy"`
	SolverIterations int     `yaml:"solver_iterations"`
}

// DefaultOptions mirrors the reference tuning: a large fixed basis force cap
// and a small consistency tolerance.
func DefaultOptions() Options {
	return Options{
		BasisUpperBound:     1000,
		Tolerance:           1e-5,
		SolverAccuracy:      1e-10,
		SolverIterations:    200,
		StrictMomentumCheck: true,
	}
}

// Controller owns one QP topology and turns desired motions into torques and
// contact forces, one tick at a time. A Controller must not be shared
// between goroutines; the tick operation mutates the cached topology in
// place.
type Controller struct {
	logger golog.Logger
	opts   Options
	slv    solver.Solver
	topo   topology
}

// NewController returns a controller using the given solve backend, or the
// default SLSQP backend when slv is nil.
func NewController(logger golog.Logger, slv solver.Solver, opts Options) *Controller {
	if opts.BasisUpperBound <= 0 {
		opts.BasisUpperBound = DefaultOptions().BasisUpperBound
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if slv == nil {
		slv = solver.NewSLSQP(logger, opts.SolverAccuracy, opts.SolverIterations)
	}
	return &Controller{logger: logger, opts: opts, slv: slv}
}

// Tick runs one control cycle: validate the spec, refresh the topology
// (no-op when the structure is unchanged), refill every coefficient from the
// dynamics snapshot, solve, and parse the solution into a validated output.
// On any error the returned output is nil and no partial result is exposed;
// classify the error with StatusOf. Coefficient buffers may still have been
// overwritten, so a failed tick leaves no usable previous state inside the
// controller. Fallback policy belongs to the caller.
func (c *Controller) Tick(dyn dynamics.Provider, spec *MotionSpec) (*Output, error) {
	if err := spec.Validate(dyn); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	c.resize(dyn, spec)
	if err := c.assemble(dyn, spec); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	if !c.slv.Available() {
		return nil, errors.Wrapf(ErrSolverUnavailable, "backend %s", c.slv.Name())
	}
	solution, err := c.slv.Solve(c.topo.prog, nil)
	if err != nil {
		if errors.Is(err, solver.ErrUnavailable) {
			return nil, errors.Wrapf(ErrSolverUnavailable, "backend %s: %v", c.slv.Name(), err)
		}
		return nil, errors.Wrapf(ErrNoSolutionFound, "backend %s: %v", c.slv.Name(), err)
	}

	if c.opts.CheckFormulation {
		if err := c.topo.prog.CheckSolution(solution, c.opts.Tolerance); err != nil {
			return nil, errors.Wrapf(ErrInvalidOutput, "formulation check: %v", err)
		}
	}

	out, err := c.parse(dyn, spec, solution)
	if err != nil {
		return nil, err
	}
	return out, nil
}
