// Command wbcdemo runs one whole-body controller tick for a rigid box
// balancing on a point contact and prints the resulting torques, contact
// forces and accelerations.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/robocore/wholebody/contact"
	"github.com/robocore/wholebody/controller"
	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/solver"
)

func main() {
	logger := golog.NewDevelopmentLogger("wbcdemo")
	if err := realMain(logger); err != nil {
		logger.Fatal(err)
	}
}

func realMain(logger golog.Logger) error {
	var (
		configPath = flag.String("config", "", "path to a yaml controller options file")
		backend    = flag.String("backend", "slsqp", "qp backend (slsqp or nlopt)")
	)
	flag.Parse()

	opts := controller.DefaultOptions()
	opts.CheckFormulation = true
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return err
		}
	}

	var slv solver.Solver
	switch *backend {
	case "slsqp":
		slv = solver.NewSLSQP(logger, opts.SolverAccuracy, opts.SolverIterations)
	case "nlopt":
		slv = solver.NewNLopt(logger, opts.SolverAccuracy, opts.SolverIterations)
	default:
		return fmt.Errorf("unknown backend %q", *backend)
	}

	const boxMass = 10.0
	inertia := mat.NewDense(3, 3, []float64{
		0.4, 0, 0,
		0, 0.5, 0,
		0, 0, 0.3,
	})
	com := r3.Vector{Z: 0.5}
	gravity := r3.Vector{Z: -9.81}
	dyn := dynamics.NewFloatingBodySnapshot(boxMass, inertia, com, r3.Vector{}, gravity)

	spec := &controller.MotionSpec{
		DesiredCoMAccel: mat.NewVecDense(3, nil),
		CoMWeight:       100,
		BodyMotions: []controller.BodyMotion{
			{Body: "base", Acceleration: mat.NewVecDense(6, nil), Weight: 10},
		},
		DesiredAccel:   mat.NewVecDense(6, nil),
		AccelWeight:    0.01,
		BasisRegWeight: 1e-6,
		Supports: []contact.Support{
			// A single support point below the CoM. Multi-point contact
			// stacks linearly dependent contact equality rows, which the
			// default backend rejects; use -backend nlopt for those.
			&contact.PointSupport{
				BodyName:      "base",
				Points:        []r3.Vector{{Z: -0.5}},
				Normal:        r3.Vector{Z: 1},
				Mu:            0.4,
				BasisPerPoint: 4,
			},
		},
	}

	ctrl := controller.NewController(logger, slv, opts)
	out, err := ctrl.Tick(dyn, spec)
	if err != nil {
		return fmt.Errorf("tick failed with status %q: %w", controller.StatusOf(err), err)
	}

	fmt.Print(spec.String())
	fmt.Print(out.String())
	return nil
}
