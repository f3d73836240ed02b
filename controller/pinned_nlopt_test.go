//go:build cgo && !windows && !no_cgo

package controller

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/robocore/wholebody/contact"
	"github.com/robocore/wholebody/solver"
)

// The single-basis pinned contact has more equality rows than decision
// variables, which the default backend refuses up front; the nlopt backend
// runs it as stated.
func TestTickSingleBasisPinsAccelerationNLopt(t *testing.T) {
	logger := golog.NewTestLogger(t)
	slv := solver.NewNLopt(logger, 0, 0)

	opts := DefaultOptions()
	opts.CheckFormulation = true
	c := NewController(logger, slv, opts)

	dyn := unitSnapshot(6)
	spec := basicSpec(6)
	for i := 0; i < 6; i++ {
		spec.DesiredAccel.SetVec(i, 1)
	}
	spec.Supports = []contact.Support{pinnedSupport(1)}

	out, err := c.Tick(dyn, spec)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 6; i++ {
		test.That(t, out.Acceleration.AtVec(i), test.ShouldAlmostEqual, 0, 1e-6)
	}
	test.That(t, len(out.Contacts[0].BasisCoefficients), test.ShouldEqual, 1)
	test.That(t, out.Contacts[0].BasisCoefficients[0], test.ShouldAlmostEqual, 0, 1e-6)
}
