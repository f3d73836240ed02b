package controller

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/contact"
	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/spatialmath"
)

// BodyMotion is one tracked body's desired spatial acceleration and its
// tracking weight.
type BodyMotion struct {
	// Body names the tracked body in the dynamics provider.
	Body string
	// Acceleration is the desired 6-DOF spatial acceleration, angular rows
	// first.
	Acceleration *mat.VecDense
	// Weight is the nonnegative cost weight of the tracking term.
	Weight float64
}

// MotionSpec is the per-tick desired motion input. It is transient: the
// caller builds a fresh one (or refills the same value) every tick, and the
// controller never retains it.
type MotionSpec struct {
	// DesiredCoMAccel is the desired center-of-mass linear acceleration.
	DesiredCoMAccel *mat.VecDense
	// CoMWeight is the CoM tracking cost weight.
	CoMWeight float64
	// BodyMotions are the tracked bodies, in cost creation order.
	BodyMotions []BodyMotion
	// DesiredAccel is the desired generalized acceleration, length DOF.
	DesiredAccel *mat.VecDense
	// AccelWeight is the generalized-acceleration regularization weight.
	AccelWeight float64
	// BasisRegWeight is the contact-force basis regularization weight.
	BasisRegWeight float64
	// Supports are the active contacts, in constraint creation order.
	Supports []contact.Support
}

// Validate rejects a spec the controller cannot formulate, before any
// topology mutation. The desired generalized acceleration must match the
// provider's DOF; every referenced body must exist in the provider.
func (m *MotionSpec) Validate(dyn dynamics.Provider) error {
	if m == nil {
		return errors.New("nil spec")
	}
	var err error
	nv := dyn.NumVelocities()
	if m.DesiredAccel == nil || m.DesiredAccel.Len() != nv {
		got := 0
		if m.DesiredAccel != nil {
			got = m.DesiredAccel.Len()
		}
		err = multierr.Append(err, errors.Errorf("desired acceleration length %d, want %d", got, nv))
	}
	if m.DesiredCoMAccel == nil || m.DesiredCoMAccel.Len() != 3 {
		err = multierr.Append(err, errors.New("desired CoM acceleration must have length 3"))
	}
	for _, bm := range m.BodyMotions {
		if bm.Acceleration == nil || bm.Acceleration.Len() != spatialmath.SpatialDim {
			err = multierr.Append(err, errors.Errorf("body %q: desired acceleration must have length %d", bm.Body, spatialmath.SpatialDim))
		}
		if bm.Weight < 0 {
			err = multierr.Append(err, errors.Errorf("body %q: negative tracking weight", bm.Body))
		}
		if _, jerr := dyn.BodyJacobian(bm.Body); jerr != nil {
			err = multierr.Append(err, jerr)
		}
	}
	for _, sup := range m.Supports {
		if sup.NumContactPoints() == 0 || sup.NumBasis() == 0 {
			err = multierr.Append(err, errors.Errorf("support %q: no contact points or basis directions", sup.Body()))
			continue
		}
		if _, terr := dyn.TransformPoint(sup.Body(), sup.ContactPoints()[0]); terr != nil {
			err = multierr.Append(err, terr)
		}
	}
	return err
}
