package controller

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/spatialmath"
)

// NamedCost is one cost term's value at the solution, keyed by the term's
// description, for diagnostics.
type NamedCost struct {
	Name  string
	Value float64
}

// ResolvedContact is the solved contact state of one support body.
type ResolvedContact struct {
	// Body names the contact body.
	Body string
	// BasisCoefficients is this contact's slice of the basis solution.
	BasisCoefficients []float64
	// PointForces are the resolved Cartesian forces at each contact point,
	// world frame, in contact point order.
	PointForces []r3.Vector
	// EquivalentWrench is the single wrench about ReferencePoint equivalent
	// to all point forces, torque rows first.
	EquivalentWrench *mat.VecDense
	// ContactPoints are the world-frame contact point positions.
	ContactPoints []r3.Vector
	// ReferencePoint is the world-frame point EquivalentWrench acts about.
	ReferencePoint r3.Vector
}

// BodyAcceleration is one tracked body's resulting spatial acceleration.
type BodyAcceleration struct {
	Body         string
	Acceleration *mat.VecDense
}

// Output is the per-tick controller result. It is only returned complete:
// a failed tick produces no Output at all.
type Output struct {
	// Acceleration is the solved generalized acceleration, length DOF.
	Acceleration *mat.VecDense
	// CoMAcceleration is the resulting CoM linear acceleration.
	CoMAcceleration *mat.VecDense
	// BodyAccelerations are the resulting tracked-body accelerations, in
	// spec order.
	BodyAccelerations []BodyAcceleration
	// Contacts are the per-support resolved contact results, in spec order.
	Contacts []ResolvedContact
	// JointTorque has one entry per actuator.
	JointTorque *mat.VecDense
	// Costs are the individual cost term values at the solution.
	Costs []NamedCost
	// MomentumResidual is the norm of the difference between the net
	// external wrench and the centroidal momentum rate, a physical
	// consistency measure that should sit at numerical noise level.
	MomentumResidual float64
}

// validate is the structural completeness check on a drafted output.
func (o *Output) validate(nv, numActuators int) error {
	var err error
	if o.Acceleration == nil || o.Acceleration.Len() != nv {
		err = multierr.Append(err, errors.Errorf("acceleration length != %d", nv))
	}
	if numActuators > 0 && (o.JointTorque == nil || o.JointTorque.Len() != numActuators) {
		err = multierr.Append(err, errors.Errorf("torque length != %d", numActuators))
	}
	if numActuators == 0 && o.JointTorque != nil && o.JointTorque.Len() != 0 {
		err = multierr.Append(err, errors.New("torque present without actuators"))
	}
	return err
}

// parse slices the solution, derives all physical outputs into a draft, runs
// the momentum consistency check, validates, and only then hands the output
// to the caller.
func (c *Controller) parse(dyn dynamics.Provider, spec *MotionSpec, solution []float64) (*Output, error) {
	t := &c.topo
	sig := t.sig
	nv, nb, nt := sig.numVD, sig.numBasis, sig.numTorque

	if len(solution) != sig.numVariable {
		return nil, errors.Wrapf(ErrInvalidOutput, "solution length %d, want %d", len(solution), sig.numVariable)
	}
	vdSol := mat.NewVecDense(nv, solution[:nv])
	var basisSol *mat.VecDense
	if nb > 0 {
		basisSol = mat.NewVecDense(nb, solution[nv:nv+nb])
		t.pointForces.MulVec(t.basisToForce, basisSol)
	}

	out := &Output{}

	// Per-contact results: basis slice, point forces, equivalent wrench
	// about the body reference point.
	basisIdx, pointIdx := 0, 0
	out.Contacts = make([]ResolvedContact, len(spec.Supports))
	for i, sup := range spec.Supports {
		numBasis := sup.NumBasis()
		numPts := sup.NumContactPoints()
		rc := &out.Contacts[i]
		rc.Body = sup.Body()
		rc.BasisCoefficients = append([]float64(nil), solution[nv+basisIdx:nv+basisIdx+numBasis]...)
		basisIdx += numBasis

		points, ref, err := sup.WorldPointsAndRef(dyn, r3.Vector{})
		if err != nil {
			return nil, errors.Wrap(ErrInvalidOutput, err.Error())
		}
		rc.ContactPoints = points
		rc.ReferencePoint = ref

		forces := t.pointForces.SliceVec(pointIdx, pointIdx+3*numPts)
		rc.EquivalentWrench = mat.NewVecDense(spatialmath.SpatialDim, nil)
		rc.EquivalentWrench.MulVec(sup.WrenchMatrix(points, ref), forces)
		rc.PointForces = make([]r3.Vector, numPts)
		for j := 0; j < numPts; j++ {
			rc.PointForces[j] = r3.Vector{
				X: t.pointForces.AtVec(pointIdx + 3*j),
				Y: t.pointForces.AtVec(pointIdx + 3*j + 1),
				Z: t.pointForces.AtVec(pointIdx + 3*j + 2),
			}
		}
		pointIdx += 3 * numPts
	}

	// Resulting accelerations: J*vd + Jdot*v.
	out.Acceleration = mat.NewVecDense(nv, nil)
	out.Acceleration.CopyVec(vdSol)
	out.CoMAcceleration = mat.NewVecDense(3, nil)
	out.CoMAcceleration.MulVec(dyn.CoMJacobian(), vdSol)
	out.CoMAcceleration.AddVec(out.CoMAcceleration, dyn.CoMJacobianDotV())

	out.BodyAccelerations = make([]BodyAcceleration, len(spec.BodyMotions))
	for i, bm := range spec.BodyMotions {
		acc := mat.NewVecDense(spatialmath.SpatialDim, nil)
		acc.MulVec(t.bodyJ[i], vdSol)
		acc.AddVec(acc, t.bodyJdotV[i])
		out.BodyAccelerations[i] = BodyAcceleration{Body: bm.Body, Acceleration: acc}
	}

	if nt > 0 {
		out.JointTorque = mat.NewVecDense(nt, nil)
		out.JointTorque.MulVec(t.torqueLinear, mat.NewVecDense(sig.numVariable, solution))
		out.JointTorque.AddVec(out.JointTorque, t.torqueConstant)
	}

	for _, cost := range t.prog.Costs() {
		out.Costs = append(out.Costs, NamedCost{Name: cost.Description(), Value: cost.Eval(solution)})
	}

	// Physics invariant: the centroidal momentum rate must equal the net
	// external wrench about the CoM. A violation means the formulation is
	// broken, not that the input was bad.
	momentumRate := mat.NewVecDense(spatialmath.SpatialDim, nil)
	momentumRate.MulVec(dyn.CentroidalMomentumMatrix(), vdSol)
	momentumRate.AddVec(momentumRate, dyn.CentroidalMomentumDotV())

	netWrench := spatialmath.GravityWrench(dyn.TotalMass(), dyn.Gravity())
	com := dyn.CoM()
	for i := range out.Contacts {
		spatialmath.AccumulateWrenchAbout(netWrench, out.Contacts[i].EquivalentWrench, out.Contacts[i].ReferencePoint, com)
	}
	netWrench.SubVec(netWrench, momentumRate)
	out.MomentumResidual = mat.Norm(netWrench, 2)
	if out.MomentumResidual > c.opts.Tolerance {
		c.logger.Errorw("centroidal momentum inconsistency",
			"residual", out.MomentumResidual, "tolerance", c.opts.Tolerance)
		if c.opts.StrictMomentumCheck {
			return nil, errors.Wrapf(ErrInvalidOutput, "momentum residual %g exceeds %g", out.MomentumResidual, c.opts.Tolerance)
		}
	}

	if err := out.validate(nv, dyn.NumActuators()); err != nil {
		return nil, errors.Wrap(ErrInvalidOutput, err.Error())
	}
	return out, nil
}
