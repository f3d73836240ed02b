// Package dynamics defines the boundary between the whole-body controller and
// whatever computes rigid-body dynamics quantities for the current
// configuration and velocity. The controller never computes a mass matrix or
// Jacobian itself; it consumes them through a Provider.
package dynamics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Actuator describes a single actuated joint and its effort limits.
type Actuator struct {
	Name      string
	EffortMin float64
	EffortMax float64
}

// Provider supplies the dynamics quantities of the robot at the current
// configuration and velocity. All matrices are expressed in the world frame
// and indexed by generalized velocity. Spatial 6-rows follow the
// spatialmath convention, angular before linear.
//
// Implementations are queried many times within a single control tick and
// should return cached values rather than recompute.
type Provider interface {
	// NumVelocities is the number of generalized velocity components (DOF).
	NumVelocities() int
	// NumActuators is the number of actuated joints.
	NumActuators() int

	// MassMatrix is the joint-space inertia matrix, NumVelocities square.
	MassMatrix() mat.Matrix
	// BiasTerm is the Coriolis, centrifugal and gravity generalized force,
	// length NumVelocities.
	BiasTerm() mat.Vector
	// Actuators lists the actuated joints in selection-matrix column order.
	Actuators() []Actuator
	// Selection is the actuation selection matrix B, NumVelocities rows by
	// NumActuators columns, with zero top six rows for the floating base.
	// Columns are assumed orthonormal. Nil when there are no actuators.
	Selection() mat.Matrix

	// CoM is the world-frame center of mass position.
	CoM() r3.Vector
	// TotalMass is the total robot mass.
	TotalMass() float64
	// Gravity is the world-frame gravitational acceleration.
	Gravity() r3.Vector

	// CoMJacobian maps generalized velocity to CoM linear velocity, 3 rows.
	CoMJacobian() mat.Matrix
	// CoMJacobianDotV is the Jdot*v term of the CoM Jacobian, length 3.
	CoMJacobianDotV() mat.Vector

	// CentroidalMomentumMatrix maps generalized velocity to centroidal
	// momentum, 6 rows.
	CentroidalMomentumMatrix() mat.Matrix
	// CentroidalMomentumDotV is the Adot*v term of the centroidal momentum
	// matrix, length 6.
	CentroidalMomentumDotV() mat.Vector

	// BodyJacobian is the 6 by NumVelocities task-space Jacobian of the named
	// body, evaluated at the body origin.
	BodyJacobian(body string) (*mat.Dense, error)
	// BodyJacobianDotV is the Jdot*v term of BodyJacobian, length 6.
	BodyJacobianDotV(body string) (*mat.VecDense, error)

	// PointJacobian maps generalized velocity to the world linear velocity of
	// a point fixed in the named body's frame, 3 rows.
	PointJacobian(body string, point r3.Vector) (*mat.Dense, error)
	// PointJacobianDotV is the Jdot*v term of PointJacobian, length 3.
	PointJacobianDotV(body string, point r3.Vector) (*mat.VecDense, error)

	// TransformPoint maps a point in the named body's frame to world frame.
	TransformPoint(body string, point r3.Vector) (r3.Vector, error)
}
