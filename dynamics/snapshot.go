package dynamics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/spatialmath"
)

// BodyState holds the per-body kinematic quantities a Snapshot needs to
// answer point and task-space queries for one body.
type BodyState struct {
	// Origin is the world position of the body frame origin.
	Origin r3.Vector
	// Rotation is the 3x3 body-to-world rotation.
	Rotation *mat.Dense
	// AngularVelocity is the body's world-frame angular velocity.
	AngularVelocity r3.Vector
	// Jacobian is the 6 by NumVelocities task-space Jacobian at Origin.
	Jacobian *mat.Dense
	// JacobianDotV is the Jdot*v term of Jacobian, length 6.
	JacobianDotV *mat.VecDense
}

// Snapshot is a plain-data Provider. Callers populate it once per tick from
// their own dynamics engine; the whole-body tests and demo build it directly.
type Snapshot struct {
	NV        int
	Mass      *mat.Dense
	Bias      *mat.VecDense
	Acts      []Actuator
	B         *mat.Dense
	CoMPos    r3.Vector
	MassTotal float64
	Grav      r3.Vector
	JCoM      *mat.Dense
	JCoMDotV  *mat.VecDense
	CMM       *mat.Dense
	CMMDotV   *mat.VecDense
	Bodies    map[string]*BodyState
}

// NumVelocities implements Provider.
func (s *Snapshot) NumVelocities() int { return s.NV }

// NumActuators implements Provider.
func (s *Snapshot) NumActuators() int { return len(s.Acts) }

// MassMatrix implements Provider.
func (s *Snapshot) MassMatrix() mat.Matrix { return s.Mass }

// BiasTerm implements Provider.
func (s *Snapshot) BiasTerm() mat.Vector { return s.Bias }

// Actuators implements Provider.
func (s *Snapshot) Actuators() []Actuator { return s.Acts }

// Selection implements Provider.
func (s *Snapshot) Selection() mat.Matrix {
	if s.B == nil {
		return nil
	}
	return s.B
}

// CoM implements Provider.
func (s *Snapshot) CoM() r3.Vector { return s.CoMPos }

// TotalMass implements Provider.
func (s *Snapshot) TotalMass() float64 { return s.MassTotal }

// Gravity implements Provider.
func (s *Snapshot) Gravity() r3.Vector { return s.Grav }

// CoMJacobian implements Provider.
func (s *Snapshot) CoMJacobian() mat.Matrix { return s.JCoM }

// CoMJacobianDotV implements Provider.
func (s *Snapshot) CoMJacobianDotV() mat.Vector { return s.JCoMDotV }

// CentroidalMomentumMatrix implements Provider.
func (s *Snapshot) CentroidalMomentumMatrix() mat.Matrix { return s.CMM }

// CentroidalMomentumDotV implements Provider.
func (s *Snapshot) CentroidalMomentumDotV() mat.Vector { return s.CMMDotV }

func (s *Snapshot) body(name string) (*BodyState, error) {
	b, ok := s.Bodies[name]
	if !ok {
		return nil, errors.Errorf("snapshot has no body %q", name)
	}
	return b, nil
}

// BodyJacobian implements Provider.
func (s *Snapshot) BodyJacobian(body string) (*mat.Dense, error) {
	b, err := s.body(body)
	if err != nil {
		return nil, err
	}
	return b.Jacobian, nil
}

// BodyJacobianDotV implements Provider.
func (s *Snapshot) BodyJacobianDotV(body string) (*mat.VecDense, error) {
	b, err := s.body(body)
	if err != nil {
		return nil, err
	}
	return b.JacobianDotV, nil
}

// TransformPoint implements Provider.
func (s *Snapshot) TransformPoint(body string, point r3.Vector) (r3.Vector, error) {
	b, err := s.body(body)
	if err != nil {
		return r3.Vector{}, err
	}
	return b.Origin.Add(rotate(b.Rotation, point)), nil
}

// PointJacobian implements Provider. The point velocity of a body-fixed point
// is v_origin + w x r, so the linear rows pick up a -skew(r) times the
// angular rows.
func (s *Snapshot) PointJacobian(body string, point r3.Vector) (*mat.Dense, error) {
	b, err := s.body(body)
	if err != nil {
		return nil, err
	}
	r := rotate(b.Rotation, point)
	jp := mat.NewDense(3, s.NV, nil)
	jp.Copy(b.Jacobian.Slice(3, 6, 0, s.NV))
	var arm mat.Dense
	arm.Mul(spatialmath.Skew(r), b.Jacobian.Slice(0, 3, 0, s.NV))
	jp.Sub(jp, &arm)
	return jp, nil
}

// PointJacobianDotV implements Provider. Includes the centripetal
// w x (w x r) term on top of the body-frame Jdot*v rows.
func (s *Snapshot) PointJacobianDotV(body string, point r3.Vector) (*mat.VecDense, error) {
	b, err := s.body(body)
	if err != nil {
		return nil, err
	}
	r := rotate(b.Rotation, point)
	ang := spatialmath.AngularPart(b.JacobianDotV)
	lin := spatialmath.LinearPart(b.JacobianDotV)
	out := lin.Sub(r.Cross(ang)).Add(b.AngularVelocity.Cross(b.AngularVelocity.Cross(r)))
	return mat.NewVecDense(3, []float64{out.X, out.Y, out.Z}), nil
}

func matVec(m mat.Matrix, v r3.Vector) r3.Vector {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, in)
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func rotate(rot *mat.Dense, v r3.Vector) r3.Vector {
	if rot == nil {
		return v
	}
	return matVec(rot, v)
}

// NewFloatingBodySnapshot builds the snapshot of a single unactuated rigid
// body floating in gravity, with generalized velocity [w; v] about the center
// of mass. The body is registered under the name "base" with its frame at the
// CoM, world-aligned. inertia is the 3x3 world-frame rotational inertia about
// the CoM.
func NewFloatingBodySnapshot(mass float64, inertia *mat.Dense, com, omega, gravity r3.Vector) *Snapshot {
	const nv = 6

	m := mat.NewDense(nv, nv, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, inertia.At(i, j))
		}
		m.Set(i+3, i+3, mass)
	}

	// Newton-Euler about the CoM: bias = [w x Iw; -m g].
	iw := matVec(inertia, omega)
	gyro := omega.Cross(iw)
	bias := spatialmath.NewSpatialVec(gyro, gravity.Mul(-mass))

	jcom := mat.NewDense(3, nv, nil)
	for i := 0; i < 3; i++ {
		jcom.Set(i, i+3, 1)
	}

	jbody := mat.NewDense(6, nv, nil)
	for i := 0; i < nv; i++ {
		jbody.Set(i, i, 1)
	}

	// For a lone rigid body the centroidal momentum matrix equals the mass
	// matrix, and its rate reduces to the gyroscopic term.
	cmm := mat.NewDense(6, nv, nil)
	cmm.Copy(m)
	cmmDotV := spatialmath.NewSpatialVec(gyro, r3.Vector{})

	return &Snapshot{
		NV:        nv,
		Mass:      m,
		Bias:      bias,
		CoMPos:    com,
		MassTotal: mass,
		Grav:      gravity,
		JCoM:      jcom,
		JCoMDotV:  mat.NewVecDense(3, nil),
		CMM:       cmm,
		CMMDotV:   cmmDotV,
		Bodies: map[string]*BodyState{
			"base": {
				Origin:          com,
				AngularVelocity: omega,
				Jacobian:        jbody,
				JacobianDotV:    mat.NewVecDense(6, nil),
			},
		},
	}
}
