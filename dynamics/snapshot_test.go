package dynamics

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestSnapshotUnknownBody(t *testing.T) {
	s := &Snapshot{NV: 6, Bodies: map[string]*BodyState{}}
	_, err := s.BodyJacobian("pelvis")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = s.PointJacobian("pelvis", r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = s.TransformPoint("pelvis", r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSnapshotTransformPoint(t *testing.T) {
	// 90 degrees about z: x maps to y.
	rot := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	s := &Snapshot{
		NV: 6,
		Bodies: map[string]*BodyState{
			"hand": {Origin: r3.Vector{X: 1, Z: 2}, Rotation: rot},
		},
	}
	p, err := s.TransformPoint("hand", r3.Vector{X: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.X, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, p.Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, p.Z, test.ShouldAlmostEqual, 2, 1e-12)
}

func TestSnapshotPointJacobian(t *testing.T) {
	// A body whose Jacobian is the identity twist map: the point Jacobian
	// applied to [w; v] must give v + w x r.
	s := &Snapshot{
		NV: 6,
		Bodies: map[string]*BodyState{
			"base": {Jacobian: eye(6), JacobianDotV: mat.NewVecDense(6, nil)},
		},
	}
	pt := r3.Vector{X: 0.2, Y: -0.3, Z: 0.1}
	jp, err := s.PointJacobian("base", pt)
	test.That(t, err, test.ShouldBeNil)

	w := r3.Vector{X: 0.5, Y: 1, Z: -0.25}
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	var got mat.VecDense
	got.MulVec(jp, mat.NewVecDense(6, []float64{w.X, w.Y, w.Z, v.X, v.Y, v.Z}))
	want := v.Add(w.Cross(pt))
	test.That(t, got.AtVec(0), test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, got.AtVec(1), test.ShouldAlmostEqual, want.Y, 1e-12)
	test.That(t, got.AtVec(2), test.ShouldAlmostEqual, want.Z, 1e-12)
}

func TestSnapshotPointJacobianDotV(t *testing.T) {
	// With zero body Jdot*v the point term is purely centripetal.
	omega := r3.Vector{Z: 2}
	s := &Snapshot{
		NV: 6,
		Bodies: map[string]*BodyState{
			"base": {
				AngularVelocity: omega,
				Jacobian:        eye(6),
				JacobianDotV:    mat.NewVecDense(6, nil),
			},
		},
	}
	pt := r3.Vector{X: 0.5}
	jdv, err := s.PointJacobianDotV("base", pt)
	test.That(t, err, test.ShouldBeNil)
	want := omega.Cross(omega.Cross(pt))
	test.That(t, jdv.AtVec(0), test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, jdv.AtVec(1), test.ShouldAlmostEqual, want.Y, 1e-12)
	test.That(t, jdv.AtVec(2), test.ShouldAlmostEqual, want.Z, 1e-12)
}

func TestFloatingBodySnapshotFullInertia(t *testing.T) {
	// Off-diagonal inertia terms must flow through the gyroscopic bias, not
	// just the diagonal.
	inertia := mat.NewDense(3, 3, []float64{
		0.4, 0.1, 0,
		0.1, 0.5, 0.05,
		0, 0.05, 0.3,
	})
	omega := r3.Vector{X: 0.2, Y: -0.1, Z: 0.3}
	s := NewFloatingBodySnapshot(2, inertia, r3.Vector{}, omega, r3.Vector{Z: -9.81})

	iw := r3.Vector{
		X: 0.4*omega.X + 0.1*omega.Y,
		Y: 0.1*omega.X + 0.5*omega.Y + 0.05*omega.Z,
		Z: 0.05*omega.Y + 0.3*omega.Z,
	}
	gyro := omega.Cross(iw)
	h := s.BiasTerm()
	test.That(t, h.AtVec(0), test.ShouldAlmostEqual, gyro.X, 1e-12)
	test.That(t, h.AtVec(1), test.ShouldAlmostEqual, gyro.Y, 1e-12)
	test.That(t, h.AtVec(2), test.ShouldAlmostEqual, gyro.Z, 1e-12)
	test.That(t, s.CentroidalMomentumDotV().AtVec(1), test.ShouldAlmostEqual, gyro.Y, 1e-12)
}

func TestFloatingBodySnapshot(t *testing.T) {
	inertia := mat.NewDense(3, 3, []float64{
		0.4, 0, 0,
		0, 0.5, 0,
		0, 0, 0.3,
	})
	omega := r3.Vector{X: 0.1, Y: -0.2, Z: 0.3}
	gravity := r3.Vector{Z: -9.81}
	s := NewFloatingBodySnapshot(10, inertia, r3.Vector{Z: 0.5}, omega, gravity)

	test.That(t, s.NumVelocities(), test.ShouldEqual, 6)
	test.That(t, s.NumActuators(), test.ShouldEqual, 0)
	test.That(t, s.TotalMass(), test.ShouldEqual, 10.0)

	m := s.MassMatrix()
	test.That(t, m.At(0, 0), test.ShouldAlmostEqual, 0.4, 1e-12)
	test.That(t, m.At(1, 1), test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, m.At(3, 3), test.ShouldAlmostEqual, 10, 1e-12)
	test.That(t, m.At(5, 5), test.ShouldAlmostEqual, 10, 1e-12)

	// bias = [w x Iw; -m g].
	iw := r3.Vector{X: 0.4 * omega.X, Y: 0.5 * omega.Y, Z: 0.3 * omega.Z}
	gyro := omega.Cross(iw)
	h := s.BiasTerm()
	test.That(t, h.AtVec(0), test.ShouldAlmostEqual, gyro.X, 1e-12)
	test.That(t, h.AtVec(1), test.ShouldAlmostEqual, gyro.Y, 1e-12)
	test.That(t, h.AtVec(2), test.ShouldAlmostEqual, gyro.Z, 1e-12)
	test.That(t, h.AtVec(5), test.ShouldAlmostEqual, 98.1, 1e-12)

	// The centroidal momentum matrix of a lone rigid body is its mass matrix
	// and the rate term is the gyroscopic wrench.
	test.That(t, mat.Equal(s.CentroidalMomentumMatrix(), m), test.ShouldBeTrue)
	test.That(t, s.CentroidalMomentumDotV().AtVec(2), test.ShouldAlmostEqual, gyro.Z, 1e-12)
	test.That(t, s.CentroidalMomentumDotV().AtVec(5), test.ShouldAlmostEqual, 0, 1e-12)

	// The body frame sits at the CoM.
	p, err := s.TransformPoint("base", r3.Vector{X: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 1, Z: 0.5})

	var comAcc mat.VecDense
	comAcc.MulVec(s.CoMJacobian(), mat.NewVecDense(6, []float64{9, 9, 9, 1, 2, 3}))
	test.That(t, comAcc.AtVec(0), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, comAcc.AtVec(2), test.ShouldAlmostEqual, 3, 1e-12)
}
