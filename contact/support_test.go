package contact

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/dynamics"
)

func footSnapshot() *dynamics.Snapshot {
	jac := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		jac.Set(i, i, 1)
	}
	return &dynamics.Snapshot{
		NV: 6,
		Bodies: map[string]*dynamics.BodyState{
			"foot": {
				Origin:       r3.Vector{X: 0.1, Y: 0.2},
				Jacobian:     jac,
				JacobianDotV: mat.NewVecDense(6, nil),
			},
		},
	}
}

func flatFoot() *PointSupport {
	return &PointSupport{
		BodyName: "foot",
		Points: []r3.Vector{
			{X: 0.1, Y: 0.05}, {X: 0.1, Y: -0.05},
			{X: -0.1, Y: 0.05}, {X: -0.1, Y: -0.05},
		},
		Normal:        r3.Vector{Z: 1},
		Mu:            0.5,
		BasisPerPoint: 4,
	}
}

func TestSupportCounts(t *testing.T) {
	s := flatFoot()
	test.That(t, s.Body(), test.ShouldEqual, "foot")
	test.That(t, s.NumContactPoints(), test.ShouldEqual, 4)
	test.That(t, s.NumBasis(), test.ShouldEqual, 16)
}

func TestBasisDirectionsOnFrictionCone(t *testing.T) {
	s := flatFoot()
	dyn := footSnapshot()
	basis, err := s.BasisMatrix(dyn)
	test.That(t, err, test.ShouldBeNil)

	r, c := basis.Dims()
	test.That(t, r, test.ShouldEqual, 12)
	test.That(t, c, test.ShouldEqual, 16)

	// Every column is a unit direction on the cone surface: its angle to the
	// normal satisfies tan = mu. Columns outside a point's block are zero.
	coneCos := 1 / math.Sqrt(1+s.Mu*s.Mu)
	for p := 0; p < 4; p++ {
		for k := 0; k < s.BasisPerPoint; k++ {
			col := p*s.BasisPerPoint + k
			d := r3.Vector{X: basis.At(3*p, col), Y: basis.At(3*p+1, col), Z: basis.At(3*p+2, col)}
			test.That(t, d.Norm(), test.ShouldAlmostEqual, 1, 1e-12)
			test.That(t, d.Z, test.ShouldAlmostEqual, coneCos, 1e-12)
			for other := 0; other < 4; other++ {
				if other == p {
					continue
				}
				test.That(t, basis.At(3*other, col), test.ShouldEqual, 0.0)
			}
		}
	}
}

func TestZeroFrictionCollapsesToNormal(t *testing.T) {
	s := flatFoot()
	s.Mu = 0
	basis, err := s.BasisMatrix(footSnapshot())
	test.That(t, err, test.ShouldBeNil)
	for p := 0; p < 4; p++ {
		for k := 0; k < s.BasisPerPoint; k++ {
			col := p*s.BasisPerPoint + k
			test.That(t, basis.At(3*p, col), test.ShouldAlmostEqual, 0, 1e-12)
			test.That(t, basis.At(3*p+1, col), test.ShouldAlmostEqual, 0, 1e-12)
			test.That(t, basis.At(3*p+2, col), test.ShouldAlmostEqual, 1, 1e-12)
		}
	}
}

func TestContactJacobianStacking(t *testing.T) {
	s := flatFoot()
	dyn := footSnapshot()
	jac, err := s.ContactJacobian(dyn)
	test.That(t, err, test.ShouldBeNil)
	r, c := jac.Dims()
	test.That(t, r, test.ShouldEqual, 12)
	test.That(t, c, test.ShouldEqual, 6)

	// Each 3-row block applied to [w; v] gives v + w x p.
	w := r3.Vector{X: 0.3, Y: -0.1, Z: 0.2}
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	var vel mat.VecDense
	vel.MulVec(jac, mat.NewVecDense(6, []float64{w.X, w.Y, w.Z, v.X, v.Y, v.Z}))
	for p, pt := range s.Points {
		want := v.Add(w.Cross(pt))
		test.That(t, vel.AtVec(3*p), test.ShouldAlmostEqual, want.X, 1e-12)
		test.That(t, vel.AtVec(3*p+1), test.ShouldAlmostEqual, want.Y, 1e-12)
		test.That(t, vel.AtVec(3*p+2), test.ShouldAlmostEqual, want.Z, 1e-12)
	}

	jdv, err := s.ContactJacobianDotV(dyn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jdv.Len(), test.ShouldEqual, 12)
}

func TestWorldPointsAndRef(t *testing.T) {
	s := flatFoot()
	pts, ref, err := s.WorldPointsAndRef(footSnapshot(), r3.Vector{Z: -0.02})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ref, test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.2, Z: -0.02})
	test.That(t, len(pts), test.ShouldEqual, 4)
	test.That(t, pts[0], test.ShouldResemble, r3.Vector{X: 0.2, Y: 0.25})
}

func TestWrenchMatrix(t *testing.T) {
	s := flatFoot()
	p := r3.Vector{X: 1, Y: 0, Z: 0}
	ref := r3.Vector{X: 0, Y: 0, Z: 0}
	w := s.WrenchMatrix([]r3.Vector{p}, ref)

	f := r3.Vector{X: 0, Y: 0, Z: 7}
	var wrench mat.VecDense
	wrench.MulVec(w, mat.NewVecDense(3, []float64{f.X, f.Y, f.Z}))
	torque := p.Sub(ref).Cross(f)
	test.That(t, wrench.AtVec(0), test.ShouldAlmostEqual, torque.X, 1e-12)
	test.That(t, wrench.AtVec(1), test.ShouldAlmostEqual, torque.Y, 1e-12)
	test.That(t, wrench.AtVec(2), test.ShouldAlmostEqual, torque.Z, 1e-12)
	test.That(t, wrench.AtVec(3), test.ShouldAlmostEqual, f.X, 1e-12)
	test.That(t, wrench.AtVec(4), test.ShouldAlmostEqual, f.Y, 1e-12)
	test.That(t, wrench.AtVec(5), test.ShouldAlmostEqual, f.Z, 1e-12)
}
