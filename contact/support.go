// Package contact describes the contact state the whole-body controller
// optimizes over: which bodies touch the environment, where, and how the
// friction cone at each contact point is discretized into force basis
// directions.
package contact

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/spatialmath"
)

// Support is one contact body and the per-tick quantities derived from it.
// Contact forces on the body are expressed as nonnegative combinations of
// NumBasis discretized force directions spread over its contact points.
type Support interface {
	// Body names the contacting body in the dynamics provider.
	Body() string
	// ContactPoints lists the contact point positions in the body frame.
	ContactPoints() []r3.Vector
	// NumContactPoints is len(ContactPoints).
	NumContactPoints() int
	// NumBasis is the total force basis count across all contact points.
	NumBasis() int

	// BasisMatrix maps basis coefficients to stacked Cartesian point forces,
	// 3*NumContactPoints rows by NumBasis columns, world frame.
	BasisMatrix(dyn dynamics.Provider) (*mat.Dense, error)
	// ContactJacobian is the stacked point Jacobian over all contact points,
	// 3*NumContactPoints rows.
	ContactJacobian(dyn dynamics.Provider) (*mat.Dense, error)
	// ContactJacobianDotV is the stacked Jdot*v term, length
	// 3*NumContactPoints.
	ContactJacobianDotV(dyn dynamics.Provider) (*mat.VecDense, error)

	// WorldPointsAndRef returns the contact points and the wrench reference
	// point in world frame. offset is the reference point in the body frame.
	WorldPointsAndRef(dyn dynamics.Provider, offset r3.Vector) ([]r3.Vector, r3.Vector, error)
	// WrenchMatrix maps stacked point forces at the given world points to the
	// equivalent wrench about ref, 6 rows by 3*len(points) columns.
	WrenchMatrix(points []r3.Vector, ref r3.Vector) *mat.Dense
}

// PointSupport is a Support backed by a fixed set of body-frame contact
// points sharing one contact normal and friction coefficient. The friction
// cone at each point is approximated by BasisPerPoint directions fanned
// around the normal; Mu = 0 collapses every direction onto the normal.
type PointSupport struct {
	BodyName      string
	Points        []r3.Vector
	Normal        r3.Vector
	Mu            float64
	BasisPerPoint int
}

// Body implements Support.
func (s *PointSupport) Body() string { return s.BodyName }

// ContactPoints implements Support.
func (s *PointSupport) ContactPoints() []r3.Vector { return s.Points }

// NumContactPoints implements Support.
func (s *PointSupport) NumContactPoints() int { return len(s.Points) }

// NumBasis implements Support.
func (s *PointSupport) NumBasis() int { return s.BasisPerPoint * len(s.Points) }

// worldNormal pushes the body-frame normal through the provider's body
// rotation using two point transforms, keeping Provider's surface minimal.
func (s *PointSupport) worldNormal(dyn dynamics.Provider) (r3.Vector, error) {
	origin, err := dyn.TransformPoint(s.BodyName, r3.Vector{})
	if err != nil {
		return r3.Vector{}, err
	}
	tip, err := dyn.TransformPoint(s.BodyName, s.Normal)
	if err != nil {
		return r3.Vector{}, err
	}
	return tip.Sub(origin).Normalize(), nil
}

// BasisMatrix implements Support. Basis directions for one point occupy one
// column each; point blocks are stacked in ContactPoints order.
func (s *PointSupport) BasisMatrix(dyn dynamics.Provider) (*mat.Dense, error) {
	n, err := s.worldNormal(dyn)
	if err != nil {
		return nil, err
	}
	t1, t2 := tangentPair(n)
	basis := mat.NewDense(3*len(s.Points), s.NumBasis(), nil)
	for p := range s.Points {
		for k := 0; k < s.BasisPerPoint; k++ {
			theta := 2 * math.Pi * float64(k) / float64(s.BasisPerPoint)
			d := n.Add(t1.Mul(s.Mu * math.Cos(theta))).Add(t2.Mul(s.Mu * math.Sin(theta))).Normalize()
			col := p*s.BasisPerPoint + k
			basis.Set(3*p, col, d.X)
			basis.Set(3*p+1, col, d.Y)
			basis.Set(3*p+2, col, d.Z)
		}
	}
	return basis, nil
}

// ContactJacobian implements Support.
func (s *PointSupport) ContactJacobian(dyn dynamics.Provider) (*mat.Dense, error) {
	nv := dyn.NumVelocities()
	jac := mat.NewDense(3*len(s.Points), nv, nil)
	for p, pt := range s.Points {
		jp, err := dyn.PointJacobian(s.BodyName, pt)
		if err != nil {
			return nil, err
		}
		jac.Slice(3*p, 3*p+3, 0, nv).(*mat.Dense).Copy(jp)
	}
	return jac, nil
}

// ContactJacobianDotV implements Support.
func (s *PointSupport) ContactJacobianDotV(dyn dynamics.Provider) (*mat.VecDense, error) {
	jdv := mat.NewVecDense(3*len(s.Points), nil)
	for p, pt := range s.Points {
		v, err := dyn.PointJacobianDotV(s.BodyName, pt)
		if err != nil {
			return nil, err
		}
		for i := 0; i < 3; i++ {
			jdv.SetVec(3*p+i, v.AtVec(i))
		}
	}
	return jdv, nil
}

// WorldPointsAndRef implements Support.
func (s *PointSupport) WorldPointsAndRef(dyn dynamics.Provider, offset r3.Vector) ([]r3.Vector, r3.Vector, error) {
	ref, err := dyn.TransformPoint(s.BodyName, offset)
	if err != nil {
		return nil, r3.Vector{}, err
	}
	pts := make([]r3.Vector, len(s.Points))
	for i, pt := range s.Points {
		pts[i], err = dyn.TransformPoint(s.BodyName, pt)
		if err != nil {
			return nil, r3.Vector{}, err
		}
	}
	return pts, ref, nil
}

// WrenchMatrix implements Support. A force f at point p contributes
// [(p-ref) x f; f] to the wrench about ref.
func (s *PointSupport) WrenchMatrix(points []r3.Vector, ref r3.Vector) *mat.Dense {
	w := mat.NewDense(spatialmath.SpatialDim, 3*len(points), nil)
	for i, p := range points {
		w.Slice(0, 3, 3*i, 3*i+3).(*mat.Dense).Copy(spatialmath.Skew(p.Sub(ref)))
		for r := 0; r < 3; r++ {
			w.Set(3+r, 3*i+r, 1)
		}
	}
	return w
}

// tangentPair returns two unit vectors completing a right-handed frame with n.
func tangentPair(n r3.Vector) (r3.Vector, r3.Vector) {
	ref := r3.Vector{X: 1}
	if math.Abs(n.X) > math.Abs(n.Y) && math.Abs(n.X) > math.Abs(n.Z) {
		ref = r3.Vector{Y: 1}
	}
	t1 := n.Cross(ref).Normalize()
	t2 := n.Cross(t1)
	return t1, t2
}
