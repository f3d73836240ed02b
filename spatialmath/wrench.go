// Package spatialmath defines the spatial 6-vector conventions shared by the
// whole-body controller: angular components occupy rows 0-2, linear components
// rows 3-5. Wrenches are torque-then-force, spatial accelerations are
// angular-then-linear.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// SpatialDim is the length of every spatial 6-vector (wrench, twist,
// spatial acceleration, centroidal momentum).
const SpatialDim = 6

// NewSpatialVec packs angular and linear parts into a fresh 6-vector.
func NewSpatialVec(angular, linear r3.Vector) *mat.VecDense {
	return mat.NewVecDense(SpatialDim, []float64{
		angular.X, angular.Y, angular.Z,
		linear.X, linear.Y, linear.Z,
	})
}

// AngularPart returns rows 0-2 of a spatial 6-vector.
func AngularPart(v mat.Vector) r3.Vector {
	return r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}
}

// LinearPart returns rows 3-5 of a spatial 6-vector.
func LinearPart(v mat.Vector) r3.Vector {
	return r3.Vector{X: v.AtVec(3), Y: v.AtVec(4), Z: v.AtVec(5)}
}

// Skew returns the 3x3 cross-product matrix of v, so that Skew(v) * u == v x u.
func Skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// GravityWrench is the wrench gravity exerts on a body of the given mass,
// expressed about its center of mass (no torque component).
func GravityWrench(mass float64, gravity r3.Vector) *mat.VecDense {
	return NewSpatialVec(r3.Vector{}, gravity.Mul(mass))
}

// AccumulateWrenchAbout adds the wrench w, currently expressed about the point
// `at`, into dst re-expressed about the point `about`. Moving the reference
// point leaves the force alone and adds the moment-arm torque (at-about) x f.
func AccumulateWrenchAbout(dst, w *mat.VecDense, at, about r3.Vector) {
	dst.AddVec(dst, w)
	arm := at.Sub(about).Cross(LinearPart(w))
	dst.SetVec(0, dst.AtVec(0)+arm.X)
	dst.SetVec(1, dst.AtVec(1)+arm.Y)
	dst.SetVec(2, dst.AtVec(2)+arm.Z)
}
