package inject

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/contact"
	"github.com/robocore/wholebody/dynamics"
)

// Support is an injected contact support.
type Support struct {
	contact.Support
	BodyFunc                func() string
	ContactPointsFunc       func() []r3.Vector
	NumContactPointsFunc    func() int
	NumBasisFunc            func() int
	BasisMatrixFunc         func(dyn dynamics.Provider) (*mat.Dense, error)
	ContactJacobianFunc     func(dyn dynamics.Provider) (*mat.Dense, error)
	ContactJacobianDotVFunc func(dyn dynamics.Provider) (*mat.VecDense, error)
	WorldPointsAndRefFunc   func(dyn dynamics.Provider, offset r3.Vector) ([]r3.Vector, r3.Vector, error)
	WrenchMatrixFunc        func(points []r3.Vector, ref r3.Vector) *mat.Dense
}

// Body calls the injected Body or the real version.
func (s *Support) Body() string {
	if s.BodyFunc == nil {
		return s.Support.Body()
	}
	return s.BodyFunc()
}

// ContactPoints calls the injected ContactPoints or the real version.
func (s *Support) ContactPoints() []r3.Vector {
	if s.ContactPointsFunc == nil {
		return s.Support.ContactPoints()
	}
	return s.ContactPointsFunc()
}

// NumContactPoints calls the injected NumContactPoints or the real version.
func (s *Support) NumContactPoints() int {
	if s.NumContactPointsFunc == nil {
		return s.Support.NumContactPoints()
	}
	return s.NumContactPointsFunc()
}

// NumBasis calls the injected NumBasis or the real version.
func (s *Support) NumBasis() int {
	if s.NumBasisFunc == nil {
		return s.Support.NumBasis()
	}
	return s.NumBasisFunc()
}

// BasisMatrix calls the injected BasisMatrix or the real version.
func (s *Support) BasisMatrix(dyn dynamics.Provider) (*mat.Dense, error) {
	if s.BasisMatrixFunc == nil {
		return s.Support.BasisMatrix(dyn)
	}
	return s.BasisMatrixFunc(dyn)
}

// ContactJacobian calls the injected ContactJacobian or the real version.
func (s *Support) ContactJacobian(dyn dynamics.Provider) (*mat.Dense, error) {
	if s.ContactJacobianFunc == nil {
		return s.Support.ContactJacobian(dyn)
	}
	return s.ContactJacobianFunc(dyn)
}

// ContactJacobianDotV calls the injected ContactJacobianDotV or the real version.
func (s *Support) ContactJacobianDotV(dyn dynamics.Provider) (*mat.VecDense, error) {
	if s.ContactJacobianDotVFunc == nil {
		return s.Support.ContactJacobianDotV(dyn)
	}
	return s.ContactJacobianDotVFunc(dyn)
}

// WorldPointsAndRef calls the injected WorldPointsAndRef or the real version.
func (s *Support) WorldPointsAndRef(dyn dynamics.Provider, offset r3.Vector) ([]r3.Vector, r3.Vector, error) {
	if s.WorldPointsAndRefFunc == nil {
		return s.Support.WorldPointsAndRef(dyn, offset)
	}
	return s.WorldPointsAndRefFunc(dyn, offset)
}

// WrenchMatrix calls the injected WrenchMatrix or the real version.
func (s *Support) WrenchMatrix(points []r3.Vector, ref r3.Vector) *mat.Dense {
	if s.WrenchMatrixFunc == nil {
		return s.Support.WrenchMatrix(points, ref)
	}
	return s.WrenchMatrixFunc(points, ref)
}
