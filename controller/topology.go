package controller

import (
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/qp"
	"github.com/robocore/wholebody/spatialmath"
)

// signature is the structural shape of the QP. Two ticks with equal
// signatures share one allocation; any difference forces a full rebuild.
type signature struct {
	numContacts    int
	numVD          int
	numBasis       int
	numPointForce  int
	numTorque      int
	numVariable    int
	numBodyMotions int
}

// topology is the persistent QP structure plus every per-tick buffer the
// assembler refills. All fields are sized in resize and never reallocated
// until the signature changes.
type topology struct {
	sig   signature
	valid bool

	prog  *qp.Program
	vd    qp.VarView
	basis qp.VarView

	eqDynamics   *qp.LinearEquality
	eqContacts   []*qp.LinearEquality
	ineqBasis    *qp.LinearInequality
	ineqTorque   *qp.LinearInequality
	costCoM      *qp.QuadraticCost
	costBodies   []*qp.QuadraticCost
	costVDReg    *qp.QuadraticCost
	costBasisReg *qp.QuadraticCost

	// Stacked contact quantities, row blocks in support order.
	stackedJacobian *mat.Dense    // 3p x nv
	basisToForce    *mat.Dense    // 3p x nb
	stackedJdotV    *mat.VecDense // 3p
	negStackedJdotV *mat.VecDense // 3p

	jb *mat.Dense // nv x nb, contact Jacobian transpose times basis

	torqueLinear     *mat.Dense    // nt x (nv+nb)
	torqueConstant   *mat.VecDense // nt
	dynamicsLinear   *mat.Dense    // 6 x (nv+nb)
	dynamicsConstant *mat.VecDense // 6
	ineqLinear       *mat.Dense    // nt x (nv+nb)
	ineqLowerBound   *mat.VecDense // nt
	ineqUpperBound   *mat.VecDense // nt

	// Tracked-body Jacobians retained for result parsing.
	bodyJ     []*mat.Dense
	bodyJdotV []*mat.VecDense

	// Cost coefficient scratch, reused across cost updates within a tick.
	costQVD *mat.Dense    // nv x nv
	costBVD *mat.VecDense // nv
	costQB  *mat.Dense    // nb x nb
	costBB  *mat.VecDense // nb

	pointForces *mat.VecDense // 3p

	// Fixed-size residual scratch for cost assembly.
	scratch3 *mat.VecDense
	scratch6 *mat.VecDense
}

func signatureOf(dyn dynamics.Provider, spec *MotionSpec) signature {
	sig := signature{
		numContacts:    len(spec.Supports),
		numVD:          dyn.NumVelocities(),
		numTorque:      dyn.NumActuators(),
		numBodyMotions: len(spec.BodyMotions),
	}
	for _, sup := range spec.Supports {
		sig.numPointForce += sup.NumContactPoints()
		sig.numBasis += sup.NumBasis()
	}
	sig.numVariable = sig.numVD + sig.numBasis
	return sig
}

// resize rebuilds the topology when the structural signature changed and is
// a no-op otherwise. Creation order is fixed; the assembler and parser
// address constraints and costs by these handles and by variable offset.
func (c *Controller) resize(dyn dynamics.Provider, spec *MotionSpec) {
	sig := signatureOf(dyn, spec)
	if c.topo.valid && sig == c.topo.sig {
		return
	}

	t := &c.topo
	nv, nb, nt, np := sig.numVD, sig.numBasis, sig.numTorque, sig.numPointForce

	t.sig = sig
	t.valid = true
	t.prog = qp.NewProgram()
	t.vd = t.prog.AddContinuousVariables(nv, "vd")
	t.basis = t.prog.AddContinuousVariables(nb, "basis")

	t.stackedJacobian = newDense(3*np, nv)
	t.basisToForce = newDense(3*np, nb)
	t.stackedJdotV = newVec(3 * np)
	t.negStackedJdotV = newVec(3 * np)
	t.jb = newDense(nv, nb)
	t.torqueLinear = newDense(nt, sig.numVariable)
	t.torqueConstant = newVec(nt)
	t.dynamicsLinear = newDense(spatialmath.SpatialDim, sig.numVariable)
	t.dynamicsConstant = newVec(spatialmath.SpatialDim)
	t.ineqLinear = newDense(nt, sig.numVariable)
	t.ineqLowerBound = newVec(nt)
	t.ineqUpperBound = newVec(nt)
	t.pointForces = newVec(3 * np)

	t.costQVD = newDense(nv, nv)
	t.costBVD = newVec(nv)
	t.costQB = newDense(nb, nb)
	t.costBB = newVec(nb)
	t.scratch3 = newVec(3)
	t.scratch6 = newVec(spatialmath.SpatialDim)

	t.bodyJ = make([]*mat.Dense, sig.numBodyMotions)
	t.bodyJdotV = make([]*mat.VecDense, sig.numBodyMotions)

	// Dynamics equality, top six rows of the equations of motion.
	t.eqDynamics = t.prog.AddLinearEquality(spatialmath.SpatialDim, t.vd, t.basis)
	t.eqDynamics.SetDescription("dynamics eq")

	// One contact equality per support, three rows per contact point, bound
	// to the acceleration variables only.
	t.eqContacts = make([]*qp.LinearEquality, len(spec.Supports))
	for i, sup := range spec.Supports {
		t.eqContacts[i] = t.prog.AddLinearEquality(3*sup.NumContactPoints(), t.vd)
		t.eqContacts[i].SetDescription(sup.Body() + " contact eq")
	}

	// Basis coefficients stay in [0, cap]; structurally fixed, so the
	// coefficients are set here and never touched by the assembler.
	t.ineqBasis = t.prog.AddLinearInequality(nb, t.basis)
	t.ineqBasis.SetDescription("contact force basis ineq")
	if nb > 0 {
		eye := newDense(nb, nb)
		ub := newVec(nb)
		for i := 0; i < nb; i++ {
			eye.Set(i, i, 1)
			ub.SetVec(i, c.opts.BasisUpperBound)
		}
		if err := t.ineqBasis.Update(eye, newVec(nb), ub); err != nil {
			c.logger.Errorw("basis inequality init", "error", err)
		}
	}

	t.ineqTorque = t.prog.AddLinearInequality(nt, t.vd, t.basis)
	t.ineqTorque.SetDescription("torque limit ineq")

	t.costCoM = t.prog.AddQuadraticCost(t.vd)
	t.costCoM.SetDescription("com cost")
	t.costBodies = make([]*qp.QuadraticCost, len(spec.BodyMotions))
	for i, bm := range spec.BodyMotions {
		t.costBodies[i] = t.prog.AddQuadraticCost(t.vd)
		t.costBodies[i].SetDescription(bm.Body + " cost")
	}
	t.costVDReg = t.prog.AddQuadraticCost(t.vd)
	t.costVDReg.SetDescription("vd reg cost")
	t.costBasisReg = t.prog.AddQuadraticCost(t.basis)
	t.costBasisReg.SetDescription("basis reg cost")
}

func newDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

func newVec(n int) *mat.VecDense {
	if n == 0 {
		return nil
	}
	return mat.NewVecDense(n, nil)
}
