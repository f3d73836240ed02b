package controller

import (
	"gonum.org/v1/gonum/mat"

	"github.com/robocore/wholebody/dynamics"
	"github.com/robocore/wholebody/spatialmath"
)

// assemble refills every constraint and cost coefficient of the cached
// topology from the current dynamics snapshot and desired motions. Row and
// column counts never change here; only values do.
//
// The equations of motion are M*vd + h = B*tau + J'*Phi*beta with basis
// matrix Phi and nonnegative basis coefficients beta. The floating base
// makes the top six rows of B zero, so tau is eliminated:
//
//	tau = M_l*vd + h_l - (J'*Phi)_l*beta
//
// over the lower actuated rows, leaving [vd, beta] as the decision vector.
func (c *Controller) assemble(dyn dynamics.Provider, spec *MotionSpec) error {
	t := &c.topo
	sig := t.sig
	nv, nb, nt, np := sig.numVD, sig.numBasis, sig.numTorque, sig.numPointForce

	zeroDense(t.stackedJacobian)
	zeroDense(t.basisToForce)
	zeroDense(t.torqueLinear)
	zeroDense(t.dynamicsLinear)
	zeroDense(t.ineqLinear)
	zeroDense(t.jb)

	// Stack each support's basis matrix and point Jacobian at its row and
	// column offset. Row offsets advance by force dimension, column offsets
	// by basis count.
	rowIdx, colIdx := 0, 0
	for _, sup := range spec.Supports {
		forceDim := 3 * sup.NumContactPoints()
		basisDim := sup.NumBasis()

		basis, err := sup.BasisMatrix(dyn)
		if err != nil {
			return err
		}
		copyBlock(t.basisToForce, rowIdx, colIdx, basis, 0, 0, forceDim, basisDim)

		jac, err := sup.ContactJacobian(dyn)
		if err != nil {
			return err
		}
		copyBlock(t.stackedJacobian, rowIdx, 0, jac, 0, 0, forceDim, nv)

		jdv, err := sup.ContactJacobianDotV(dyn)
		if err != nil {
			return err
		}
		for i := 0; i < forceDim; i++ {
			t.stackedJdotV.SetVec(rowIdx+i, jdv.AtVec(i))
			t.negStackedJdotV.SetVec(rowIdx+i, -jdv.AtVec(i))
		}

		rowIdx += forceDim
		colIdx += basisDim
	}
	if np > 0 && nb > 0 {
		t.jb.Mul(t.stackedJacobian.T(), t.basisToForce)
	}

	m := dyn.MassMatrix()
	h := dyn.BiasTerm()

	// tau = torqueLinear * [vd, beta] + torqueConstant.
	if nt > 0 {
		copyBlock(t.torqueLinear, 0, 0, m, nv-nt, 0, nt, nv)
		if nb > 0 {
			copyBlockScaled(t.torqueLinear, 0, nv, t.jb, nv-nt, 0, nt, nb, -1)
		}
		for i := 0; i < nt; i++ {
			t.torqueConstant.SetVec(i, h.AtVec(nv-nt+i))
		}
	}

	// Unactuated top six rows of the equations of motion.
	copyBlock(t.dynamicsLinear, 0, 0, m, 0, 0, spatialmath.SpatialDim, nv)
	if nb > 0 {
		copyBlockScaled(t.dynamicsLinear, 0, nv, t.jb, 0, 0, spatialmath.SpatialDim, nb, -1)
	}
	for i := 0; i < spatialmath.SpatialDim; i++ {
		t.dynamicsConstant.SetVec(i, -h.AtVec(i))
	}
	if err := t.eqDynamics.Update(t.dynamicsLinear, t.dynamicsConstant); err != nil {
		return err
	}

	// Zero relative acceleration at every contact point: J*vd = -Jdot*v.
	rowIdx = 0
	for i, sup := range spec.Supports {
		forceDim := 3 * sup.NumContactPoints()
		err := t.eqContacts[i].Update(
			t.stackedJacobian.Slice(rowIdx, rowIdx+forceDim, 0, nv),
			t.negStackedJdotV.SliceVec(rowIdx, rowIdx+forceDim),
		)
		if err != nil {
			return err
		}
		rowIdx += forceDim
	}

	// Torque limits, re-indexed from joint space to actuator space through
	// the orthonormal selection matrix: u = B_l' * tau.
	if nt > 0 {
		b := dyn.Selection()
		acts := dyn.Actuators()
		for u := 0; u < nt; u++ {
			for col := 0; col < sig.numVariable; col++ {
				sum := 0.0
				for j := 0; j < nt; j++ {
					sum += b.At(nv-nt+j, u) * t.torqueLinear.At(j, col)
				}
				t.ineqLinear.Set(u, col, sum)
			}
			base := 0.0
			for j := 0; j < nt; j++ {
				base -= b.At(nv-nt+j, u) * t.torqueConstant.AtVec(j)
			}
			t.ineqLowerBound.SetVec(u, base+acts[u].EffortMin)
			t.ineqUpperBound.SetVec(u, base+acts[u].EffortMax)
		}
		if err := t.ineqTorque.Update(t.ineqLinear, t.ineqLowerBound, t.ineqUpperBound); err != nil {
			return err
		}
	}

	// CoM tracking: w * |Jcom*vd + Jdotv - desired|^2.
	jcom := dyn.CoMJacobian()
	jdvCoM := dyn.CoMJacobianDotV()
	t.costQVD.Mul(jcom.T(), jcom)
	t.costQVD.Scale(spec.CoMWeight, t.costQVD)
	for i := 0; i < 3; i++ {
		t.scratch3.SetVec(i, jdvCoM.AtVec(i)-spec.DesiredCoMAccel.AtVec(i))
	}
	t.costBVD.MulVec(jcom.T(), t.scratch3)
	t.costBVD.ScaleVec(spec.CoMWeight, t.costBVD)
	if err := t.costCoM.Update(t.costQVD, t.costBVD); err != nil {
		return err
	}

	// Tracked body terms, same shape per body. The Jacobians are retained
	// for result parsing.
	for i, bm := range spec.BodyMotions {
		j, err := dyn.BodyJacobian(bm.Body)
		if err != nil {
			return err
		}
		jdv, err := dyn.BodyJacobianDotV(bm.Body)
		if err != nil {
			return err
		}
		t.bodyJ[i] = j
		t.bodyJdotV[i] = jdv

		t.costQVD.Mul(j.T(), j)
		t.costQVD.Scale(bm.Weight, t.costQVD)
		t.scratch6.SubVec(jdv, bm.Acceleration)
		t.costBVD.MulVec(j.T(), t.scratch6)
		t.costBVD.ScaleVec(bm.Weight, t.costBVD)
		if err := t.costBodies[i].Update(t.costQVD, t.costBVD); err != nil {
			return err
		}
	}

	// Regularize vd toward the desired generalized acceleration.
	t.costQVD.Zero()
	for i := 0; i < nv; i++ {
		t.costQVD.Set(i, i, spec.AccelWeight)
	}
	t.costBVD.ScaleVec(-spec.AccelWeight, spec.DesiredAccel)
	if err := t.costVDReg.Update(t.costQVD, t.costBVD); err != nil {
		return err
	}

	// Regularize basis coefficients toward zero.
	if nb > 0 {
		t.costQB.Zero()
		for i := 0; i < nb; i++ {
			t.costQB.Set(i, i, spec.BasisRegWeight)
		}
		t.costBB.Zero()
		if err := t.costBasisReg.Update(t.costQB, t.costBB); err != nil {
			return err
		}
	}
	return nil
}

func zeroDense(m *mat.Dense) {
	if m != nil {
		m.Zero()
	}
}

func copyBlock(dst *mat.Dense, di, dj int, src mat.Matrix, si, sj, rows, cols int) {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(di+i, dj+j, src.At(si+i, sj+j))
		}
	}
}

func copyBlockScaled(dst *mat.Dense, di, dj int, src mat.Matrix, si, sj, rows, cols int, f float64) {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(di+i, dj+j, f*src.At(si+i, sj+j))
		}
	}
}
