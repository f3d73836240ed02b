package qp

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestVariableLayout(t *testing.T) {
	prog := NewProgram()
	vd := prog.AddContinuousVariables(6, "vd")
	basis := prog.AddContinuousVariables(8, "basis")

	test.That(t, prog.NumVars(), test.ShouldEqual, 14)
	test.That(t, vd.Start(), test.ShouldEqual, 0)
	test.That(t, vd.Len(), test.ShouldEqual, 6)
	test.That(t, basis.Start(), test.ShouldEqual, 6)
	test.That(t, basis.Len(), test.ShouldEqual, 8)

	got, ok := prog.Variable("basis")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Start(), test.ShouldEqual, 6)
	_, ok = prog.Variable("tau")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestLinearEqualityResidual(t *testing.T) {
	prog := NewProgram()
	vd := prog.AddContinuousVariables(2, "vd")
	basis := prog.AddContinuousVariables(1, "basis")

	eq := prog.AddLinearEquality(2, vd, basis)
	eq.SetDescription("dyn")
	test.That(t, eq.Rows(), test.ShouldEqual, 2)
	test.That(t, eq.Cols(), test.ShouldEqual, 3)

	a := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		0, -1, 1,
	})
	b := mat.NewVecDense(2, []float64{4, 1})
	test.That(t, eq.Update(a, b), test.ShouldBeNil)

	x := []float64{1, 0, 1}
	test.That(t, eq.Residual(x, 0), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, eq.Residual(x, 1), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, eq.Residual([]float64{0, 0, 0}, 0), test.ShouldAlmostEqual, -4, 1e-12)

	grad := make([]float64, prog.NumVars())
	eq.RowGradient(1, grad)
	test.That(t, grad, test.ShouldResemble, []float64{0, -1, 1})
}

func TestConstraintBindsSubsetOfVariables(t *testing.T) {
	prog := NewProgram()
	prog.AddContinuousVariables(3, "vd")
	basis := prog.AddContinuousVariables(2, "basis")

	// Only the basis columns are bound; gradients land at the basis offset.
	eq := prog.AddLinearEquality(1, basis)
	test.That(t, eq.Update(mat.NewDense(1, 2, []float64{5, 7}), mat.NewVecDense(1, []float64{0})), test.ShouldBeNil)

	grad := make([]float64, prog.NumVars())
	eq.RowGradient(0, grad)
	test.That(t, grad, test.ShouldResemble, []float64{0, 0, 0, 5, 7})
	test.That(t, eq.Residual([]float64{9, 9, 9, 1, 1}, 0), test.ShouldAlmostEqual, 12, 1e-12)
}

func TestUpdateRejectsShapeMismatch(t *testing.T) {
	prog := NewProgram()
	v := prog.AddContinuousVariables(2, "x")
	eq := prog.AddLinearEquality(1, v)
	eq.SetDescription("shaped")
	test.That(t, eq.Update(mat.NewDense(1, 2, []float64{1, 1}), mat.NewVecDense(1, []float64{3})), test.ShouldBeNil)

	err := eq.Update(mat.NewDense(2, 2, nil), mat.NewVecDense(2, nil))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "shaped")

	// The rejected update left the old coefficients alone.
	test.That(t, eq.Residual([]float64{1, 2}, 0), test.ShouldAlmostEqual, 0, 1e-12)

	ineq := prog.AddLinearInequality(1, v)
	err = ineq.Update(mat.NewDense(1, 2, nil), mat.NewVecDense(1, nil), mat.NewVecDense(2, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEmptyConstraints(t *testing.T) {
	prog := NewProgram()
	v := prog.AddContinuousVariables(2, "x")

	eq := prog.AddLinearEquality(0, v)
	test.That(t, eq.Rows(), test.ShouldEqual, 0)
	test.That(t, eq.Update(nil, nil), test.ShouldBeNil)
	test.That(t, eq.Update(mat.NewDense(1, 2, nil), mat.NewVecDense(1, nil)), test.ShouldNotBeNil)

	ineq := prog.AddLinearInequality(0, v)
	test.That(t, ineq.Rows(), test.ShouldEqual, 0)
	test.That(t, ineq.Update(nil, nil, nil), test.ShouldBeNil)
}

func TestQuadraticCostEvalAndGradient(t *testing.T) {
	prog := NewProgram()
	v := prog.AddContinuousVariables(2, "x")
	cost := prog.AddQuadraticCost(v)
	cost.SetDescription("quad")

	q := mat.NewDense(2, 2, []float64{
		2, 0,
		0, 4,
	})
	b := mat.NewVecDense(2, []float64{1, -1})
	test.That(t, cost.Update(q, b), test.ShouldBeNil)

	// 0.5*(2*9 + 4*4) + (3 - 2) = 17 + 1.
	x := []float64{3, 2}
	test.That(t, cost.Eval(x), test.ShouldAlmostEqual, 18, 1e-12)

	grad := make([]float64, 2)
	cost.AddGradient(x, grad)
	test.That(t, grad[0], test.ShouldAlmostEqual, 7, 1e-12)
	test.That(t, grad[1], test.ShouldAlmostEqual, 7, 1e-12)
}

func TestEvalObjectiveSumsCosts(t *testing.T) {
	prog := NewProgram()
	a := prog.AddContinuousVariables(1, "a")
	b := prog.AddContinuousVariables(1, "b")

	ca := prog.AddQuadraticCost(a)
	test.That(t, ca.Update(mat.NewDense(1, 1, []float64{2}), mat.NewVecDense(1, nil)), test.ShouldBeNil)
	cb := prog.AddQuadraticCost(b)
	test.That(t, cb.Update(mat.NewDense(1, 1, nil), mat.NewVecDense(1, []float64{3})), test.ShouldBeNil)

	grad := []float64{99, 99}
	val := prog.EvalObjective([]float64{2, 5}, grad)
	test.That(t, val, test.ShouldAlmostEqual, 4+15, 1e-12)
	// Gradient is zeroed before accumulation.
	test.That(t, grad, test.ShouldResemble, []float64{4, 3})
}

func TestCheckSolution(t *testing.T) {
	prog := NewProgram()
	v := prog.AddContinuousVariables(2, "x")

	eq := prog.AddLinearEquality(1, v)
	eq.SetDescription("sum")
	test.That(t, eq.Update(mat.NewDense(1, 2, []float64{1, 1}), mat.NewVecDense(1, []float64{2})), test.ShouldBeNil)

	ineq := prog.AddLinearInequality(1, v)
	ineq.SetDescription("first bound")
	test.That(t, ineq.Update(
		mat.NewDense(1, 2, []float64{1, 0}),
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}),
	), test.ShouldBeNil)

	test.That(t, prog.CheckSolution([]float64{0.5, 1.5}, 1e-9), test.ShouldBeNil)

	err := prog.CheckSolution([]float64{2, 1}, 1e-9)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sum")
	test.That(t, err.Error(), test.ShouldContainSubstring, "first bound")

	test.That(t, prog.CheckSolution([]float64{1}, 1e-9), test.ShouldNotBeNil)
}
