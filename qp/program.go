// Package qp holds the persistent structure of a quadratic program: decision
// variables addressed as named offset ranges of one concatenated vector,
// linear equality and two-sided inequality constraints, and quadratic costs.
// The structure is allocated once for a given problem shape and its
// coefficients are overwritten in place every control tick, so constraint and
// cost handles stay valid for the lifetime of the Program.
package qp

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// VarView is a named contiguous slice of the program's decision vector.
type VarView struct {
	name  string
	start int
	size  int
}

// Name returns the name given at allocation.
func (v VarView) Name() string { return v.name }

// Start is the view's offset into the full decision vector.
func (v VarView) Start() int { return v.start }

// Len is the number of scalar variables in the view.
func (v VarView) Len() int { return v.size }

// Program owns the variables, constraints and costs of one QP. Constraints
// and costs are returned as handles whose coefficient buffers the Program
// retains; callers update coefficients through the handles and never
// reallocate them.
type Program struct {
	numVars int
	vars    []VarView
	eqs     []*LinearEquality
	ineqs   []*LinearInequality
	costs   []*QuadraticCost
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddContinuousVariables appends n decision variables and returns the view
// addressing them. Views allocated earlier keep their offsets.
func (p *Program) AddContinuousVariables(n int, name string) VarView {
	v := VarView{name: name, start: p.numVars, size: n}
	p.numVars += n
	p.vars = append(p.vars, v)
	return v
}

// NumVars is the length of the full decision vector.
func (p *Program) NumVars() int { return p.numVars }

// Variable looks a view up by name.
func (p *Program) Variable(name string) (VarView, bool) {
	for _, v := range p.vars {
		if v.name == name {
			return v, true
		}
	}
	return VarView{}, false
}

// EqualityConstraints returns the equality handles in creation order.
func (p *Program) EqualityConstraints() []*LinearEquality { return p.eqs }

// Inequalities returns the inequality handles in creation order.
func (p *Program) Inequalities() []*LinearInequality { return p.ineqs }

// Costs returns the cost handles in creation order.
func (p *Program) Costs() []*QuadraticCost { return p.costs }

// boundTerm is the shared coefficient layout of constraints and costs: a
// dense block over the concatenation of the bound variable views.
type boundTerm struct {
	desc string
	vars []VarView
	cols int
}

func newBoundTerm(vars []VarView) boundTerm {
	cols := 0
	for _, v := range vars {
		cols += v.size
	}
	return boundTerm{vars: vars, cols: cols}
}

// SetDescription names the term for diagnostics.
func (t *boundTerm) SetDescription(desc string) { t.desc = desc }

// Description returns the diagnostic name.
func (t *boundTerm) Description() string { return t.desc }

// gather copies the term's bound sub-vectors out of the full decision vector.
func (t *boundTerm) gather(x, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, t.cols)
	}
	i := 0
	for _, v := range t.vars {
		copy(dst[i:i+v.size], x[v.start:v.start+v.size])
		i += v.size
	}
	return dst
}

// scatterRow adds the coefficient row a (over bound columns) into the
// full-width gradient grad.
func (t *boundTerm) scatterRow(a []float64, grad []float64) {
	i := 0
	for _, v := range t.vars {
		for j := 0; j < v.size; j++ {
			grad[v.start+j] += a[i+j]
		}
		i += v.size
	}
}

// LinearEquality is A*x = b over the bound variable views.
type LinearEquality struct {
	boundTerm
	a  *mat.Dense
	b  *mat.VecDense
	xv []float64
}

// AddLinearEquality allocates a zero-initialized equality with the given row
// count over the listed views.
func (p *Program) AddLinearEquality(rows int, vars ...VarView) *LinearEquality {
	c := &LinearEquality{boundTerm: newBoundTerm(vars)}
	if rows > 0 && c.cols > 0 {
		c.a = mat.NewDense(rows, c.cols, nil)
		c.b = mat.NewVecDense(rows, nil)
		c.xv = make([]float64, c.cols)
	}
	p.eqs = append(p.eqs, c)
	return c
}

// Rows is the constraint row count.
func (c *LinearEquality) Rows() int {
	if c.a == nil {
		return 0
	}
	r, _ := c.a.Dims()
	return r
}

// Cols is the bound column count.
func (c *LinearEquality) Cols() int { return c.cols }

// Update overwrites the coefficients in place. The shapes must match the
// allocation; a mismatch leaves the buffers untouched.
func (c *LinearEquality) Update(a mat.Matrix, b mat.Vector) error {
	if c.a == nil {
		if a != nil || b != nil {
			return errors.Errorf("%s: update of empty constraint", c.desc)
		}
		return nil
	}
	if err := checkShape(c.desc, c.a, c.b, a, b); err != nil {
		return err
	}
	c.a.Copy(a)
	c.b.CopyVec(b)
	return nil
}

// Residual is row r of A*x - b at the full decision vector x.
func (c *LinearEquality) Residual(x []float64, r int) float64 {
	xv := c.gather(x, c.xv)
	return dot(c.a.RawRowView(r), xv) - c.b.AtVec(r)
}

// RowGradient adds row r's coefficients into the full-width gradient.
func (c *LinearEquality) RowGradient(r int, grad []float64) {
	c.scatterRow(c.a.RawRowView(r), grad)
}

// LinearInequality is lb <= A*x <= ub over the bound variable views.
type LinearInequality struct {
	boundTerm
	a      *mat.Dense
	lb, ub *mat.VecDense
	xv     []float64
}

// AddLinearInequality allocates a zero-initialized two-sided inequality.
func (p *Program) AddLinearInequality(rows int, vars ...VarView) *LinearInequality {
	c := &LinearInequality{boundTerm: newBoundTerm(vars)}
	if rows > 0 && c.cols > 0 {
		c.a = mat.NewDense(rows, c.cols, nil)
		c.lb = mat.NewVecDense(rows, nil)
		c.ub = mat.NewVecDense(rows, nil)
		c.xv = make([]float64, c.cols)
	}
	p.ineqs = append(p.ineqs, c)
	return c
}

// Rows is the constraint row count.
func (c *LinearInequality) Rows() int {
	if c.a == nil {
		return 0
	}
	r, _ := c.a.Dims()
	return r
}

// Update overwrites the coefficients and bounds in place.
func (c *LinearInequality) Update(a mat.Matrix, lb, ub mat.Vector) error {
	if c.a == nil {
		if a != nil {
			return errors.Errorf("%s: update of empty constraint", c.desc)
		}
		return nil
	}
	if err := checkShape(c.desc, c.a, c.lb, a, lb); err != nil {
		return err
	}
	if ub.Len() != c.ub.Len() {
		return errors.Errorf("%s: upper bound length %d, want %d", c.desc, ub.Len(), c.ub.Len())
	}
	c.a.Copy(a)
	c.lb.CopyVec(lb)
	c.ub.CopyVec(ub)
	return nil
}

// Value is row r of A*x at the full decision vector x.
func (c *LinearInequality) Value(x []float64, r int) float64 {
	xv := c.gather(x, c.xv)
	return dot(c.a.RawRowView(r), xv)
}

// Bounds returns row r's lower and upper bound.
func (c *LinearInequality) Bounds(r int) (float64, float64) {
	return c.lb.AtVec(r), c.ub.AtVec(r)
}

// RowGradient adds row r's coefficients into the full-width gradient.
func (c *LinearInequality) RowGradient(r int, grad []float64) {
	c.scatterRow(c.a.RawRowView(r), grad)
}

// QuadraticCost is 0.5*x'*Q*x + b'*x over the bound variable views.
type QuadraticCost struct {
	boundTerm
	q *mat.Dense
	b *mat.VecDense
	// scratch for gather/gradient, sized once
	xv, gv []float64
}

// AddQuadraticCost allocates a zero quadratic cost over the listed views.
func (p *Program) AddQuadraticCost(vars ...VarView) *QuadraticCost {
	c := &QuadraticCost{boundTerm: newBoundTerm(vars)}
	if c.cols > 0 {
		c.q = mat.NewDense(c.cols, c.cols, nil)
		c.b = mat.NewVecDense(c.cols, nil)
		c.xv = make([]float64, c.cols)
		c.gv = make([]float64, c.cols)
	}
	p.costs = append(p.costs, c)
	return c
}

// Update overwrites Q and b in place.
func (c *QuadraticCost) Update(q mat.Matrix, b mat.Vector) error {
	if c.q == nil {
		if q != nil {
			return errors.Errorf("%s: update of empty cost", c.desc)
		}
		return nil
	}
	if err := checkShape(c.desc, c.q, c.b, q, b); err != nil {
		return err
	}
	c.q.Copy(q)
	c.b.CopyVec(b)
	return nil
}

// Eval returns the cost value at the full decision vector x.
func (c *QuadraticCost) Eval(x []float64) float64 {
	if c.q == nil {
		return 0
	}
	xv := c.gather(x, c.xv)
	val := 0.0
	for r := 0; r < c.cols; r++ {
		row := c.q.RawRowView(r)
		val += 0.5 * xv[r] * dot(row, xv)
		val += c.b.AtVec(r) * xv[r]
	}
	return val
}

// AddGradient accumulates Q*x + b into the full-width gradient.
func (c *QuadraticCost) AddGradient(x, grad []float64) {
	if c.q == nil {
		return
	}
	xv := c.gather(x, c.xv)
	for r := 0; r < c.cols; r++ {
		c.gv[r] = dot(c.q.RawRowView(r), xv) + c.b.AtVec(r)
	}
	c.scatterRow(c.gv, grad)
}

// EvalObjective sums every cost at x and, when grad is non-nil, accumulates
// the total gradient into it (grad is zeroed first).
func (p *Program) EvalObjective(x, grad []float64) float64 {
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	total := 0.0
	for _, c := range p.costs {
		total += c.Eval(x)
		if grad != nil {
			c.AddGradient(x, grad)
		}
	}
	return total
}

func checkShape(desc string, haveA mat.Matrix, haveB mat.Vector, a mat.Matrix, b mat.Vector) error {
	hr, hc := haveA.Dims()
	ar, ac := a.Dims()
	if ar != hr || ac != hc {
		return errors.Errorf("%s: coefficient shape %dx%d, want %dx%d", desc, ar, ac, hr, hc)
	}
	if b.Len() != haveB.Len() {
		return errors.Errorf("%s: rhs length %d, want %d", desc, b.Len(), haveB.Len())
	}
	return nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
