package controller

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Textual dumps of the motion spec and output. Presentation only; nothing in the
// tick path depends on these.

const reportRule = "===============================================\n"

// String implements fmt.Stringer.
func (m *MotionSpec) String() string {
	var b strings.Builder
	b.WriteString(reportRule)
	b.WriteString("MotionSpec:\n")
	fmt.Fprintf(&b, "desired comdd: %s\n", fmtVec(m.DesiredCoMAccel))
	for _, bm := range m.BodyMotions {
		fmt.Fprintf(&b, "%s_d: %s\n", bm.Body, fmtVec(bm.Acceleration))
	}
	fmt.Fprintf(&b, "desired vd: %s\n", fmtVec(m.DesiredAccel))
	fmt.Fprintf(&b, "w_com: %g\n", m.CoMWeight)
	for _, bm := range m.BodyMotions {
		fmt.Fprintf(&b, "w_%s: %g\n", bm.Body, bm.Weight)
	}
	fmt.Fprintf(&b, "w_vd: %g\n", m.AccelWeight)
	fmt.Fprintf(&b, "w_basis_reg: %g\n", m.BasisRegWeight)
	return b.String()
}

// String implements fmt.Stringer.
func (o *Output) String() string {
	var b strings.Builder
	b.WriteString(reportRule)
	b.WriteString("Output:\n")
	fmt.Fprintf(&b, "vd: %s\n", fmtVec(o.Acceleration))
	fmt.Fprintf(&b, "com acc: %s\n", fmtVec(o.CoMAcceleration))
	for _, ba := range o.BodyAccelerations {
		fmt.Fprintf(&b, "%s acc: %s\n", ba.Body, fmtVec(ba.Acceleration))
	}
	b.WriteString(reportRule)
	for _, rc := range o.Contacts {
		fmt.Fprintf(&b, "%s wrench: %s\n", rc.Body, fmtVec(rc.EquivalentWrench))
		b.WriteString("point forces:\n")
		for _, f := range rc.PointForces {
			fmt.Fprintf(&b, "  [%.4f %.4f %.4f]\n", f.X, f.Y, f.Z)
		}
	}
	b.WriteString(reportRule)
	fmt.Fprintf(&b, "torque: %s\n", fmtVec(o.JointTorque))
	b.WriteString(reportRule)
	b.WriteString("costs:\n")
	for _, c := range o.Costs {
		fmt.Fprintf(&b, "  %s: %g\n", c.Name, c.Value)
	}
	return b.String()
}

func fmtVec(v *mat.VecDense) string {
	if v == nil {
		return "[]"
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprintf("%.4f", v.AtVec(i))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
