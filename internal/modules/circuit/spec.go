package circuit

import "fmt"

// TermSpec is the wire form of one linear expression component.
type TermSpec struct {
	Param int     `json:"param"`
	Coeff float64 `json:"coeff"`
}

// ExprSpec is the wire form of an affine gate-parameter expression.
type ExprSpec struct {
	Terms []TermSpec `json:"terms,omitempty"`
	Const float64    `json:"const,omitempty"`
}

// GateSpec is the wire form of one gate.
type GateSpec struct {
	Type    GateType  `json:"type"`
	Target  int       `json:"target"`
	Control *int      `json:"control,omitempty"`
	Expr    *ExprSpec `json:"expr,omitempty"`
}

// Spec is the wire form of a parametric circuit.
type Spec struct {
	Qubits     int        `json:"qubits"`
	Parameters int        `json:"parameters"`
	Gates      []GateSpec `json:"gates"`
}

// Build validates the description and constructs the parametric state.
func (s Spec) Build() (*ParametricState, error) {
	if s.Qubits < 1 || s.Qubits > 24 {
		return nil, fmt.Errorf("qubit count %d out of range [1, 24]", s.Qubits)
	}
	if s.Parameters < 0 {
		return nil, fmt.Errorf("negative parameter count %d", s.Parameters)
	}

	c := New(s.Qubits)
	for i := 0; i < s.Parameters; i++ {
		c.Param(fmt.Sprintf("p%d", i))
	}

	for i, gs := range s.Gates {
		if gs.Target < 0 || gs.Target >= s.Qubits {
			return nil, fmt.Errorf("gate %d: target %d out of range", i, gs.Target)
		}

		g := Gate{Type: gs.Type, Target: gs.Target, Control: -1}
		switch gs.Type {
		case GateCX, GateCZ:
			if gs.Control == nil {
				return nil, fmt.Errorf("gate %d (%s): missing control qubit", i, gs.Type)
			}
			if *gs.Control < 0 || *gs.Control >= s.Qubits || *gs.Control == gs.Target {
				return nil, fmt.Errorf("gate %d: control %d out of range", i, *gs.Control)
			}
			g.Control = *gs.Control
		case GateH, GateX, GateY, GateZ, GateS:
		case GateRX, GateRY, GateRZ:
			if gs.Expr == nil {
				return nil, fmt.Errorf("gate %d (%s): missing angle expression", i, gs.Type)
			}
			expr := Expression{Const: gs.Expr.Const}
			for _, ts := range gs.Expr.Terms {
				expr = expr.Plus(Parameter{Index: ts.Param}, ts.Coeff)
			}
			g.Expr = &expr
		default:
			return nil, fmt.Errorf("gate %d: unknown gate type %q", i, gs.Type)
		}
		c.Add(g)
	}

	state := NewState(c)
	// Surface malformed parameter references now rather than on first use.
	if _, err := state.Mapping(); err != nil {
		return nil, err
	}
	return state, nil
}
