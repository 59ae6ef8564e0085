package circuit

// GateType identifies a gate kind.
type GateType string

const (
	GateH  GateType = "H"
	GateX  GateType = "X"
	GateY  GateType = "Y"
	GateZ  GateType = "Z"
	GateS  GateType = "S"
	GateRX GateType = "RX"
	GateRY GateType = "RY"
	GateRZ GateType = "RZ"
	GateCX GateType = "CX"
	GateCZ GateType = "CZ"
)

// IsParametric reports whether gates of this type consume a rotation angle.
// All parametric gate types have the generator form exp(-i*theta*P/2), which
// is what makes the parameter-shift rule exact for them.
func (t GateType) IsParametric() bool {
	switch t {
	case GateRX, GateRY, GateRZ:
		return true
	}
	return false
}

// Gate is one gate of a parametric circuit. For parametric gate types,
// exactly one of Expr or ParamFn is set: Expr for affine dependencies on
// circuit parameters, ParamFn for an opaque (possibly nonlinear) dependency.
// Opaque gates are evaluable but are rejected by the affine mapping that
// the parameter-shift rule requires.
type Gate struct {
	Type    GateType
	Target  int
	Control int // -1 when unused
	Expr    *Expression
	ParamFn func(values []float64) float64
}

// RawGate is a gate of the unbound representation: parametric gates address
// their angle through an independent slot index instead of an expression.
type RawGate struct {
	Type    GateType
	Target  int
	Control int
	Slot    int // -1 for non-parametric gates
}

// RawCircuit is the unbound representation of a parametric circuit: every
// gate-parameter slot is independently addressable. It is derived once per
// circuit and read-only afterward; concrete numeric gate-parameter vectors
// are evaluated against it.
type RawCircuit struct {
	Qubits int
	Gates  []RawGate
	Slots  int
}
