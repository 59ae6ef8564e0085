package circuit

import (
	"fmt"
	"sync"
)

// Circuit is a parametric quantum circuit under construction. Gates are
// appended in execution order; free parameters are allocated with Param.
// The mapping and raw circuit are derived lazily on first use and cached
// for the circuit's lifetime (they change only if the structure changes,
// and the structure is fixed once derived).
type Circuit struct {
	qubits int
	params []Parameter
	gates  []Gate

	once    sync.Once
	mapping *Mapping
	raw     *RawCircuit
	deriveE error
}

// New creates an empty circuit over the given number of qubits.
func New(qubits int) *Circuit {
	return &Circuit{qubits: qubits}
}

// Qubits returns the circuit width.
func (c *Circuit) Qubits() int {
	return c.qubits
}

// ParameterCount returns the number of free circuit parameters.
func (c *Circuit) ParameterCount() int {
	return len(c.params)
}

// Parameters returns the declared parameters in index order.
func (c *Circuit) Parameters() []Parameter {
	out := make([]Parameter, len(c.params))
	copy(out, c.params)
	return out
}

// Param allocates a new free parameter with the next dense index.
func (c *Circuit) Param(name string) Parameter {
	p := Parameter{Index: len(c.params), Name: name}
	c.params = append(c.params, p)
	return p
}

// Add appends a gate. Returns the circuit for chaining.
func (c *Circuit) Add(g Gate) *Circuit {
	if g.Type != GateCX && g.Type != GateCZ {
		g.Control = -1
	}
	c.gates = append(c.gates, g)
	return c
}

// H appends a Hadamard gate.
func (c *Circuit) H(q int) *Circuit { return c.Add(Gate{Type: GateH, Target: q}) }

// X appends a Pauli-X gate.
func (c *Circuit) X(q int) *Circuit { return c.Add(Gate{Type: GateX, Target: q}) }

// Y appends a Pauli-Y gate.
func (c *Circuit) Y(q int) *Circuit { return c.Add(Gate{Type: GateY, Target: q}) }

// Z appends a Pauli-Z gate.
func (c *Circuit) Z(q int) *Circuit { return c.Add(Gate{Type: GateZ, Target: q}) }

// S appends a phase gate.
func (c *Circuit) S(q int) *Circuit { return c.Add(Gate{Type: GateS, Target: q}) }

// CX appends a controlled-X gate.
func (c *Circuit) CX(control, target int) *Circuit {
	return c.Add(Gate{Type: GateCX, Target: target, Control: control})
}

// CZ appends a controlled-Z gate.
func (c *Circuit) CZ(control, target int) *Circuit {
	return c.Add(Gate{Type: GateCZ, Target: target, Control: control})
}

// RX appends an X-rotation with an affine angle expression.
func (c *Circuit) RX(q int, expr Expression) *Circuit {
	return c.Add(Gate{Type: GateRX, Target: q, Expr: &expr})
}

// RY appends a Y-rotation with an affine angle expression.
func (c *Circuit) RY(q int, expr Expression) *Circuit {
	return c.Add(Gate{Type: GateRY, Target: q, Expr: &expr})
}

// RZ appends a Z-rotation with an affine angle expression.
func (c *Circuit) RZ(q int, expr Expression) *Circuit {
	return c.Add(Gate{Type: GateRZ, Target: q, Expr: &expr})
}

// RXFn, RYFn, RZFn append rotations whose angle is an opaque function of
// the circuit parameters. Such gates are evaluable (and differentiable
// numerically) but unsupported by the analytic parameter-shift path.
func (c *Circuit) RXFn(q int, fn func([]float64) float64) *Circuit {
	return c.Add(Gate{Type: GateRX, Target: q, ParamFn: fn})
}

func (c *Circuit) RYFn(q int, fn func([]float64) float64) *Circuit {
	return c.Add(Gate{Type: GateRY, Target: q, ParamFn: fn})
}

func (c *Circuit) RZFn(q int, fn func([]float64) float64) *Circuit {
	return c.Add(Gate{Type: GateRZ, Target: q, ParamFn: fn})
}

// derive builds the mapping and raw circuit exactly once. Safe to call
// from concurrent callers; the first caller does the work.
func (c *Circuit) derive() {
	c.once.Do(func() {
		c.mapping, c.raw, c.deriveE = buildMapping(c.qubits, c.gates, len(c.params))
	})
}

// Mapping returns the memoized parameter mapping.
func (c *Circuit) Mapping() (*Mapping, error) {
	c.derive()
	if c.deriveE != nil {
		return nil, c.deriveE
	}
	return c.mapping, nil
}

// Raw returns the memoized unbound circuit.
func (c *Circuit) Raw() (*RawCircuit, error) {
	c.derive()
	if c.deriveE != nil {
		return nil, c.deriveE
	}
	return c.raw, nil
}

// ParametricState is a quantum state defined by a parametric circuit
// applied to |0...0>. It is what gradient estimators operate on.
type ParametricState struct {
	circuit *Circuit
}

// NewState wraps a circuit as a parametric state.
func NewState(c *Circuit) *ParametricState {
	return &ParametricState{circuit: c}
}

// Qubits returns the state's qubit count.
func (s *ParametricState) Qubits() int {
	return s.circuit.Qubits()
}

// ParameterCount returns the number of free circuit parameters.
func (s *ParametricState) ParameterCount() int {
	return s.circuit.ParameterCount()
}

// Mapping returns the circuit's memoized parameter mapping.
func (s *ParametricState) Mapping() (*Mapping, error) {
	return s.circuit.Mapping()
}

// Raw returns the circuit's memoized unbound representation.
func (s *ParametricState) Raw() (*RawCircuit, error) {
	return s.circuit.Raw()
}

// GateVector evaluates the gate-parameter vector for the given
// circuit-parameter values.
func (s *ParametricState) GateVector(values []float64) ([]float64, error) {
	if len(values) != s.ParameterCount() {
		return nil, fmt.Errorf("expected %d parameter values, got %d", s.ParameterCount(), len(values))
	}
	m, err := s.Mapping()
	if err != nil {
		return nil, err
	}
	return m.Base(values), nil
}
