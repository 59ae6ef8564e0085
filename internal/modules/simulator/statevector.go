// Package simulator provides the in-process expectation oracle: a dense
// state-vector simulator that evaluates Pauli-sum expectation values for
// batches of gate-parameter vectors.
package simulator

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

// StateVector is a dense amplitude vector over 2^Qubits basis states.
type StateVector struct {
	Amps   []complex128
	Qubits int
}

// NewStateVector creates |0...0> over the given number of qubits.
func NewStateVector(qubits int) *StateVector {
	amps := make([]complex128, 1<<qubits)
	amps[0] = 1
	return &StateVector{Amps: amps, Qubits: qubits}
}

// Clone returns a deep copy of the state.
func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amps))
	copy(amps, s.Amps)
	return &StateVector{Amps: amps, Qubits: s.Qubits}
}

// Run executes the raw circuit on |0...0> with the given gate-parameter
// vector (one angle per slot) and returns the resulting state.
func Run(raw *circuit.RawCircuit, gateParams []float64) (*StateVector, error) {
	if len(gateParams) != raw.Slots {
		return nil, fmt.Errorf("expected %d gate-parameter values, got %d", raw.Slots, len(gateParams))
	}
	s := NewStateVector(raw.Qubits)
	for i, g := range raw.Gates {
		var theta float64
		if g.Slot >= 0 {
			theta = gateParams[g.Slot]
		}
		if err := s.apply(g, theta); err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *StateVector) apply(g circuit.RawGate, theta float64) error {
	switch g.Type {
	case circuit.GateH:
		s.applyH(g.Target)
	case circuit.GateX:
		s.applyX(g.Target)
	case circuit.GateY:
		s.applyY(g.Target)
	case circuit.GateZ:
		s.applyZ(g.Target)
	case circuit.GateS:
		s.applyS(g.Target)
	case circuit.GateRX:
		s.applyRX(g.Target, theta)
	case circuit.GateRY:
		s.applyRY(g.Target, theta)
	case circuit.GateRZ:
		s.applyRZ(g.Target, theta)
	case circuit.GateCX:
		s.applyCX(g.Control, g.Target)
	case circuit.GateCZ:
		s.applyCZ(g.Control, g.Target)
	default:
		return fmt.Errorf("unsupported gate type %q", g.Type)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	h := complex(1.0/math.Sqrt2, 0)
	bit := 1 << q
	for i := range s.Amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amps[i], s.Amps[j]
			s.Amps[i] = h * (a + b)
			s.Amps[j] = h * (a - b)
		}
	}
}

func (s *StateVector) applyX(q int) {
	bit := 1 << q
	for i := range s.Amps {
		if i&bit == 0 {
			j := i | bit
			s.Amps[i], s.Amps[j] = s.Amps[j], s.Amps[i]
		}
	}
}

func (s *StateVector) applyY(q int) {
	bit := 1 << q
	for i := range s.Amps {
		if i&bit == 0 {
			j := i | bit
			s.Amps[i], s.Amps[j] = -1i*s.Amps[j], 1i*s.Amps[i]
		}
	}
}

func (s *StateVector) applyZ(q int) {
	bit := 1 << q
	for i := range s.Amps {
		if i&bit != 0 {
			s.Amps[i] = -s.Amps[i]
		}
	}
}

func (s *StateVector) applyS(q int) {
	bit := 1 << q
	for i := range s.Amps {
		if i&bit != 0 {
			s.Amps[i] *= 1i
		}
	}
}

// applyRX applies exp(-i*theta*X/2).
func (s *StateVector) applyRX(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	for i := range s.Amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amps[i], s.Amps[j]
			s.Amps[i] = c*a + js*b
			s.Amps[j] = js*a + c*b
		}
	}
}

// applyRY applies exp(-i*theta*Y/2).
func (s *StateVector) applyRY(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	for i := range s.Amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amps[i], s.Amps[j]
			s.Amps[i] = c*a - sn*b
			s.Amps[j] = sn*a + c*b
		}
	}
}

// applyRZ applies exp(-i*theta*Z/2) = diag(exp(-i*theta/2), exp(+i*theta/2)).
func (s *StateVector) applyRZ(q int, theta float64) {
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	conj := cmplx.Conj(phase)
	for i := range s.Amps {
		if i&bit != 0 {
			s.Amps[i] *= phase
		} else {
			s.Amps[i] *= conj
		}
	}
}

func (s *StateVector) applyCX(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.Amps {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.Amps[i], s.Amps[j] = s.Amps[j], s.Amps[i]
		}
	}
}

func (s *StateVector) applyCZ(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.Amps {
		if i&cBit != 0 && i&tBit != 0 {
			s.Amps[i] = -s.Amps[i]
		}
	}
}

// applyPauli applies one Pauli string in place.
func (s *StateVector) applyPauli(paulis string) {
	for q := 0; q < len(paulis); q++ {
		switch paulis[q] {
		case 'X':
			s.applyX(q)
		case 'Y':
			s.applyY(q)
		case 'Z':
			s.applyZ(q)
		}
	}
}

// Expectation computes <psi|O|psi> for a Pauli-sum operator. Duplicate
// terms and complex coefficients accumulate linearly; an empty operator
// yields exactly zero.
func (s *StateVector) Expectation(op operator.Operator) complex128 {
	var total complex128
	for _, t := range op.Terms {
		phi := s.Clone()
		phi.applyPauli(t.Paulis)
		var inner complex128
		for i := range s.Amps {
			inner += cmplx.Conj(s.Amps[i]) * phi.Amps[i]
		}
		total += t.Coefficient * inner
	}
	return total
}
