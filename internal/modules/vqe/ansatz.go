package vqe

import (
	"fmt"

	"github.com/qvarlab/qvar/internal/modules/circuit"
)

// BuildAnsatz constructs the parametric circuit for a registered ansatz
// family. The hardware-efficient ansatz alternates per-qubit RY and RZ
// rotation layers with a CX entangling chain; every rotation gets its own
// circuit parameter.
func BuildAnsatz(spec AnsatzSpec) (*circuit.ParametricState, error) {
	if spec.Qubits < 1 || spec.Qubits > 20 {
		return nil, fmt.Errorf("ansatz qubit count %d out of range [1, 20]", spec.Qubits)
	}
	if spec.Layers < 1 {
		return nil, fmt.Errorf("ansatz needs at least one layer, got %d", spec.Layers)
	}

	switch spec.Name {
	case "", "hardware_efficient":
		return hardwareEfficient(spec.Qubits, spec.Layers), nil
	default:
		return nil, fmt.Errorf("unknown ansatz family %q", spec.Name)
	}
}

func hardwareEfficient(qubits, layers int) *circuit.ParametricState {
	c := circuit.New(qubits)
	for l := 0; l < layers; l++ {
		for q := 0; q < qubits; q++ {
			c.RY(q, circuit.Lin(c.Param(fmt.Sprintf("ry_%d_%d", l, q)), 1))
		}
		for q := 0; q < qubits; q++ {
			c.RZ(q, circuit.Lin(c.Param(fmt.Sprintf("rz_%d_%d", l, q)), 1))
		}
		for q := 0; q+1 < qubits; q++ {
			c.CX(q, q+1)
		}
	}
	return circuit.NewState(c)
}
