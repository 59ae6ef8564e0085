package circuit

import "fmt"

// MappingError indicates that a gate parameter's dependency on circuit
// parameters cannot be expressed in the affine form the parameter-shift
// rule requires. It surfaces at circuit-binding time, before any
// expectation evaluation.
type MappingError struct {
	Slot   int
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("gate-parameter slot %d: %s", e.Slot, e.Reason)
}

// slotExpr is the mapping's view of one gate-parameter slot. Affine slots
// carry a dense coefficient row indexed by circuit-parameter index; opaque
// slots carry only an evaluator.
type slotExpr struct {
	coeffs []float64 // nil for opaque slots
	konst  float64
	fn     func(values []float64) float64
}

// Mapping is the ordered association between gate-parameter slots and
// circuit parameters: one expression per slot. It is derived lazily from a
// circuit and memoized for the circuit's lifetime.
type Mapping struct {
	slots   []slotExpr
	nParams int
}

// SlotCount returns the number of gate-parameter slots.
func (m *Mapping) SlotCount() int {
	return len(m.slots)
}

// ParameterCount returns the number of circuit parameters the mapping spans.
func (m *Mapping) ParameterCount() int {
	return m.nParams
}

// Base evaluates every slot at the given circuit-parameter values,
// producing the unshifted gate-parameter vector.
func (m *Mapping) Base(values []float64) []float64 {
	out := make([]float64, len(m.slots))
	for k, s := range m.slots {
		if s.fn != nil {
			out[k] = s.fn(values)
			continue
		}
		v := s.konst
		for j, c := range s.coeffs {
			if c != 0 {
				v += c * values[j]
			}
		}
		out[k] = v
	}
	return out
}

// Coefficients returns the dense slot-by-parameter coefficient rows of the
// mapping. It fails with MappingError if any slot has an opaque (non-affine)
// dependency; such circuits are unsupported by the analytic gradient path.
func (m *Mapping) Coefficients() ([][]float64, error) {
	rows := make([][]float64, len(m.slots))
	for k, s := range m.slots {
		if s.fn != nil {
			return nil, &MappingError{Slot: k, Reason: "gate parameter is not an affine function of circuit parameters"}
		}
		rows[k] = s.coeffs
	}
	return rows, nil
}

// buildMapping derives the mapping and raw circuit from the gate list.
// Called exactly once per circuit, behind the circuit's sync.Once guard.
func buildMapping(qubits int, gates []Gate, nParams int) (*Mapping, *RawCircuit, error) {
	m := &Mapping{nParams: nParams}
	raw := &RawCircuit{Qubits: qubits}

	for gi, g := range gates {
		if !g.Type.IsParametric() {
			if g.Expr != nil || g.ParamFn != nil {
				return nil, nil, fmt.Errorf("gate %d (%s): non-parametric gate carries a parameter expression", gi, g.Type)
			}
			raw.Gates = append(raw.Gates, RawGate{Type: g.Type, Target: g.Target, Control: g.Control, Slot: -1})
			continue
		}

		slot := len(m.slots)
		switch {
		case g.Expr != nil && g.ParamFn != nil:
			return nil, nil, &MappingError{Slot: slot, Reason: "gate parameter carries both an affine expression and an opaque evaluator"}
		case g.Expr != nil:
			coeffs := make([]float64, nParams)
			for _, t := range g.Expr.Terms {
				if t.Param.Index < 0 || t.Param.Index >= nParams {
					return nil, nil, &MappingError{
						Slot:   slot,
						Reason: fmt.Sprintf("expression references parameter index %d, circuit declares %d parameters", t.Param.Index, nParams),
					}
				}
				coeffs[t.Param.Index] += t.Coeff
			}
			m.slots = append(m.slots, slotExpr{coeffs: coeffs, konst: g.Expr.Const})
		case g.ParamFn != nil:
			m.slots = append(m.slots, slotExpr{fn: g.ParamFn})
		default:
			return nil, nil, &MappingError{Slot: slot, Reason: "parametric gate has no parameter expression"}
		}
		raw.Gates = append(raw.Gates, RawGate{Type: g.Type, Target: g.Target, Control: g.Control, Slot: slot})
	}

	raw.Slots = len(m.slots)
	return m, raw, nil
}
