package gradient

import (
	"math"

	"github.com/qvarlab/qvar/internal/modules/circuit"
)

// shiftAmount is the gate-parameter displacement of the two-term
// parameter-shift rule for rotation gates generated by a Pauli over two.
const shiftAmount = math.Pi / 2

// BuildRecipes derives one parameter-shift recipe per circuit parameter at
// the given values. A parameter that appears in the expression of n
// gate-parameter slots yields 2n shift terms; each slot contributes a
// +pi/2 and a -pi/2 displacement weighted by +-0.5 times the slot's
// coefficient on that parameter. Parameters no slot depends on yield an
// empty recipe.
//
// BuildRecipes fails with circuit.MappingError when any slot's dependency
// on the circuit parameters is not affine.
func BuildRecipes(m *circuit.Mapping, values []float64) ([]Recipe, error) {
	rows, err := m.Coefficients()
	if err != nil {
		return nil, err
	}
	base := m.Base(values)

	recipes := make([]Recipe, m.ParameterCount())
	for j := range recipes {
		recipes[j].Parameter = j
		for k, row := range rows {
			c := row[j]
			if c == 0 {
				continue
			}
			plus := shifted(base, k, +shiftAmount)
			minus := shifted(base, k, -shiftAmount)
			recipes[j].Terms = append(recipes[j].Terms,
				ShiftTerm{GateParams: plus, Coefficient: 0.5 * c},
				ShiftTerm{GateParams: minus, Coefficient: -0.5 * c},
			)
		}
	}
	return recipes, nil
}

// shifted copies base with slot k displaced by delta.
func shifted(base []float64, k int, delta float64) []float64 {
	out := make([]float64, len(base))
	copy(out, base)
	out[k] += delta
	return out
}
