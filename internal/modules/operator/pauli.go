// Package operator provides Pauli-sum observables: weighted sums of
// tensor products of single-qubit Pauli matrices.
package operator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Term is one weighted Pauli string. Paulis holds one letter per qubit
// from {I, X, Y, Z}, position i addressing qubit i. Coefficients may be
// complex; duplicate strings across terms are tolerated (expectation is
// linear, so they simply accumulate).
type Term struct {
	Coefficient complex128
	Paulis      string
}

// termJSON is the wire form of a Term; complex128 has no native JSON
// representation.
type termJSON struct {
	Coefficient float64 `json:"coefficient"`
	Imag        float64 `json:"imag,omitempty"`
	Paulis      string  `json:"paulis"`
}

// MarshalJSON implements json.Marshaler.
func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal(termJSON{
		Coefficient: real(t.Coefficient),
		Imag:        imag(t.Coefficient),
		Paulis:      t.Paulis,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Term) UnmarshalJSON(data []byte) error {
	var w termJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Coefficient = complex(w.Coefficient, w.Imag)
	t.Paulis = w.Paulis
	return nil
}

// Operator is a weighted sum of Pauli terms. The zero value is the empty
// operator, whose expectation is identically zero.
type Operator struct {
	Terms []Term
}

// New builds an operator from terms.
func New(terms ...Term) Operator {
	return Operator{Terms: terms}
}

// T is a convenience constructor for a term with a real coefficient.
func T(coeff float64, paulis string) Term {
	return Term{Coefficient: complex(coeff, 0), Paulis: paulis}
}

// IsZero reports whether the operator has no terms.
func (o Operator) IsZero() bool {
	return len(o.Terms) == 0
}

// Scale returns the operator multiplied by a scalar.
func (o Operator) Scale(k complex128) Operator {
	terms := make([]Term, len(o.Terms))
	for i, t := range o.Terms {
		terms[i] = Term{Coefficient: k * t.Coefficient, Paulis: t.Paulis}
	}
	return Operator{Terms: terms}
}

// Validate checks that every term spans exactly qubits qubits and uses
// only I, X, Y, Z.
func (o Operator) Validate(qubits int) error {
	for i, t := range o.Terms {
		if len(t.Paulis) != qubits {
			return fmt.Errorf("term %d: pauli string %q has length %d, want %d", i, t.Paulis, len(t.Paulis), qubits)
		}
		if j := strings.IndexFunc(t.Paulis, func(r rune) bool {
			return r != 'I' && r != 'X' && r != 'Y' && r != 'Z'
		}); j >= 0 {
			return fmt.Errorf("term %d: invalid pauli %q at qubit %d", i, string(t.Paulis[j]), j)
		}
	}
	return nil
}

func (o Operator) String() string {
	if o.IsZero() {
		return "0"
	}
	parts := make([]string, len(o.Terms))
	for i, t := range o.Terms {
		parts[i] = fmt.Sprintf("(%g%+gi)*%s", real(t.Coefficient), imag(t.Coefficient), t.Paulis)
	}
	return strings.Join(parts, " + ")
}
