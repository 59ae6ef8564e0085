package operator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		op      Operator
		qubits  int
		wantErr string
	}{
		{"empty operator is valid", Operator{}, 3, ""},
		{"matching length", New(T(1, "XIZ")), 3, ""},
		{"too short", New(T(1, "XI")), 3, "length 2, want 3"},
		{"too long", New(T(1, "XIZZ")), 3, "length 4, want 3"},
		{"invalid letter", New(T(1, "XQZ")), 3, `invalid pauli "Q"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate(tt.qubits)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScale(t *testing.T) {
	op := New(T(2, "XZ"), T(-1, "II"))
	scaled := op.Scale(complex(0, 1))

	assert.Equal(t, complex(0, 2), scaled.Terms[0].Coefficient)
	assert.Equal(t, complex(0, -1), scaled.Terms[1].Coefficient)
	assert.Equal(t, complex(2, 0), op.Terms[0].Coefficient, "original is untouched")
}

func TestTermJSONRoundTrip(t *testing.T) {
	op := New(T(1.5, "XZ"), Term{Coefficient: complex(0, -0.5), Paulis: "YI"})

	data, err := json.Marshal(op.Terms)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"coefficient":1.5,"paulis":"XZ"},
		{"coefficient":0,"imag":-0.5,"paulis":"YI"}
	]`, string(data))

	var back []Term
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, op.Terms, back)
}

func TestIsZero(t *testing.T) {
	assert.True(t, Operator{}.IsZero())
	assert.False(t, New(T(0, "I")).IsZero(), "a zero-coefficient term still counts as a term")
}
