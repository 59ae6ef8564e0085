package circuit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressionValue(t *testing.T) {
	p0 := Parameter{Index: 0, Name: "a"}
	p1 := Parameter{Index: 1, Name: "b"}

	tests := []struct {
		name   string
		expr   Expression
		values []float64
		want   float64
	}{
		{"constant", Constant(2.5), []float64{9, 9}, 2.5},
		{"single term", Lin(p0, 3), []float64{2, 0}, 6},
		{"affine", Lin(p0, 1).Plus(p1, 1.0/3).Offset(math.Pi / 2), []float64{0.3, -0.6}, 0.3 - 0.2 + math.Pi/2},
		{"repeated parameter accumulates", Lin(p0, 1).Plus(p0, 2), []float64{5, 0}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.expr.Value(tt.values), 1e-12)
		})
	}
}

func TestParamAssignsDenseIndices(t *testing.T) {
	c := New(2)
	a := c.Param("a")
	b := c.Param("b")

	assert.Equal(t, 0, a.Index)
	assert.Equal(t, 1, b.Index)
	assert.Equal(t, 2, c.ParameterCount())
	assert.Equal(t, []Parameter{a, b}, c.Parameters())
}

func TestMappingDerivation(t *testing.T) {
	c := New(2)
	theta := c.Param("theta")
	phi := c.Param("phi")
	c.H(0).
		RZ(0, Lin(theta, 1).Plus(phi, 1.0/3).Offset(math.Pi/2)).
		RY(1, Lin(phi, -0.5)).
		CX(0, 1)

	m, err := c.Mapping()
	require.NoError(t, err)
	assert.Equal(t, 2, m.SlotCount())
	assert.Equal(t, 2, m.ParameterCount())

	rows, err := m.Coefficients()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1.0 / 3}, {0, -0.5}}, rows)

	base := m.Base([]float64{0.6, 0.9})
	assert.InDelta(t, 0.6+0.3+math.Pi/2, base[0], 1e-12)
	assert.InDelta(t, -0.45, base[1], 1e-12)

	raw, err := c.Raw()
	require.NoError(t, err)
	assert.Equal(t, 2, raw.Slots)
	require.Len(t, raw.Gates, 4)
	assert.Equal(t, -1, raw.Gates[0].Slot, "non-parametric gates carry no slot")
	assert.Equal(t, 0, raw.Gates[1].Slot)
	assert.Equal(t, 1, raw.Gates[2].Slot)
	assert.Equal(t, 0, raw.Gates[3].Control)
}

func TestMappingConstantSlot(t *testing.T) {
	c := New(1)
	c.Param("unused")
	c.RX(0, Constant(math.Pi/4))

	m, err := c.Mapping()
	require.NoError(t, err)
	rows, err := m.Coefficients()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}}, rows)
	assert.InDelta(t, math.Pi/4, m.Base([]float64{3.0})[0], 1e-12)
}

func TestMappingOpaqueSlot(t *testing.T) {
	c := New(1)
	c.Param("theta")
	c.RZFn(0, func(v []float64) float64 { return v[0] * v[0] })

	m, err := c.Mapping()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, m.Base([]float64{0.5})[0], 1e-12)

	_, err = m.Coefficients()
	var mapErr *MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, 0, mapErr.Slot)
}

func TestMappingRejectsOutOfRangeParameter(t *testing.T) {
	c := New(1)
	c.RZ(0, Lin(Parameter{Index: 3, Name: "ghost"}, 1))

	_, err := c.Mapping()
	var mapErr *MappingError
	require.ErrorAs(t, err, &mapErr)
}

func TestMappingRejectsBareParametricGate(t *testing.T) {
	c := New(1)
	c.Add(Gate{Type: GateRX, Target: 0})

	_, err := c.Raw()
	require.Error(t, err)
}

func TestGateVector(t *testing.T) {
	c := New(1)
	theta := c.Param("theta")
	c.RZ(0, Lin(theta, 2))
	state := NewState(c)

	vec, err := state.GateVector([]float64{0.7})
	require.NoError(t, err)
	assert.InDelta(t, 1.4, vec[0], 1e-12)

	_, err = state.GateVector([]float64{1, 2})
	require.Error(t, err)
}
