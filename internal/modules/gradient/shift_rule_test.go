package gradient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvarlab/qvar/internal/modules/circuit"
)

// twoParamCircuit builds the shared fixture: two parameters feeding two
// rotation gates through mixed affine expressions.
//
//	slot 0 (RZ q0): theta + phi/3 + pi/2
//	slot 1 (RY q1): -phi/2
func twoParamCircuit(t *testing.T) *circuit.ParametricState {
	t.Helper()
	c := circuit.New(2)
	theta := c.Param("theta")
	phi := c.Param("phi")
	c.H(0).
		RZ(0, circuit.Lin(theta, 1).Plus(phi, 1.0/3).Offset(math.Pi/2)).
		RY(1, circuit.Lin(phi, -0.5)).
		CX(0, 1)
	return circuit.NewState(c)
}

func TestBuildRecipes(t *testing.T) {
	state := twoParamCircuit(t)
	mapping, err := state.Mapping()
	require.NoError(t, err)

	values := []float64{0.3, -1.1}
	recipes, err := BuildRecipes(mapping, values)
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	base := mapping.Base(values)
	require.Len(t, base, 2)
	assert.InDelta(t, 0.3-1.1/3+math.Pi/2, base[0], 1e-12)
	assert.InDelta(t, 0.55, base[1], 1e-12)

	// theta appears only in slot 0 with coefficient 1.
	theta := recipes[0]
	assert.Equal(t, 0, theta.Parameter)
	require.Len(t, theta.Terms, 2)
	assert.InDelta(t, 0.5, theta.Terms[0].Coefficient, 1e-15)
	assert.InDelta(t, -0.5, theta.Terms[1].Coefficient, 1e-15)
	assert.InDelta(t, base[0]+math.Pi/2, theta.Terms[0].GateParams[0], 1e-12)
	assert.InDelta(t, base[0]-math.Pi/2, theta.Terms[1].GateParams[0], 1e-12)
	assert.Equal(t, base[1], theta.Terms[0].GateParams[1], "undisplaced slots keep their base value")

	// phi appears in slot 0 (coeff 1/3) and slot 1 (coeff -1/2).
	phi := recipes[1]
	assert.Equal(t, 1, phi.Parameter)
	require.Len(t, phi.Terms, 4)
	assert.InDelta(t, 1.0/6, phi.Terms[0].Coefficient, 1e-15)
	assert.InDelta(t, -1.0/6, phi.Terms[1].Coefficient, 1e-15)
	assert.InDelta(t, -0.25, phi.Terms[2].Coefficient, 1e-15)
	assert.InDelta(t, 0.25, phi.Terms[3].Coefficient, 1e-15)
	assert.InDelta(t, base[1]+math.Pi/2, phi.Terms[2].GateParams[1], 1e-12)
	assert.InDelta(t, base[1]-math.Pi/2, phi.Terms[3].GateParams[1], 1e-12)
}

func TestBuildRecipesDeadParameter(t *testing.T) {
	c := circuit.New(1)
	theta := c.Param("theta")
	c.Param("unused")
	c.H(0).RZ(0, circuit.Lin(theta, 1))
	state := circuit.NewState(c)

	mapping, err := state.Mapping()
	require.NoError(t, err)

	recipes, err := BuildRecipes(mapping, []float64{0.7, 42.0})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Len(t, recipes[0].Terms, 2)
	assert.Empty(t, recipes[1].Terms, "parameter no gate depends on yields no shift terms")
}

func TestBuildRecipesOpaqueSlot(t *testing.T) {
	c := circuit.New(1)
	c.Param("theta")
	c.RZFn(0, func(v []float64) float64 { return math.Sin(v[0]) })
	state := circuit.NewState(c)

	mapping, err := state.Mapping()
	require.NoError(t, err)

	_, err = BuildRecipes(mapping, []float64{0.5})
	require.Error(t, err)
	var mapErr *circuit.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, 0, mapErr.Slot)
}
