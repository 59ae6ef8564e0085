package vqe

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvarlab/qvar/internal/modules/gradient"
	"github.com/qvarlab/qvar/internal/modules/operator"
	"github.com/qvarlab/qvar/internal/modules/simulator"
)

func TestBuildAnsatz(t *testing.T) {
	tests := []struct {
		name       string
		spec       AnsatzSpec
		wantParams int
		wantErr    bool
	}{
		{"one layer two qubits", AnsatzSpec{Name: "hardware_efficient", Qubits: 2, Layers: 1}, 4, false},
		{"default family", AnsatzSpec{Qubits: 3, Layers: 2}, 12, false},
		{"zero layers", AnsatzSpec{Qubits: 2, Layers: 0}, 0, true},
		{"too many qubits", AnsatzSpec{Qubits: 30, Layers: 1}, 0, true},
		{"unknown family", AnsatzSpec{Name: "dreamy", Qubits: 2, Layers: 1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := BuildAnsatz(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantParams, state.ParameterCount())
			assert.Equal(t, tt.spec.Qubits, state.Qubits())
		})
	}
}

func TestDriverMinimizesSingleQubit(t *testing.T) {
	oracle := simulator.NewService(2, zerolog.Nop())
	estimator := gradient.NewParameterShift(oracle, zerolog.Nop())
	driver := NewDriver(oracle, estimator, zerolog.Nop())

	// <Z> of RY(theta)|0> is cos(theta); the minimum is -1 at theta = pi.
	state, err := BuildAnsatz(AnsatzSpec{Qubits: 1, Layers: 1})
	require.NoError(t, err)
	require.Equal(t, 2, state.ParameterCount())

	op := operator.New(operator.T(1, "Z"))
	var iterations, lastEvals int
	result, err := driver.Drive(context.Background(), op, state,
		[]float64{0.4, 0.0}, 200, 1e-8,
		func(it, evals int, energy, gradNorm float64) {
			iterations = it + 1
			assert.GreaterOrEqual(t, evals, lastEvals, "evaluation count only grows")
			lastEvals = evals
		})
	require.NoError(t, err)

	assert.InDelta(t, -1.0, result.Energy, 1e-6)
	assert.Greater(t, result.Evaluations, 0)
	assert.Greater(t, iterations, 0)
	assert.Greater(t, lastEvals, 0, "progress reports the running evaluation count")
	assert.LessOrEqual(t, lastEvals, result.Evaluations)
	assert.InDelta(t, 1.0, math.Abs(result.Values[0]/math.Pi), 1e-4,
		"RY angle lands on an odd multiple of pi")
}

func TestDriverDimensionMismatch(t *testing.T) {
	oracle := simulator.NewService(2, zerolog.Nop())
	estimator := gradient.NewParameterShift(oracle, zerolog.Nop())
	driver := NewDriver(oracle, estimator, zerolog.Nop())

	state, err := BuildAnsatz(AnsatzSpec{Qubits: 1, Layers: 1})
	require.NoError(t, err)

	_, err = driver.Drive(context.Background(), operator.New(operator.T(1, "Z")),
		state, []float64{0.1}, 0, 0, nil)
	var dimErr *gradient.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
}
