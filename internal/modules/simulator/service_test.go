package simulator

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

func TestNewServiceDefaultsWorkers(t *testing.T) {
	svc := NewService(0, zerolog.Nop())
	assert.GreaterOrEqual(t, svc.NumWorkers(), 2)

	svc = NewService(7, zerolog.Nop())
	assert.Equal(t, 7, svc.NumWorkers())
}

func TestEstimateBatchPreservesOrder(t *testing.T) {
	c := circuit.New(1)
	theta := c.Param("theta")
	c.H(0).RZ(0, circuit.Lin(theta, 1))
	raw, err := c.Raw()
	require.NoError(t, err)

	angles := []float64{0, 0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75}
	points := make([][]float64, len(angles))
	for i, a := range angles {
		points[i] = []float64{a}
	}

	svc := NewService(3, zerolog.Nop())
	values, err := svc.EstimateBatch(context.Background(),
		operator.New(operator.T(1, "X")), raw, points)
	require.NoError(t, err)
	require.Len(t, values, len(angles))
	for i, a := range angles {
		assert.InDelta(t, math.Cos(a), real(values[i]), 1e-12, "point %d", i)
	}
}

func TestEstimateBatchEmpty(t *testing.T) {
	c := circuit.New(1)
	c.H(0)
	raw, err := c.Raw()
	require.NoError(t, err)

	svc := NewService(2, zerolog.Nop())
	values, err := svc.EstimateBatch(context.Background(),
		operator.New(operator.T(1, "Z")), raw, nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestEstimateBatchRejectsInvalidOperator(t *testing.T) {
	c := circuit.New(2)
	c.H(0)
	raw, err := c.Raw()
	require.NoError(t, err)

	svc := NewService(2, zerolog.Nop())
	_, err = svc.EstimateBatch(context.Background(),
		operator.New(operator.T(1, "X")), raw, [][]float64{{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operator")
}

func TestEstimateBatchPropagatesPointError(t *testing.T) {
	c := circuit.New(1)
	theta := c.Param("theta")
	c.RZ(0, circuit.Lin(theta, 1))
	raw, err := c.Raw()
	require.NoError(t, err)

	svc := NewService(2, zerolog.Nop())
	_, err = svc.EstimateBatch(context.Background(),
		operator.New(operator.T(1, "Z")), raw,
		[][]float64{{0.1}, {0.2, 0.3}})
	require.Error(t, err)
}

func TestEstimateBatchCanceledContext(t *testing.T) {
	c := circuit.New(1)
	c.H(0)
	raw, err := c.Raw()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(2, zerolog.Nop())
	_, err = svc.EstimateBatch(ctx, operator.New(operator.T(1, "Z")), raw,
		[][]float64{{}, {}, {}})
	require.ErrorIs(t, err, context.Canceled)
}
