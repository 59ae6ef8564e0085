package gradient

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/operator"
	"github.com/qvarlab/qvar/internal/modules/simulator"
)

// countingOracle wraps an oracle and records how it is used, so tests can
// pin down the one-batch-per-gradient contract.
type countingOracle struct {
	inner  ExpectationEstimator
	calls  int
	points int
}

func (c *countingOracle) EstimateBatch(
	ctx context.Context,
	op operator.Operator,
	raw *circuit.RawCircuit,
	points [][]float64,
) ([]complex128, error) {
	c.calls++
	c.points += len(points)
	return c.inner.EstimateBatch(ctx, op, raw, points)
}

func newCountingOracle() *countingOracle {
	return &countingOracle{inner: simulator.NewService(2, zerolog.Nop())}
}

// cosCircuit prepares RZ(theta)H|0>, whose <X> is cos(theta).
func cosCircuit() *circuit.ParametricState {
	c := circuit.New(1)
	theta := c.Param("theta")
	c.H(0).RZ(0, circuit.Lin(theta, 1))
	return circuit.NewState(c)
}

func TestParameterShiftCosine(t *testing.T) {
	oracle := newCountingOracle()
	ps := NewParameterShift(oracle, zerolog.Nop())
	state := cosCircuit()
	opX := operator.New(operator.T(1, "X"))

	for _, theta := range []float64{0, 0.4, math.Pi / 3, -2.2} {
		oracle.calls = 0
		res, err := ps.Estimate(context.Background(), opX, state, []float64{theta})
		require.NoError(t, err)
		require.Len(t, res.Gradient, 1)
		assert.InDelta(t, -math.Sin(theta), real(res.Gradient[0]), 1e-10, "theta=%v", theta)
		assert.InDelta(t, 0, imag(res.Gradient[0]), 1e-10)
		assert.Equal(t, 1, oracle.calls, "one gradient makes exactly one oracle call")
		assert.Equal(t, 2, res.Evaluations)
	}
}

func TestParameterShiftYObservable(t *testing.T) {
	// <Y> of RX(theta)|0> is -sin(theta), so the gradient is -cos(theta).
	ps := NewParameterShift(newCountingOracle(), zerolog.Nop())
	c := circuit.New(1)
	theta := c.Param("theta")
	c.RX(0, circuit.Lin(theta, 1))
	state := circuit.NewState(c)

	for _, v := range []float64{0, 0.8, -1.3} {
		res, err := ps.Estimate(context.Background(), operator.New(operator.T(1, "Y")),
			state, []float64{v})
		require.NoError(t, err)
		assert.InDelta(t, -math.Cos(v), real(res.Gradient[0]), 1e-10, "theta=%v", v)
	}
}

func TestParameterShiftDeadParameterExactZero(t *testing.T) {
	oracle := newCountingOracle()
	ps := NewParameterShift(oracle, zerolog.Nop())

	c := circuit.New(1)
	theta := c.Param("theta")
	c.Param("dead")
	c.H(0).RZ(0, circuit.Lin(theta, 1))

	res, err := ps.Estimate(context.Background(), operator.New(operator.T(1, "X")),
		circuit.NewState(c), []float64{0.9, 123.456})
	require.NoError(t, err)
	require.Len(t, res.Gradient, 2)
	assert.Equal(t, complex(0, 0), res.Gradient[1], "dead parameter is exactly zero, not merely small")
}

func TestParameterShiftNoParametricGates(t *testing.T) {
	oracle := newCountingOracle()
	ps := NewParameterShift(oracle, zerolog.Nop())

	c := circuit.New(2)
	c.Param("a")
	c.H(0).CX(0, 1)

	res, err := ps.Estimate(context.Background(), operator.New(operator.T(1, "ZZ")),
		circuit.NewState(c), []float64{1.5})
	require.NoError(t, err)
	assert.Equal(t, []complex128{0}, res.Gradient)
	assert.Equal(t, 0, oracle.calls, "no dependent slots means no oracle call at all")
}

func TestParameterShiftDimensionMismatch(t *testing.T) {
	ps := NewParameterShift(newCountingOracle(), zerolog.Nop())
	state := cosCircuit()

	_, err := ps.Estimate(context.Background(), operator.New(operator.T(1, "X")), state, []float64{1, 2})
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 1, dimErr.Want)
	assert.Equal(t, 2, dimErr.Got)
}

func TestParameterShiftOpaqueCircuitFailsFast(t *testing.T) {
	oracle := newCountingOracle()
	ps := NewParameterShift(oracle, zerolog.Nop())

	c := circuit.New(1)
	c.Param("theta")
	c.H(0).RZFn(0, func(v []float64) float64 { return v[0] * v[0] })

	_, err := ps.Estimate(context.Background(), operator.New(operator.T(1, "X")),
		circuit.NewState(c), []float64{0.5})
	var mapErr *circuit.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, 0, oracle.calls, "non-affine circuits are rejected before the oracle runs")
}

func TestParameterShiftLinearity(t *testing.T) {
	ps := NewParameterShift(newCountingOracle(), zerolog.Nop())
	state := twoParamCircuit(t)
	values := []float64{0.3, -0.8}

	op := operator.New(operator.T(0.7, "XI"), operator.T(-1.3, "ZZ"))
	res, err := ps.Estimate(context.Background(), op, state, values)
	require.NoError(t, err)

	scaled, err := ps.Estimate(context.Background(), op.Scale(complex(2.5, 0)), state, values)
	require.NoError(t, err)

	for j := range res.Gradient {
		assert.InDelta(t, 2.5*real(res.Gradient[j]), real(scaled.Gradient[j]), 1e-10)
	}
}

func TestParameterShiftEmptyOperator(t *testing.T) {
	ps := NewParameterShift(newCountingOracle(), zerolog.Nop())
	state := cosCircuit()

	res, err := ps.Estimate(context.Background(), operator.Operator{}, state, []float64{0.4})
	require.NoError(t, err)
	assert.Equal(t, complex(0, 0), res.Gradient[0])
}

func TestParameterShiftBatchBound(t *testing.T) {
	oracle := newCountingOracle()
	ps := NewParameterShift(oracle, zerolog.Nop())
	state := twoParamCircuit(t)

	res, err := ps.Estimate(context.Background(), operator.New(operator.T(1, "XZ")),
		state, []float64{0.1, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.calls)
	assert.LessOrEqual(t, oracle.points, 6)
	assert.Equal(t, 4, res.Evaluations, "shared slot displacements collapse under deduplication")
}

func TestFiniteDifferenceValidation(t *testing.T) {
	_, err := NewFiniteDifference(newCountingOracle(), 0, zerolog.Nop())
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)

	_, err = NewFiniteDifference(newCountingOracle(), -1e-4, zerolog.Nop())
	require.Error(t, err)

	fd, err := NewFiniteDifference(newCountingOracle(), 1e-4, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1e-4, fd.Delta())
}

func TestFiniteDifferenceWithDelta(t *testing.T) {
	fd, err := NewFiniteDifference(newCountingOracle(), 1e-4, zerolog.Nop())
	require.NoError(t, err)

	coarse, err := fd.WithDelta(1e-2)
	require.NoError(t, err)
	assert.Equal(t, 1e-2, coarse.Delta())
	assert.Equal(t, 1e-4, fd.Delta(), "original estimator is untouched")

	_, err = fd.WithDelta(0)
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
}

func TestFiniteDifferenceEmptyOperator(t *testing.T) {
	fd, err := NewFiniteDifference(newCountingOracle(), 1e-4, zerolog.Nop())
	require.NoError(t, err)

	res, err := fd.Estimate(context.Background(), operator.Operator{}, cosCircuit(), []float64{0.4})
	require.NoError(t, err)
	assert.Equal(t, complex(0, 0), res.Gradient[0])
}

func TestFiniteDifferenceMatchesParameterShift(t *testing.T) {
	oracle := newCountingOracle()
	ps := NewParameterShift(oracle, zerolog.Nop())
	fd, err := NewFiniteDifference(oracle, 1e-4, zerolog.Nop())
	require.NoError(t, err)

	state := twoParamCircuit(t)
	op := operator.New(operator.T(1, "XI"), operator.T(0.5, "ZZ"), operator.T(-0.25, "IY"))
	values := []float64{0.45, -1.2}

	exact, err := ps.Estimate(context.Background(), op, state, values)
	require.NoError(t, err)
	approx, err := fd.Estimate(context.Background(), op, state, values)
	require.NoError(t, err)

	require.Len(t, approx.Gradient, len(exact.Gradient))
	for j := range exact.Gradient {
		assert.InDelta(t, real(exact.Gradient[j]), real(approx.Gradient[j]), 1e-3,
			"parameter %d", j)
	}
}

func TestFiniteDifferenceHandlesOpaqueCircuit(t *testing.T) {
	oracle := newCountingOracle()
	fd, err := NewFiniteDifference(oracle, 1e-5, zerolog.Nop())
	require.NoError(t, err)

	// RZ(sin(theta))H|0>: <X> = cos(sin(theta)), so the derivative is
	// -sin(sin(theta)) * cos(theta). The analytic path rejects this
	// circuit; the numeric one differentiates through the mapping.
	c := circuit.New(1)
	c.Param("theta")
	c.H(0).RZFn(0, func(v []float64) float64 { return math.Sin(v[0]) })
	state := circuit.NewState(c)

	theta := 0.8
	res, err := fd.Estimate(context.Background(), operator.New(operator.T(1, "X")),
		state, []float64{theta})
	require.NoError(t, err)
	want := -math.Sin(math.Sin(theta)) * math.Cos(theta)
	assert.InDelta(t, want, real(res.Gradient[0]), 1e-6)
	assert.Equal(t, 1, oracle.calls)
}

func TestFiniteDifferenceDimensionMismatch(t *testing.T) {
	fd, err := NewFiniteDifference(newCountingOracle(), 1e-4, zerolog.Nop())
	require.NoError(t, err)

	_, err = fd.Estimate(context.Background(), operator.New(operator.T(1, "X")),
		cosCircuit(), []float64{})
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
}
