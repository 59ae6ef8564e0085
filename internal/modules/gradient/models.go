package gradient

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

// ShiftTerm is one weighted expectation evaluation in a parameter-shift
// recipe: Coefficient * <O> at the given gate-parameter vector.
type ShiftTerm struct {
	GateParams  []float64 `json:"gate_params"`
	Coefficient float64   `json:"coefficient"`
}

// Recipe holds the shift terms whose weighted sum is the partial
// derivative with respect to one circuit parameter. A parameter no gate
// depends on has an empty Terms slice and a derivative of exactly zero.
type Recipe struct {
	Parameter int         `json:"parameter"`
	Terms     []ShiftTerm `json:"terms"`
}

// Result is a full gradient evaluation.
type Result struct {
	// Gradient has one entry per circuit parameter, in index order.
	Gradient []complex128
	// ErrorMatrix optionally carries the covariance of the gradient
	// estimate; the built-in simulator oracle is exact and leaves it nil.
	ErrorMatrix *mat.SymDense
	// Evaluations is the number of distinct expectation values the
	// oracle computed for this gradient.
	Evaluations int
}

// ExpectationEstimator answers batched expectation queries. One gradient
// evaluation makes exactly one EstimateBatch call; the returned slice
// lines up with points by index.
type ExpectationEstimator interface {
	EstimateBatch(
		ctx context.Context,
		op operator.Operator,
		raw *circuit.RawCircuit,
		points [][]float64,
	) ([]complex128, error)
}

// Estimator computes the gradient of <O> with respect to the circuit
// parameters at the given values.
type Estimator interface {
	Estimate(
		ctx context.Context,
		op operator.Operator,
		state *circuit.ParametricState,
		values []float64,
	) (*Result, error)
}
