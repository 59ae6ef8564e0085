package gradient

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

// ParameterShift computes analytic gradients with the two-term
// parameter-shift rule. Every dependent gate-parameter slot contributes a
// pair of shifted evaluations; all evaluations of one gradient are
// deduplicated and answered by a single batched oracle call.
type ParameterShift struct {
	oracle ExpectationEstimator
	log    zerolog.Logger
}

// NewParameterShift creates a parameter-shift estimator backed by the
// given expectation oracle.
func NewParameterShift(oracle ExpectationEstimator, log zerolog.Logger) *ParameterShift {
	return &ParameterShift{
		oracle: oracle,
		log:    log.With().Str("component", "parameter_shift").Logger(),
	}
}

// Estimate computes the gradient of <O> at values. It fails before any
// oracle call when the vector length is wrong or when any gate parameter
// depends non-affinely on the circuit parameters. Parameters no gate
// depends on get a derivative of exactly zero.
func (ps *ParameterShift) Estimate(
	ctx context.Context,
	op operator.Operator,
	state *circuit.ParametricState,
	values []float64,
) (*Result, error) {
	if len(values) != state.ParameterCount() {
		return nil, &DimensionMismatchError{Want: state.ParameterCount(), Got: len(values)}
	}
	mapping, err := state.Mapping()
	if err != nil {
		return nil, err
	}
	raw, err := state.Raw()
	if err != nil {
		return nil, err
	}

	recipes, err := BuildRecipes(mapping, values)
	if err != nil {
		return nil, err
	}
	batch, termIndices := CollectBatch(recipes)

	gradient := make([]complex128, len(recipes))
	if batch.Size() == 0 {
		// Nothing depends on any parameter; skip the oracle entirely.
		return &Result{Gradient: gradient}, nil
	}

	ps.log.Debug().
		Int("parameters", len(recipes)).
		Int("evaluations", batch.Size()).
		Msg("Dispatching parameter-shift batch")

	expectations, err := ps.oracle.EstimateBatch(ctx, op, raw, batch.Points())
	if err != nil {
		return nil, err
	}

	for j, r := range recipes {
		var sum complex128
		for t, term := range r.Terms {
			sum += complex(term.Coefficient, 0) * expectations[termIndices[j][t]]
		}
		gradient[j] = sum
	}
	return &Result{Gradient: gradient, Evaluations: batch.Size()}, nil
}

// Recipes exposes the shift recipes the estimator would evaluate at the
// given values, without calling the oracle.
func (ps *ParameterShift) Recipes(state *circuit.ParametricState, values []float64) ([]Recipe, error) {
	if len(values) != state.ParameterCount() {
		return nil, &DimensionMismatchError{Want: state.ParameterCount(), Got: len(values)}
	}
	mapping, err := state.Mapping()
	if err != nil {
		return nil, err
	}
	return BuildRecipes(mapping, values)
}
