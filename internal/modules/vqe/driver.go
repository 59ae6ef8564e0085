package vqe

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/gradient"
	"github.com/qvarlab/qvar/internal/modules/operator"
	"github.com/qvarlab/qvar/pkg/numeric"
)

// ProgressFunc receives per-iteration snapshots during a drive.
// evaluations is the running count of oracle evaluation points so far.
type ProgressFunc func(iteration, evaluations int, energy, gradientNorm float64)

// Driver minimizes Re<O> over circuit parameters with BFGS, pulling
// descent directions from a gradient estimator and objective values from
// the expectation oracle.
type Driver struct {
	oracle    gradient.ExpectationEstimator
	estimator gradient.Estimator
	log       zerolog.Logger
}

// NewDriver creates an optimization driver.
func NewDriver(oracle gradient.ExpectationEstimator, estimator gradient.Estimator, log zerolog.Logger) *Driver {
	return &Driver{
		oracle:    oracle,
		estimator: estimator,
		log:       log.With().Str("component", "vqe_driver").Logger(),
	}
}

// DriveResult is the outcome of one minimization.
type DriveResult struct {
	Energy      float64
	Values      []float64
	Iterations  int
	Evaluations int
}

// Drive minimizes the operator's real expectation starting from initial.
// maxIterations <= 0 means the optimizer's default; gradientTol <= 0
// selects gonum's default threshold.
func (d *Driver) Drive(
	ctx context.Context,
	op operator.Operator,
	state *circuit.ParametricState,
	initial []float64,
	maxIterations int,
	gradientTol float64,
	onProgress ProgressFunc,
) (*DriveResult, error) {
	if len(initial) != state.ParameterCount() {
		return nil, &gradient.DimensionMismatchError{Want: state.ParameterCount(), Got: len(initial)}
	}
	raw, err := state.Raw()
	if err != nil {
		return nil, err
	}
	mapping, err := state.Mapping()
	if err != nil {
		return nil, err
	}

	// gonum's closures cannot return errors; the first oracle or
	// estimator failure is recorded here and surfaced after Minimize.
	var (
		mu          sync.Mutex
		firstErr    error
		evaluations int
		iteration   int
		lastEnergy  = math.NaN()
	)
	recordErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values, err := d.oracle.EstimateBatch(ctx, op, raw, [][]float64{mapping.Base(x)})
			if err != nil {
				recordErr(err)
				return math.Inf(1)
			}
			energy := real(values[0])
			mu.Lock()
			evaluations++
			lastEnergy = energy
			mu.Unlock()
			return energy
		},
		Grad: func(grad, x []float64) {
			res, err := d.estimator.Estimate(ctx, op, state, x)
			if err != nil {
				recordErr(err)
				for i := range grad {
					grad[i] = 0
				}
				return
			}
			copy(grad, numeric.RealParts(res.Gradient))
			mu.Lock()
			evaluations += res.Evaluations
			evals := evaluations
			it := iteration
			iteration++
			energy := lastEnergy
			mu.Unlock()
			if onProgress != nil {
				onProgress(it, evals, energy, floats.Norm(grad, 2))
			}
		},
	}

	settings := &optimize.Settings{}
	if maxIterations > 0 {
		settings.MajorIterations = maxIterations
	}
	if gradientTol > 0 {
		settings.GradientThreshold = gradientTol
	}

	start := make([]float64, len(initial))
	copy(start, initial)

	result, err := optimize.Minimize(problem, start, settings, &optimize.BFGS{})

	mu.Lock()
	oracleErr := firstErr
	evals := evaluations
	iters := iteration
	mu.Unlock()
	if oracleErr != nil {
		return nil, oracleErr
	}
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
		optimize.IterationLimit:      maxIterations > 0,
	}
	if !successStatuses[result.Status] {
		return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
	}

	d.log.Info().
		Float64("energy", result.F).
		Int("iterations", iters).
		Int("evaluations", evals).
		Str("status", result.Status.String()).
		Msg("Optimization finished")

	return &DriveResult{
		Energy:      result.F,
		Values:      result.X,
		Iterations:  iters,
		Evaluations: evals,
	}, nil
}
