package simulator

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

// Service is the in-process expectation oracle. It evaluates every
// gate-parameter vector of a batch on its own worker goroutine; callers
// submit one batch per gradient evaluation and the service decides how to
// parallelize across points.
type Service struct {
	numWorkers int
	log        zerolog.Logger
}

// NewService creates a new simulator service. numWorkers <= 0 selects
// runtime.NumCPU() (minimum 2).
func NewService(numWorkers int, log zerolog.Logger) *Service {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
		if numWorkers < 2 {
			numWorkers = 2
		}
	}
	return &Service{
		numWorkers: numWorkers,
		log:        log.With().Str("component", "simulator").Logger(),
	}
}

// NumWorkers returns the configured worker count.
func (s *Service) NumWorkers() int {
	return s.numWorkers
}

// EstimateBatch evaluates <psi(point)|O|psi(point)> for every vector in
// points, in input order. Points are evaluated in parallel across the
// worker pool; the first evaluation error aborts the batch.
func (s *Service) EstimateBatch(
	ctx context.Context,
	op operator.Operator,
	raw *circuit.RawCircuit,
	points [][]float64,
) ([]complex128, error) {
	if err := op.Validate(raw.Qubits); err != nil {
		return nil, fmt.Errorf("invalid operator: %w", err)
	}
	numPoints := len(points)
	if numPoints == 0 {
		return []complex128{}, nil
	}

	s.log.Debug().
		Int("points", numPoints).
		Int("terms", len(op.Terms)).
		Int("qubits", raw.Qubits).
		Msg("Evaluating expectation batch")

	jobs := make(chan jobItem, numPoints)
	results := make(chan resultItem, numPoints)

	var wg sync.WaitGroup
	numActualWorkers := s.numWorkers
	if numPoints < numActualWorkers {
		numActualWorkers = numPoints // Don't spawn more workers than points
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, op, raw)
		}()
	}

	for idx, point := range points {
		jobs <- jobItem{index: idx, point: point}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	values := make([]complex128, numPoints)
	var firstErr error
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		values[result.index] = result.value
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return values, nil
}

// jobItem is a single expectation evaluation job.
type jobItem struct {
	index int
	point []float64
}

// resultItem is the result of one evaluation job.
type resultItem struct {
	index int
	value complex128
	err   error
}

func worker(
	ctx context.Context,
	jobs <-chan jobItem,
	results chan<- resultItem,
	op operator.Operator,
	raw *circuit.RawCircuit,
) {
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- resultItem{index: job.index, err: err}
			continue
		}
		state, err := Run(raw, job.point)
		if err != nil {
			results <- resultItem{index: job.index, err: err}
			continue
		}
		results <- resultItem{index: job.index, value: state.Expectation(op)}
	}
}
