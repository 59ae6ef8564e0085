package vqe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qvarlab/qvar/internal/events"
	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/gradient"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

// Service manages optimization runs: it validates requests, persists run
// state, and drives each run on its own goroutine.
type Service struct {
	oracle     gradient.ExpectationEstimator
	estimators map[EstimatorKind]gradient.Estimator
	repo       *RunRepository
	bus        *events.Bus
	log        zerolog.Logger
}

// NewService creates the run service.
func NewService(
	oracle gradient.ExpectationEstimator,
	estimators map[EstimatorKind]gradient.Estimator,
	repo *RunRepository,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		oracle:     oracle,
		estimators: estimators,
		repo:       repo,
		bus:        bus,
		log:        log.With().Str("component", "vqe").Logger(),
	}
}

// Start validates the request, persists a RUNNING record, and launches
// the optimization on a background goroutine. It returns the new run in
// RUNNING state.
func (s *Service) Start(ctx context.Context, req Request) (*Run, error) {
	kind := req.Estimator
	if kind == "" {
		kind = EstimatorParameterShift
	}
	estimator, ok := s.estimators[kind]
	if !ok {
		return nil, fmt.Errorf("unknown estimator %q", kind)
	}

	state, err := BuildAnsatz(req.Ansatz)
	if err != nil {
		return nil, err
	}

	op := operator.New(req.Operator...)
	if op.IsZero() {
		return nil, fmt.Errorf("operator has no terms")
	}
	if err := op.Validate(state.Qubits()); err != nil {
		return nil, err
	}

	initial := req.Initial
	if initial == nil {
		initial = make([]float64, state.ParameterCount())
	}
	if len(initial) != state.ParameterCount() {
		return nil, &gradient.DimensionMismatchError{Want: state.ParameterCount(), Got: len(initial)}
	}

	run := &Run{
		ID:         uuid.New().String(),
		Status:     StatusRunning,
		Estimator:  string(kind),
		Qubits:     state.Qubits(),
		Parameters: state.ParameterCount(),
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Create(run); err != nil {
		return nil, err
	}

	s.bus.EmitTyped("vqe", &events.RunStartedData{
		RunID:      run.ID,
		Parameters: run.Parameters,
		Qubits:     run.Qubits,
		Estimator:  run.Estimator,
	})

	driver := NewDriver(s.oracle, estimator, s.log)
	go s.drive(run, driver, op, state, initial, req)

	return run, nil
}

// drive executes one run to completion. Runs detach from the request
// context: an in-flight optimization survives the HTTP request that
// started it.
func (s *Service) drive(
	run *Run,
	driver *Driver,
	op operator.Operator,
	state *circuit.ParametricState,
	initial []float64,
	req Request,
) {
	start := time.Now()
	ctx := context.Background()

	onProgress := func(iteration, evaluations int, energy, gradNorm float64) {
		if err := s.repo.UpdateProgress(run.ID, iteration+1, evaluations, energy); err != nil {
			s.log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to persist progress")
		}
		s.bus.EmitTyped("vqe", &events.RunProgressData{
			RunID:        run.ID,
			Iteration:    iteration,
			Energy:       energy,
			GradientNorm: gradNorm,
			Evaluations:  evaluations,
		})
	}

	result, err := driver.Drive(ctx, op, state, initial,
		req.MaxIterations, req.GradientTol, onProgress)

	now := time.Now()
	run.CompletedAt = &now
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Run failed")
		s.bus.EmitTyped("vqe", &events.RunFailedData{RunID: run.ID, Error: run.Error})
	} else {
		run.Status = StatusConverged
		run.Energy = result.Energy
		run.Values = result.Values
		run.Iterations = result.Iterations
		run.Evaluations = result.Evaluations
		s.bus.EmitTyped("vqe", &events.RunCompletedData{
			RunID:       run.ID,
			Energy:      run.Energy,
			Values:      run.Values,
			Iterations:  run.Iterations,
			Evaluations: run.Evaluations,
			Duration:    now.Sub(start).Seconds(),
		})
	}

	if err := s.repo.Complete(run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run completion")
	}
}

// Get returns a run by ID, or nil when unknown.
func (s *Service) Get(id string) (*Run, error) {
	return s.repo.Get(id)
}

// List returns the most recent runs.
func (s *Service) List(limit int) ([]*Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(limit)
}
