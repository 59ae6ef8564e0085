// Package vqe drives variational optimization: it minimizes the real
// expectation of a Pauli-sum operator over the parameters of a circuit,
// using a gradient estimator for descent directions.
package vqe

import (
	"time"

	"github.com/qvarlab/qvar/internal/modules/operator"
)

// Status is the lifecycle state of an optimization run.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusConverged Status = "CONVERGED"
	StatusFailed    Status = "FAILED"
)

// EstimatorKind selects the gradient method for a run.
type EstimatorKind string

const (
	EstimatorParameterShift   EstimatorKind = "parameter_shift"
	EstimatorFiniteDifference EstimatorKind = "finite_difference"
)

// Request describes an optimization run to start.
type Request struct {
	Ansatz        AnsatzSpec      `json:"ansatz"`
	Operator      []operator.Term `json:"operator"`
	Initial       []float64       `json:"initial_values"`
	Estimator     EstimatorKind   `json:"estimator,omitempty"`
	MaxIterations int             `json:"max_iterations,omitempty"`
	GradientTol   float64         `json:"gradient_tolerance,omitempty"`
}

// AnsatzSpec selects a built-in parametric circuit family.
type AnsatzSpec struct {
	// Name is one of the registered ansatz families ("hardware_efficient").
	Name   string `json:"name"`
	Qubits int    `json:"qubits"`
	Layers int    `json:"layers"`
}

// Run is one optimization run, persisted across the process lifetime.
type Run struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Estimator   string     `json:"estimator"`
	Qubits      int        `json:"qubits"`
	Parameters  int        `json:"parameters"`
	Energy      float64    `json:"energy"`
	Values      []float64  `json:"values,omitempty"`
	Iterations  int        `json:"iterations"`
	Evaluations int        `json:"evaluations"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
