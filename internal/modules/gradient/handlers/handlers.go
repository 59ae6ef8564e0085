// Package handlers provides HTTP handlers for gradient estimation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/qvarlab/qvar/internal/events"
	"github.com/qvarlab/qvar/internal/modules/circuit"
	"github.com/qvarlab/qvar/internal/modules/gradient"
	"github.com/qvarlab/qvar/internal/modules/operator"
)

// Handler handles gradient HTTP requests
type Handler struct {
	parameterShift *gradient.ParameterShift
	finiteDiff     *gradient.FiniteDifference
	bus            *events.Bus
	log            zerolog.Logger
}

// NewHandler creates a new gradient handler
func NewHandler(
	parameterShift *gradient.ParameterShift,
	finiteDiff *gradient.FiniteDifference,
	bus *events.Bus,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		parameterShift: parameterShift,
		finiteDiff:     finiteDiff,
		bus:            bus,
		log:            log.With().Str("handler", "gradient").Logger(),
	}
}

// GradientRequest represents a request to evaluate a gradient. Delta
// overrides the configured finite-difference step when positive; the
// parameter-shift endpoint ignores it.
type GradientRequest struct {
	Circuit  circuit.Spec    `json:"circuit"`
	Operator []operator.Term `json:"operator"`
	Values   []float64       `json:"values"`
	Delta    float64         `json:"delta,omitempty"`
}

// complexPair is the wire form of one gradient entry.
type complexPair struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// HandleParameterShift handles POST /api/gradient/parameter-shift
func (h *Handler) HandleParameterShift(w http.ResponseWriter, r *http.Request) {
	req, state, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.estimate(w, r, h.parameterShift, "parameter_shift", req, state)
}

// HandleFiniteDifference handles POST /api/gradient/finite-difference
func (h *Handler) HandleFiniteDifference(w http.ResponseWriter, r *http.Request) {
	req, state, ok := h.decode(w, r)
	if !ok {
		return
	}

	est := gradient.Estimator(h.finiteDiff)
	if req.Delta != 0 {
		fd, err := h.finiteDiff.WithDelta(req.Delta)
		if err != nil {
			h.writeEstimateError(w, err)
			return
		}
		est = fd
	}
	h.estimate(w, r, est, "finite_difference", req, state)
}

func (h *Handler) estimate(w http.ResponseWriter, r *http.Request, est gradient.Estimator, method string, req *GradientRequest, state *circuit.ParametricState) {
	result, err := est.Estimate(r.Context(), operator.New(req.Operator...), state, req.Values)
	if err != nil {
		h.writeEstimateError(w, err)
		return
	}

	h.bus.EmitTyped("gradient", &events.GradientEvaluatedData{
		Method:      method,
		Parameters:  len(result.Gradient),
		Evaluations: result.Evaluations,
	})

	entries := make([]complexPair, len(result.Gradient))
	for i, g := range result.Gradient {
		entries[i] = complexPair{Real: real(g), Imag: imag(g)}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"method":      method,
			"gradient":    entries,
			"evaluations": result.Evaluations,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleRecipes handles POST /api/gradient/recipes
func (h *Handler) HandleRecipes(w http.ResponseWriter, r *http.Request) {
	req, state, ok := h.decode(w, r)
	if !ok {
		return
	}

	recipes, err := h.parameterShift.Recipes(state, req.Values)
	if err != nil {
		h.writeEstimateError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"recipes": recipes,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*GradientRequest, *circuit.ParametricState, bool) {
	var req GradientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, nil, false
	}

	state, err := req.Circuit.Build()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	op := operator.New(req.Operator...)
	if err := op.Validate(state.Qubits()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	return &req, state, true
}

// writeEstimateError maps estimator failures onto HTTP statuses. Caller
// mistakes (wrong dimensions, non-affine circuits) are 400s; everything
// else is a 500.
func (h *Handler) writeEstimateError(w http.ResponseWriter, err error) {
	var (
		dimErr *gradient.DimensionMismatchError
		mapErr *circuit.MappingError
		argErr *gradient.InvalidArgumentError
	)
	switch {
	case errors.As(err, &dimErr), errors.As(err, &mapErr), errors.As(err, &argErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Gradient evaluation failed")
		http.Error(w, "Gradient evaluation failed", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
