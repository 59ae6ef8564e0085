package events

// EventData is the interface that all typed event payloads implement.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID      string `json:"run_id"`
	Parameters int    `json:"parameters"`
	Qubits     int    `json:"qubits"`
	Estimator  string `json:"estimator"`
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType {
	return RunStarted
}

// RunProgressData contains data for RunProgress events
type RunProgressData struct {
	RunID        string  `json:"run_id"`
	Iteration    int     `json:"iteration"`
	Energy       float64 `json:"energy"`
	GradientNorm float64 `json:"gradient_norm"`
	Evaluations  int     `json:"evaluations"`
}

// EventType returns the event type for RunProgressData
func (d *RunProgressData) EventType() EventType {
	return RunProgress
}

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID       string    `json:"run_id"`
	Energy      float64   `json:"energy"`
	Values      []float64 `json:"values"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	Duration    float64   `json:"duration_seconds"`
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType {
	return RunCompleted
}

// RunFailedData contains data for RunFailed events
type RunFailedData struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// EventType returns the event type for RunFailedData
func (d *RunFailedData) EventType() EventType {
	return RunFailed
}

// GradientEvaluatedData contains data for GradientEvaluated events
type GradientEvaluatedData struct {
	Method      string `json:"method"`
	Parameters  int    `json:"parameters"`
	Evaluations int    `json:"evaluations"`
}

// EventType returns the event type for GradientEvaluatedData
func (d *GradientEvaluatedData) EventType() EventType {
	return GradientEvaluated
}

// BackendStatusChangedData contains data for BackendStatusChanged events
type BackendStatusChangedData struct {
	Connected bool   `json:"connected"`
	Timestamp string `json:"timestamp"`
}

// EventType returns the event type for BackendStatusChangedData
func (d *BackendStatusChangedData) EventType() EventType {
	return BackendStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
