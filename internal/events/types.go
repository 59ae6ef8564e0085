// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	RunStarted   EventType = "RUN_STARTED"
	RunProgress  EventType = "RUN_PROGRESS"
	RunCompleted EventType = "RUN_COMPLETED"
	RunFailed    EventType = "RUN_FAILED"

	GradientEvaluated    EventType = "GRADIENT_EVALUATED"
	BackendStatusChanged EventType = "BACKEND_STATUS_CHANGED"
	SystemStatusChanged  EventType = "SYSTEM_STATUS_CHANGED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// Event represents a system event with its payload.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
