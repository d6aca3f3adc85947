// internal/models/action.go
package models

import "time"

// ActionEvent records one start, stop or restart request after it was sent to
// a provider.
type ActionEvent struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"request_id,omitempty"`
	Platform      string    `json:"platform"`
	ResourceID    string    `json:"resource_id"`
	Action        string    `json:"action"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	PreviousState string    `json:"previous_state,omitempty"`
	CurrentState  string    `json:"current_state,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
