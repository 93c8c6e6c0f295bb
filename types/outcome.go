package types

import "time"

// ActionOutcome is the result of one simulated-activity attempt.
// It is produced per action, consumed by the statistics aggregator and discarded.
type ActionOutcome struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Strategy  string `json:"strategy,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewOutcome stamps an outcome with an ISO-8601 timestamp
func NewOutcome(success bool, strategy, message string, at time.Time) ActionOutcome {
	return ActionOutcome{
		Success:   success,
		Message:   message,
		Strategy:  strategy,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}
