// internal/workers/verification/external-action/models.go
package externalaction

import "loan-portal/internal/poller"

// Input addresses one action of one session. Mode is only read by Present
// and by the job worker.
type Input struct {
	SessionID string      `json:"sessionId"`
	Kind      string      `json:"kind"`
	Mode      poller.Mode `json:"mode,omitempty"`
	// Fresh discards an existing tracker and creates a new form.
	Fresh bool `json:"fresh,omitempty"`
}

type Output struct {
	Action     poller.Snapshot `json:"action"`
	IntervalMs int64           `json:"intervalMs"`
	Next       string          `json:"next,omitempty"`
}
