// internal/workers/disbursement/track-disbursal/models.go
package trackdisbursal

import "loan-portal/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
	// Contact details for the disbursal notification; both optional.
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Output struct {
	State         string       `json:"state"`
	Message       string       `json:"message,omitempty"`
	TransactionID string       `json:"transactionId"`
	Loan          *models.Loan `json:"loan,omitempty"`
	NextPollInMs  int64        `json:"nextPollInMs,omitempty"`
	Polls         int          `json:"polls"`
	Next          string       `json:"next,omitempty"`
}

// States
const (
	StatePending   = "PENDING"
	StateDisbursed = "DISBURSED"
	StateFailed    = "FAILED"
)
