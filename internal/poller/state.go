// Package poller drives an externally hosted form (KYC, eMandate, agreement)
// to a terminal verdict by polling the backend on a fixed interval.
package poller

import (
	"loan-portal/internal/common/errors"
)

// State of one external action.
type State string

const (
	StateUnstarted State = "UNSTARTED"
	StatePending   State = "PENDING"
	StateSuccess   State = "SUCCESS"
	StateRejected  State = "REJECTED"
	StateUnknown   State = "UNKNOWN"
)

// Terminal reports whether no further polls are issued in this state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateRejected || s == StateUnknown
}

// Mode is how the borrower chose to open the form.
type Mode string

const (
	ModeNewTab Mode = "new_tab"
	ModeInline Mode = "inline"
)

func (m Mode) Valid() bool {
	return m == ModeNewTab || m == ModeInline
}

// Snapshot is a consistent copy of a tracker's state.
type Snapshot struct {
	Kind               string `json:"kind"`
	State              State  `json:"state"`
	FormURL            string `json:"formUrl,omitempty"`
	FormID             string `json:"formId,omitempty"`
	TransactionID      string `json:"transactionId,omitempty"`
	Mode               Mode   `json:"mode,omitempty"`
	Presented          bool   `json:"presented"`
	Starting           bool   `json:"starting"`
	Status             string `json:"status,omitempty"`
	Reason             string `json:"reason,omitempty"`
	Polls              int    `json:"polls"`
	ConfirmBeforeLeave bool   `json:"confirmBeforeLeave"`
	CanProceed         bool   `json:"canProceed"`
	CanRetry           bool   `json:"canRetry"`
	StartError         string `json:"startError,omitempty"`
}

// Err converts a non-success terminal snapshot into the matching portal error.
func (s Snapshot) Err() error {
	switch s.State {
	case StateRejected:
		return errors.NewExternalActionRejectedError(s.Kind, s.Reason)
	case StateUnknown:
		return errors.NewUnrecognizedStatusError(s.Kind, s.Status)
	}
	return nil
}
