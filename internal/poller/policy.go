package poller

import (
	"math"
	"time"
)

// DefaultRejectReason is shown when the backend rejects without a reason.
const DefaultRejectReason = "Verification was rejected"

// Backoff is the delay schedule for retrying form creation after a 404.
type Backoff struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// Delay returns min(Base × Multiplier^(n-1), Max) for attempt n >= 1.
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(b.Base) * math.Pow(b.Multiplier, float64(n-1))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

// Policy parameterizes a tracker for one kind of external action.
type Policy struct {
	Kind     string
	Interval time.Duration
	// StartBackoff, when set, makes a 404 from form creation retry indefinitely.
	StartBackoff   *Backoff
	PendingValue   string
	SuccessValues  []string
	RejectedValues []string
	RejectFallback string
}

// DefaultPolicy returns the status vocabulary shared by KYC, eMandate and agreement.
func DefaultPolicy(kind string, interval time.Duration) Policy {
	return Policy{
		Kind:           kind,
		Interval:       interval,
		PendingValue:   "PENDING",
		SuccessValues:  []string{"SUCCESS"},
		RejectedValues: []string{"REJECTED"},
		RejectFallback: DefaultRejectReason,
	}
}

// classify maps a present, non-pending status onto a terminal state.
func (p Policy) classify(status string) State {
	for _, v := range p.SuccessValues {
		if status == v {
			return StateSuccess
		}
	}
	for _, v := range p.RejectedValues {
		if status == v {
			return StateRejected
		}
	}
	return StateUnknown
}

func (p Policy) pending(status string) bool {
	return status == "" || status == p.PendingValue
}
