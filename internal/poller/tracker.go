package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "loan-portal/internal/common/errors"
	httpclient "loan-portal/internal/common/http"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/metrics"
)

var (
	ErrClosed       = errors.New("TRACKER_CLOSED")
	ErrNotRetryable = errors.New("ACTION_NOT_RETRYABLE")
	ErrInProgress   = errors.New("ACTION_IN_PROGRESS")
)

// FormRef identifies a created external form.
type FormRef struct {
	FormURL       string
	FormID        string
	TransactionID string
}

// Reply is one status poll result. An empty Status means "no verdict yet".
type Reply struct {
	Status string
	Reason string
}

// Source is the backend side of one kind of external action.
type Source interface {
	Start(ctx context.Context, transactionID string) (FormRef, error)
	Check(ctx context.Context, ref FormRef) (Reply, error)
}

// MirrorFunc persists form identifiers right before the form is presented.
type MirrorFunc func(ctx context.Context, formID, transactionID string) error

// Options are the optional collaborators of a Tracker.
type Options struct {
	Clock      Clock
	Mirror     MirrorFunc
	OnTerminal func(Snapshot)
}

// Tracker runs the UNSTARTED → PENDING → terminal sequence for one action.
type Tracker struct {
	policy Policy
	source Source
	opts   Options
	log    logger.Logger
	guard  Guard

	mu            sync.Mutex
	state         State
	ref           FormRef
	transactionID string
	mode          Mode
	presented     bool
	starting      bool
	status        string
	reason        string
	startErr      string
	polls         int
	generation    uint64
	closed        bool
	cancelPoll    context.CancelFunc
	cancelStart   context.CancelFunc
	done          chan struct{}
}

func NewTracker(policy Policy, source Source, log logger.Logger, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if policy.RejectFallback == "" {
		policy.RejectFallback = DefaultRejectReason
	}
	return &Tracker{
		policy: policy,
		source: source,
		opts:   opts,
		log:    log.WithFields(map[string]interface{}{"actionKind": policy.Kind}),
		state:  StateUnstarted,
		done:   make(chan struct{}),
	}
}

// Start creates the external form for transactionID. A 404 is retried on the
// policy's backoff schedule when one is configured; any other failure leaves the
// tracker UNSTARTED and must be retried explicitly.
func (t *Tracker) Start(ctx context.Context, transactionID string) (Snapshot, error) {
	if transactionID == "" {
		return t.Snapshot(), apperrors.ErrWaitingForTransaction
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if t.starting || t.state != StateUnstarted {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, ErrInProgress
	}
	t.starting = true
	t.transactionID = transactionID
	t.startErr = ""
	gen := t.generation
	startCtx, cancel := context.WithCancel(ctx)
	t.cancelStart = cancel
	t.mu.Unlock()
	defer cancel()

	ref, err := t.create(startCtx, transactionID)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.starting = false
	t.cancelStart = nil
	if gen != t.generation || t.closed {
		return t.snapshotLocked(), ErrClosed
	}
	if err != nil {
		t.startErr = apperrors.Normalize(err).Message
		return t.snapshotLocked(), err
	}

	t.ref = ref
	t.state = StatePending
	t.log.Info("external form created", map[string]interface{}{
		"formId":        ref.FormID,
		"transactionId": ref.TransactionID,
	})
	return t.snapshotLocked(), nil
}

func (t *Tracker) create(ctx context.Context, transactionID string) (FormRef, error) {
	for attempt := 1; ; attempt++ {
		ref, err := t.source.Start(ctx, transactionID)
		if err == nil {
			if ref.TransactionID == "" {
				ref.TransactionID = transactionID
			}
			if ref.FormID == "" || ref.FormURL == "" {
				return FormRef{}, apperrors.NewBackendRequestFailedError(t.policy.Kind+" form",
					fmt.Errorf("reply is missing formId or formUrl"))
			}
			return ref, nil
		}

		if t.policy.StartBackoff == nil || !httpclient.IsNotFound(err) {
			return FormRef{}, startError(t.policy.Kind, err)
		}

		delay := t.policy.StartBackoff.Delay(attempt)
		metrics.StartBackoffs.WithLabelValues(t.policy.Kind).Inc()
		t.log.Info("service not yet provisioned, retrying form creation", map[string]interface{}{
			"attempt": attempt,
			"delayMs": delay.Milliseconds(),
		})

		select {
		case <-ctx.Done():
			return FormRef{}, apperrors.NewServiceNotProvisionedError(t.policy.Kind, ctx.Err())
		case <-t.opts.Clock.After(delay):
		}
	}
}

func startError(kind string, err error) error {
	var se *apperrors.StandardError
	if errors.As(err, &se) {
		return err
	}
	return apperrors.NewBackendRequestFailedError(kind+" form", err)
}

// Present records the chosen mode, mirrors identifiers, raises the navigation
// guard and starts polling. Presenting twice is a no-op.
func (t *Tracker) Present(ctx context.Context, mode Mode) (Snapshot, error) {
	if !mode.Valid() {
		return t.Snapshot(), apperrors.NewValidationFailedError(fmt.Sprintf("mode must be %q or %q", ModeNewTab, ModeInline))
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if t.state != StatePending || t.ref.FormID == "" || t.ref.TransactionID == "" {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, apperrors.NewActionNotStartedError(t.policy.Kind)
	}
	if t.presented {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, nil
	}
	ref, gen := t.ref, t.generation
	t.mu.Unlock()

	if t.opts.Mirror != nil {
		if err := t.opts.Mirror(ctx, ref.FormID, ref.TransactionID); err != nil {
			return t.Snapshot(), err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation || t.closed {
		return t.snapshotLocked(), ErrClosed
	}
	if t.presented {
		return t.snapshotLocked(), nil
	}
	t.presented = true
	t.mode = mode
	t.guard.Acquire()

	pollCtx, cancel := context.WithCancel(context.Background())
	t.cancelPoll = cancel
	metrics.ActiveTrackers.WithLabelValues(t.policy.Kind).Inc()
	go t.poll(pollCtx, gen, ref)

	t.log.Info("external form presented", map[string]interface{}{
		"formId": ref.FormID,
		"mode":   string(mode),
	})
	return t.snapshotLocked(), nil
}

func (t *Tracker) poll(ctx context.Context, gen uint64, ref FormRef) {
	_ = Run(ctx, t.opts.Clock, t.policy.Interval, func(ctx context.Context, attempt int) bool {
		reply, err := t.source.Check(ctx, ref)
		if ctx.Err() != nil {
			return true
		}

		t.mu.Lock()
		if gen != t.generation {
			t.mu.Unlock()
			return true
		}
		t.polls++
		t.mu.Unlock()

		if err != nil {
			metrics.PollAttempts.WithLabelValues(t.policy.Kind, "error").Inc()
			t.log.Debug("status poll failed, still pending", map[string]interface{}{
				"attempt": attempt,
				"error":   apperrors.NewPollTransportError(t.policy.Kind, err).Details,
			})
			return false
		}
		if t.policy.pending(reply.Status) {
			metrics.PollAttempts.WithLabelValues(t.policy.Kind, "pending").Inc()
			return false
		}

		metrics.PollAttempts.WithLabelValues(t.policy.Kind, "terminal").Inc()
		t.finish(gen, reply)
		return true
	})
}

func (t *Tracker) finish(gen uint64, reply Reply) {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return
	}

	state := t.policy.classify(reply.Status)
	t.state = state
	t.status = reply.Status
	switch state {
	case StateRejected:
		t.reason = reply.Reason
		if t.reason == "" {
			t.reason = t.policy.RejectFallback
		}
	case StateUnknown:
		t.reason = reply.Reason
		metrics.UnrecognizedStatuses.WithLabelValues(t.policy.Kind, reply.Status).Inc()
		t.log.Warn("unrecognized terminal status", map[string]interface{}{
			"status": reply.Status,
			"formId": t.ref.FormID,
		})
	}

	t.releaseLocked()
	metrics.PollVerdicts.WithLabelValues(t.policy.Kind, string(state)).Inc()
	close(t.done)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.log.Info("external action finished", map[string]interface{}{
		"state": string(state),
		"polls": snap.Polls,
	})
	if t.opts.OnTerminal != nil {
		t.opts.OnTerminal(snap)
	}
}

// releaseLocked stops polling and drops the guard. Caller holds t.mu.
func (t *Tracker) releaseLocked() {
	if t.cancelPoll != nil {
		t.cancelPoll()
		t.cancelPoll = nil
		metrics.ActiveTrackers.WithLabelValues(t.policy.Kind).Dec()
	}
	t.guard.Release()
}

// Retry restarts the whole sequence with a fresh form after a rejection, an
// unrecognized status or a failed start.
func (t *Tracker) Retry(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	failedStart := t.state == StateUnstarted && !t.starting && t.startErr != ""
	if t.state != StateRejected && t.state != StateUnknown && !failedStart {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, ErrNotRetryable
	}

	t.generation++
	t.releaseLocked()
	t.state = StateUnstarted
	t.ref = FormRef{}
	t.mode = ""
	t.presented = false
	t.status = ""
	t.reason = ""
	t.polls = 0
	select {
	case <-t.done:
		t.done = make(chan struct{})
	default:
	}
	transactionID := t.transactionID
	t.mu.Unlock()

	t.log.Info("retrying external action", nil)
	return t.Start(ctx, transactionID)
}

// Close cancels polling and any pending start; late results are discarded.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.generation++
	if t.cancelStart != nil {
		t.cancelStart()
	}
	t.releaseLocked()
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

// Wait blocks until the action reaches a terminal state, the tracker is closed or ctx ends.
func (t *Tracker) Wait(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	select {
	case <-done:
		snap := t.Snapshot()
		if !snap.State.Terminal() {
			return snap, ErrClosed
		}
		return snap, nil
	case <-ctx.Done():
		return t.Snapshot(), ctx.Err()
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Kind:               t.policy.Kind,
		State:              t.state,
		FormURL:            t.ref.FormURL,
		FormID:             t.ref.FormID,
		TransactionID:      t.ref.TransactionID,
		Mode:               t.mode,
		Presented:          t.presented,
		Starting:           t.starting,
		Status:             t.status,
		Reason:             t.reason,
		Polls:              t.polls,
		ConfirmBeforeLeave: t.guard.Held(),
		CanProceed:         t.state == StateSuccess,
		CanRetry: t.state == StateRejected || t.state == StateUnknown ||
			(t.state == StateUnstarted && !t.starting && t.startErr != ""),
		StartError: t.startErr,
	}
}

// Closed reports whether Close has been called.
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Interval exposes the poll cadence, e.g. for a client-side countdown.
func (t *Tracker) Interval() time.Duration { return t.policy.Interval }
