// internal/workers/verification/external-action/handler.go
package externalaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loan-portal/internal/common/camunda"
	"loan-portal/internal/common/config"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/journal"
	"loan-portal/internal/models"
	"loan-portal/internal/poller"
	"loan-portal/internal/session"
	"loan-portal/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "external-action"
)

var (
	ErrUnknownKind = errors.New("UNKNOWN_ACTION_KIND")
)

// SourceFunc binds the backend form endpoints of kind to a session token.
type SourceFunc func(kind, token string) poller.Source

type Handler struct {
	config   *Config
	sources  SourceFunc
	sessions session.Manager
	trackers *poller.Registry
	journal  journal.Recorder
	flow     *registry.FlowRegistry
	clock    poller.Clock
	logger   logger.Logger
}

type HandlerOptions struct {
	Journal journal.Recorder
	Flow    *registry.FlowRegistry
	Clock   poller.Clock
}

func NewHandler(config *Config, sources SourceFunc, sessions session.Manager, trackers *poller.Registry, opts HandlerOptions, log logger.Logger) *Handler {
	flow := opts.Flow
	if flow == nil {
		flow = registry.Default()
	}
	return &Handler{
		config:   config,
		sources:  sources,
		sessions: sessions,
		trackers: trackers,
		journal:  opts.Journal,
		flow:     flow,
		clock:    opts.Clock,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func validKind(kind string) error {
	switch kind {
	case config.ActionKYC, config.ActionEMandate, config.ActionAgreement:
		return nil
	}
	return apperrors.NewValidationFailedError(fmt.Sprintf("%v: %q", ErrUnknownKind, kind))
}

func (h *Handler) policy(kind string) poller.Policy {
	p := poller.DefaultPolicy(kind, h.config.Interval)
	if ac, ok := h.config.Actions[kind]; ok && ac.BackoffOnNotFound {
		p.StartBackoff = &poller.Backoff{
			Base:       config.GetDuration(ac.BackoffBase),
			Multiplier: ac.BackoffMultiplier,
			Max:        config.GetDuration(ac.BackoffMax),
		}
	}
	return p
}

// tracker returns the live tracker of (session, kind), creating it when
// needed. The session must already carry the loan transaction id.
func (h *Handler) tracker(ctx context.Context, input *Input, fresh bool) (*poller.Tracker, string, error) {
	if err := validKind(input.Kind); err != nil {
		return nil, "", err
	}
	sess, err := h.live(ctx, input.SessionID)
	if err != nil {
		return nil, "", err
	}
	transactionID, err := session.RequireTransaction(sess)
	if err != nil {
		return nil, "", err
	}

	key := poller.Key(sess.ID, input.Kind)
	t := h.trackers.Acquire(key, fresh, func() *poller.Tracker {
		return h.newTracker(sess, input.Kind)
	})
	return t, transactionID, nil
}

// live resolves the session before any tracker of it is served. The trackers
// of an expired or cleared session are closed on the way out.
func (h *Handler) live(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.trackers.RemoveSession(sessionID)
		}
		return nil, err
	}
	return sess, nil
}

// Sweep closes the trackers of sessions that no longer exist.
func (h *Handler) Sweep(ctx context.Context) int {
	n := h.trackers.Sweep(ctx, func(ctx context.Context, sessionID string) (bool, error) {
		_, err := h.sessions.Get(ctx, sessionID)
		if errors.Is(err, session.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if n > 0 {
		h.logger.Info("closed trackers of expired sessions", map[string]interface{}{
			"count": n,
		})
	}
	return n
}

// RunSweeper calls Sweep every SweepInterval until ctx ends.
func (h *Handler) RunSweeper(ctx context.Context) error {
	return poller.Run(ctx, h.clock, h.config.SweepInterval, func(ctx context.Context, _ int) bool {
		h.Sweep(ctx)
		return false
	})
}

func (h *Handler) newTracker(sess *models.Session, kind string) *poller.Tracker {
	sessionID, userID := sess.ID, sess.UserID
	return poller.NewTracker(h.policy(kind), h.sources(kind, sess.Token), h.logger.WithFields(map[string]interface{}{
		"sessionId": sessionID,
	}), poller.Options{
		Clock: h.clock,
		Mirror: func(ctx context.Context, formID, transactionID string) error {
			return h.sessions.MirrorAction(ctx, sessionID, kind, formID, transactionID)
		},
		OnTerminal: func(snap poller.Snapshot) {
			e := journal.Event{
				SessionID:     sessionID,
				UserID:        userID,
				TransactionID: snap.TransactionID,
				Step:          kind,
				Outcome:       journal.OutcomeSuccess,
				Details: map[string]interface{}{
					"formId": snap.FormID,
					"status": snap.Status,
					"polls":  snap.Polls,
				},
			}
			if err := snap.Err(); err != nil {
				e.Outcome = journal.OutcomeFailed
				e.ErrorCode = string(apperrors.CodeOf(err))
				e.Details["reason"] = snap.Reason
			}
			journal.Safe(context.Background(), h.journal, h.logger, e)
		},
	})
}

func (h *Handler) output(snap poller.Snapshot) *Output {
	out := &Output{Action: snap, IntervalMs: h.config.Interval.Milliseconds()}
	if snap.CanProceed {
		out.Next = h.flow.MustNext(snap.Kind)
	}
	return out
}

// Start creates the external form. Creation keeps running in the background
// past StartWait (e.g. while eMandate provisioning is backing off); callers
// then poll Status until the snapshot is no longer starting.
func (h *Handler) Start(ctx context.Context, input *Input) (*Output, error) {
	t, transactionID, err := h.tracker(ctx, input, input.Fresh)
	if err != nil {
		if errors.Is(err, apperrors.ErrWaitingForTransaction) {
			return h.output(poller.Snapshot{Kind: input.Kind, State: poller.StateUnstarted}), err
		}
		return nil, err
	}

	snap := t.Snapshot()
	if snap.State != poller.StateUnstarted || snap.Starting {
		return h.output(snap), nil
	}
	return h.awaitStart(ctx, t, func(ctx context.Context) (poller.Snapshot, error) {
		return t.Start(ctx, transactionID)
	})
}

// Retry creates a new form after a rejection, an unrecognized status or a failed start.
func (h *Handler) Retry(ctx context.Context, input *Input) (*Output, error) {
	t, err := h.existing(ctx, input)
	if err != nil {
		return nil, err
	}
	return h.awaitStart(ctx, t, t.Retry)
}

func (h *Handler) awaitStart(ctx context.Context, t *poller.Tracker, start func(context.Context) (poller.Snapshot, error)) (*Output, error) {
	type result struct {
		snap poller.Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		// Detached from the request; Close on the tracker cancels it.
		snap, err := start(context.Background())
		done <- result{snap, err}
	}()

	timer := time.NewTimer(h.config.StartWait)
	defer timer.Stop()
	select {
	case r := <-done:
		if errors.Is(r.err, poller.ErrInProgress) {
			return h.output(r.snap), nil
		}
		if r.err != nil {
			return h.output(r.snap), r.err
		}
		return h.output(r.snap), nil
	case <-timer.C:
		return h.output(t.Snapshot()), nil
	case <-ctx.Done():
		return h.output(t.Snapshot()), nil
	}
}

// Present records how the borrower opened the form and starts polling.
func (h *Handler) Present(ctx context.Context, input *Input) (*Output, error) {
	t, err := h.existing(ctx, input)
	if err != nil {
		return nil, err
	}
	snap, err := t.Present(ctx, input.Mode)
	return h.output(snap), err
}

// Status reports the tracker state. Without a live tracker it falls back to
// the identifiers mirrored into the session.
func (h *Handler) Status(ctx context.Context, input *Input) (*Output, error) {
	if err := validKind(input.Kind); err != nil {
		return nil, err
	}
	if _, err := h.live(ctx, input.SessionID); err != nil {
		return nil, err
	}
	if t, ok := h.trackers.Get(poller.Key(input.SessionID, input.Kind)); ok && !t.Closed() {
		return h.output(t.Snapshot()), nil
	}

	mirror, ok, err := h.sessions.MirroredAction(ctx, input.SessionID, input.Kind)
	if err != nil {
		return nil, err
	}
	snap := poller.Snapshot{Kind: input.Kind, State: poller.StateUnstarted}
	if ok {
		snap.FormID = mirror.FormID
		snap.TransactionID = mirror.TransactionID
	}
	return h.output(snap), nil
}

// Cancel stops polling, e.g. when the borrower navigates away.
func (h *Handler) Cancel(ctx context.Context, input *Input) (*Output, error) {
	if err := validKind(input.Kind); err != nil {
		return nil, err
	}
	if _, err := h.live(ctx, input.SessionID); err != nil {
		return nil, err
	}
	key := poller.Key(input.SessionID, input.Kind)
	snap := poller.Snapshot{Kind: input.Kind, State: poller.StateUnstarted}
	if t, ok := h.trackers.Get(key); ok {
		snap = t.Snapshot()
	}
	h.trackers.Remove(key)
	snap.ConfirmBeforeLeave = false
	return h.output(snap), nil
}

func (h *Handler) existing(ctx context.Context, input *Input) (*poller.Tracker, error) {
	if err := validKind(input.Kind); err != nil {
		return nil, err
	}
	if _, err := h.live(ctx, input.SessionID); err != nil {
		return nil, err
	}
	t, ok := h.trackers.Get(poller.Key(input.SessionID, input.Kind))
	if !ok || t.Closed() {
		return nil, apperrors.NewActionNotStartedError(input.Kind)
	}
	return t, nil
}

// execute drives the action to a verdict headlessly: start, present inline,
// wait. A rejection or an unrecognized status fails the job. The tracker
// is closed once the job has its answer.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	t, transactionID, err := h.tracker(ctx, input, true)
	if err != nil {
		return nil, err
	}
	defer h.trackers.Discard(poller.Key(input.SessionID, input.Kind), t)

	if _, err := t.Start(ctx, transactionID); err != nil {
		return nil, err
	}
	mode := input.Mode
	if mode == "" {
		mode = poller.ModeInline
	}
	if _, err := t.Present(ctx, mode); err != nil {
		return nil, err
	}

	snap, err := t.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperrors.NewBackendTimeoutError(input.Kind+" verdict", err)
		}
		return nil, err
	}
	if err := snap.Err(); err != nil {
		return nil, err
	}
	return h.output(snap), nil
}
