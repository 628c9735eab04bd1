// internal/workers/disbursement/track-disbursal/handler.go
package trackdisbursal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"loan-portal/internal/backend"
	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/metrics"
	"loan-portal/internal/journal"
	"loan-portal/internal/models"
	"loan-portal/internal/poller"
	"loan-portal/internal/session"
	sendnotification "loan-portal/internal/workers/communication/send-notification"
	"loan-portal/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "track-disbursal"

	kind = "disbursal"
)

var (
	ErrAlreadyTracking = errors.New("DISBURSAL_ALREADY_TRACKED")
)

type Backend interface {
	DisbursalStatus(ctx context.Context, token, transactionID string) (*backend.DisbursalReply, error)
}

// Notifier is satisfied by the send-notification handler.
type Notifier interface {
	Execute(ctx context.Context, input *sendnotification.Input) (*sendnotification.Output, error)
}

type Handler struct {
	config   *Config
	backend  Backend
	sessions session.Manager
	notifier Notifier
	journal  journal.Recorder
	flow     *registry.FlowRegistry
	clock    poller.Clock
	logger   logger.Logger

	mu       sync.Mutex
	inflight map[string]bool
	notified map[string]bool
}

type HandlerOptions struct {
	Notifier Notifier
	Journal  journal.Recorder
	Flow     *registry.FlowRegistry
	Clock    poller.Clock
}

func NewHandler(config *Config, backend Backend, sessions session.Manager, opts HandlerOptions, log logger.Logger) *Handler {
	flow := opts.Flow
	if flow == nil {
		flow = registry.Default()
	}
	return &Handler{
		config:   config,
		backend:  backend,
		sessions: sessions,
		notifier: opts.Notifier,
		journal:  opts.Journal,
		flow:     flow,
		clock:    opts.Clock,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
		inflight: make(map[string]bool),
		notified: make(map[string]bool),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Check performs a single status poll. The browser reschedules it after
// NextPollInMs; its countdown is cosmetic.
func (h *Handler) Check(ctx context.Context, input *Input) (*Output, error) {
	sess, transactionID, err := h.session(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	out, _, err := h.poll(ctx, sess, transactionID, input)
	return out, err
}

// execute polls until the backend reports Done or Failed. Only one loop
// runs per session.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	sess, transactionID, err := h.session(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.inflight[sess.ID] {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTracking, sess.ID)
	}
	h.inflight[sess.ID] = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.inflight, sess.ID)
		h.mu.Unlock()
	}()

	var (
		out     *Output
		pollErr error
	)
	runErr := poller.Run(ctx, h.clock, h.config.Interval, func(ctx context.Context, attempt int) bool {
		var done bool
		out, done, pollErr = h.poll(ctx, sess, transactionID, input)
		if out != nil {
			out.Polls = attempt
		}
		return done
	})
	if runErr != nil {
		return nil, apperrors.NewBackendTimeoutError("disbursal status", runErr)
	}
	return out, pollErr
}

// poll issues one status request. done reports a terminal reply.
func (h *Handler) poll(ctx context.Context, sess *models.Session, transactionID string, input *Input) (*Output, bool, error) {
	out := &Output{
		State:         StatePending,
		TransactionID: transactionID,
		NextPollInMs:  h.config.Interval.Milliseconds(),
	}

	reply, err := h.backend.DisbursalStatus(ctx, sess.Token, transactionID)
	if err != nil {
		metrics.PollAttempts.WithLabelValues(kind, "error").Inc()
		h.logger.Debug("disbursal poll failed, still pending", map[string]interface{}{
			"error": apperrors.NewPollTransportError(kind, err).Details,
		})
		return out, false, nil
	}
	out.Message = reply.Message

	// An empty message counts as pending, the same as a missing action status.
	switch reply.Message {
	case backend.DisbursalPending, "":
		metrics.PollAttempts.WithLabelValues(kind, "pending").Inc()
		return out, false, nil

	case backend.DisbursalDone:
		metrics.PollAttempts.WithLabelValues(kind, "terminal").Inc()
		metrics.PollVerdicts.WithLabelValues(kind, StateDisbursed).Inc()
		out.State = StateDisbursed
		out.Loan = reply.Loan
		out.NextPollInMs = 0
		out.Next = h.flow.MustNext(registry.StepDisbursement)
		if h.firstDone(transactionID) {
			h.record(ctx, sess, transactionID, nil)
			h.notify(ctx, input, transactionID, reply.Loan)
		}
		return out, true, nil

	case backend.DisbursalFailed:
		metrics.PollAttempts.WithLabelValues(kind, "terminal").Inc()
		metrics.PollVerdicts.WithLabelValues(kind, StateFailed).Inc()
		out.State = StateFailed
		out.NextPollInMs = 0
		err := apperrors.NewDisbursalFailedError(transactionID)
		h.record(ctx, sess, transactionID, err)
		return out, true, err
	}

	metrics.UnrecognizedStatuses.WithLabelValues(kind, reply.Message).Inc()
	h.logger.Warn("unrecognized disbursal message", map[string]interface{}{
		"message":       reply.Message,
		"transactionId": transactionID,
	})
	out.State = StateFailed
	out.NextPollInMs = 0
	err = apperrors.NewUnrecognizedStatusError(kind, reply.Message)
	h.record(ctx, sess, transactionID, err)
	return out, true, err
}

func (h *Handler) session(ctx context.Context, sessionID string) (*models.Session, string, error) {
	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	transactionID, err := session.RequireTransaction(sess)
	if err != nil {
		return nil, "", err
	}
	return sess, transactionID, nil
}

func (h *Handler) firstDone(transactionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.notified[transactionID] {
		return false
	}
	h.notified[transactionID] = true
	return true
}

func (h *Handler) notify(ctx context.Context, input *Input, transactionID string, loan *models.Loan) {
	if !h.config.Notify || h.notifier == nil || (input.Email == "" && input.Phone == "") {
		return
	}
	data := map[string]interface{}{}
	if loan != nil {
		data["amount"] = loan.LoanDetails.Amount
		data["lender"] = loan.Provider.Name
	}
	_, err := h.notifier.Execute(ctx, &sendnotification.Input{
		NotificationType: models.NotificationLoanDisbursed,
		Email:            input.Email,
		Phone:            input.Phone,
		TransactionID:    transactionID,
		Data:             data,
	})
	if err != nil {
		h.logger.Warn("disbursal notification failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) record(ctx context.Context, sess *models.Session, transactionID string, err error) {
	e := journal.Event{
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		TransactionID: transactionID,
		Step:          registry.StepDisbursement,
		Outcome:       journal.OutcomeSuccess,
	}
	if err != nil {
		e.Outcome, e.ErrorCode = journal.OutcomeFailed, string(apperrors.CodeOf(err))
	}
	journal.Safe(ctx, h.journal, h.logger, e)
}
