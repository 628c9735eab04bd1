// internal/workers/servicing/payment-initiation/handler.go
package paymentinitiation

import (
	"context"
	"fmt"

	"loan-portal/internal/backend"
	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/journal"
	"loan-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "payment-initiation"
)

type Backend interface {
	InitiatePayment(ctx context.Context, token string, kind backend.PaymentKind, req *backend.PaymentRequest) (*backend.PaymentReply, error)
}

// Sessions is the part of the session store this step writes to.
type Sessions interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	SetForeclosureTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	SetPrepaymentTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	SetMissedEMITransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
}

type Handler struct {
	config   *Config
	backend  Backend
	sessions Sessions
	journal  journal.Recorder
	logger   logger.Logger
}

func NewHandler(config *Config, backend Backend, sessions Sessions, recorder journal.Recorder, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		backend:  backend,
		sessions: sessions,
		journal:  recorder,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	// The flow page reads the id back from the session, so it is stored first.
	if _, err := h.remember(ctx, sess.ID, input.Kind, input.TransactionID); err != nil {
		return nil, err
	}

	reply, err := h.backend.InitiatePayment(ctx, sess.Token, input.Kind, &backend.PaymentRequest{
		TransactionID: input.TransactionID,
		UserID:        sess.UserID,
		Amount:        input.Amount,
		InstallmentNo: input.InstallmentNo,
	})
	if err != nil {
		h.record(ctx, sess, input, err)
		return nil, err
	}
	h.record(ctx, sess, input, nil)

	h.logger.Info("payment initiated", map[string]interface{}{
		"kind":          string(input.Kind),
		"transactionId": input.TransactionID,
	})

	return &Output{
		Kind:                 input.Kind,
		TransactionID:        input.TransactionID,
		PaymentURL:           reply.PaymentURL,
		PaymentTransactionID: reply.TransactionID,
		Amount:               reply.Amount,
		Details:              reply.Details,
	}, nil
}

func validate(input *Input) error {
	switch {
	case !input.Kind.Valid():
		return apperrors.NewValidationFailedError(fmt.Sprintf("unknown payment kind %q", input.Kind))
	case input.TransactionID == "":
		return apperrors.NewValidationFailedError("transactionId is required")
	case input.Kind == backend.PaymentPrepayment && input.Amount <= 0:
		return apperrors.NewValidationFailedError("prepayment amount must be positive")
	case input.Kind == backend.PaymentMissedEMI && input.InstallmentNo <= 0:
		return apperrors.NewValidationFailedError("installmentNo is required for a missed EMI")
	}
	return nil
}

func (h *Handler) remember(ctx context.Context, sessionID string, kind backend.PaymentKind, transactionID string) (*models.Session, error) {
	switch kind {
	case backend.PaymentForeclosure:
		return h.sessions.SetForeclosureTransactionID(ctx, sessionID, transactionID)
	case backend.PaymentPrepayment:
		return h.sessions.SetPrepaymentTransactionID(ctx, sessionID, transactionID)
	default:
		return h.sessions.SetMissedEMITransactionID(ctx, sessionID, transactionID)
	}
}

func (h *Handler) record(ctx context.Context, sess *models.Session, input *Input, err error) {
	e := journal.Event{
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		TransactionID: input.TransactionID,
		Step:          string(input.Kind),
		Outcome:       journal.OutcomeSuccess,
	}
	if input.InstallmentNo > 0 {
		e.Details = map[string]interface{}{"installmentNo": input.InstallmentNo}
	}
	if err != nil {
		e.Outcome, e.ErrorCode = journal.OutcomeFailed, string(apperrors.CodeOf(err))
	}
	journal.Safe(ctx, h.journal, h.logger, e)
}
