// internal/workers/application/bank-details/handler.go
package bankdetails

import (
	"context"
	"strings"

	"loan-portal/internal/backend"
	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/formvalidation"
	"loan-portal/internal/journal"
	"loan-portal/internal/session"
	"loan-portal/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "bank-details"
)

type Backend interface {
	SubmitBankDetails(ctx context.Context, token string, req *backend.BankDetailsRequest) error
}

type Handler struct {
	config   *Config
	backend  Backend
	sessions session.Manager
	journal  journal.Recorder
	flow     *registry.FlowRegistry
	logger   logger.Logger
}

func NewHandler(config *Config, backend Backend, sessions session.Manager, recorder journal.Recorder, flow *registry.FlowRegistry, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		backend:  backend,
		sessions: sessions,
		journal:  recorder,
		flow:     flow,
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
	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	transactionID, err := session.RequireTransaction(sess)
	if err != nil {
		return nil, err
	}

	bank := input.Bank
	bank.IFSC = strings.ToUpper(strings.TrimSpace(bank.IFSC))
	bank.AccountNumber = strings.TrimSpace(bank.AccountNumber)
	if errs := formvalidation.ValidateBankDetails(&bank); len(errs) > 0 {
		verr := apperrors.NewValidationFailedError(formvalidation.Summary(errs))
		verr.Metadata = map[string]interface{}{"fields": errs}
		return nil, verr
	}

	err = h.backend.SubmitBankDetails(ctx, sess.Token, &backend.BankDetailsRequest{
		TransactionID: transactionID,
		BankDetails:   bank,
	})

	e := journal.Event{
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		TransactionID: transactionID,
		Step:          registry.StepBankDetails,
		Outcome:       journal.OutcomeSuccess,
	}
	if err != nil {
		e.Outcome, e.ErrorCode = journal.OutcomeFailed, string(apperrors.CodeOf(err))
	}
	journal.Safe(ctx, h.journal, h.logger, e)
	if err != nil {
		return nil, err
	}

	h.logger.Info("bank details submitted", map[string]interface{}{"transactionId": transactionID})
	return &Output{TransactionID: transactionID, Next: h.flow.MustNext(registry.StepBankDetails)}, nil
}
