// internal/workers/application/submit-application/handler.go
package submitapplication

import (
	"context"

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
	TaskType = "submit-application"
)

type Backend interface {
	SubmitApplication(ctx context.Context, token string, req *backend.SubmitApplicationRequest) (*backend.SubmitApplicationReply, error)
	ResolveTransaction(ctx context.Context, token, userID, applicationID string) (string, error)
}

type Handler struct {
	config    *Config
	backend   Backend
	sessions  session.Manager
	validator *formvalidation.Validator
	journal   journal.Recorder
	flow      *registry.FlowRegistry
	logger    logger.Logger
}

func NewHandler(
	config *Config,
	backend Backend,
	sessions session.Manager,
	validator *formvalidation.Validator,
	recorder journal.Recorder,
	flow *registry.FlowRegistry,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:    config,
		backend:   backend,
		sessions:  sessions,
		validator: validator,
		journal:   recorder,
		flow:      flow,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// CheckSection validates one section without calling the backend.
func (h *Handler) CheckSection(section string, input *Input) *SectionResult {
	if input.Form == nil {
		return &SectionResult{Section: section}
	}
	errs := h.validator.ValidateSection(section, input.Form)
	res := &SectionResult{Section: section, Valid: len(errs) == 0, Errors: errs}
	if res.Valid {
		for i, s := range formvalidation.Sections {
			if s == section && i+1 < len(formvalidation.Sections) {
				res.NextSection = formvalidation.Sections[i+1]
			}
		}
	}
	return res
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Form == nil {
		return nil, apperrors.NewValidationFailedError("form is required")
	}
	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if res := h.validator.ValidateAll(input.Form); !res.Valid {
		verr := apperrors.NewValidationFailedError(formvalidation.Summary(res.Errors))
		verr.Metadata = map[string]interface{}{
			"fields":  res.Errors,
			"section": h.validator.FirstInvalidSection(input.Form),
		}
		return nil, verr
	}

	reply, err := h.backend.SubmitApplication(ctx, sess.Token, &backend.SubmitApplicationRequest{
		UserID: sess.UserID,
		Form:   input.Form,
	})
	if err != nil {
		h.record(ctx, sess.ID, sess.UserID, "", err)
		return nil, err
	}

	transactionID, err := h.backend.ResolveTransaction(ctx, sess.Token, sess.UserID, reply.ApplicationID)
	if err != nil {
		h.record(ctx, sess.ID, sess.UserID, "", err)
		return nil, err
	}
	if _, err := h.sessions.SetTransactionID(ctx, sess.ID, transactionID); err != nil {
		return nil, err
	}

	h.record(ctx, sess.ID, sess.UserID, transactionID, nil)
	h.logger.Info("application submitted", map[string]interface{}{
		"applicationId": reply.ApplicationID,
		"transactionId": transactionID,
	})
	return &Output{
		ApplicationID: reply.ApplicationID,
		TransactionID: transactionID,
		Next:          h.flow.MustNext(registry.StepApplication),
	}, nil
}

func (h *Handler) record(ctx context.Context, sessionID, userID, transactionID string, err error) {
	e := journal.Event{
		SessionID:     sessionID,
		UserID:        userID,
		TransactionID: transactionID,
		Step:          registry.StepApplication,
		Outcome:       journal.OutcomeSuccess,
	}
	if err != nil {
		e.Outcome = journal.OutcomeFailed
		e.ErrorCode = string(apperrors.CodeOf(err))
	}
	journal.Safe(ctx, h.journal, h.logger, e)
}
