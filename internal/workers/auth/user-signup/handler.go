// internal/workers/auth/user-signup/handler.go
package usersignup

import (
	"context"
	"strings"

	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/validation"
	"loan-portal/internal/formvalidation"
	"loan-portal/internal/models"
	"loan-portal/internal/session"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "user-signup"
)

type Backend interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResult, error)
}

type Handler struct {
	config   *Config
	backend  Backend
	sessions session.Manager
	logger   logger.Logger
}

func NewHandler(config *Config, backend Backend, sessions session.Manager, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		backend:  backend,
		sessions: sessions,
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
	if errs := h.validate(input); len(errs) > 0 {
		return nil, apperrors.NewValidationFailedError(formvalidation.Summary(errs))
	}

	result, err := h.backend.Signup(ctx, &models.SignupRequest{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Mobile:   input.Mobile,
		Password: input.Password,
	})
	if err != nil {
		return nil, err
	}

	out := &Output{UserID: result.UserID, Next: NextLogin}
	// Some deployments sign the user in straight away.
	if result.Token != "" {
		sess, err := h.sessions.Create(ctx, result.Token, result.UserID)
		if err != nil {
			return nil, err
		}
		out.SessionID = sess.ID
		out.Next = NextApplication
	}

	h.logger.Info("user signed up", map[string]interface{}{
		"userId": result.UserID,
		"next":   out.Next,
	})
	return out, nil
}

func (h *Handler) validate(input *Input) []validation.ValidationError {
	var errs []validation.ValidationError
	if strings.TrimSpace(input.Name) == "" {
		errs = append(errs, validation.ValidationError{Field: "name", Message: "name is required", Code: formvalidation.CodeMissing})
	}
	if !validation.ValidateEmail(strings.TrimSpace(input.Email)) {
		errs = append(errs, validation.ValidationError{Field: "email", Message: "email is invalid", Code: formvalidation.CodeInvalidFormat})
	}
	if !formvalidation.ValidMobile(input.Mobile) {
		errs = append(errs, validation.ValidationError{Field: "mobile", Message: "mobile must be a 10 digit Indian number", Code: formvalidation.CodeInvalidFormat})
	}
	if len(input.Password) < h.config.MinPasswordLength {
		errs = append(errs, validation.ValidationError{Field: "password", Message: "password is too short", Code: formvalidation.CodeInvalidFormat})
	}
	return errs
}
