// internal/workers/auth/user-login/handler.go
package userlogin

import (
	"context"
	"strings"

	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	httpclient "loan-portal/internal/common/http"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/models"
	"loan-portal/internal/session"
	"loan-portal/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "user-login"
)

type Backend interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
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
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.NewValidationFailedError("email and password are required")
	}

	result, err := h.backend.Login(ctx, &models.LoginRequest{Email: email, Password: input.Password})
	if err != nil {
		if httpclient.IsUnauthorized(err) {
			h.logger.Info("login rejected", nil)
			return nil, apperrors.NewAuthenticationError("invalid email or password")
		}
		return nil, err
	}
	if result.Token == "" {
		return nil, apperrors.NewAuthenticationError("backend issued no token")
	}

	sess, err := h.sessions.Create(ctx, result.Token, result.UserID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("user logged in", map[string]interface{}{
		"userId":    result.UserID,
		"sessionId": sess.ID,
	})
	return &Output{SessionID: sess.ID, UserID: result.UserID, Next: registry.StepApplication}, nil
}
