// internal/workers/auth/user-logout/handler.go
package userlogout

import (
	"context"

	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/session"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "user-logout"
)

// Trackers is satisfied by poller.Registry.
type Trackers interface {
	RemoveSession(sessionID string) int
}

type Handler struct {
	config   *Config
	sessions session.Manager
	trackers Trackers
	logger   logger.Logger
}

func NewHandler(config *Config, sessions session.Manager, trackers Trackers, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		sessions: sessions,
		trackers: trackers,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// execute stops every poll of the session before dropping it, so no late
// result writes into a cleared session.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SessionID == "" {
		return nil, apperrors.NewValidationFailedError("sessionId is required")
	}

	closed := 0
	if h.trackers != nil {
		closed = h.trackers.RemoveSession(input.SessionID)
	}
	if err := h.sessions.Clear(ctx, input.SessionID); err != nil {
		return nil, err
	}

	h.logger.Info("user logged out", map[string]interface{}{
		"sessionId":      input.SessionID,
		"trackersClosed": closed,
	})
	return &Output{Success: true, TrackersClosed: closed}, nil
}
