// internal/workers/servicing/loan-dashboard/handler.go
package loandashboard

import (
	"context"

	"loan-portal/internal/common/camunda"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/models"
	"loan-portal/internal/session"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "loan-dashboard"
)

type Backend interface {
	ActiveLoans(ctx context.Context, token, userID string) ([]models.Loan, error)
	ClosedLoans(ctx context.Context, token, userID string) ([]models.Loan, error)
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
	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	active, err := h.backend.ActiveLoans(ctx, sess.Token, sess.UserID)
	if err != nil {
		return nil, err
	}
	out := &Output{
		Active: make([]LoanView, 0, len(active)),
		Closed: []LoanView{},
	}
	for _, l := range active {
		out.Active = append(out.Active, activeView(l))
	}

	if h.config.IncludeClosed {
		closed, err := h.backend.ClosedLoans(ctx, sess.Token, sess.UserID)
		if err != nil {
			h.logger.Warn("closed loans unavailable", map[string]interface{}{"error": err.Error()})
			out.ClosedFailed = true
		}
		for _, l := range closed {
			out.Closed = append(out.Closed, LoanView{
				Loan:    l,
				Actions: []Action{{Name: ActionGrievance, TransactionID: l.TransactionID}},
			})
		}
	}

	h.logger.Debug("dashboard loaded", map[string]interface{}{
		"active": len(out.Active),
		"closed": len(out.Closed),
	})
	return out, nil
}

func activeView(l models.Loan) LoanView {
	v := LoanView{
		Loan:    l,
		Overdue: l.Overdue(),
		Actions: []Action{
			{Name: ActionForeclosure, TransactionID: l.TransactionID},
			{Name: ActionPrepayment, TransactionID: l.TransactionID},
		},
	}
	for _, in := range v.Overdue {
		v.Actions = append(v.Actions, Action{Name: ActionMissedEMI, TransactionID: l.TransactionID, InstallmentNo: in.InstallmentNo})
	}
	v.Actions = append(v.Actions, Action{Name: ActionGrievance, TransactionID: l.TransactionID})
	return v
}
