// internal/workers/support/grievance-ticket/handler.go
package grievanceticket

import (
	"context"
	"strings"
	"time"

	"loan-portal/internal/backend"
	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/validation"
	"loan-portal/internal/formvalidation"
	"loan-portal/internal/journal"
	"loan-portal/internal/models"
	"loan-portal/internal/tickets"
	sendnotification "loan-portal/internal/workers/communication/send-notification"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "grievance-ticket"

	step = "grievance"
)

type Backend interface {
	CreateTicket(ctx context.Context, token string, req *backend.TicketRequest) (*backend.TicketReply, error)
	TicketStatus(ctx context.Context, token, transactionID string) (*backend.TicketStatusReply, error)
}

type Sessions interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	SetIGMTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
}

// Index is the searchable ticket copy; see tickets.Index.
type Index interface {
	Put(ctx context.Context, t *models.Ticket) error
	UpdateStatus(ctx context.Context, id, status string) error
	Search(ctx context.Context, q tickets.Query) (*tickets.Result, error)
}

type Notifier interface {
	Execute(ctx context.Context, input *sendnotification.Input) (*sendnotification.Output, error)
}

type HandlerOptions struct {
	Index    Index
	Notifier Notifier
	Journal  journal.Recorder
}

type Handler struct {
	config   *Config
	backend  Backend
	sessions Sessions
	index    Index
	notifier Notifier
	journal  journal.Recorder
	logger   logger.Logger
	now      func() time.Time
}

func NewHandler(config *Config, backend Backend, sessions Sessions, opts HandlerOptions, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		backend:  backend,
		sessions: sessions,
		index:    opts.Index,
		notifier: opts.Notifier,
		journal:  opts.Journal,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:      time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// execute creates a ticket. The index copy and the notification are best effort.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if errs := h.validate(input); len(errs) > 0 {
		verr := apperrors.NewValidationFailedError(formvalidation.Summary(errs))
		verr.Metadata = map[string]interface{}{"fields": errs}
		return nil, verr
	}

	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := h.sessions.SetIGMTransactionID(ctx, sess.ID, input.TransactionID); err != nil {
		return nil, err
	}

	reply, err := h.backend.CreateTicket(ctx, sess.Token, &backend.TicketRequest{
		TransactionID: input.TransactionID,
		Category:      input.Category,
		SubCategory:   input.SubCategory,
		ShortDesc:     strings.TrimSpace(input.ShortDesc),
		LongDesc:      strings.TrimSpace(input.LongDesc),
		ImageURL:      input.ImageURL,
	})
	if err != nil {
		h.record(ctx, sess, input.TransactionID, "", err)
		return nil, err
	}

	now := h.now().UTC()
	ticket := models.Ticket{
		ID:            reply.IssueID,
		TransactionID: input.TransactionID,
		UserID:        sess.UserID,
		Category:      input.Category,
		SubCategory:   input.SubCategory,
		ShortDesc:     strings.TrimSpace(input.ShortDesc),
		LongDesc:      strings.TrimSpace(input.LongDesc),
		ImageURL:      input.ImageURL,
		Status:        reply.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ticket.Status == "" {
		ticket.Status = "OPEN"
	}

	out := &Output{Ticket: ticket}
	if h.index != nil && ticket.ID != "" {
		if err := h.index.Put(ctx, &ticket); err != nil {
			h.logger.Warn("ticket not indexed", map[string]interface{}{
				"ticketId": ticket.ID,
				"error":    apperrors.NewTicketIndexError(err).Details,
			})
		} else {
			out.Indexed = true
		}
	}

	h.record(ctx, sess, input.TransactionID, ticket.ID, nil)
	h.notify(ctx, input, &ticket)

	h.logger.Info("grievance ticket created", map[string]interface{}{
		"ticketId":      ticket.ID,
		"transactionId": ticket.TransactionID,
		"category":      ticket.Category,
	})
	return out, nil
}

// Status fetches the backend-owned status and refreshes the index copy.
func (h *Handler) Status(ctx context.Context, input *StatusInput) (*StatusOutput, error) {
	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	transactionID := input.TransactionID
	if transactionID == "" {
		transactionID = sess.IGMTransactionID
	}
	if transactionID == "" {
		return nil, apperrors.NewValidationFailedError("no grievance transaction in session")
	}

	reply, err := h.backend.TicketStatus(ctx, sess.Token, transactionID)
	if err != nil {
		return nil, err
	}

	if h.index != nil && reply.IssueID != "" && reply.Status != "" {
		if err := h.index.UpdateStatus(ctx, reply.IssueID, reply.Status); err != nil {
			h.logger.Warn("ticket status not indexed", map[string]interface{}{
				"ticketId": reply.IssueID,
				"error":    err.Error(),
			})
		}
	}

	return &StatusOutput{
		IssueID:       reply.IssueID,
		TransactionID: transactionID,
		Status:        reply.Status,
		Resolution:    reply.Resolution,
		UpdatedAt:     reply.UpdatedAt,
	}, nil
}

// List searches the borrower's indexed tickets.
func (h *Handler) List(ctx context.Context, input *ListInput) (*tickets.Result, error) {
	sess, err := h.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if h.index == nil {
		return &tickets.Result{Tickets: []models.Ticket{}}, nil
	}

	res, err := h.index.Search(ctx, tickets.Query{
		UserID:   sess.UserID,
		Status:   input.Status,
		Category: input.Category,
		Text:     input.Text,
		From:     input.From,
		Size:     input.Size,
	})
	if err != nil {
		return nil, apperrors.NewTicketIndexError(err)
	}
	return res, nil
}

func (h *Handler) validate(input *Input) []validation.ValidationError {
	var errs []validation.ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, validation.ValidationError{Field: field, Code: code, Message: msg})
	}

	required := []struct{ field, value string }{
		{"transactionId", input.TransactionID},
		{"category", input.Category},
		{"sub_category", input.SubCategory},
		{"shortDesc", input.ShortDesc},
		{"longDesc", input.LongDesc},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			add(r.field, formvalidation.CodeMissing, r.field+" is required")
		}
	}
	if h.config.MaxShortDesc > 0 && len(input.ShortDesc) > h.config.MaxShortDesc {
		add("shortDesc", formvalidation.CodeInvalidFormat, "shortDesc is too long")
	}
	if input.ImageURL != "" && !validation.ValidateURL(input.ImageURL) {
		add("imageUrl", formvalidation.CodeInvalidFormat, "imageUrl must be an http(s) URL")
	}
	return errs
}

func (h *Handler) notify(ctx context.Context, input *Input, t *models.Ticket) {
	if !h.config.Notify || h.notifier == nil || (input.Email == "" && input.Phone == "") {
		return
	}
	_, err := h.notifier.Execute(ctx, &sendnotification.Input{
		NotificationType: models.NotificationTicketCreated,
		Email:            input.Email,
		Phone:            input.Phone,
		TransactionID:    t.TransactionID,
		Data: map[string]interface{}{
			"ticketId": t.ID,
			"category": t.Category,
			"status":   t.Status,
		},
	})
	if err != nil {
		h.logger.Warn("ticket notification failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) record(ctx context.Context, sess *models.Session, transactionID, ticketID string, err error) {
	e := journal.Event{
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		TransactionID: transactionID,
		Step:          step,
		Outcome:       journal.OutcomeSuccess,
	}
	if ticketID != "" {
		e.Details = map[string]interface{}{"ticketId": ticketID}
	}
	if err != nil {
		e.Outcome, e.ErrorCode = journal.OutcomeFailed, string(apperrors.CodeOf(err))
	}
	journal.Safe(ctx, h.journal, h.logger, e)
}
