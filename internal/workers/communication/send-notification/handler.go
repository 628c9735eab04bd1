// internal/workers/communication/send-notification/handler.go
package sendnotification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loan-portal/internal/common/camunda"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-notification"
)

var (
	ErrTemplateNotFound = errors.New("TEMPLATE_NOT_FOUND")
)

// Sender is satisfied by aws.Notifier.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	sender Sender
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, sender Sender, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		sender: sender,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, h.logger, h.config.Timeout, h.execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tmpl, ok := h.config.Templates[input.NotificationType]
	if !ok {
		return nil, apperrors.NewValidationFailedError(fmt.Sprintf("%v: %s", ErrTemplateNotFound, input.NotificationType))
	}

	data := map[string]interface{}{
		"notificationType": input.NotificationType,
		"transactionId":    input.TransactionID,
	}
	for k, v := range input.Data {
		data[k] = v
	}

	out := &Output{Status: StatusDisabled, SentAt: h.now().UTC().Format(time.RFC3339)}
	attempted, delivered := 0, 0
	var lastErr error

	if h.config.EmailEnabled && input.Email != "" {
		attempted++
		id, err := h.sender.SendEmail(ctx, input.Email, renderTemplate(tmpl.Subject, data), renderTemplate(tmpl.Body, data))
		if err != nil {
			lastErr = apperrors.NewNotificationSendFailedError("email", err)
			h.logger.Error("email send failed", map[string]interface{}{"error": err.Error()})
		} else {
			out.EmailMessageID = id
			delivered++
		}
	}

	if h.config.SMSEnabled && input.Phone != "" && tmpl.SMS != "" {
		attempted++
		id, err := h.sender.SendSMS(ctx, input.Phone, renderTemplate(tmpl.SMS, data))
		if err != nil {
			lastErr = apperrors.NewNotificationSendFailedError("sms", err)
			h.logger.Error("SMS send failed", map[string]interface{}{"error": err.Error()})
		} else {
			out.SMSMessageID = id
			delivered++
		}
	}

	switch {
	case attempted == 0:
		h.logger.Debug("no channel enabled for recipient", map[string]interface{}{
			"notificationType": input.NotificationType,
		})
	case delivered == 0:
		out.Status = StatusFailed
		return out, lastErr
	case delivered < attempted:
		out.Status = StatusPartial
	default:
		out.Status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationType": input.NotificationType,
		"status":           out.Status,
	})
	return out, nil
}

// renderTemplate fills {{key}} placeholders and drops any left unfilled.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		switch val := v.(type) {
		case string:
			value = val
		case float64:
			value = strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", val), "0"), ".")
		case nil:
		default:
			value = fmt.Sprintf("%v", val)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
