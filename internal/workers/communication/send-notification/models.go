// internal/workers/communication/send-notification/models.go
package sendnotification

type Input struct {
	NotificationType string                 `json:"notificationType"`
	Email            string                 `json:"email,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	TransactionID    string                 `json:"transactionId,omitempty"`
	Data             map[string]interface{} `json:"data,omitempty"`
}

type Output struct {
	Status         string `json:"status"` // "sent", "partial", "failed", "disabled"
	EmailMessageID string `json:"emailMessageId,omitempty"`
	SMSMessageID   string `json:"smsMessageId,omitempty"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
