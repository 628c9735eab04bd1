// internal/models/notification.go
package models

// NotificationTemplate is a subject/body pair with {{placeholder}} fields.
type NotificationTemplate struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SMS     string `json:"sms"`
}

// Notification types
const (
	NotificationLoanDisbursed = "loan_disbursed"
	NotificationTicketCreated = "ticket_created"
	NotificationActionFailed  = "verification_rejected"
)
