// internal/workers/communication/send-notification/config.go
package sendnotification

import (
	"time"

	"loan-portal/internal/common/config"
	"loan-portal/internal/models"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	Timeout      time.Duration
	Templates    map[string]models.NotificationTemplate
}

func DefaultConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		Timeout:      30 * time.Second,
		Templates:    defaultTemplates(),
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.EmailEnabled = cfg.Notifications.Email.Enabled
	c.SMSEnabled = cfg.Notifications.SMS.Enabled
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	return c
}

func defaultTemplates() map[string]models.NotificationTemplate {
	return map[string]models.NotificationTemplate{
		models.NotificationLoanDisbursed: {
			Type:    models.NotificationLoanDisbursed,
			Subject: "Your loan has been disbursed",
			Body:    "Hi {{name}}, your loan of Rs {{amount}} from {{lender}} has been disbursed. Transaction {{transactionId}}.",
			SMS:     "Loan of Rs {{amount}} disbursed. Txn {{transactionId}}.",
		},
		models.NotificationTicketCreated: {
			Type:    models.NotificationTicketCreated,
			Subject: "We have received your grievance",
			Body:    "Your ticket {{ticketId}} ({{category}}) is registered. Status: {{status}}.",
			SMS:     "Grievance {{ticketId}} registered.",
		},
		models.NotificationActionFailed: {
			Type:    models.NotificationActionFailed,
			Subject: "Action needed on your loan application",
			Body:    "Your {{kind}} could not be completed: {{reason}}. Please retry from the portal.",
			SMS:     "{{kind}} rejected: {{reason}}. Retry from the portal.",
		},
	}
}
