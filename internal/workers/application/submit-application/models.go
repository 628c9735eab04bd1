// internal/workers/application/submit-application/models.go
package submitapplication

import (
	"loan-portal/internal/common/validation"
	"loan-portal/internal/models"
)

type Input struct {
	SessionID string                  `json:"sessionId"`
	Form      *models.ApplicationForm `json:"form"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	TransactionID string `json:"transactionId"`
	Next          string `json:"next"`
}

// SectionResult gates the "Next" button of one form section.
type SectionResult struct {
	Section     string                       `json:"section"`
	Valid       bool                         `json:"valid"`
	Errors      []validation.ValidationError `json:"errors,omitempty"`
	NextSection string                       `json:"nextSection,omitempty"`
}
