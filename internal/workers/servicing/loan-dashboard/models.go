// internal/workers/servicing/loan-dashboard/models.go
package loandashboard

import "loan-portal/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
}

// Action is an entry point the dashboard offers for one loan.
type Action struct {
	Name          string `json:"name"`
	TransactionID string `json:"transactionId"`
	InstallmentNo int    `json:"installmentNo,omitempty"`
}

type LoanView struct {
	models.Loan
	Overdue []models.Installment `json:"overdue,omitempty"`
	Actions []Action             `json:"actions"`
}

type Output struct {
	Active       []LoanView `json:"active"`
	Closed       []LoanView `json:"closed"`
	ClosedFailed bool       `json:"closedFailed,omitempty"`
}

// Action names
const (
	ActionForeclosure = "foreclosure"
	ActionPrepayment  = "prepayment"
	ActionMissedEMI   = "missed-emi"
	ActionGrievance   = "grievance"
)
