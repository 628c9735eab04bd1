// internal/workers/application/bank-details/models.go
package bankdetails

import "loan-portal/internal/models"

type Input struct {
	SessionID string             `json:"sessionId"`
	Bank      models.BankDetails `json:"bank"`
}

type Output struct {
	TransactionID string `json:"transactionId"`
	Next          string `json:"next"`
}
