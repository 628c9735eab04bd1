// internal/workers/servicing/payment-initiation/models.go
package paymentinitiation

import "loan-portal/internal/backend"

type Input struct {
	SessionID string              `json:"sessionId"`
	Kind      backend.PaymentKind `json:"kind"`
	// TransactionID identifies the loan the payment applies to.
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount,omitempty"`
	InstallmentNo int     `json:"installmentNo,omitempty"`
}

type Output struct {
	Kind                 backend.PaymentKind    `json:"kind"`
	TransactionID        string                 `json:"transactionId"`
	PaymentURL           string                 `json:"paymentUrl"`
	PaymentTransactionID string                 `json:"paymentTransactionId,omitempty"`
	Amount               float64                `json:"amount,omitempty"`
	Details              map[string]interface{} `json:"details,omitempty"`
}
