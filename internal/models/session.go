package models

import "time"

// Session is the per-borrower context every flow step reads its identifiers from.
// It is stored whole; writers replace the full value.
type Session struct {
	ID                       string                  `json:"id"`
	Token                    string                  `json:"token"`
	UserID                   string                  `json:"userId"`
	TransactionID            string                  `json:"transactionId,omitempty"`
	ProviderID               string                  `json:"providerId,omitempty"`
	ForeclosureTransactionID string                  `json:"foreclosureTransactionId,omitempty"`
	IGMTransactionID         string                  `json:"igmTransactionId,omitempty"`
	PrepaymentTransactionID  string                  `json:"prepaymentTransactionId,omitempty"`
	MissedEMITransactionID   string                  `json:"missedEmiTransactionId,omitempty"`
	IsAuthenticated          bool                    `json:"isAuthenticated"`
	Actions                  map[string]ActionMirror `json:"actions,omitempty"`
	CreatedAt                time.Time               `json:"createdAt"`
	UpdatedAt                time.Time               `json:"updatedAt"`
}

// ActionMirror records the identifiers of an external form right before it is presented.
type ActionMirror struct {
	FormID        string    `json:"formId"`
	TransactionID string    `json:"transactionId"`
	MirroredAt    time.Time `json:"mirroredAt"`
}

// HasTransaction reports whether the loan transaction id has arrived.
func (s *Session) HasTransaction() bool {
	return s != nil && s.TransactionID != ""
}
