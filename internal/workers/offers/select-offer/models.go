// internal/workers/offers/select-offer/models.go
package selectoffer

import (
	"loan-portal/internal/finance"
	"loan-portal/internal/models"
)

// Input selects an amount under one lender's offer.
type Input struct {
	SessionID string  `json:"sessionId"`
	LenderID  string  `json:"lenderId"`
	Amount    float64 `json:"amount"`
}

type Output struct {
	ProviderID    string         `json:"providerId"`
	TransactionID string         `json:"transactionId"`
	Quote         *finance.Quote `json:"quote"`
	Next          string         `json:"next"`
}

type FetchInput struct {
	SessionID string `json:"sessionId"`
	// Refresh bypasses the cached offers, as the manual retry does.
	Refresh bool `json:"refresh"`
}

type FetchOutput struct {
	TransactionID string      `json:"transactionId"`
	Offers        []OfferView `json:"offers"`
	Attempts      int         `json:"attempts"`
	Cached        bool        `json:"cached"`
}

// OfferView is an offer with its slider bounds and the quote at the maximum amount.
type OfferView struct {
	models.LoanOffer
	Bounds    finance.Bounds `json:"bounds"`
	Positions int            `json:"positions"`
	Quote     *finance.Quote `json:"quote,omitempty"`
}

type QuoteInput struct {
	SessionID string  `json:"sessionId"`
	LenderID  string  `json:"lenderId"`
	Amount    float64 `json:"amount"`
}
