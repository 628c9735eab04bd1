// Package finance holds the loan arithmetic the portal computes locally: the
// amortized EMI and the bounds of the offer amount slider.
package finance

import (
	"errors"
	"fmt"
	"math"

	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/models"
)

var ErrInvalidLoanTerms = errors.New("INVALID_LOAN_TERMS")

// EMI returns the equated monthly installment for principal borrowed at
// annualRate percent over termMonths months:
//
//	EMI = P × r × (1+r)^n / ((1+r)^n − 1), r = annualRate / 12 / 100
//
// A zero rate degrades to P / n.
func EMI(principal, annualRate float64, termMonths int) (float64, error) {
	switch {
	case principal <= 0 || math.IsNaN(principal) || math.IsInf(principal, 0):
		return 0, fmt.Errorf("%w: principal must be positive", ErrInvalidLoanTerms)
	case annualRate < 0 || math.IsNaN(annualRate) || math.IsInf(annualRate, 0):
		return 0, fmt.Errorf("%w: annual rate must not be negative", ErrInvalidLoanTerms)
	case termMonths <= 0:
		return 0, fmt.Errorf("%w: term must be positive", ErrInvalidLoanTerms)
	}

	n := float64(termMonths)
	r := annualRate / 12 / 100
	if r == 0 {
		return principal / n, nil
	}
	growth := math.Pow(1+r, n)
	return principal * r * growth / (growth - 1), nil
}

// Quote is the live recomputation shown under an offer while the borrower drags the slider.
type Quote struct {
	LenderID      string  `json:"lenderId"`
	Amount        float64 `json:"amount"`
	InterestRate  float64 `json:"interestRate"`
	Term          int     `json:"term"`
	EMI           float64 `json:"emi"`
	TotalPayable  float64 `json:"totalPayable"`
	TotalInterest float64 `json:"totalInterest"`
}

// QuoteOffer recomputes the installment for amount under offer's rate and term.
// amount must lie inside the offer's slider bounds.
func QuoteOffer(offer models.LoanOffer, amount float64) (*Quote, error) {
	bounds := SliderBounds(offer.LoanAmount)
	if !bounds.Contains(amount) {
		return nil, apperrors.NewAmountOutOfRangeError(amount, bounds.Min, bounds.Max)
	}

	emi, err := EMI(amount, offer.InterestRate, offer.Term)
	if err != nil {
		return nil, err
	}
	total := emi * float64(offer.Term)
	return &Quote{
		LenderID:      offer.LenderID,
		Amount:        amount,
		InterestRate:  offer.InterestRate,
		Term:          offer.Term,
		EMI:           Round2(emi),
		TotalPayable:  Round2(total),
		TotalInterest: Round2(total - amount),
	}, nil
}

// Round2 rounds to paise for display. Amounts submitted to the backend are never rounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
