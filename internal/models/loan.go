package models

// LoanOffer is one lender's offer; immutable once fetched.
type LoanOffer struct {
	LenderID          string  `json:"lenderId"`
	LenderName        string  `json:"lenderName"`
	LoanAmount        float64 `json:"loanAmount"`
	InterestRate      float64 `json:"interestRate"` // annual, percent
	Term              int     `json:"term"`         // months
	InstallmentAmount float64 `json:"installmentAmount"`
	ProcessingFee     float64 `json:"processingFee,omitempty"`
}

// Loan is the backend's read-only projection of a disbursed loan.
type Loan struct {
	TransactionID   string                 `json:"transactionId"`
	LoanDetails     LoanDetails            `json:"loanDetails"`
	PaymentSchedule []Installment          `json:"paymentSchedule"`
	Breakdown       map[string]interface{} `json:"breakdown,omitempty"`
	Provider        Provider               `json:"provider"`
	Documents       []Document             `json:"documents,omitempty"`
}

type LoanDetails struct {
	Amount       float64 `json:"amount"`
	InterestRate float64 `json:"interestRate"`
	Term         int     `json:"term"`
	EMI          float64 `json:"emi"`
	Outstanding  float64 `json:"outstanding,omitempty"`
	Status       string  `json:"status"`
	DisbursedAt  string  `json:"disbursedAt,omitempty"`
}

type Installment struct {
	InstallmentNo int     `json:"installmentNo"`
	DueDate       string  `json:"dueDate"`
	Amount        float64 `json:"amount"`
	Principal     float64 `json:"principal,omitempty"`
	Interest      float64 `json:"interest,omitempty"`
	Status        string  `json:"status"` // PAID, DUE, OVERDUE
}

type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Overdue returns the installments the backend marks as missed.
func (l *Loan) Overdue() []Installment {
	var out []Installment
	for _, in := range l.PaymentSchedule {
		if in.Status == "OVERDUE" {
			out = append(out, in)
		}
	}
	return out
}

// ExternalAction is one outsourced verification or signature step.
type ExternalAction struct {
	Kind          string `json:"kind"`
	FormURL       string `json:"formUrl"`
	FormID        string `json:"formId"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
