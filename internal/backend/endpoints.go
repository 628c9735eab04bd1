package backend

import (
	"context"
	"fmt"

	"loan-portal/internal/common/config"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/models"
)

// ==========================
// Auth
// ==========================

func (c *Client) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.postChecked(ctx, "signup", "/auth/signup", "", authContract, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.postChecked(ctx, "login", "/auth/login", "", authContract, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==========================
// Application
// ==========================

type SubmitApplicationRequest struct {
	UserID string                  `json:"userId"`
	Form   *models.ApplicationForm `json:"form"`
}

type SubmitApplicationReply struct {
	ApplicationID string `json:"applicationId"`
	Message       string `json:"message,omitempty"`
}

func (c *Client) SubmitApplication(ctx context.Context, token string, req *SubmitApplicationRequest) (*SubmitApplicationReply, error) {
	var out SubmitApplicationReply
	if err := c.post(ctx, "submit application", "/application/submit", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveTransaction asks for the transaction id that pivots every later step.
func (c *Client) ResolveTransaction(ctx context.Context, token, userID, applicationID string) (string, error) {
	in := map[string]string{"userId": userID, "applicationId": applicationID}
	var out struct {
		TransactionID string `json:"transactionId"`
	}
	if err := c.postChecked(ctx, "resolve transaction", "/application/transaction", token, transactionContract, in, &out); err != nil {
		return "", err
	}
	return out.TransactionID, nil
}

// ==========================
// Offers
// ==========================

func (c *Client) FetchOffers(ctx context.Context, token, transactionID string) ([]models.LoanOffer, error) {
	var out []models.LoanOffer
	in := map[string]string{"transactionId": transactionID}
	if err := c.postChecked(ctx, "fetch offers", "/offers", token, offersContract, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type SubmitAmountRequest struct {
	Amount        float64 `json:"amount"`
	UserID        string  `json:"userId"`
	TransactionID string  `json:"transactionId"`
	ProviderID    string  `json:"providerId"`
}

func (c *Client) SubmitAmount(ctx context.Context, token string, req *SubmitAmountRequest) error {
	return c.post(ctx, "submit amount", "/offers/select", token, req, nil)
}

type BankDetailsRequest struct {
	TransactionID string `json:"transactionId"`
	models.BankDetails
}

func (c *Client) SubmitBankDetails(ctx context.Context, token string, req *BankDetailsRequest) error {
	return c.post(ctx, "submit bank details", "/bank-details", token, req, nil)
}

// ==========================
// External actions
// ==========================

type FormReply struct {
	FormURL string `json:"formUrl"`
	FormID  string `json:"formId"`
}

type StatusReply struct {
	Status string
	Reason string
}

func actionPath(kind, suffix string) (string, error) {
	switch kind {
	case config.ActionKYC, config.ActionEMandate, config.ActionAgreement:
		return "/" + kind + "/" + suffix, nil
	}
	return "", apperrors.NewValidationFailedError(fmt.Sprintf("unknown action kind %q", kind))
}

// CreateForm asks the provider of kind for a new form bound to transactionID.
func (c *Client) CreateForm(ctx context.Context, token, kind, transactionID string) (*FormReply, error) {
	path, err := actionPath(kind, "form")
	if err != nil {
		return nil, err
	}
	var out FormReply
	in := map[string]string{"transactionId": transactionID}
	if err := c.postChecked(ctx, kind+" form", path, token, formContract, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckStatus polls the verdict of a form. An absent status field yields an
// empty Status, which callers treat as still pending.
func (c *Client) CheckStatus(ctx context.Context, token, kind, formID, transactionID string) (*StatusReply, error) {
	path, err := actionPath(kind, "status")
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	in := map[string]string{"formId": formID, "transactionId": transactionID}
	if err := c.postChecked(ctx, kind+" status", path, token, statusContracts[kind], in, &out); err != nil {
		return nil, err
	}

	reply := &StatusReply{}
	reply.Status, _ = out[StatusField(kind)].(string)
	reply.Reason, _ = out["reason"].(string)
	return reply, nil
}

// ==========================
// Disbursal
// ==========================

const (
	DisbursalPending = "Pending"
	DisbursalDone    = "Done"
	DisbursalFailed  = "Failed"
)

type DisbursalReply struct {
	Message string       `json:"message"`
	Loan    *models.Loan `json:"loan,omitempty"`
}

func (c *Client) DisbursalStatus(ctx context.Context, token, transactionID string) (*DisbursalReply, error) {
	var out DisbursalReply
	in := map[string]string{"transactionId": transactionID}
	if err := c.postChecked(ctx, "disbursal status", "/disbursement/status", token, disbursalContract, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==========================
// Servicing
// ==========================

func (c *Client) ActiveLoans(ctx context.Context, token, userID string) ([]models.Loan, error) {
	return c.loans(ctx, "active loans", "/loans/active", token, userID)
}

func (c *Client) ClosedLoans(ctx context.Context, token, userID string) ([]models.Loan, error) {
	return c.loans(ctx, "closed loans", "/loans/closed", token, userID)
}

func (c *Client) loans(ctx context.Context, op, path, token, userID string) ([]models.Loan, error) {
	var out []models.Loan
	if err := c.post(ctx, op, path, token, map[string]string{"userId": userID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentKind selects one of the servicing payment flows.
type PaymentKind string

const (
	PaymentForeclosure PaymentKind = "foreclosure"
	PaymentPrepayment  PaymentKind = "prepayment"
	PaymentMissedEMI   PaymentKind = "missed-emi"
)

func (k PaymentKind) Valid() bool {
	return k == PaymentForeclosure || k == PaymentPrepayment || k == PaymentMissedEMI
}

type PaymentRequest struct {
	TransactionID string  `json:"transactionId"`
	UserID        string  `json:"userId,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	InstallmentNo int     `json:"installmentNo,omitempty"`
}

type PaymentReply struct {
	PaymentURL    string                 `json:"paymentUrl"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Amount        float64                `json:"amount,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// InitiatePayment starts a foreclosure, prepayment or missed-EMI payment.
func (c *Client) InitiatePayment(ctx context.Context, token string, kind PaymentKind, req *PaymentRequest) (*PaymentReply, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationFailedError(fmt.Sprintf("unknown payment kind %q", kind))
	}
	var out PaymentReply
	op := string(kind) + " initiation"
	if err := c.postChecked(ctx, op, "/"+string(kind)+"/initiate", token, paymentContract, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==========================
// Grievances
// ==========================

type TicketRequest struct {
	TransactionID string `json:"transactionId"`
	Category      string `json:"category"`
	SubCategory   string `json:"sub_category"`
	ShortDesc     string `json:"shortDesc"`
	LongDesc      string `json:"longDesc"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

type TicketReply struct {
	IssueID       string `json:"issueId"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
}

func (c *Client) CreateTicket(ctx context.Context, token string, req *TicketRequest) (*TicketReply, error) {
	var out TicketReply
	if err := c.post(ctx, "create ticket", "/igm/issue", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type TicketStatusReply struct {
	IssueID    string `json:"issueId"`
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

func (c *Client) TicketStatus(ctx context.Context, token, transactionID string) (*TicketStatusReply, error) {
	var out TicketStatusReply
	in := map[string]string{"transactionId": transactionID}
	if err := c.post(ctx, "ticket status", "/igm/status", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
