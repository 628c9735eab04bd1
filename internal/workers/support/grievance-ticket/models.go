// internal/workers/support/grievance-ticket/models.go
package grievanceticket

import "loan-portal/internal/models"

type Input struct {
	SessionID     string `json:"sessionId"`
	TransactionID string `json:"transactionId"`
	Category      string `json:"category"`
	SubCategory   string `json:"sub_category"`
	ShortDesc     string `json:"shortDesc"`
	LongDesc      string `json:"longDesc"`
	ImageURL      string `json:"imageUrl,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type Output struct {
	Ticket  models.Ticket `json:"ticket"`
	Indexed bool          `json:"indexed"`
}

type StatusInput struct {
	SessionID string `json:"sessionId"`
	// TransactionID defaults to the IGM transaction stored in the session.
	TransactionID string `json:"transactionId,omitempty"`
}

type StatusOutput struct {
	IssueID       string `json:"issueId"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Resolution    string `json:"resolution,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

type ListInput struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status,omitempty"`
	Category  string `json:"category,omitempty"`
	Text      string `json:"q,omitempty"`
	From      int    `json:"from,omitempty"`
	Size      int    `json:"size,omitempty"`
}
