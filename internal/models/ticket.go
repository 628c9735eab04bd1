package models

import "time"

// Ticket is a grievance (IGM) issue. Status is owned by the backend.
type Ticket struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId,omitempty"`
	Category      string    `json:"category"`
	SubCategory   string    `json:"sub_category"`
	ShortDesc     string    `json:"shortDesc"`
	LongDesc      string    `json:"longDesc"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
