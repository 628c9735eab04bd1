// internal/models/application.go
package models

// ApplicationForm is the three-section loan application.
type ApplicationForm struct {
	Personal   PersonalDetails   `json:"personal"`
	Employment EmploymentDetails `json:"employment"`
	Address    AddressDetails    `json:"address"`
}

type PersonalDetails struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dob"` // YYYY-MM-DD
	Gender      string `json:"gender,omitempty"`
	PAN         string `json:"pan"`
	Mobile      string `json:"mobile"`
	Email       string `json:"email,omitempty"`
}

type EmploymentDetails struct {
	EmploymentType string `json:"employmentType"` // salaried, self_employed
	CompanyName    string `json:"companyName,omitempty"`
	MonthlyIncome  string `json:"monthlyIncome"`
	UdyamNumber    string `json:"udyamNumber,omitempty"`
}

type AddressDetails struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Consent      bool   `json:"consent"`
}

// BankDetails is collected after an offer is chosen; the lender disburses to it.
type BankDetails struct {
	AccountHolderName string `json:"accountHolderName"`
	AccountNumber     string `json:"accountNumber"`
	IFSC              string `json:"ifscCode"`
	AccountType       string `json:"accountType,omitempty"`
}
