package formvalidation

import (
	"fmt"
	"strings"
	"time"

	"loan-portal/internal/common/validation"
	"loan-portal/internal/models"
)

// Section names of the application form, in order.
const (
	SectionPersonal   = "personal"
	SectionEmployment = "employment"
	SectionAddress    = "address"
)

var Sections = []string{SectionPersonal, SectionEmployment, SectionAddress}

const (
	CodeMissing        = "MISSING_REQUIRED"
	CodeInvalidFormat  = "INVALID_FORMAT"
	CodeUnderage       = "UNDERAGE"
	CodeNotPositive    = "NOT_POSITIVE"
	CodeConsent        = "CONSENT_REQUIRED"
	CodeUnknownSection = "UNKNOWN_SECTION"
)

// Validator checks form sections against a fixed "today".
type Validator struct {
	now func() time.Time
}

func New() *Validator {
	return &Validator{now: time.Now}
}

// NewAt pins today, for tests and replays.
func NewAt(today time.Time) *Validator {
	return &Validator{now: func() time.Time { return today }}
}

// ValidateSection returns the field errors of one section.
func (v *Validator) ValidateSection(section string, form *models.ApplicationForm) []validation.ValidationError {
	switch section {
	case SectionPersonal:
		return v.personal(&form.Personal)
	case SectionEmployment:
		return v.employment(&form.Employment)
	case SectionAddress:
		return v.address(&form.Address)
	}
	return []validation.ValidationError{{
		Field:   section,
		Code:    CodeUnknownSection,
		Message: fmt.Sprintf("unknown form section %q", section),
	}}
}

// CanAdvance reports whether "Next" is enabled for section.
func (v *Validator) CanAdvance(section string, form *models.ApplicationForm) bool {
	return len(v.ValidateSection(section, form)) == 0
}

// ValidateAll re-validates every section in order, as the final submit does.
func (v *Validator) ValidateAll(form *models.ApplicationForm) *validation.ValidationResult {
	res := &validation.ValidationResult{}
	for _, s := range Sections {
		res.Errors = append(res.Errors, v.ValidateSection(s, form)...)
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// FirstInvalidSection is the section the borrower must return to, or "".
func (v *Validator) FirstInvalidSection(form *models.ApplicationForm) string {
	for _, s := range Sections {
		if !v.CanAdvance(s, form) {
			return s
		}
	}
	return ""
}

func (v *Validator) personal(p *models.PersonalDetails) []validation.ValidationError {
	var errs []validation.ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, validation.ValidationError{Field: "personal." + field, Code: code, Message: msg})
	}

	if strings.TrimSpace(p.FirstName) == "" {
		add("firstName", CodeMissing, "First name is required")
	} else if !validName(p.FirstName) {
		add("firstName", CodeInvalidFormat, "First name may contain letters, spaces, hyphens or apostrophes")
	}
	if strings.TrimSpace(p.LastName) == "" {
		add("lastName", CodeMissing, "Last name is required")
	} else if !validName(p.LastName) {
		add("lastName", CodeInvalidFormat, "Last name may contain letters, spaces, hyphens or apostrophes")
	}

	if strings.TrimSpace(p.DateOfBirth) == "" {
		add("dob", CodeMissing, "Date of birth is required")
	} else if dob, err := ParseDOB(p.DateOfBirth); err != nil {
		add("dob", CodeInvalidFormat, "Date of birth must be YYYY-MM-DD")
	} else if !IsOver21(dob, v.now()) {
		add("dob", CodeUnderage, "Applicant must be at least 21 years old")
	}

	switch {
	case p.PAN == "":
		add("pan", CodeMissing, "PAN is required")
	case !ValidPAN(p.PAN):
		add("pan", CodeInvalidFormat, "PAN must look like ABCDE1234F")
	}

	switch {
	case p.Mobile == "":
		add("mobile", CodeMissing, "Mobile number is required")
	case !ValidMobile(p.Mobile):
		add("mobile", CodeInvalidFormat, "Mobile number must be 10 digits starting with 6-9")
	}

	if p.Email != "" && !validation.ValidateEmail(p.Email) {
		add("email", CodeInvalidFormat, "Invalid email format")
	}
	return errs
}

func (v *Validator) employment(e *models.EmploymentDetails) []validation.ValidationError {
	var errs []validation.ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, validation.ValidationError{Field: "employment." + field, Code: code, Message: msg})
	}

	if strings.TrimSpace(e.EmploymentType) == "" {
		add("employmentType", CodeMissing, "Employment type is required")
	}
	if strings.TrimSpace(e.MonthlyIncome) == "" {
		add("monthlyIncome", CodeMissing, "Monthly income is required")
	} else if _, ok := PositiveAmount(e.MonthlyIncome); !ok {
		add("monthlyIncome", CodeNotPositive, "Monthly income must be a positive number")
	}
	return errs
}

func (v *Validator) address(a *models.AddressDetails) []validation.ValidationError {
	var errs []validation.ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, validation.ValidationError{Field: "address." + field, Code: code, Message: msg})
	}

	if strings.TrimSpace(a.AddressLine1) == "" {
		add("addressLine1", CodeMissing, "Address is required")
	}
	if strings.TrimSpace(a.City) == "" {
		add("city", CodeMissing, "City is required")
	}
	if strings.TrimSpace(a.State) == "" {
		add("state", CodeMissing, "State is required")
	}
	switch {
	case a.Pincode == "":
		add("pincode", CodeMissing, "Pincode is required")
	case !ValidPincode(a.Pincode):
		add("pincode", CodeInvalidFormat, "Pincode must be 6 digits")
	}
	if !a.Consent {
		add("consent", CodeConsent, "Consent is required to proceed")
	}
	return errs
}

// ValidateBankDetails checks the disbursal account.
func ValidateBankDetails(b *models.BankDetails) []validation.ValidationError {
	var errs []validation.ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, validation.ValidationError{Field: "bank." + field, Code: code, Message: msg})
	}

	if strings.TrimSpace(b.AccountHolderName) == "" {
		add("accountHolderName", CodeMissing, "Account holder name is required")
	}
	switch {
	case b.AccountNumber == "":
		add("accountNumber", CodeMissing, "Account number is required")
	case !ValidAccountNumber(b.AccountNumber):
		add("accountNumber", CodeInvalidFormat, "Account number must be 9 to 18 digits")
	}
	switch {
	case b.IFSC == "":
		add("ifscCode", CodeMissing, "IFSC is required")
	case !ValidIFSC(strings.ToUpper(b.IFSC)):
		add("ifscCode", CodeInvalidFormat, "IFSC must look like HDFC0001234")
	}
	return errs
}

// Summary joins errors into one line for a ValidationFailed error.
func Summary(errs []validation.ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}
