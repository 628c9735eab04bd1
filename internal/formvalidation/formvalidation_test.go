package formvalidation

import (
	"testing"
	"time"

	"loan-portal/internal/common/validation"
	"loan-portal/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helpers
// ==========================

var today = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func validForm() *models.ApplicationForm {
	return &models.ApplicationForm{
		Personal: models.PersonalDetails{
			FirstName:   "Asha",
			LastName:    "Rao",
			DateOfBirth: "1995-06-01",
			PAN:         "ABCDE1234F",
			Mobile:      "9876543210",
			Email:       "asha@example.in",
		},
		Employment: models.EmploymentDetails{
			EmploymentType: "salaried",
			CompanyName:    "Acme",
			MonthlyIncome:  "85000",
		},
		Address: models.AddressDetails{
			AddressLine1: "12 MG Road",
			City:         "Bengaluru",
			State:        "KA",
			Pincode:      "560001",
			Consent:      true,
		},
	}
}

func fields(errs []validation.ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

// ==========================
// Age
// ==========================

func TestIsOver21_Boundary(t *testing.T) {
	exactly21 := today.AddDate(-21, 0, 0)
	oneDayShort := exactly21.AddDate(0, 0, 1)

	assert.True(t, IsOver21(exactly21, today))
	assert.False(t, IsOver21(oneDayShort, today))
	assert.True(t, IsOver21(exactly21.AddDate(0, 0, -1), today))
}

func TestAge_MonthDayCorrection(t *testing.T) {
	assert.Equal(t, 20, Age(time.Date(2005, time.April, 1, 0, 0, 0, 0, time.UTC), today))
	assert.Equal(t, 20, Age(time.Date(2005, time.March, 16, 0, 0, 0, 0, time.UTC), today))
	assert.Equal(t, 21, Age(time.Date(2005, time.March, 15, 0, 0, 0, 0, time.UTC), today))
	assert.Equal(t, 21, Age(time.Date(2005, time.February, 28, 0, 0, 0, 0, time.UTC), today))
}

// ==========================
// Field Rules
// ==========================

func TestFieldPatterns(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
		value string
		want  bool
	}{
		{"pan ok", ValidPAN, "ABCDE1234F", true},
		{"pan lowercase", ValidPAN, "abcde1234f", false},
		{"pan short", ValidPAN, "ABCD1234F", false},
		{"mobile ok", ValidMobile, "6123456789", true},
		{"mobile starts with 5", ValidMobile, "5123456789", false},
		{"mobile 11 digits", ValidMobile, "98765432100", false},
		{"pincode ok", ValidPincode, "560001", true},
		{"pincode 5 digits", ValidPincode, "56001", false},
		{"ifsc ok", ValidIFSC, "HDFC0001234", true},
		{"ifsc fifth not zero", ValidIFSC, "HDFC1001234", false},
		{"account ok", ValidAccountNumber, "123456789012", true},
		{"account letters", ValidAccountNumber, "12345ABC9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.value))
		})
	}
}

func TestPositiveAmount(t *testing.T) {
	v, ok := PositiveAmount("1,20,000")
	assert.True(t, ok)
	assert.Equal(t, 120000.0, v)

	for _, bad := range []string{"0", "-5", "abc", "", "NaN", "Inf", "+Infinity", "-Inf", "1e400"} {
		_, ok := PositiveAmount(bad)
		assert.False(t, ok, bad)
	}
}

// ==========================
// Sections
// ==========================

func TestValidateSection_ValidForm(t *testing.T) {
	v := NewAt(today)
	form := validForm()
	for _, s := range Sections {
		assert.True(t, v.CanAdvance(s, form), s)
	}
	assert.True(t, v.ValidateAll(form).Valid)
	assert.Empty(t, v.FirstInvalidSection(form))
}

func TestValidateSection_Failures(t *testing.T) {
	tests := []struct {
		name    string
		section string
		mutate  func(*models.ApplicationForm)
		field   string
	}{
		{"underage", SectionPersonal, func(f *models.ApplicationForm) { f.Personal.DateOfBirth = "2005-03-16" }, "personal.dob"},
		{"bad dob", SectionPersonal, func(f *models.ApplicationForm) { f.Personal.DateOfBirth = "16/03/2005" }, "personal.dob"},
		{"bad pan", SectionPersonal, func(f *models.ApplicationForm) { f.Personal.PAN = "ABC" }, "personal.pan"},
		{"bad mobile", SectionPersonal, func(f *models.ApplicationForm) { f.Personal.Mobile = "1234567890" }, "personal.mobile"},
		{"missing first name", SectionPersonal, func(f *models.ApplicationForm) { f.Personal.FirstName = " " }, "personal.firstName"},
		{"zero income", SectionEmployment, func(f *models.ApplicationForm) { f.Employment.MonthlyIncome = "0" }, "employment.monthlyIncome"},
		{"text income", SectionEmployment, func(f *models.ApplicationForm) { f.Employment.MonthlyIncome = "lots" }, "employment.monthlyIncome"},
		{"bad pincode", SectionAddress, func(f *models.ApplicationForm) { f.Address.Pincode = "5600" }, "address.pincode"},
		{"no consent", SectionAddress, func(f *models.ApplicationForm) { f.Address.Consent = false }, "address.consent"},
	}

	v := NewAt(today)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			errs := v.ValidateSection(tt.section, form)
			assert.Contains(t, fields(errs), tt.field)
			assert.False(t, v.CanAdvance(tt.section, form))
			assert.Equal(t, tt.section, v.FirstInvalidSection(form))
		})
	}
}

func TestValidateAll_ReportsEverySection(t *testing.T) {
	v := NewAt(today)
	form := validForm()
	form.Personal.PAN = ""
	form.Address.Consent = false

	res := v.ValidateAll(form)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("personal.pan"))
	assert.True(t, res.HasErrors("address.consent"))
}

func TestValidateSection_Unknown(t *testing.T) {
	errs := NewAt(today).ValidateSection("income", validForm())
	assert.Len(t, errs, 1)
	assert.Equal(t, CodeUnknownSection, errs[0].Code)
}

func TestValidateBankDetails(t *testing.T) {
	ok := &models.BankDetails{AccountHolderName: "Asha Rao", AccountNumber: "123456789012", IFSC: "hdfc0001234"}
	assert.Empty(t, ValidateBankDetails(ok))

	bad := &models.BankDetails{AccountNumber: "12", IFSC: "HDFC"}
	assert.ElementsMatch(t, []string{"bank.accountHolderName", "bank.accountNumber", "bank.ifscCode"}, fields(ValidateBankDetails(bad)))
	assert.Contains(t, Summary(ValidateBankDetails(bad)), "bank.ifscCode")
}
