// Package formvalidation implements the per-section rules of the loan
// application form and the bank details step.
package formvalidation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	MinimumAge = 21
	DateLayout = "2006-01-02"
)

var (
	panRegex     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]{1}$`)
	mobileRegex  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	pincodeRegex = regexp.MustCompile(`^[0-9]{6}$`)
	ifscRegex    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountRegex = regexp.MustCompile(`^[0-9]{9,18}$`)
	nameRegex    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\s\-'.]{0,99}$`)
)

// IsOver21 reports whether someone born on dob is at least 21 on today.
// The year difference is reduced by one when today's month/day falls before the birthday.
func IsOver21(dob, today time.Time) bool {
	return Age(dob, today) >= MinimumAge
}

// Age in completed years on today.
func Age(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// ParseDOB parses a YYYY-MM-DD date of birth.
func ParseDOB(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func ValidPAN(s string) bool     { return panRegex.MatchString(s) }
func ValidMobile(s string) bool  { return mobileRegex.MatchString(s) }
func ValidPincode(s string) bool { return pincodeRegex.MatchString(s) }
func ValidIFSC(s string) bool    { return ifscRegex.MatchString(s) }

// ValidAccountNumber accepts 9 to 18 digits.
func ValidAccountNumber(s string) bool { return accountRegex.MatchString(s) }

func validName(s string) bool { return nameRegex.MatchString(strings.TrimSpace(s)) }

// PositiveAmount parses s as a number greater than zero.
func PositiveAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
