package domain

import (
	"regexp"
	"strings"
)

var (
	panRegex     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarRegex = regexp.MustCompile(`^[0-9]{12}$`)
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	spaceRegex   = regexp.MustCompile(`\s+`)
)

// Validation messages shown inline when personal data is rejected
const (
	MsgInvalidAadhaar = "Aadhaar should be 12 digits. Please check and try again."
	MsgInvalidPAN     = "PAN should be in format ABCDE1234F. Please check and try again."
	MsgInvalidEmail   = "Please enter a valid email address."
)

// StripSpaces removes every whitespace rune from s
func StripSpaces(s string) string {
	return spaceRegex.ReplaceAllString(s, "")
}

// NormalizeAadhaar strips whitespace from an Aadhaar number
func NormalizeAadhaar(s string) string {
	return StripSpaces(s)
}

// IsPAN reports whether s is a PAN in canonical upper-case form
func IsPAN(s string) bool {
	return panRegex.MatchString(s)
}

// IsAadhaar reports whether s is 12 digits once whitespace is stripped
func IsAadhaar(s string) bool {
	return aadhaarRegex.MatchString(NormalizeAadhaar(s))
}

// IsEmail reports whether s looks like an email address
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// ValidateField checks a canonical value against its format rule. Keys without
// a rule and empty values always pass.
func ValidateField(key, value string) error {
	if value == "" {
		return nil
	}
	switch key {
	case KeyPAN:
		if !IsPAN(value) {
			return ValidationError(KeyPAN, MsgInvalidPAN)
		}
	case KeyAadhaar:
		if !IsAadhaar(value) {
			return ValidationError(KeyAadhaar, MsgInvalidAadhaar)
		}
	case KeyEmail:
		if !IsEmail(value) {
			return ValidationError(KeyEmail, MsgInvalidEmail)
		}
	}
	return nil
}

// ProfileDetails is the editable set of canonical fields
type ProfileDetails struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	FatherName string `json:"fatherName"`
	DOB        string `json:"dob"`
	PAN        string `json:"pan"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Aadhaar    string `json:"aadhaar"`
}

// Normalize trims every field, upper-cases the PAN and strips whitespace from
// the Aadhaar number. A blank Aadhaar keeps existingAadhaar.
func (d ProfileDetails) Normalize(existingAadhaar string) ProfileDetails {
	out := ProfileDetails{
		FirstName:  strings.TrimSpace(d.FirstName),
		LastName:   strings.TrimSpace(d.LastName),
		FatherName: strings.TrimSpace(d.FatherName),
		DOB:        strings.TrimSpace(d.DOB),
		PAN:        strings.ToUpper(strings.TrimSpace(d.PAN)),
		Email:      strings.TrimSpace(d.Email),
		Phone:      strings.TrimSpace(d.Phone),
		Aadhaar:    strings.TrimSpace(d.Aadhaar),
	}
	if out.Aadhaar == "" {
		out.Aadhaar = existingAadhaar
	}
	out.Aadhaar = NormalizeAadhaar(out.Aadhaar)
	return out
}

// Validate checks Aadhaar, PAN and email in that order and returns the first failure
func (d ProfileDetails) Validate() error {
	if err := ValidateField(KeyAadhaar, d.Aadhaar); err != nil {
		return err
	}
	if err := ValidateField(KeyPAN, d.PAN); err != nil {
		return err
	}
	return ValidateField(KeyEmail, d.Email)
}

// Apply copies the details onto p, leaving custom fields untouched
func (d ProfileDetails) Apply(p *Profile) {
	p.FirstName = d.FirstName
	p.LastName = d.LastName
	p.FatherName = d.FatherName
	p.DOB = d.DOB
	p.PAN = d.PAN
	p.Email = d.Email
	p.Phone = d.Phone
	p.Aadhaar = d.Aadhaar
}

// Details extracts the canonical fields of p
func (p *Profile) Details() ProfileDetails {
	return ProfileDetails{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		FatherName: p.FatherName,
		DOB:        p.DOB,
		PAN:        p.PAN,
		Email:      p.Email,
		Phone:      p.Phone,
		Aadhaar:    p.Aadhaar,
	}
}
