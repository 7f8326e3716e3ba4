package domain

import (
	"encoding/json"
	"fmt"
)

// Canonical profile keys. The set is closed: anything else is a custom field.
const (
	KeyFirstName  = "firstName"
	KeyLastName   = "lastName"
	KeyFatherName = "fatherName"
	KeyDOB        = "dob"
	KeyPAN        = "pan"
	KeyEmail      = "email"
	KeyPhone      = "phone"
	KeyAadhaar    = "aadhaar"
)

// Store keys that are not personal-data fields
const (
	KeyCustomFields  = "customFields"
	KeyDemoPortfolio = "demoPortfolio"
	KeyDemoProfile   = "demoProfileV3"
)

// CanonicalKeys lists the canonical fields in their inference order
var CanonicalKeys = []string{
	KeyFirstName,
	KeyLastName,
	KeyFatherName,
	KeyDOB,
	KeyPAN,
	KeyEmail,
	KeyPhone,
	KeyAadhaar,
}

// IsCanonicalKey reports whether key names a canonical profile slot
func IsCanonicalKey(key string) bool {
	for _, k := range CanonicalKeys {
		if k == key {
			return true
		}
	}
	return false
}

// SensitiveKeys are the store keys holding personal data
func SensitiveKeys() []string {
	keys := make([]string, 0, len(CanonicalKeys)+1)
	keys = append(keys, CanonicalKeys...)
	return append(keys, KeyCustomFields)
}

// Profile is the personal-data record used for autofill and learning
type Profile struct {
	FirstName    string            `json:"firstName,omitempty"`
	LastName     string            `json:"lastName,omitempty"`
	FatherName   string            `json:"fatherName,omitempty"`
	DOB          string            `json:"dob,omitempty"`
	PAN          string            `json:"pan,omitempty"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Aadhaar      string            `json:"aadhaar,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty"`
	Portfolio    *Portfolio        `json:"demoPortfolio,omitempty"`
}

// Portfolio is the user's existing holdings used by local heuristics
type Portfolio struct {
	FDRatePct      float64       `json:"fd_rate_pct"`
	FDTenureMonths int           `json:"fd_tenure_months,omitempty"`
	SpendProfile   *SpendProfile `json:"spend_profile,omitempty"`
}

// SpendProfile describes card spend mix
type SpendProfile struct {
	Online          float64 `json:"online"`
	Travel          float64 `json:"travel"`
	Dining          float64 `json:"dining"`
	MonthlySpendINR float64 `json:"monthly_spend_inr"`
}

// DefaultFDRatePct is assumed when the profile carries no portfolio
const DefaultFDRatePct = 7.2

// NewProfile returns an empty profile with an initialized custom-field map
func NewProfile() *Profile {
	return &Profile{CustomFields: make(map[string]string)}
}

// ExistingFDRate returns the portfolio FD rate or the default
func (p *Profile) ExistingFDRate() float64 {
	if p == nil || p.Portfolio == nil || p.Portfolio.FDRatePct == 0 {
		return DefaultFDRatePct
	}
	return p.Portfolio.FDRatePct
}

// Get returns the value of a canonical field
func (p *Profile) Get(key string) string {
	switch key {
	case KeyFirstName:
		return p.FirstName
	case KeyLastName:
		return p.LastName
	case KeyFatherName:
		return p.FatherName
	case KeyDOB:
		return p.DOB
	case KeyPAN:
		return p.PAN
	case KeyEmail:
		return p.Email
	case KeyPhone:
		return p.Phone
	case KeyAadhaar:
		return p.Aadhaar
	}
	return ""
}

// Set writes value under key. Canonical keys overwrite their slot; every other
// key is merged into CustomFields.
func (p *Profile) Set(key, value string) {
	switch key {
	case KeyFirstName:
		p.FirstName = value
	case KeyLastName:
		p.LastName = value
	case KeyFatherName:
		p.FatherName = value
	case KeyDOB:
		p.DOB = value
	case KeyPAN:
		p.PAN = value
	case KeyEmail:
		p.Email = value
	case KeyPhone:
		p.Phone = value
	case KeyAadhaar:
		p.Aadhaar = value
	default:
		if p.CustomFields == nil {
			p.CustomFields = make(map[string]string)
		}
		p.CustomFields[key] = value
	}
}

// Entries flattens the profile into store entries, one JSON value per key
func (p *Profile) Entries() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(CanonicalKeys)+2)
	for _, key := range CanonicalKeys {
		raw, err := json.Marshal(p.Get(key))
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}

	custom := p.CustomFields
	if custom == nil {
		custom = map[string]string{}
	}
	raw, err := json.Marshal(custom)
	if err != nil {
		return nil, err
	}
	out[KeyCustomFields] = raw

	if p.Portfolio != nil {
		raw, err := json.Marshal(p.Portfolio)
		if err != nil {
			return nil, err
		}
		out[KeyDemoPortfolio] = raw
	}

	return out, nil
}

// ProfileFromEntries rebuilds a profile from store entries. Unknown keys are
// ignored and non-string canonical values are skipped.
func ProfileFromEntries(entries map[string]json.RawMessage) (*Profile, error) {
	p := NewProfile()
	for _, key := range CanonicalKeys {
		raw, ok := entries[key]
		if !ok || len(raw) == 0 {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		p.Set(key, v)
	}

	if raw, ok := entries[KeyCustomFields]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p.CustomFields); err != nil {
			return nil, fmt.Errorf("decoding custom fields: %w", err)
		}
		if p.CustomFields == nil {
			p.CustomFields = make(map[string]string)
		}
	}

	if raw, ok := entries[KeyDemoPortfolio]; ok && len(raw) > 0 && string(raw) != "null" {
		var portfolio Portfolio
		if err := json.Unmarshal(raw, &portfolio); err != nil {
			return nil, fmt.Errorf("decoding portfolio: %w", err)
		}
		p.Portfolio = &portfolio
	}

	return p, nil
}
