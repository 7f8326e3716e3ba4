package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfill/smartfill/internal/domain"
)

func TestInferKey(t *testing.T) {
	tests := []struct {
		name   string
		ev     Evidence
		want   string
		wantOK bool
	}{
		{"label mobile number", Evidence{Label: "Mobile Number"}, domain.KeyPhone, true},
		{"name first_name", Evidence{Name: "first_name"}, domain.KeyFirstName, true},
		{"placeholder date of birth", Evidence{Placeholder: "Date of Birth (DD/MM/YYYY)"}, domain.KeyDOB, true},
		{"id surname", Evidence{ID: "applicantSurname"}, domain.KeyLastName, true},
		{"father before last name", Evidence{Label: "Father's Name"}, domain.KeyFatherName, true},
		{"aadhar misspelling", Evidence{Name: "aadhar_no"}, domain.KeyAadhaar, true},
		{"pan label", Evidence{Label: "PAN"}, domain.KeyPAN, true},
		{"email e-mail", Evidence{Placeholder: "Your E-mail"}, domain.KeyEmail, true},
		{"fallback keeps hyphens", Evidence{Name: "xyz-custom-123"}, "xyz-custom-123", true},
		{"fallback normalizes whitespace", Evidence{Label: "  Nominee   Relation "}, "nominee_relation", true},
		{"fallback prefers id over label", Evidence{ID: "acct", Label: "Account"}, "acct", true},
		{"fallback prefers label over placeholder", Evidence{Label: "IFSC", Placeholder: "Enter IFSC"}, "ifsc", true},
		{"nothing to go on", Evidence{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferKey(tt.ev)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferKey_TableOrderBreaksTies(t *testing.T) {
	// "first name" and "phone" both occur; firstName is earlier in the table.
	got, ok := InferKey(Evidence{Label: "First name as on phone bill"})
	require.True(t, ok)
	assert.Equal(t, domain.KeyFirstName, got)
}

func TestInferKey_CanonicalKeywordNeverFallsBack(t *testing.T) {
	for _, entry := range Table {
		for _, kw := range entry.Keywords {
			got, ok := InferKey(Evidence{Label: kw})
			require.True(t, ok, kw)
			assert.True(t, domain.IsCanonicalKey(got), "keyword %q inferred %q", kw, got)
		}
	}
}

func TestMatch_AgreesWithInferKey(t *testing.T) {
	// "date of birth" only exists once name and id are joined.
	ev := Evidence{Name: "date of", ID: "birth"}
	key, ok := InferKey(ev)
	require.True(t, ok)
	require.Equal(t, domain.KeyDOB, key)

	p := domain.NewProfile()
	p.DOB = "1990-01-01"
	for _, c := range Candidates(p) {
		if c.Key == domain.KeyDOB {
			assert.True(t, Match(c, ev))
		}
	}
}

func TestTableMatchesCanonicalKeys(t *testing.T) {
	require.Len(t, Table, len(domain.CanonicalKeys))
	for i, entry := range Table {
		assert.Equal(t, domain.CanonicalKeys[i], entry.Key)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "123456789012", Sanitize(domain.KeyAadhaar, "1234 5678 9012"))
	assert.Equal(t, "Asha  K", Sanitize(domain.KeyFirstName, "Asha  K"))
	assert.Equal(t, "a b", Sanitize("custom_key", "a b"))
}

func TestCandidates(t *testing.T) {
	p := domain.NewProfile()
	p.FirstName = "Asha"
	p.CustomFields["nominee_name"] = "Ravi"
	p.CustomFields["account-no"] = "001122"

	got := Candidates(p)
	require.Len(t, got, len(Table)+2)

	assert.Equal(t, domain.KeyFirstName, got[0].Key)
	assert.Equal(t, "Asha", got[0].Value)
	assert.False(t, got[0].Custom)

	assert.Equal(t, "account-no", got[len(Table)].Key)
	assert.Equal(t, []string{"account no", "account-no"}, got[len(Table)].Keywords)
	assert.True(t, got[len(Table)].Custom)

	assert.Equal(t, "nominee_name", got[len(Table)+1].Key)
	assert.Equal(t, []string{"nominee name", "nominee_name"}, got[len(Table)+1].Keywords)

	assert.Nil(t, Candidates(nil))
}

func TestMatch(t *testing.T) {
	c := Candidate{Key: "nominee_name", Keywords: CustomKeywords("Nominee_Name")}

	assert.True(t, Match(c, Evidence{Label: "Nominee Name"}))
	assert.True(t, Match(c, Evidence{Name: "nominee_name"}))
	assert.True(t, Match(c, Evidence{Name: "nominee", ID: "name"}))
	assert.False(t, Match(c, Evidence{Name: "nominee"}))
	assert.False(t, Match(c, Evidence{}))
}

func TestEvidence_Pool(t *testing.T) {
	ev := Evidence{Name: "Fname", ID: "", Placeholder: "Given", Label: "First"}
	assert.Equal(t, "fname  given first", ev.Pool())
	assert.False(t, ev.IsEmpty())
	assert.True(t, Evidence{Label: "  "}.IsEmpty())
}
